package answer

import (
	"fmt"
	"strings"

	"github.com/jinford/docs-rag/internal/core/retrieval"
)

// BuildPrompt は取得済みコンテキストからグラウンディングされたプロンプトを構築する。
// コンテキストは受け取った順（類似度降順）のままラベル付きブロックとして並べる。
func BuildPrompt(query string, contexts []*retrieval.RetrievedContext) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful assistant that answers questions about the documentation collection.\n\n")

	sb.WriteString("## Guidelines\n")
	sb.WriteString("- Answer using only the information in the context below\n")
	sb.WriteString("- If the context does not contain enough information to answer, say so explicitly and name what information is missing\n")
	sb.WriteString("- Do not invent facts that are not present in the context\n\n")

	sb.WriteString("## Context\n")
	for _, rc := range contexts {
		sb.WriteString(formatContextBlock(rc))
	}

	sb.WriteString("## Question\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString("## Answer\n")

	return sb.String()
}

// formatContextBlock は1件のコンテキストをラベル付きブロックとして整形する
func formatContextBlock(rc *retrieval.RetrievedContext) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document: %s\n", rc.Chunk.Source))
	sb.WriteString(fmt.Sprintf("Content: %s\n\n", rc.Chunk.Content))
	return sb.String()
}
