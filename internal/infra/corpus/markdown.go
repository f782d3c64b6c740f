package corpus

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractText は Markdown ソースから見出し記号やリンク構文を取り除いた
// プレーンテキストを抽出する。チャンク分割の入力として使う。
func ExtractText(source []byte) string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				sb.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteString("\n")
				}
			case *ast.String:
				sb.Write(node.Value)
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				writeCodeLines(&sb, n, source)
				return ast.WalkSkipChildren, nil
			case *ast.AutoLink:
				sb.Write(node.URL(source))
			}
			return ast.WalkContinue, nil
		}

		// ブロック要素の区切りを空行として残す
		if n.Type() == ast.TypeBlock {
			sb.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})

	return collapseBlankLines(sb.String())
}

// writeCodeLines はコードブロックの本文を行単位で書き出す
func writeCodeLines(sb *strings.Builder, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
	sb.WriteString("\n\n")
}

// collapseBlankLines は3行以上連続する空行を1つの空行にまとめ、前後の空白を除去する
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
