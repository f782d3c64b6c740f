package retrieval

import (
	"github.com/jinford/docs-rag/internal/core/document"
)

// RetrievedContext はベクトル検索で取得したコンテキストを表す。
// クエリごとに生成される一時的なデータで、レスポンスを超えて永続化されない。
type RetrievedContext struct {
	// Chunk は取得したチャンク
	Chunk document.Chunk `json:"chunk"`

	// Score はクエリとのコサイン類似度
	Score float64 `json:"score"`

	// Rank は類似度降順での順位（0始まり）
	Rank int `json:"rank"`
}
