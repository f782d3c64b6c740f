package document

import (
	"crypto/sha256"
	"encoding/hex"
)

// Chunk は検索単位となる文書の断片を表す。
// インジェスト時に生成され、以後は不変。元テキストが変わった場合は
// 再インジェストで新しいチャンクに置き換えられる。
type Chunk struct {
	// Content はチャンクの本文
	Content string `json:"content"`

	// Source は引用表示用のソースラベル（例: docs/intro.md#chunk-2）
	Source string `json:"source"`

	// Ordinal は文書内のチャンク通し番号（0始まり）
	Ordinal int `json:"ordinal"`

	// Total は文書内の総チャンク数
	Total int `json:"total"`

	// Metadata は元文書に由来する付加情報
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ContentHash は本文から導出したコンテンツアドレスを返す。
// 同一本文のチャンクは常に同じハッシュになるため、ベクトルストアへの
// 再投入は重複ではなく上書きになる。
func (c Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}

// EmbeddedChunk は Embedding ベクトルを付与したチャンクを表す。
// ベクトルストアへ upsert された後の所有権はストア側にある。
type EmbeddedChunk struct {
	Chunk

	// Vector は固定次元の Embedding ベクトル
	Vector []float32 `json:"vector"`
}
