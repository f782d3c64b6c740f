package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/docs-rag/internal/core/document"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	"github.com/jinford/docs-rag/internal/core/retrieval"
)

// VectorIndex は総当たりコサイン類似度によるインメモリのベクトルインデックス。
// テストと資格情報なしのローカル開発に使う。コンテンツハッシュをキーとして
// 保持するため、永続アダプターと同じ upsert セマンティクスを持つ。
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]*document.EmbeddedChunk
}

// NewVectorIndex は新しい VectorIndex を作成する
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		entries: make(map[string]*document.EmbeddedChunk),
	}
}

// インターフェース実装の確認
var _ ingestion.VectorStore = (*VectorIndex)(nil)
var _ retrieval.Index = (*VectorIndex)(nil)

// Upsert はコンテンツハッシュをキーにチャンクを登録・上書きする
func (v *VectorIndex) Upsert(ctx context.Context, chunks []*document.EmbeddedChunk) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector", chunk.Source)
		}
		v.entries[chunk.ContentHash()] = chunk
	}
	return nil
}

// Search はコサイン類似度の降順で limit 件までのチャンクを返す
func (v *VectorIndex) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]*retrieval.RetrievedContext, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	type scored struct {
		chunk *document.EmbeddedChunk
		score float64
	}

	matches := make([]scored, 0, len(v.entries))
	for _, entry := range v.entries {
		score := cosineSimilarity(vector, entry.Vector)
		if score < threshold {
			continue
		}
		matches = append(matches, scored{chunk: entry, score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]*retrieval.RetrievedContext, 0, len(matches))
	for i, m := range matches {
		results = append(results, &retrieval.RetrievedContext{
			Chunk: m.chunk.Chunk,
			Score: m.score,
			Rank:  i,
		})
	}
	return results, nil
}

// DeleteAll は全チャンクを削除する
func (v *VectorIndex) DeleteAll(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = make(map[string]*document.EmbeddedChunk)
	return nil
}

// Count は登録済みチャンク数を返す
func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return int64(len(v.entries)), nil
}

// cosineSimilarity は2つのベクトルのコサイン類似度を返す
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
