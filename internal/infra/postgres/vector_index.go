package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/docs-rag/internal/core/document"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	"github.com/jinford/docs-rag/internal/core/retrieval"
	pgvector "github.com/pgvector/pgvector-go"
)

// VectorIndex は pgvector によるベクトルインデックスの永続化アダプター。
// コンテンツハッシュを主キーとするため、同一本文のチャンクの再投入は
// 重複ではなく上書きになる。
type VectorIndex struct {
	pool *pgxpool.Pool
}

// NewVectorIndex は新しい VectorIndex を作成する
func NewVectorIndex(pool *pgxpool.Pool) *VectorIndex {
	return &VectorIndex{pool: pool}
}

// インターフェース実装の確認
var _ ingestion.VectorStore = (*VectorIndex)(nil)
var _ retrieval.Index = (*VectorIndex)(nil)

// Upsert はチャンクを登録・上書きする
func (v *VectorIndex) Upsert(ctx context.Context, chunks []*document.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		batch.Queue(`
			INSERT INTO document_chunks (id, content, source, ordinal, total, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				source = EXCLUDED.source,
				ordinal = EXCLUDED.ordinal,
				total = EXCLUDED.total,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`,
			chunk.ContentHash(),
			chunk.Content,
			chunk.Source,
			int32(chunk.Ordinal),
			int32(chunk.Total),
			metadata,
			pgvector.NewVector(chunk.Vector),
		)
	}

	results := v.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk: %w", err)
		}
	}

	return nil
}

// Search はコサイン類似度の降順で limit 件までのチャンクを返す。
// threshold 未満のスコアの結果は除外される。
func (v *VectorIndex) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]*retrieval.RetrievedContext, error) {
	rows, err := v.pool.Query(ctx, `
		SELECT content, source, ordinal, total, metadata,
		       1 - (embedding <=> $1) AS score
		FROM document_chunks
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(vector), threshold, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []*retrieval.RetrievedContext
	for rows.Next() {
		var (
			chunk    document.Chunk
			metadata []byte
			score    float64
		)
		if err := rows.Scan(&chunk.Content, &chunk.Source, &chunk.Ordinal, &chunk.Total, &metadata, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}

		results = append(results, &retrieval.RetrievedContext{
			Chunk: chunk,
			Score: score,
			Rank:  len(results),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}

	return results, nil
}

// DeleteAll は全チャンクを削除する
func (v *VectorIndex) DeleteAll(ctx context.Context) error {
	if _, err := v.pool.Exec(ctx, `TRUNCATE document_chunks`); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Count は登録済みチャンク数を返す
func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := v.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
