package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate はスキーマを適用する。プロセス起動時にエントリポイントから明示的に
// 呼び出す（遅延初期化はしない）。すべての文は冪等。
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimension int) error {
	if embeddingDimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", embeddingDimension)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			total INTEGER NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, embeddingDimension),

		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			cited_sources TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_conversations_session_id
			ON conversations (session_id)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id BIGSERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			file_path TEXT NOT NULL,
			content_hash VARCHAR(64) NOT NULL UNIQUE,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}
