package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/docs-rag/internal/core/ingestion"
)

// DocumentRepository は処理済み文書記録の永続化アダプター
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository は新しい DocumentRepository を作成する
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// インターフェース実装の確認
var _ ingestion.RecordStore = (*DocumentRepository)(nil)

// InsertRecord は記録を登録する。content_hash が既存の場合は何もしない（冪等）。
// 実際に挿入された場合のみ true を返す。
func (r *DocumentRepository) InsertRecord(ctx context.Context, record *ingestion.Record) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO documents (filename, file_path, content_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_hash) DO NOTHING
	`,
		record.Filename,
		record.Path,
		record.ContentHash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert document record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountRecords は記録件数を返す
func (r *DocumentRepository) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count document records: %w", err)
	}
	return count, nil
}

// DeleteRecords は全記録を削除し、削除件数を返す
func (r *DocumentRepository) DeleteRecords(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document records: %w", err)
	}
	return tag.RowsAffected(), nil
}
