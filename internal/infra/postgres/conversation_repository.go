package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/docs-rag/internal/core/chat"
)

// ConversationRepository は会話履歴の永続化アダプター
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository は新しい ConversationRepository を作成する
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// インターフェース実装の確認
var _ chat.ConversationStore = (*ConversationRepository)(nil)

// InsertTurn は1往復の会話を追記する
func (r *ConversationRepository) InsertTurn(ctx context.Context, turn *chat.Turn) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (session_id, user_message, bot_response, cited_sources, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		turn.SessionID,
		turn.UserMessage,
		turn.BotResponse,
		turn.CitedSources,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation turn: %w", err)
	}
	return nil
}

// ListTurns はセッションの会話履歴を作成日時の昇順で返す
func (r *ConversationRepository) ListTurns(ctx context.Context, sessionID string) ([]*chat.Turn, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, user_message, bot_response, cited_sources, created_at
		FROM conversations
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}
	defer rows.Close()

	turns := []*chat.Turn{}
	for rows.Next() {
		turn := &chat.Turn{}
		if err := rows.Scan(
			&turn.SessionID,
			&turn.UserMessage,
			&turn.BotResponse,
			&turn.CitedSources,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation turns: %w", err)
	}

	return turns, nil
}

// DeleteTurns はセッションの会話履歴を削除し、削除件数を返す
func (r *ConversationRepository) DeleteTurns(ctx context.Context, sessionID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation turns: %w", err)
	}
	return tag.RowsAffected(), nil
}
