package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/docs-rag/internal/core/retrieval"
)

// Retriever はクエリに関連するコンテキストを取得するインターフェース
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, threshold float64) ([]*retrieval.RetrievedContext, error)
}

// Synthesizer はコンテキストから回答を合成するインターフェース
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, contexts []*retrieval.RetrievedContext) string
}

// ConversationStore は会話履歴の永続化インターフェース
type ConversationStore interface {
	// InsertTurn は1往復の会話を追記する
	InsertTurn(ctx context.Context, turn *Turn) error

	// ListTurns はセッションの会話履歴を作成日時の昇順で返す
	ListTurns(ctx context.Context, sessionID string) ([]*Turn, error)

	// DeleteTurns はセッションの会話履歴を削除し、削除件数を返す
	DeleteTurns(ctx context.Context, sessionID string) (int64, error)
}

// Service はRAGベースの質問応答ユースケースを提供する
type Service struct {
	retriever      Retriever
	synthesizer    Synthesizer
	store          ConversationStore
	scoreThreshold float64
	logger         *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithScoreThreshold は検索の類似度しきい値を上書きする
func WithScoreThreshold(threshold float64) ServiceOption {
	return func(s *Service) {
		s.scoreThreshold = threshold
	}
}

// WithChatLogger は Service にロガーを設定する
func WithChatLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// DefaultScoreThreshold は類似度しきい値のデフォルト値
const DefaultScoreThreshold = 0.7

// NewService は新しい Service を作成する
func NewService(
	retriever Retriever,
	synthesizer Synthesizer,
	store ConversationStore,
	opts ...ServiceOption,
) *Service {
	svc := &Service{
		retriever:      retriever,
		synthesizer:    synthesizer,
		store:          store,
		scoreThreshold: DefaultScoreThreshold,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Answer はユーザーメッセージに対してRAGベースで回答を生成する。
//
// 会話履歴の保存はベストエフォートで、失敗してもユーザーへの回答は成立させる
// （履歴は補助情報であり、可用性を耐久性より優先する）。
func (s *Service) Answer(ctx context.Context, params AskParams) (*AskResult, error) {
	if params.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	// セッションIDが未指定ならリクエストごとに新規発行する
	sessionID := params.SessionID.OrElse(uuid.New().String())

	contexts, err := s.retriever.Retrieve(ctx, params.Message, params.MaxContextDocs, s.scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	response := s.synthesizer.Synthesize(ctx, params.Message, contexts)

	sources := collectSources(contexts)

	turn := &Turn{
		SessionID:    sessionID,
		UserMessage:  params.Message,
		BotResponse:  response,
		CitedSources: sources,
		CreatedAt:    time.Now(),
	}
	if err := s.store.InsertTurn(ctx, turn); err != nil {
		s.logger.Warn("failed to persist conversation turn",
			"sessionID", sessionID,
			"error", err,
		)
	}

	s.logger.Info("chat answered",
		"sessionID", sessionID,
		"contexts", len(contexts),
		"sources", len(sources),
	)

	return &AskResult{
		Response:  response,
		SessionID: sessionID,
		Contexts:  contexts,
		Sources:   sources,
	}, nil
}

// History はセッションの会話履歴を返す
func (s *Service) History(ctx context.Context, sessionID string) ([]*Turn, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	turns, err := s.store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}
	return turns, nil
}

// DeleteSession はセッションの会話履歴を削除し、削除件数を返す
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("sessionID is required")
	}

	affected, err := s.store.DeleteTurns(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation turns: %w", err)
	}

	s.logger.Info("session deleted", "sessionID", sessionID, "turns", affected)
	return affected, nil
}

// collectSources はコンテキストのソースラベルを順序を保ったまま重複排除して返す。
// 返り値は常にコンテキスト集合のソースの部分集合になる。
func collectSources(contexts []*retrieval.RetrievedContext) []string {
	sources := make([]string, 0, len(contexts))
	seen := make(map[string]struct{}, len(contexts))
	for _, rc := range contexts {
		if _, ok := seen[rc.Chunk.Source]; ok {
			continue
		}
		seen[rc.Chunk.Source] = struct{}{}
		sources = append(sources, rc.Chunk.Source)
	}
	return sources
}
