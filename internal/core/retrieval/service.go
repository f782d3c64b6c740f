package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const (
	// DefaultLimit は取得件数未指定時のデフォルト値
	DefaultLimit = 5
)

// ErrQueryEmbedding はクエリの埋め込みに失敗し検索が成立しなかったことを示す
var ErrQueryEmbedding = errors.New("failed to embed query")

// Embedder はクエリテキストをベクトルに変換するインターフェース
type Embedder interface {
	// Embed はテキストから Embedding ベクトルを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index はベクトル類似検索を提供するインターフェース
type Index interface {
	// Search はクエリベクトルに類似するチャンクを類似度降順で返す。
	// threshold 未満のスコアの結果は含まれない。
	Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]*RetrievedContext, error)
}

// Service は Embedder とベクトルインデックスを組み合わせて
// クエリに関連するコンテキストを取得する
type Service struct {
	embedder Embedder
	index    Index
	logger   *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(embedder Embedder, index Index, opts ...ServiceOption) *Service {
	svc := &Service{
		embedder: embedder,
		index:    index,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Retrieve はクエリを一度だけ埋め込み、類似チャンクを取得する。
// Embedder の失敗はそのまま返す（埋め込みなしでは検索が成立しないため）。
// インデックス側の失敗はログに記録して空の結果に縮退する。
// インデックスが空の結果を返すのは「関連コンテキストなし」という正常な結果であり、
// エラーではない。
func (s *Service) Retrieve(ctx context.Context, query string, limit int, threshold float64) ([]*RetrievedContext, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
	}

	results, err := s.index.Search(ctx, vector, limit, threshold)
	if err != nil {
		s.logger.Warn("vector index search failed, degrading to empty context",
			"error", err,
			"limit", limit,
			"threshold", threshold,
		)
		return nil, nil
	}

	s.logger.Info("retrieval completed",
		"results", len(results),
		"limit", limit,
		"threshold", threshold,
	)

	return results, nil
}
