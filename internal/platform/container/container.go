package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/docs-rag/internal/core/answer"
	"github.com/jinford/docs-rag/internal/core/chat"
	"github.com/jinford/docs-rag/internal/core/chunk"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	"github.com/jinford/docs-rag/internal/core/retrieval"
	"github.com/jinford/docs-rag/internal/infra/corpus"
	"github.com/jinford/docs-rag/internal/infra/openai"
	"github.com/jinford/docs-rag/internal/infra/postgres"
	"github.com/jinford/docs-rag/internal/infra/tokenizer"
	"github.com/jinford/docs-rag/internal/platform/config"
	"github.com/jinford/docs-rag/internal/platform/database"
)

// Embedder は取り込みと検索の両方で使う埋め込みクライアント
type Embedder interface {
	ingestion.Embedder
	retrieval.Embedder
}

// VectorIndex はチャンクの保存と類似検索の両方を担うインデックス
type VectorIndex interface {
	ingestion.VectorStore
	retrieval.Index
}

// ServiceContainer はアプリケーション全体の依存関係を保持する。
// グローバル変数に頼らず、すべての配線をここで明示的に行う。
type ServiceContainer struct {
	ChatService      *chat.Service
	IngestionService *ingestion.Service
	RetrievalService *retrieval.Service
	Synthesizer      *answer.Synthesizer

	logger   *slog.Logger
	database *database.Database
}

type containerOptions struct {
	logger            *slog.Logger
	embedder          Embedder
	generator         answer.Generator
	vectorIndex       VectorIndex
	source            ingestion.Source
	conversationStore chat.ConversationStore
	recordStore       ingestion.RecordStore
	tokenCounter      answer.TokenCounter
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerGenerator は回答生成クライアントを差し替える
func WithContainerGenerator(generator answer.Generator) ContainerOption {
	return func(opts *containerOptions) {
		opts.generator = generator
	}
}

// WithContainerVectorIndex はベクトルインデックスを差し替える
func WithContainerVectorIndex(index VectorIndex) ContainerOption {
	return func(opts *containerOptions) {
		opts.vectorIndex = index
	}
}

// WithContainerSource はコーパスソースを差し替える
func WithContainerSource(source ingestion.Source) ContainerOption {
	return func(opts *containerOptions) {
		opts.source = source
	}
}

// WithContainerConversationStore は会話ストアを差し替える
func WithContainerConversationStore(store chat.ConversationStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.conversationStore = store
	}
}

// WithContainerRecordStore は文書記録ストアを差し替える
func WithContainerRecordStore(store ingestion.RecordStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.recordStore = store
	}
}

// WithContainerTokenCounter はトークンカウンタを差し替える
func WithContainerTokenCounter(counter answer.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// NewContainer は設定からコンテナを生成する。
// データベース接続とスキーママイグレーションもここで行う。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	if err := postgres.Migrate(ctx, db.Pool, cfg.OpenAI.EmbeddingDimension); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーママイグレーションに失敗しました: %w", err)
	}

	cont, err := NewContainerWithDB(cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cont, nil
}

// NewContainerWithDB は既存の Database を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.Database, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}

	// Generator (OpenAI)。APIキーが無い場合は nil のままにして、
	// Synthesizer に未設定時の固定応答を返させる。
	generator := options.generator
	if generator == nil && cfg.OpenAI.APIKey != "" {
		openaiGenerator, err := openai.NewGenerator(
			cfg.OpenAI.APIKey,
			openai.WithGenerationModel(cfg.OpenAI.GenerationModel),
			openai.WithTemperature(cfg.OpenAI.Temperature),
		)
		if err != nil {
			return nil, fmt.Errorf("Generator 初期化に失敗しました: %w", err)
		}
		generator = openaiGenerator
	}

	// VectorIndex (pgvector)
	vectorIndex := options.vectorIndex
	if vectorIndex == nil {
		vectorIndex = postgres.NewVectorIndex(db.Pool)
	}

	// コーパスソース (Git または ローカルファイルシステム)
	source := options.source
	if source == nil {
		if cfg.Corpus.GitURL != "" {
			gitOpts := []corpus.GitSourceOption{
				corpus.WithDocsSubdir(cfg.Corpus.GitDocsSubdir),
			}
			if cfg.Corpus.GitRef != "" {
				gitOpts = append(gitOpts, corpus.WithRef(cfg.Corpus.GitRef))
			}
			if cfg.Corpus.GitCloneDir != "" {
				gitOpts = append(gitOpts, corpus.WithCloneDir(cfg.Corpus.GitCloneDir))
			}
			gitSource, err := corpus.NewGitSource(cfg.Corpus.GitURL, gitOpts...)
			if err != nil {
				return nil, fmt.Errorf("Git ソース初期化に失敗しました: %w", err)
			}
			source = gitSource
		} else {
			source = corpus.NewFSSource(cfg.Corpus.DocsPath)
		}
	}

	// ストア (PostgreSQL)
	conversationStore := options.conversationStore
	if conversationStore == nil {
		conversationStore = postgres.NewConversationRepository(db.Pool)
	}
	recordStore := options.recordStore
	if recordStore == nil {
		recordStore = postgres.NewDocumentRepository(db.Pool)
	}

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		tk, err := tokenizer.New()
		if err != nil {
			return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
		}
		tokenCounter = tk
	}

	// IngestionService
	splitter := chunk.NewSplitter(
		chunk.WithChunkSize(cfg.Corpus.ChunkSize),
		chunk.WithOverlap(cfg.Corpus.ChunkOverlap),
	)
	ingestionService := ingestion.NewService(
		source,
		embedder,
		vectorIndex,
		recordStore,
		ingestion.WithSplitter(splitter),
		ingestion.WithIngestLogger(options.logger),
	)

	// RetrievalService
	retrievalService := retrieval.NewService(
		embedder,
		vectorIndex,
		retrieval.WithLogger(options.logger),
	)

	// Synthesizer
	synthesizer := answer.NewSynthesizer(
		generator,
		answer.WithTokenCounter(tokenCounter),
		answer.WithMaxContextTokens(cfg.Chat.MaxContextTokens),
		answer.WithSynthesizerLogger(options.logger),
	)

	// ChatService
	chatService := chat.NewService(
		retrievalService,
		synthesizer,
		conversationStore,
		chat.WithScoreThreshold(cfg.Chat.SimilarityThreshold),
		chat.WithChatLogger(options.logger),
	)

	return &ServiceContainer{
		ChatService:      chatService,
		IngestionService: ingestionService,
		RetrievalService: retrievalService,
		Synthesizer:      synthesizer,
		logger:           options.logger,
		database:         db,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}
