package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/docs-rag/internal/core/chunk"
	"github.com/jinford/docs-rag/internal/core/document"
)

const (
	// DefaultEmbedBatchSize は1回の BatchEmbed に渡すチャンク数の上限
	DefaultEmbedBatchSize = 100
)

// Service はコーパスのインジェスト（分割・埋め込み・登録）ユースケースを提供する
type Service struct {
	source         Source
	embedder       Embedder
	vectors        VectorStore
	records        RecordStore
	splitter       *chunk.Splitter
	embedBatchSize int
	logger         *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithSplitter はチャンク分割器を差し替える
func WithSplitter(splitter *chunk.Splitter) ServiceOption {
	return func(s *Service) {
		s.splitter = splitter
	}
}

// WithEmbedBatchSize は埋め込みバッチサイズを上書きする
func WithEmbedBatchSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.embedBatchSize = size
		}
	}
}

// WithIngestLogger は Service にロガーを設定する
func WithIngestLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(
	source Source,
	embedder Embedder,
	vectors VectorStore,
	records RecordStore,
	opts ...ServiceOption,
) *Service {
	svc := &Service{
		source:         source,
		embedder:       embedder,
		vectors:        vectors,
		records:        records,
		splitter:       chunk.NewSplitter(),
		embedBatchSize: DefaultEmbedBatchSize,
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

// Ingest はコーパス全体を処理してベクトルストアに登録する。
//
// 文書ごとに 分割 → 埋め込み → upsert → 記録挿入 を行い、途中で失敗した
// 文書はエラーとして収集して残りの処理を続ける。コーパスのパスが存在しない
// 場合は進捗ゼロの Result を返し、エラーにはしない。
func (s *Service) Ingest(ctx context.Context) (*Result, error) {
	start := time.Now()

	docs, err := s.source.FetchDocuments(ctx)
	if err != nil {
		if errors.Is(err, ErrCorpusNotFound) {
			return &Result{
				Message: fmt.Sprintf("corpus %q not found, nothing to ingest", s.source.Name()),
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch corpus documents: %w", err)
	}

	if len(docs) == 0 {
		return &Result{
			Message: fmt.Sprintf("no documents found in corpus %q", s.source.Name()),
		}, nil
	}

	result := &Result{}
	for _, doc := range docs {
		chunks, err := s.ingestDocument(ctx, doc)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", doc.Path, err))
			continue
		}
		result.ProcessedDocuments++
		result.TotalChunks += chunks

		inserted, err := s.records.InsertRecord(ctx, &Record{
			Filename:    doc.Filename,
			Path:        doc.Path,
			ContentHash: document.Chunk{Content: doc.Text}.ContentHash(),
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: failed to save record: %v", doc.Path, err))
			continue
		}
		if inserted {
			result.SavedRecords++
		}
	}

	result.Message = fmt.Sprintf(
		"Successfully processed %d documents into %d chunks. %d new records saved.",
		result.ProcessedDocuments, result.TotalChunks, result.SavedRecords,
	)

	s.logger.Info("ingestion completed",
		"documents", result.ProcessedDocuments,
		"chunks", result.TotalChunks,
		"savedRecords", result.SavedRecords,
		"errors", len(result.Errors),
		"duration", time.Since(start).String(),
	)

	return result, nil
}

// ingestDocument は1文書を分割・埋め込みしてベクトルストアに登録し、チャンク数を返す
func (s *Service) ingestDocument(ctx context.Context, doc *SourceDocument) (int, error) {
	texts := s.splitter.Split(doc.Text)
	if len(texts) == 0 {
		return 0, nil
	}

	chunks := make([]*document.EmbeddedChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &document.EmbeddedChunk{
			Chunk: document.Chunk{
				Content: text,
				Source:  fmt.Sprintf("%s#chunk-%d", doc.Path, i),
				Ordinal: i,
				Total:   len(texts),
				Metadata: map[string]string{
					"filename": doc.Filename,
					"filePath": doc.Path,
				},
			},
		})
	}

	// バッチ上限を守りながら入力順通りにベクトルを割り当てる
	for offset := 0; offset < len(chunks); offset += s.embedBatchSize {
		end := offset + s.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		batchTexts := make([]string, len(batch))
		for i, c := range batch {
			batchTexts[i] = c.Content
		}

		vectors, err := s.embedder.BatchEmbed(ctx, batchTexts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		for i, v := range vectors {
			batch[i].Vector = v
		}
	}

	if err := s.vectors.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	return len(chunks), nil
}

// Status は処理済み文書件数とベクトル件数を返す。
// ベクトル件数の取得失敗は致命的ではないため、警告ログに記録して 0 のまま返す。
func (s *Service) Status(ctx context.Context) (*Status, error) {
	records, err := s.records.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count document records: %w", err)
	}

	status := &Status{
		DocumentRecords: records,
		CorpusName:      s.source.Name(),
	}

	vectors, err := s.vectors.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count vectors", "error", err)
		return status, nil
	}
	status.VectorCount = vectors

	return status, nil
}

// Clear はベクトルストアと文書記録を全削除する。
// 片方の失敗はもう片方の削除を妨げず、エラーとして収集される。
func (s *Service) Clear(ctx context.Context) (*ClearResult, error) {
	result := &ClearResult{}

	if err := s.vectors.DeleteAll(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to clear vector index: %v", err))
	} else {
		result.VectorsCleared = true
	}

	deleted, err := s.records.DeleteRecords(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to delete document records: %v", err))
	} else {
		result.RecordsDeleted = deleted
	}

	s.logger.Info("corpus cleared",
		"vectorsCleared", result.VectorsCleared,
		"recordsDeleted", result.RecordsDeleted,
		"errors", len(result.Errors),
	)

	return result, nil
}
