package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/docs-rag/internal/core/chunk"
	"github.com/jinford/docs-rag/internal/core/document"
)

type stubSource struct {
	name string
	docs []*SourceDocument
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchDocuments(ctx context.Context) ([]*SourceDocument, error) {
	return s.docs, s.err
}

type stubEmbedder struct {
	err        error
	batchSizes []int
}

func (e *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batchSizes = append(e.batchSizes, len(texts))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (e *stubEmbedder) Dimension() int { return 2 }

type stubVectorStore struct {
	upserted  []*document.EmbeddedChunk
	upsertErr error
	deleteErr error
	deleted   bool
	count     int64
	countErr  error
}

func (s *stubVectorStore) Upsert(ctx context.Context, chunks []*document.EmbeddedChunk) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, chunks...)
	return nil
}

func (s *stubVectorStore) DeleteAll(ctx context.Context) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = true
	return nil
}

func (s *stubVectorStore) Count(ctx context.Context) (int64, error) {
	return s.count, s.countErr
}

type stubRecordStore struct {
	records   []*Record
	duplicate bool
	insertErr error
	count     int64
	deleted   int64
	deleteErr error
}

func (s *stubRecordStore) InsertRecord(ctx context.Context, record *Record) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if s.duplicate {
		return false, nil
	}
	s.records = append(s.records, record)
	return true, nil
}

func (s *stubRecordStore) CountRecords(ctx context.Context) (int64, error) {
	return s.count, nil
}

func (s *stubRecordStore) DeleteRecords(ctx context.Context) (int64, error) {
	return s.deleted, s.deleteErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_IngestProcessesDocuments(t *testing.T) {
	source := &stubSource{
		name: "docs",
		docs: []*SourceDocument{
			{Filename: "guide.md", Path: "guide.md", Text: "Sentence one is long enough. Sentence two is long enough. Sentence three ends the document."},
		},
	}
	vectors := &stubVectorStore{}
	records := &stubRecordStore{}
	svc := NewService(source, &stubEmbedder{}, vectors, records,
		WithSplitter(chunk.NewSplitter(chunk.WithChunkSize(40), chunk.WithOverlap(5))),
		WithIngestLogger(discardLogger()),
	)

	result, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedDocuments)
	assert.Greater(t, result.TotalChunks, 1)
	assert.Equal(t, 1, result.SavedRecords)
	assert.Empty(t, result.Errors)

	require.NotEmpty(t, vectors.upserted)
	first := vectors.upserted[0]
	assert.Equal(t, "guide.md#chunk-0", first.Source)
	assert.Equal(t, 0, first.Ordinal)
	assert.Equal(t, len(vectors.upserted), first.Total)
	assert.Equal(t, "guide.md", first.Metadata["filename"])
	assert.NotEmpty(t, first.Vector)

	require.Len(t, records.records, 1)
	assert.NotEmpty(t, records.records[0].ContentHash)
}

func TestService_IngestMissingCorpusReturnsZeroProgress(t *testing.T) {
	source := &stubSource{name: "docs", err: ErrCorpusNotFound}
	svc := NewService(source, &stubEmbedder{}, &stubVectorStore{}, &stubRecordStore{},
		WithIngestLogger(discardLogger()),
	)

	result, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.ProcessedDocuments)
	assert.Zero(t, result.TotalChunks)
	assert.Contains(t, result.Message, "not found")
}

func TestService_IngestCollectsPerDocumentErrors(t *testing.T) {
	// 埋め込みが失敗しても処理全体はエラーにならず、失敗文書が記録される
	source := &stubSource{
		name: "docs",
		docs: []*SourceDocument{
			{Filename: "a.md", Path: "a.md", Text: "some content"},
		},
	}
	embedder := &stubEmbedder{err: errors.New("api unreachable")}
	svc := NewService(source, embedder, &stubVectorStore{}, &stubRecordStore{},
		WithIngestLogger(discardLogger()),
	)

	result, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.ProcessedDocuments)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "a.md")
}

func TestService_IngestDuplicateContentNotCountedAsSaved(t *testing.T) {
	source := &stubSource{
		name: "docs",
		docs: []*SourceDocument{
			{Filename: "a.md", Path: "a.md", Text: "unchanged content"},
		},
	}
	records := &stubRecordStore{duplicate: true}
	svc := NewService(source, &stubEmbedder{}, &stubVectorStore{}, records,
		WithIngestLogger(discardLogger()),
	)

	result, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedDocuments)
	assert.Zero(t, result.SavedRecords)
}

func TestService_IngestRespectsEmbedBatchSize(t *testing.T) {
	source := &stubSource{
		name: "docs",
		docs: []*SourceDocument{
			{Filename: "a.md", Path: "a.md", Text: "aaaaaaaaaa bbbbbbbbbb cccccccccc dddddddddd eeeeeeeeee"},
		},
	}
	embedder := &stubEmbedder{}
	svc := NewService(source, embedder, &stubVectorStore{}, &stubRecordStore{},
		WithSplitter(chunk.NewSplitter(chunk.WithChunkSize(12), chunk.WithOverlap(0))),
		WithEmbedBatchSize(2),
		WithIngestLogger(discardLogger()),
	)

	_, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, embedder.batchSizes)
	for _, size := range embedder.batchSizes {
		assert.LessOrEqual(t, size, 2)
	}
}

func TestService_StatusReportsCounts(t *testing.T) {
	svc := NewService(&stubSource{name: "docs"}, &stubEmbedder{},
		&stubVectorStore{count: 12}, &stubRecordStore{count: 3},
		WithIngestLogger(discardLogger()),
	)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.DocumentRecords)
	assert.Equal(t, int64(12), status.VectorCount)
	assert.Equal(t, "docs", status.CorpusName)
}

func TestService_StatusToleratesVectorCountFailure(t *testing.T) {
	svc := NewService(&stubSource{name: "docs"}, &stubEmbedder{},
		&stubVectorStore{countErr: errors.New("connection refused")}, &stubRecordStore{count: 3},
		WithIngestLogger(discardLogger()),
	)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.DocumentRecords)
	assert.Zero(t, status.VectorCount)
}

func TestService_ClearCollectsIndependentFailures(t *testing.T) {
	vectors := &stubVectorStore{deleteErr: errors.New("truncate failed")}
	records := &stubRecordStore{deleted: 5}
	svc := NewService(&stubSource{name: "docs"}, &stubEmbedder{}, vectors, records,
		WithIngestLogger(discardLogger()),
	)

	result, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.False(t, result.VectorsCleared)
	assert.Equal(t, int64(5), result.RecordsDeleted)
	require.Len(t, result.Errors, 1)
}
