package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/docs-rag/internal/core/document"
)

type stubEmbedder struct {
	vector []float32
	err    error
	called bool
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.called = true
	return e.vector, e.err
}

type stubIndex struct {
	results       []*RetrievedContext
	err           error
	lastLimit     int
	lastThreshold float64
}

func (i *stubIndex) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]*RetrievedContext, error) {
	i.lastLimit = limit
	i.lastThreshold = threshold
	return i.results, i.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_RetrieveReturnsIndexResults(t *testing.T) {
	index := &stubIndex{
		results: []*RetrievedContext{
			{Chunk: document.Chunk{Content: "a", Source: "a.md#chunk-0"}, Score: 0.95, Rank: 0},
			{Chunk: document.Chunk{Content: "b", Source: "b.md#chunk-0"}, Score: 0.80, Rank: 1},
		},
	}
	embedder := &stubEmbedder{vector: []float32{1, 2, 3}}
	svc := NewService(embedder, index, WithLogger(discardLogger()))

	results, err := svc.Retrieve(context.Background(), "query", 3, 0.7)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, embedder.called)
	assert.Equal(t, 3, index.lastLimit)
	assert.Equal(t, 0.7, index.lastThreshold)
}

func TestService_RetrieveAppliesDefaultLimit(t *testing.T) {
	index := &stubIndex{}
	svc := NewService(&stubEmbedder{vector: []float32{1}}, index, WithLogger(discardLogger()))

	_, err := svc.Retrieve(context.Background(), "query", 0, 0.7)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, index.lastLimit)
}

func TestService_RetrieveRejectsEmptyQuery(t *testing.T) {
	svc := NewService(&stubEmbedder{}, &stubIndex{}, WithLogger(discardLogger()))

	_, err := svc.Retrieve(context.Background(), "", 5, 0.7)
	require.Error(t, err)
}

func TestService_EmbedderFailurePropagates(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("api unreachable")}
	svc := NewService(embedder, &stubIndex{}, WithLogger(discardLogger()))

	_, err := svc.Retrieve(context.Background(), "query", 5, 0.7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryEmbedding)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestService_IndexFailureDegradesToEmpty(t *testing.T) {
	// 検索側の障害はチャットパスを止めず、コンテキストなしとして扱う
	index := &stubIndex{err: errors.New("connection refused")}
	svc := NewService(&stubEmbedder{vector: []float32{1}}, index, WithLogger(discardLogger()))

	results, err := svc.Retrieve(context.Background(), "query", 5, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
}
