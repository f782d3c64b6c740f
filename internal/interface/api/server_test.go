package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/docs-rag/internal/core/chat"
	"github.com/jinford/docs-rag/internal/core/document"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	"github.com/jinford/docs-rag/internal/core/retrieval"
)

type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}

func (e *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (e *stubEmbedder) Dimension() int { return 2 }

type stubIndex struct {
	results       []*retrieval.RetrievedContext
	count         int64
	lastThreshold float64
}

func (i *stubIndex) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]*retrieval.RetrievedContext, error) {
	i.lastThreshold = threshold
	return i.results, nil
}

func (i *stubIndex) Upsert(ctx context.Context, chunks []*document.EmbeddedChunk) error {
	i.count += int64(len(chunks))
	return nil
}

func (i *stubIndex) DeleteAll(ctx context.Context) error {
	i.count = 0
	return nil
}

func (i *stubIndex) Count(ctx context.Context) (int64, error) { return i.count, nil }

type stubSynthesizer struct{}

func (s *stubSynthesizer) Synthesize(ctx context.Context, query string, contexts []*retrieval.RetrievedContext) string {
	return "generated answer"
}

type stubConversationStore struct {
	turns   []*chat.Turn
	deleted int64
}

func (s *stubConversationStore) InsertTurn(ctx context.Context, turn *chat.Turn) error {
	s.turns = append(s.turns, turn)
	return nil
}

func (s *stubConversationStore) ListTurns(ctx context.Context, sessionID string) ([]*chat.Turn, error) {
	return s.turns, nil
}

func (s *stubConversationStore) DeleteTurns(ctx context.Context, sessionID string) (int64, error) {
	return s.deleted, nil
}

type stubSource struct {
	docs []*ingestion.SourceDocument
	err  error
}

func (s *stubSource) Name() string { return "docs" }

func (s *stubSource) FetchDocuments(ctx context.Context) ([]*ingestion.SourceDocument, error) {
	return s.docs, s.err
}

type stubRecordStore struct {
	count   int64
	deleted int64
}

func (s *stubRecordStore) InsertRecord(ctx context.Context, record *ingestion.Record) (bool, error) {
	s.count++
	return true, nil
}

func (s *stubRecordStore) CountRecords(ctx context.Context) (int64, error) { return s.count, nil }

func (s *stubRecordStore) DeleteRecords(ctx context.Context) (int64, error) { return s.deleted, nil }

type serverFixture struct {
	server *Server
	store  *stubConversationStore
	index  *stubIndex
}

func newServerFixture(t *testing.T, embedder *stubEmbedder, index *stubIndex) *serverFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := &stubConversationStore{deleted: 2}
	retrievalSvc := retrieval.NewService(embedder, index, retrieval.WithLogger(logger))
	chatSvc := chat.NewService(retrievalSvc, &stubSynthesizer{}, store, chat.WithChatLogger(logger))
	ingestionSvc := ingestion.NewService(
		&stubSource{docs: []*ingestion.SourceDocument{{Filename: "a.md", Path: "a.md", Text: "Some content."}}},
		embedder,
		index,
		&stubRecordStore{},
		ingestion.WithIngestLogger(logger),
	)

	server := NewServer(chatSvc, ingestionSvc, retrievalSvc,
		WithAllowedOrigins([]string{"http://localhost:3000"}),
		WithServerLogger(logger),
	)
	return &serverFixture{server: server, store: store, index: index}
}

func defaultFixture(t *testing.T) *serverFixture {
	return newServerFixture(t, &stubEmbedder{}, &stubIndex{
		results: []*retrieval.RetrievedContext{
			{
				Chunk: document.Chunk{Content: "chunk content", Source: "guide.md#chunk-0"},
				Score: 0.9,
				Rank:  0,
			},
		},
	})
}

func TestHandleHealth(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleChatAsk(t *testing.T) {
	fixture := defaultFixture(t)

	body := strings.NewReader(`{"message": "how do I install?"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/ask", body)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generated answer", resp.Response)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, []string{"guide.md#chunk-0"}, resp.Sources)
	require.Len(t, resp.Contexts, 1)
	assert.Equal(t, "chunk content", resp.Contexts[0].Content)

	// 会話が保存されている
	assert.Len(t, fixture.store.turns, 1)
}

func TestHandleChatAskRejectsEmptyMessage(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/ask", strings.NewReader(`{"message": ""}`))
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatAskEmbeddingFailureReturns502(t *testing.T) {
	// 埋め込みAPIに到達できない場合は上流障害として 502 を返す
	fixture := newServerFixture(t, &stubEmbedder{err: errors.New("api unreachable")}, &stubIndex{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/ask", strings.NewReader(`{"message": "hello"}`))
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleChatAskKeepsSessionID(t *testing.T) {
	fixture := defaultFixture(t)

	body := strings.NewReader(`{"message": "hello", "sessionID": "session-42"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/ask", body)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-42", resp.SessionID)
}

func TestHandleChatHistory(t *testing.T) {
	fixture := defaultFixture(t)
	fixture.store.turns = []*chat.Turn{
		{SessionID: "session-42", UserMessage: "q", BotResponse: "a", CitedSources: []string{"guide.md#chunk-0"}},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/history/session-42", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-42", resp.SessionID)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "q", resp.History[0].UserMessage)
}

func TestHandleDeleteSession(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chat/sessions/session-42", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp deleteSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-42", resp.SessionID)
	assert.Equal(t, int64(2), resp.DeletedMessages)
}

func TestHandleDocumentsProcess(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/process", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result ingestion.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.ProcessedDocuments)
}

func TestHandleDocumentsStatus(t *testing.T) {
	fixture := defaultFixture(t)
	fixture.index.count = 7

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/status", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status ingestion.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, int64(7), status.VectorCount)
}

func TestHandleDocumentsSearch(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/search?query=install&limit=3", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "install", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "guide.md#chunk-0", resp.Results[0].Source)
}

func TestHandleDocumentsSearchAcceptsShortParamAlias(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/search?q=install", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "install", resp.Query)
}

func TestHandleDocumentsSearchDefaultThreshold(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/search?query=install", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.5, fixture.index.lastThreshold)
}

func TestHandleDocumentsSearchRequiresQuery(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/search", nil)
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	fixture := defaultFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	fixture.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
