package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinford/docs-rag/internal/core/chat"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	"github.com/jinford/docs-rag/internal/core/retrieval"
)

const (
	// DefaultPort はHTTPサーバのデフォルトポート
	DefaultPort = 8080

	// shutdownTimeout はグレースフルシャットダウンの待ち時間
	shutdownTimeout = 10 * time.Second
)

// Server はRAGアプリケーションのHTTP APIサーバ
type Server struct {
	chatService      *chat.Service
	ingestionService *ingestion.Service
	retrievalService *retrieval.Service

	port             int
	allowedOrigins   []string
	maxRetrievedDocs int
	logger           *slog.Logger
}

// ServerOption は Server 構築時のオプション
type ServerOption func(*Server)

// WithPort は待ち受けポートを設定する
func WithPort(port int) ServerOption {
	return func(s *Server) {
		s.port = port
	}
}

// WithAllowedOrigins はCORSで許可するオリジンを設定する
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithMaxRetrievedDocs は1クエリで取得するコンテキスト数の上限を設定する
func WithMaxRetrievedDocs(max int) ServerOption {
	return func(s *Server) {
		s.maxRetrievedDocs = max
	}
}

// WithServerLogger はロガーを差し替える
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer は新しい Server を作成する
func NewServer(
	chatService *chat.Service,
	ingestionService *ingestion.Service,
	retrievalService *retrieval.Service,
	opts ...ServerOption,
) *Server {
	srv := &Server{
		chatService:      chatService,
		ingestionService: ingestionService,
		retrievalService: retrievalService,
		port:             DefaultPort,
		maxRetrievedDocs: retrieval.DefaultLimit,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	return srv
}

// Handler はルーティング済みのHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/v1/chat/ask", s.handleChatAsk)
	mux.HandleFunc("GET /api/v1/chat/history/{sessionID}", s.handleChatHistory)
	mux.HandleFunc("DELETE /api/v1/chat/sessions/{sessionID}", s.handleDeleteSession)

	mux.HandleFunc("POST /api/v1/documents/process", s.handleDocumentsProcess)
	mux.HandleFunc("GET /api/v1/documents/status", s.handleDocumentsStatus)
	mux.HandleFunc("DELETE /api/v1/documents/clear", s.handleDocumentsClear)
	mux.HandleFunc("GET /api/v1/documents/search", s.handleDocumentsSearch)

	var handler http.Handler = mux
	handler = s.withRequestLog(handler)
	handler = s.withCORS(handler)
	return handler
}

// Start はHTTPサーバを起動し、ctx のキャンセルでグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		s.logger.Info("http server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	}
}
