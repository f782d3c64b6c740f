package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jinford/docs-rag/internal/core/retrieval"
)

// defaultSearchThreshold は検索エンドポイントのデフォルト類似度しきい値。
// チャットのしきい値より緩く、候補を広めに返す。
const defaultSearchThreshold = 0.5

// handleDocumentsProcess はコーパス全体を取り込みインデックスを更新する。
// 文書単位の失敗はレスポンスの errors に載せ、処理自体は成功として返す。
func (s *Server) handleDocumentsProcess(w http.ResponseWriter, r *http.Request) {
	result, err := s.ingestionService.Ingest(r.Context())
	if err != nil {
		s.logger.Error("failed to ingest documents", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to process documents")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDocumentsStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.ingestionService.Status(r.Context())
	if err != nil {
		s.logger.Error("failed to fetch ingestion status", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch status")
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDocumentsClear(w http.ResponseWriter, r *http.Request) {
	result, err := s.ingestionService.Clear(r.Context())
	if err != nil {
		s.logger.Error("failed to clear documents", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to clear documents")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleDocumentsSearch は質問文に対する類似チャンク検索を行う。
// 回答生成は行わず、取得したコンテキストをそのまま返す。
func (s *Server) handleDocumentsSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		// 旧クライアント向けの別名
		query = r.URL.Query().Get("q")
	}
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter query is required")
		return
	}

	limit := s.maxRetrievedDocs
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var threshold float64 = defaultSearchThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			s.writeError(w, http.StatusBadRequest, "threshold must be a number between 0 and 1")
			return
		}
		threshold = parsed
	}

	results, err := s.retrievalService.Retrieve(r.Context(), query, limit, threshold)
	if err != nil {
		s.logger.Error("failed to search documents", "error", err)
		if errors.Is(err, retrieval.ErrQueryEmbedding) {
			s.writeError(w, http.StatusBadGateway, "failed to search documents")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to search documents")
		return
	}

	s.writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Results: toContextResponses(results),
	})
}
