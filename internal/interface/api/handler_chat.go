package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samber/mo"

	"github.com/jinford/docs-rag/internal/core/chat"
	"github.com/jinford/docs-rag/internal/core/retrieval"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleChatAsk はユーザーの質問に対してRAGベースの回答を返す。
// 会話履歴の保存失敗などの部分的な失敗ではエラーにせず、回答を返すことを優先する。
func (s *Server) handleChatAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := mo.None[string]()
	if req.SessionID != "" {
		sessionID = mo.Some(req.SessionID)
	}
	maxDocs := req.MaxContextDocs
	if maxDocs <= 0 {
		maxDocs = s.maxRetrievedDocs
	}

	result, err := s.chatService.Answer(r.Context(), chat.AskParams{
		Message:        req.Message,
		SessionID:      sessionID,
		MaxContextDocs: maxDocs,
	})
	if err != nil {
		s.logger.Error("failed to answer chat message", "error", err)
		// クエリの埋め込みに失敗した場合は上流サービス由来の障害として扱う
		if errors.Is(err, retrieval.ErrQueryEmbedding) {
			s.writeError(w, http.StatusBadGateway, "failed to retrieve context")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	s.writeJSON(w, http.StatusOK, askResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
		Sources:   result.Sources,
		Contexts:  toContextResponses(result.Contexts),
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	turns, err := s.chatService.History(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to fetch chat history", "sessionID", sessionID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}

	history := make([]historyEntry, 0, len(turns))
	for _, turn := range turns {
		history = append(history, historyEntry{
			UserMessage:  turn.UserMessage,
			BotResponse:  turn.BotResponse,
			CitedSources: turn.CitedSources,
			CreatedAt:    turn.CreatedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sessionID,
		History:   history,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	deleted, err := s.chatService.DeleteSession(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to delete chat session", "sessionID", sessionID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	s.writeJSON(w, http.StatusOK, deleteSessionResponse{
		SessionID:       sessionID,
		DeletedMessages: deleted,
	})
}

func toContextResponses(contexts []*retrieval.RetrievedContext) []contextResponse {
	responses := make([]contextResponse, 0, len(contexts))
	for _, c := range contexts {
		responses = append(responses, contextResponse{
			Content: c.Chunk.Content,
			Source:  c.Chunk.Source,
			Score:   c.Score,
			Rank:    c.Rank,
		})
	}
	return responses
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
