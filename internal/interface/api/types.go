package api

import "time"

// askRequest は POST /api/v1/chat/ask のリクエストボディ
type askRequest struct {
	Message        string `json:"message"`
	SessionID      string `json:"sessionID,omitempty"`
	MaxContextDocs int    `json:"maxContextDocs,omitempty"`
}

// contextResponse は取得したコンテキスト1件のレスポンス表現
type contextResponse struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// askResponse は POST /api/v1/chat/ask のレスポンスボディ
type askResponse struct {
	Response  string            `json:"response"`
	SessionID string            `json:"sessionID"`
	Sources   []string          `json:"sources"`
	Contexts  []contextResponse `json:"contexts"`
}

// historyEntry は会話履歴1往復のレスポンス表現
type historyEntry struct {
	UserMessage  string    `json:"userMessage"`
	BotResponse  string    `json:"botResponse"`
	CitedSources []string  `json:"citedSources"`
	CreatedAt    time.Time `json:"createdAt"`
}

// historyResponse は GET /api/v1/chat/history/{sessionID} のレスポンスボディ
type historyResponse struct {
	SessionID string         `json:"sessionID"`
	History   []historyEntry `json:"history"`
}

// deleteSessionResponse は DELETE /api/v1/chat/sessions/{sessionID} のレスポンスボディ
type deleteSessionResponse struct {
	SessionID       string `json:"sessionID"`
	DeletedMessages int64  `json:"deletedMessages"`
}

// searchResponse は GET /api/v1/documents/search のレスポンスボディ
type searchResponse struct {
	Query   string            `json:"query"`
	Results []contextResponse `json:"results"`
}

// errorResponse はエラーレスポンスの共通表現
type errorResponse struct {
	Error string `json:"error"`
}
