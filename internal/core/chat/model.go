package chat

import (
	"time"

	"github.com/jinford/docs-rag/internal/core/retrieval"
	"github.com/samber/mo"
)

// Turn は1往復の会話を表す。作成後は不変で、セッション単位で一括削除できる。
type Turn struct {
	SessionID    string    `json:"sessionID"`
	UserMessage  string    `json:"userMessage"`
	BotResponse  string    `json:"botResponse"`
	CitedSources []string  `json:"citedSources"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AskParams は質問応答のパラメータを表す
type AskParams struct {
	Message        string            // ユーザーの質問文
	SessionID      mo.Option[string] // セッションID（省略時は新規発行）
	MaxContextDocs int               // 取得するコンテキストの上限（デフォルト: 5）
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Response  string                        `json:"response"`
	SessionID string                        `json:"sessionID"`
	Contexts  []*retrieval.RetrievedContext `json:"contexts"`
	Sources   []string                      `json:"sources"`
}
