package tokenizer

import (
	"fmt"

	"github.com/jinford/docs-rag/internal/core/answer"
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer は tiktoken によるトークンカウンタ
type Tokenizer struct {
	encoder *tiktoken.Tiktoken
}

// New は cl100k_base エンコーダのトークンカウンタを作成する。
// text-embedding-3-small / gpt-4o 系と互換のエンコーディング。
func New() (*Tokenizer, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}
	return &Tokenizer{encoder: encoder}, nil
}

// CountTokens はテキストのトークン数を返す
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.encoder.Encode(text, nil, nil))
}

// インターフェース実装の確認
var _ answer.TokenCounter = (*Tokenizer)(nil)
