package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/docs-rag/internal/core/retrieval"
)

const (
	// NoContextFallback はコンテキストが空のときに返す固定メッセージ。
	// 生成モデルを呼び出さずに返すため、根拠なしの生成は起こらない。
	NoContextFallback = "I couldn't find relevant information in the documents to answer your question. " +
		"Please try rephrasing or ask about topics covered in the documentation."

	// NotConfiguredMessage は生成モデルが未設定のときに返すメッセージ
	NotConfiguredMessage = "The answer generator is not configured. Please check the API key settings."

	// DefaultMaxContextTokens はプロンプトに含めるコンテキストのトークン上限のデフォルト値
	DefaultMaxContextTokens = 4000
)

// Generator は生成モデルとの通信インターフェース
type Generator interface {
	// GenerateCompletion はプロンプトからテキストを生成する
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// TokenCounter はテキストのトークン数を数えるインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// Synthesizer は取得済みコンテキストから回答を合成する
type Synthesizer struct {
	generator        Generator // nil の場合は未設定として扱う
	tokenCounter     TokenCounter
	maxContextTokens int
	logger           *slog.Logger
}

// SynthesizerOption は Synthesizer のオプション設定
type SynthesizerOption func(*Synthesizer)

// WithTokenCounter はコンテキスト量の制限に使うトークンカウンタを設定する
func WithTokenCounter(counter TokenCounter) SynthesizerOption {
	return func(s *Synthesizer) {
		s.tokenCounter = counter
	}
}

// WithMaxContextTokens はコンテキストのトークン上限を上書きする
func WithMaxContextTokens(max int) SynthesizerOption {
	return func(s *Synthesizer) {
		if max > 0 {
			s.maxContextTokens = max
		}
	}
}

// WithSynthesizerLogger は Synthesizer にロガーを設定する
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// NewSynthesizer は新しい Synthesizer を作成する。
// generator には nil を渡せる（生成モデル未設定の構成）。
func NewSynthesizer(generator Generator, opts ...SynthesizerOption) *Synthesizer {
	svc := &Synthesizer{
		generator:        generator,
		maxContextTokens: DefaultMaxContextTokens,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Synthesize はコンテキストに基づく回答を生成して返す。
// チャットパスは常に何らかのレスポンス本文を必要とするため、このメソッドは
// エラーを返さない。コンテキストが空なら固定のフォールバック文、生成モデルが
// 未設定・失敗したら説明文をそのまま回答として返す。
func (s *Synthesizer) Synthesize(ctx context.Context, query string, contexts []*retrieval.RetrievedContext) string {
	if len(contexts) == 0 {
		return NoContextFallback
	}

	if s.generator == nil {
		return NotConfiguredMessage
	}

	prompt := BuildPrompt(query, s.limitContexts(contexts))

	response, err := s.generator.GenerateCompletion(ctx, prompt)
	if err != nil {
		s.logger.Error("answer generation failed", "error", err)
		return fmt.Sprintf("Error generating response: %v", err)
	}

	return response
}

// limitContexts はトークン上限に収まる範囲のコンテキストを先頭（類似度上位）から選ぶ。
// 上位1件は上限を超えていても必ず含める。
func (s *Synthesizer) limitContexts(contexts []*retrieval.RetrievedContext) []*retrieval.RetrievedContext {
	if s.tokenCounter == nil || s.maxContextTokens <= 0 {
		return contexts
	}

	total := 0
	for i, rc := range contexts {
		tokens := s.tokenCounter.CountTokens(formatContextBlock(rc))
		if i > 0 && total+tokens > s.maxContextTokens {
			s.logger.Info("context truncated by token budget",
				"included", i,
				"dropped", len(contexts)-i,
				"maxContextTokens", s.maxContextTokens,
			)
			return contexts[:i]
		}
		total += tokens
	}
	return contexts
}
