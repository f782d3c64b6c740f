package chunk

import (
	"strings"
)

const (
	// DefaultChunkSize はチャンクの最大文字数のデフォルト値
	DefaultChunkSize = 500

	// DefaultOverlap は隣接チャンク間で共有する最小文字数のデフォルト値
	DefaultOverlap = 50

	// boundaryRatio は文境界スナップを許可するウィンドウ内の最小位置（chunkSizeに対する比率）
	boundaryRatio = 0.7
)

// sentenceTerminators は文境界として扱う終端記号＋空白のパターン
var sentenceTerminators = []string{". ", "! ", "? "}

// Splitter はテキストをオーバーラップ付きのチャンクに分割する
type Splitter struct {
	chunkSize int
	overlap   int
}

// SplitterOption は Splitter のオプション設定
type SplitterOption func(*Splitter)

// WithChunkSize はチャンクサイズを上書きする
func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap はオーバーラップ文字数を上書きする
func WithOverlap(overlap int) SplitterOption {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// NewSplitter は新しい Splitter を作成する
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 2
	}
	return s
}

// ChunkSize は設定されたチャンクサイズを返す
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap は設定されたオーバーラップ文字数を返す
func (s *Splitter) Overlap() int { return s.overlap }

// Split はテキストをオーバーラップ付きチャンクに分割する。
//
// テキストが chunkSize 以下の場合は全体を1チャンクとして返す。
// それ以外は chunkSize 幅のウィンドウを進めながら、ウィンドウ内の最後の
// 文終端（". " "! " "? "）が chunkSize の70%より後ろにあればそこで切り、
// 見つからなければウィンドウ境界そのままで切る。次のウィンドウは直前の
// チャンク終端から overlap 文字だけ戻った位置から開始する。
// 各チャンクは前後の空白を除去し、空になったチャンクは捨てる。
func (s *Splitter) Split(text string) []string {
	if len(text) <= s.chunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + s.chunkSize

		// 残りが1チャンクに収まる場合は末尾まで含めて終了
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		window := text[start:end]
		if boundary := lastSentenceBoundary(window); boundary > int(float64(s.chunkSize)*boundaryRatio) {
			// 文終端記号とその直後の空白まで含めて切る
			end = start + boundary + 2
		}
		chunks = append(chunks, text[start:end])

		next := end - s.overlap
		// 境界スナップでチャンクが極端に短くなってもウィンドウは必ず前進させる
		if next <= start {
			next = start + 1
		}
		start = next
	}

	trimmed := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return trimmed
}

// lastSentenceBoundary はウィンドウ内で最後に現れる文終端の位置を返す。
// 見つからない場合は -1 を返す。
func lastSentenceBoundary(window string) int {
	last := -1
	for _, term := range sentenceTerminators {
		if idx := strings.LastIndex(window, term); idx > last {
			last = idx
		}
	}
	return last
}
