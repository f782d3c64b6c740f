package ingestion

import (
	"context"
	"errors"

	"github.com/jinford/docs-rag/internal/core/document"
)

// ErrCorpusNotFound はコーパスのパスが存在しない場合のエラー
var ErrCorpusNotFound = errors.New("corpus path not found")

// SourceDocument はコーパスから取得した1件の生テキスト文書を表す
type SourceDocument struct {
	Filename string
	Path     string
	Text     string
}

// Source はコーパスの文書一覧を提供するインターフェース。
// 背後のストア形式（ローカルディレクトリ、Gitリポジトリなど）はコアには関係しない。
type Source interface {
	// Name はコーパスの識別名（表示用）を返す
	Name() string

	// FetchDocuments はコーパス内の全文書を取得する。
	// コーパスのパスが存在しない場合は ErrCorpusNotFound を返す。
	FetchDocuments(ctx context.Context) ([]*SourceDocument, error)
}

// Embedder はテキスト列をベクトル列に変換するインターフェース
type Embedder interface {
	// BatchEmbed は入力順を保ったままテキスト列の Embedding を生成する
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension は Embedding ベクトルの次元数を返す
	Dimension() int
}

// VectorStore はチャンクベクトルの書き込み側インターフェース
type VectorStore interface {
	// Upsert はコンテンツハッシュをキーにチャンクを登録・上書きする
	Upsert(ctx context.Context, chunks []*document.EmbeddedChunk) error

	// DeleteAll は全チャンクを削除する
	DeleteAll(ctx context.Context) error

	// Count は登録済みチャンク数を返す
	Count(ctx context.Context) (int64, error)
}

// Record は処理済み文書の記録を表す
type Record struct {
	Filename    string
	Path        string
	ContentHash string
}

// RecordStore は処理済み文書記録の永続化インターフェース
type RecordStore interface {
	// InsertRecord は記録を登録する。content_hash が既存なら何もせず false を返す（冪等）
	InsertRecord(ctx context.Context, record *Record) (bool, error)

	// CountRecords は記録件数を返す
	CountRecords(ctx context.Context) (int64, error)

	// DeleteRecords は全記録を削除し、削除件数を返す
	DeleteRecords(ctx context.Context) (int64, error)
}

// Result はインジェスト処理の結果サマリを表す。
// 文書単位の失敗は Errors に収集され、残りの文書の処理は継続される。
type Result struct {
	ProcessedDocuments int      `json:"processedDocuments"`
	TotalChunks        int      `json:"totalChunks"`
	SavedRecords       int      `json:"savedRecords"`
	Errors             []string `json:"errors,omitempty"`
	Message            string   `json:"message"`
}

// Status はインジェスト済みデータの状態を表す
type Status struct {
	DocumentRecords int64  `json:"documentRecords"`
	VectorCount     int64  `json:"vectorCount"`
	CorpusName      string `json:"corpusName"`
}

// ClearResult はデータ全削除の結果を表す
type ClearResult struct {
	VectorsCleared bool     `json:"vectorsCleared"`
	RecordsDeleted int64    `json:"recordsDeleted"`
	Errors         []string `json:"errors,omitempty"`
}
