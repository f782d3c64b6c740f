package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + 回答生成）
	OpenAI OpenAIConfig

	// コーパス設定
	Corpus CorpusConfig

	// チャット設定
	Chat ChatConfig

	// HTTPサーバ設定
	HTTP HTTPConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	GenerationModel    string
	Temperature        float64
}

// CorpusConfig はドキュメントコーパスの設定
type CorpusConfig struct {
	// DocsPath はローカルコーパスのルートディレクトリ
	DocsPath string

	// GitURL が設定されている場合はローカルパスの代わりにリポジトリをクローンする
	GitURL string

	// GitRef はクローン時にチェックアウトするブランチ名
	GitRef string

	// GitDocsSubdir はリポジトリ内のドキュメントディレクトリ
	GitDocsSubdir string

	// GitCloneDir はクローン先のベースディレクトリ
	GitCloneDir string

	// ChunkSize はチャンクの最大文字数
	ChunkSize int

	// ChunkOverlap は隣接チャンク間の最小共有文字数
	ChunkOverlap int
}

// ChatConfig はチャットパスの設定
type ChatConfig struct {
	// SimilarityThreshold は検索結果に要求する最小コサイン類似度
	SimilarityThreshold float64

	// MaxRetrievedDocs は1クエリで取得するコンテキストの上限
	MaxRetrievedDocs int

	// MaxContextTokens はプロンプトに含めるコンテキストのトークン上限
	MaxContextTokens int
}

// HTTPConfig はHTTPサーバの設定
type HTTPConfig struct {
	Port           int
	AllowedOrigins []string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "docsrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "docsrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 384),
			GenerationModel:    getEnv("OPENAI_GENERATION_MODEL", "gpt-4o-mini"),
			Temperature:        getEnvAsFloat("OPENAI_TEMPERATURE", 0.2),
		},
		Corpus: CorpusConfig{
			DocsPath:      getEnv("DOCS_PATH", "./docs"),
			GitURL:        getEnv("DOCS_GIT_URL", ""),
			GitRef:        getEnv("DOCS_GIT_REF", ""),
			GitDocsSubdir: getEnv("DOCS_GIT_SUBDIR", "docs"),
			GitCloneDir:   getEnv("DOCS_GIT_CLONE_DIR", ""),
			ChunkSize:     getEnvAsInt("CHUNK_SIZE", 500),
			ChunkOverlap:  getEnvAsInt("CHUNK_OVERLAP", 50),
		},
		Chat: ChatConfig{
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			MaxRetrievedDocs:    getEnvAsInt("MAX_RETRIEVED_DOCS", 5),
			MaxContextTokens:    getEnvAsInt("MAX_CONTEXT_TOKENS", 4000),
		},
		HTTP: HTTPConfig{
			Port:           getEnvAsInt("HTTP_PORT", 8080),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice は環境変数をカンマ区切りのリストとして取得します
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
