package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName はコーパスルートに置ける除外パターンファイル名
const IgnoreFileName = ".docsragignore"

// markdownExtensions はコーパスとして扱う拡張子
var markdownExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
}

// FSSource はローカルディレクトリを再帰的に走査する ingestion.Source 実装。
// Markdown ファイルをプレーンテキストに変換して返す。
type FSSource struct {
	root string
}

// NewFSSource は新しい FSSource を作成する
func NewFSSource(root string) *FSSource {
	return &FSSource{root: root}
}

// インターフェース実装の確認
var _ ingestion.Source = (*FSSource)(nil)

// Name はコーパスの識別名としてルートパスを返す
func (s *FSSource) Name() string {
	return s.root
}

// FetchDocuments はルート配下の Markdown 文書をすべて読み込む。
// ルートが存在しない場合は ingestion.ErrCorpusNotFound を返す。
func (s *FSSource) FetchDocuments(ctx context.Context) ([]*ingestion.SourceDocument, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ingestion.ErrCorpusNotFound, s.root)
		}
		return nil, fmt.Errorf("failed to stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ingestion.ErrCorpusNotFound, s.root)
	}

	matcher, err := loadIgnoreMatcher(s.root)
	if err != nil {
		return nil, err
	}

	var docs []*ingestion.SourceDocument
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			// 隠しディレクトリと除外パターンに一致するディレクトリは丸ごとスキップ
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || matcher.MatchesPath(rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := markdownExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", rel, readErr)
		}
		if enry.IsBinary(data) {
			return nil
		}

		text := ExtractText(data)
		if text == "" {
			return nil
		}

		docs = append(docs, &ingestion.SourceDocument{
			Filename: d.Name(),
			Path:     filepath.ToSlash(rel),
			Text:     text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}

	return docs, nil
}

// loadIgnoreMatcher はルート直下の除外パターンファイルとデフォルトパターンから
// マッチャーを構築する
func loadIgnoreMatcher(root string) (*gitignore.GitIgnore, error) {
	patterns := defaultIgnorePatterns()

	ignorePath := filepath.Join(root, IgnoreFileName)
	if data, err := os.ReadFile(ignorePath); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	return gitignore.CompileIgnoreLines(patterns...), nil
}

// defaultIgnorePatterns は常に除外するパターンを返す
func defaultIgnorePatterns() []string {
	return []string{
		"node_modules/",
		"vendor/",
		"build/",
		"dist/",
	}
}
