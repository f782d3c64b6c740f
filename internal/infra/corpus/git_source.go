package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jinford/docs-rag/internal/core/ingestion"
	giturls "github.com/whilp/git-urls"
)

// GitSource はドキュメントリポジトリを shallow クローンして走査する
// ingestion.Source 実装。クローン後の走査は FSSource に委譲する。
type GitSource struct {
	url      string
	ref      string
	cloneDir string
	subdir   string
	name     string
}

// GitSourceOption は GitSource のオプション設定
type GitSourceOption func(*GitSource)

// WithRef はチェックアウトするブランチ名を指定する
func WithRef(ref string) GitSourceOption {
	return func(s *GitSource) {
		s.ref = ref
	}
}

// WithDocsSubdir はリポジトリ内のドキュメントディレクトリを指定する
func WithDocsSubdir(subdir string) GitSourceOption {
	return func(s *GitSource) {
		s.subdir = subdir
	}
}

// WithCloneDir はクローン先のベースディレクトリを指定する
func WithCloneDir(dir string) GitSourceOption {
	return func(s *GitSource) {
		s.cloneDir = dir
	}
}

// NewGitSource は新しい GitSource を作成する。URL が不正な場合はエラーを返す。
func NewGitSource(rawURL string, opts ...GitSourceOption) (*GitSource, error) {
	name, err := sourceNameFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid git URL %q: %w", rawURL, err)
	}

	s := &GitSource{
		url:      rawURL,
		cloneDir: filepath.Join(os.TempDir(), "docs-rag-repos"),
		name:     name,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// インターフェース実装の確認
var _ ingestion.Source = (*GitSource)(nil)

// Name はリポジトリURLから導出した識別名を返す
func (s *GitSource) Name() string {
	return s.name
}

// FetchDocuments はリポジトリをクローン（既存なら pull）して文書を取得する
func (s *GitSource) FetchDocuments(ctx context.Context) ([]*ingestion.SourceDocument, error) {
	repoPath := filepath.Join(s.cloneDir, filepath.FromSlash(s.name))

	if err := s.cloneOrPull(ctx, repoPath); err != nil {
		return nil, fmt.Errorf("failed to prepare repository: %w", err)
	}

	docsRoot := repoPath
	if s.subdir != "" {
		docsRoot = filepath.Join(repoPath, filepath.FromSlash(s.subdir))
	}

	return NewFSSource(docsRoot).FetchDocuments(ctx)
}

// cloneOrPull はリポジトリを shallow クローンする。クローン済みなら pull で更新する。
func (s *GitSource) cloneOrPull(ctx context.Context, repoPath string) error {
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err == nil {
		repo, err := git.PlainOpen(repoPath)
		if err != nil {
			return fmt.Errorf("failed to open repository: %w", err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree: %w", err)
		}
		if err := worktree.PullContext(ctx, &git.PullOptions{}); err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("failed to pull repository: %w", err)
		}
		return nil
	}

	cloneOptions := &git.CloneOptions{
		URL:          s.url,
		Depth:        1,
		SingleBranch: true,
	}
	if s.ref != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(s.ref)
	}

	if _, err := git.PlainCloneContext(ctx, repoPath, false, cloneOptions); err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

// sourceNameFromURL はGit URLから識別名を導出する。
// 例: git@github.com:user/repo.git -> github.com/user/repo
func sourceNameFromURL(rawURL string) (string, error) {
	parsed, err := giturls.Parse(rawURL)
	if err != nil {
		return "", err
	}

	path := strings.TrimSuffix(strings.Trim(parsed.Path, "/"), ".git")
	if path == "" {
		return "", fmt.Errorf("URL has no repository path")
	}
	if parsed.Host == "" {
		return path, nil
	}
	return parsed.Host + "/" + path, nil
}
