package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGitSource_DerivesNameFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "https URL",
			url:  "https://github.com/user/docs-repo.git",
			want: "github.com/user/docs-repo",
		},
		{
			name: "ssh URL",
			url:  "git@github.com:user/docs-repo.git",
			want: "github.com/user/docs-repo",
		},
		{
			name: "without .git suffix",
			url:  "https://gitlab.example.com/team/handbook",
			want: "gitlab.example.com/team/handbook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewGitSource(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, source.Name())
		})
	}
}

func TestNewGitSource_RejectsEmptyRepositoryPath(t *testing.T) {
	_, err := NewGitSource("https://github.com/")
	require.Error(t, err)
}
