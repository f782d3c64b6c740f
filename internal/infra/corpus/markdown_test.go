package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_StripsMarkdownSyntax(t *testing.T) {
	source := []byte("# Getting Started\n\nInstall the package with **npm** or [yarn](https://yarnpkg.com).\n")

	text := ExtractText(source)
	assert.Contains(t, text, "Getting Started")
	assert.Contains(t, text, "Install the package with npm or yarn.")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "](")
}

func TestExtractText_KeepsCodeBlockBody(t *testing.T) {
	source := []byte("Run the command:\n\n```sh\ndocs-rag server start\n```\n")

	text := ExtractText(source)
	assert.Contains(t, text, "docs-rag server start")
	assert.NotContains(t, text, "```")
}

func TestExtractText_CollapsesBlankLines(t *testing.T) {
	source := []byte("First paragraph.\n\n\n\n\nSecond paragraph.\n")

	text := ExtractText(source)
	assert.NotContains(t, text, "\n\n\n")
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestExtractText_EmptyInput(t *testing.T) {
	assert.Empty(t, ExtractText(nil))
	assert.Empty(t, ExtractText([]byte("   \n\n")))
}
