package ghoutput

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o600))

	err := Write(path, map[string]string{
		"preview_url": "https://example.com/preview.svg",
		"html_url":    "https://example.com/",
		"comment_url": "",
		"  ":          "ignored",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing=1\n"+
		"comment_url=\n"+
		"html_url=https://example.com/\n"+
		"preview_url=https://example.com/preview.svg\n", string(data))
}

func TestWriteMultiline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")

	require.NoError(t, Write(path, map[string]string{
		"summary": "line one\nline two",
		"tricky":  "EOF\nEOF_",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "summary<<EOF\nline one\nline two\nEOF\n"+
		"tricky<<EOF__\nEOF\nEOF_\nEOF__\n", string(data))
}

func TestWriteWithoutPath(t *testing.T) {
	assert.NoError(t, Write("", map[string]string{"a": "b"}))
	assert.NoError(t, Write(filepath.Join(t.TempDir(), "unused"), nil))
}

func TestAppendSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")

	require.NoError(t, AppendSummary(path, "## First"))
	require.NoError(t, AppendSummary(path, "## Second\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## First\n## Second\n", string(data))
}

func TestAppendSummaryBadPath(t *testing.T) {
	err := AppendSummary(filepath.Join(t.TempDir(), "missing", "summary.md"), "x")
	assert.ErrorContains(t, err, "open step summary")
}

func TestNotice(t *testing.T) {
	var buf bytes.Buffer
	Notice(&buf, "Skipping posting a PR comment: 100% done\nreally")
	assert.Equal(t, "::notice::Skipping posting a PR comment: 100%25 done%0Areally\n", buf.String())
}
