package chatcmd

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/gochat"
)

func TestParseInputPlainText(t *testing.T) {
	content, err := parseInput("hello there")
	require.NoError(t, err)
	assert.Equal(t, gochat.TextContent("hello there"), content)
}

func TestParseInputImageAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, []byte("pngbytes"), 0o600))

	content, err := parseInput("what is in #file:" + path + " this picture")
	require.NoError(t, err)

	parts, ok := content.(gochat.PartsContent)
	require.True(t, ok)
	require.Len(t, parts, 3)

	assert.Equal(t, gochat.TextPart{Text: "what is in"}, parts[0])
	image, ok := parts[1].(gochat.ImagePart)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("pngbytes")), image.URL)
	assert.Equal(t, gochat.TextPart{Text: "this picture"}, parts[2])
}

func TestParseInputPDFAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	content, err := parseInput("summarize #file:" + path)
	require.NoError(t, err)

	parts, ok := content.(gochat.PartsContent)
	require.True(t, ok)
	require.Len(t, parts, 2)

	file, ok := parts[1].(gochat.FilePart)
	require.True(t, ok)
	assert.Equal(t, "paper.pdf", file.Filename)
	assert.Equal(t, "data:application/pdf;base64,"+base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), file.FileData)
}

func TestParseInputMissingAttachment(t *testing.T) {
	_, err := parseInput("#file:/no/such/file.png")
	assert.ErrorContains(t, err, "failed to read attachment")
}
