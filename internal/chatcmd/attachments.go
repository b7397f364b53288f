package chatcmd

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaharia-lab/gochat"
)

// filePrefix marks a token of the input line as a file attachment:
//
//	describe this diagram #file:./diagram.png
const filePrefix = "#file:"

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// parseInput splits an input line into request content. Tokens starting
// with #file: become image or file parts; everything else stays text.
// Lines without attachments map to plain text content.
func parseInput(line string) (gochat.Content, error) {
	if !strings.Contains(line, filePrefix) {
		return gochat.TextContent(line), nil
	}

	var parts gochat.PartsContent
	var text []string
	flushText := func() {
		if len(text) > 0 {
			parts = append(parts, gochat.TextPart{Text: strings.Join(text, " ")})
			text = nil
		}
	}

	for _, token := range strings.Fields(line) {
		if !strings.HasPrefix(token, filePrefix) {
			text = append(text, token)
			continue
		}

		flushText()
		part, err := attachFile(strings.TrimPrefix(token, filePrefix))
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	flushText()

	return parts, nil
}

// attachFile loads path and wraps it as an image part for known image
// extensions and a file part otherwise.
func attachFile(path string) (gochat.ContentPart, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	extension := strings.ToLower(filepath.Ext(path))

	if mimeType, ok := imageMIMETypes[extension]; ok {
		return gochat.ImagePart{
			URL: fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
		}, nil
	}

	mimeType := "application/octet-stream"
	if extension == ".pdf" {
		mimeType = "application/pdf"
	}

	return gochat.FilePart{
		Filename: filepath.Base(path),
		FileData: fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
	}, nil
}
