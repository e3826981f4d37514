// Package text extracts plain text from submission documents, best
// effort. Unsupported or broken formats yield an empty string, never
// an error that could abort document processing.
package text

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/scholarworks/submission-pipeline/internal/core/ports"
)

type Extractor struct {
	maxLength int
	logger    *slog.Logger
}

func New(maxLength int, logger *slog.Logger) *Extractor {
	if maxLength <= 0 {
		maxLength = 5000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{maxLength: maxLength, logger: logger}
}

// Extract downloads the item and converts it to text by file suffix.
// Fetch failures are returned to the caller; format failures degrade
// to an empty string.
func (e *Extractor) Extract(ctx context.Context, item ports.Item, source ports.DocumentSource) (string, error) {
	raw, err := source.GetContent(ctx, item.ID)
	if err != nil {
		return "", err
	}

	nameLower := strings.ToLower(item.Name)
	var text string
	switch {
	case strings.HasSuffix(nameLower, ".pdf"):
		text = e.extractPDF(item.Name, raw)
	case strings.HasSuffix(nameLower, ".docx"):
		text = e.extractDocx(item.Name, raw)
	case strings.HasSuffix(nameLower, ".xlsx"), strings.HasSuffix(nameLower, ".xls"):
		text = e.extractExcel(item.Name, raw)
	case strings.HasSuffix(nameLower, ".txt"):
		text = e.extractPlain(raw)
	default:
		e.logger.Warn("unsupported file type", "file", item.Name, "mime_type", item.MimeType)
		return "", nil
	}

	return e.truncate(text), nil
}

func (e *Extractor) extractPlain(raw []byte) string {
	if !utf8.Valid(raw) {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (e *Extractor) truncate(text string) string {
	if len(text) <= e.maxLength {
		return text
	}
	return text[:e.maxLength]
}
