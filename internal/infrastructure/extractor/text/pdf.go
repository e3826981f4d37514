package text

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *Extractor) extractPDF(name string, raw []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		e.logger.Warn("could not open pdf", "file", name, "error", err)
		return ""
	}

	var out strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("could not read pdf page", "file", name, "page", pageNum, "error", err)
			continue
		}
		out.WriteString(content)
		out.WriteString("\n")
		// Avoid decoding whole books past the extraction cap.
		if out.Len() > e.maxLength {
			break
		}
	}
	return strings.TrimSpace(out.String())
}
