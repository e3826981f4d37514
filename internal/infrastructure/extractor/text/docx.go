package text

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// extractDocx pulls paragraph text out of word/document.xml. DOCX is a
// ZIP of XML parts, so no external dependency is needed.
func (e *Extractor) extractDocx(name string, raw []byte) string {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		e.logger.Warn("could not open docx archive", "file", name, "error", err)
		return ""
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			e.logger.Warn("could not open docx document part", "file", name, "error", err)
			return ""
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			e.logger.Warn("could not read docx document part", "file", name, "error", err)
			return ""
		}
		return parseDocumentXML(content)
	}
	return ""
}

// parseDocumentXML walks the token stream collecting text runs (w:t)
// and breaking lines at paragraph ends (w:p).
func parseDocumentXML(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		out    strings.Builder
		inText bool
	)
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String())
}
