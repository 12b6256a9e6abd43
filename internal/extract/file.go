package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of a PDF from its raw bytes.
func PDFText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages.
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

// MarkdownText returns markdown content as-is; markdown is already plain
// enough to chunk and synthesize from directly.
func MarkdownText(raw []byte) string {
	return string(raw)
}
