package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docgenie/apps/indexer/internal/extract"
)

func TestPDFText_InvalidBytes(t *testing.T) {
	_, err := extract.PDFText([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestMarkdownText(t *testing.T) {
	raw := []byte("# Heading\n\nSome *markdown* content.")
	assert.Equal(t, "# Heading\n\nSome *markdown* content.", extract.MarkdownText(raw))
}
