// Package index holds the record model and schema definition shared by the
// pipeline and the search-index adapter.
package index

import (
	"errors"
	"fmt"
	"time"
)

// Doc types record how a document was derived.
const (
	DocTypeSection         = "section"
	DocTypeQA              = "qa"
	DocTypeContent         = "content"
	DocTypeTranscriptChunk = "transcript_chunk"
)

var ErrInvalidDocument = errors.New("invalid index document")

// Document is the unit persisted to a search index. ID is the unique key,
// deterministically derived from the source locator, so re-uploading the
// same source overwrites rather than duplicates.
type Document struct {
	ID         string `json:"id"`
	DocType    string `json:"doc_type"`
	PageTitle  string `json:"page_title"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	FileName   string `json:"file_name"`
	UploadDate string `json:"upload_date"`
}

// Validate rejects documents missing required fields before they reach the
// wire. PageTitle may be empty (plain-text sources have no page title).
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	switch d.DocType {
	case DocTypeSection, DocTypeQA, DocTypeContent, DocTypeTranscriptChunk:
	default:
		return fmt.Errorf("%w: unknown doc_type %q", ErrInvalidDocument, d.DocType)
	}
	if d.Content == "" {
		return fmt.Errorf("%w: missing content", ErrInvalidDocument)
	}
	if d.FileName == "" {
		return fmt.Errorf("%w: missing file_name", ErrInvalidDocument)
	}
	if d.UploadDate == "" {
		return fmt.Errorf("%w: missing upload_date", ErrInvalidDocument)
	}
	return nil
}

// Timestamp formats an upload date the way the index service expects:
// UTC ISO-8601 with offset suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
