package worker

import (
	"docgenie/apps/indexer/internal/pipeline"
)

// IndexTaskPayload is one queued indexing job, published by the source
// feature and consumed sequentially by the task consumer.
type IndexTaskPayload struct {
	SourceID string `json:"source_id"`
	Type     string `json:"type"` // web, file, transcript, conversation
	Locator  string `json:"locator"`

	// Messages carries the conversation history for conversation sources.
	Messages []pipeline.Message `json:"messages,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
}
