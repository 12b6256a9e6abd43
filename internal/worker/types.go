package worker

import (
	"context"

	"docgenie/apps/indexer/internal/pipeline"
)

// Indexer runs the pipeline for one source.
type Indexer interface {
	IndexWebPage(ctx context.Context, url string) (pipeline.Result, error)
	IndexFile(ctx context.Context, name string) (pipeline.Result, error)
	IndexTranscript(ctx context.Context, name string) (pipeline.Result, error)
	IndexConversation(ctx context.Context, conversationID string, messages []pipeline.Message) (pipeline.Result, error)
}

// SourceStatusUpdater records per-source progress in the registry.
type SourceStatusUpdater interface {
	UpdateStatus(ctx context.Context, id, status, lastError string) error
	UpdateResult(ctx context.Context, id, status, indexName string, records int) error
}
