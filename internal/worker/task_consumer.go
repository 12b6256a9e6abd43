package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"docgenie/apps/indexer/internal/middleware"
	"docgenie/apps/indexer/internal/pipeline"
)

// TaskConsumer drains index.task messages one at a time and drives the
// pipeline for each source. Failures are recorded against the source and
// never requeued: index names are deterministic, so a resync republishes the
// same work and overwrites cleanly.
type TaskConsumer struct {
	pipeline Indexer
	updater  SourceStatusUpdater
}

func NewTaskConsumer(p Indexer, u SourceStatusUpdater) *TaskConsumer {
	return &TaskConsumer{pipeline: p, updater: u}
}

func (h *TaskConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IndexTaskPayload
	err := json.Unmarshal(m.Body, &payload)

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	ctx := context.Background()
	ctx = middleware.WithCorrelationID(ctx, correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format", "error", err)
		return nil // Don't retry invalid messages
	}

	if payload.SourceID == "" {
		slog.ErrorContext(ctx, "missing source id, dropping", "type", payload.Type)
		return nil
	}

	slog.InfoContext(ctx, "received index task", "source_id", payload.SourceID, "type", payload.Type, "locator", payload.Locator)

	if err := h.updater.UpdateStatus(ctx, payload.SourceID, "in_progress", ""); err != nil {
		slog.WarnContext(ctx, "failed to mark source in progress", "error", err)
	}

	result, err := h.run(ctx, payload)
	if err != nil {
		slog.ErrorContext(ctx, "indexing failed", "source_id", payload.SourceID, "error", err)
		if uerr := h.updater.UpdateStatus(ctx, payload.SourceID, "failed", err.Error()); uerr != nil {
			slog.WarnContext(ctx, "failed to mark source failed", "error", uerr)
		}
		return nil
	}

	if result.Skipped {
		slog.InfoContext(ctx, "source skipped", "source_id", payload.SourceID, "reason", result.Reason)
		if uerr := h.updater.UpdateStatus(ctx, payload.SourceID, "skipped", result.Reason); uerr != nil {
			slog.WarnContext(ctx, "failed to mark source skipped", "error", uerr)
		}
		return nil
	}

	if uerr := h.updater.UpdateResult(ctx, payload.SourceID, "completed", result.IndexName, result.Records); uerr != nil {
		slog.WarnContext(ctx, "failed to mark source completed", "error", uerr)
	}
	slog.InfoContext(ctx, "source indexed", "source_id", payload.SourceID, "index", result.IndexName, "records", result.Records)
	return nil
}

func (h *TaskConsumer) run(ctx context.Context, payload IndexTaskPayload) (pipeline.Result, error) {
	switch payload.Type {
	case "web":
		return h.pipeline.IndexWebPage(ctx, payload.Locator)
	case "file":
		return h.pipeline.IndexFile(ctx, payload.Locator)
	case "transcript":
		return h.pipeline.IndexTranscript(ctx, payload.Locator)
	case "conversation":
		return h.pipeline.IndexConversation(ctx, payload.Locator, payload.Messages)
	default:
		return pipeline.Result{}, fmt.Errorf("unknown source type %q", payload.Type)
	}
}
