package source

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"docgenie/apps/indexer/internal/config"
	"docgenie/apps/indexer/internal/identifier"
	"docgenie/apps/indexer/internal/middleware"
	"docgenie/apps/indexer/internal/pipeline"
)

var ErrDuplicate = errors.New("duplicate source")

// Source is one registered input to the indexing pipeline. Locator is a URL
// for web sources, a stored file name for file/transcript sources, and a
// conversation id for conversation sources.
type Source struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // web, file, transcript, conversation
	Locator     string `json:"locator"`
	ContentHash string `json:"-"`
	IndexName   string `json:"index_name"`
	Status      string `json:"status"` // pending, in_progress, completed, failed, skipped
	RecordCount int    `json:"record_count"`
	LastError   string `json:"last_error,omitempty"`

	// Messages holds the history of a conversation source.
	Messages []pipeline.Message `json:"messages,omitempty"`
}

func validType(t string) bool {
	switch t {
	case "web", "file", "transcript", "conversation":
		return true
	}
	return false
}

type Repository interface {
	Save(ctx context.Context, src *Source) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, id string) (*Source, error)
	List(ctx context.Context) ([]Source, error)
	UpdateStatus(ctx context.Context, id, status, lastError string) error
	UpdateResult(ctx context.Context, id, status, indexName string, records int) error
	SoftDelete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// IndexDeleter removes a source's search index when the source is deleted.
type IndexDeleter interface {
	DeleteIndex(ctx context.Context, name string) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	indexes IndexDeleter
}

func NewService(repo Repository, pub EventPublisher, indexes IndexDeleter) *Service {
	return &Service{repo: repo, pub: pub, indexes: indexes}
}

func (s *Service) Create(ctx context.Context, src *Source) error {
	if src.Type == "" {
		src.Type = "web"
	}
	if !validType(src.Type) {
		return fmt.Errorf("unknown source type %q", src.Type)
	}

	hash := sha256.Sum256([]byte(src.Type + "|" + src.Locator))
	src.ContentHash = fmt.Sprintf("%x", hash)

	exists, err := s.repo.ExistsByHash(ctx, src.ContentHash)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicate
	}

	src.Status = "pending"
	src.IndexName = indexNameFor(src)
	if err := s.repo.Save(ctx, src); err != nil {
		return err
	}

	s.markFailedOnPublishError(ctx, src)
	return nil
}

// markFailedOnPublishError records a queue publish failure on the source so
// it does not sit pending forever; a resync republishes it.
func (s *Service) markFailedOnPublishError(ctx context.Context, src *Source) {
	if err := s.publishTask(ctx, src); err != nil {
		src.Status = "failed"
		src.LastError = "queue publish failed: " + err.Error()
		if uerr := s.repo.UpdateStatus(ctx, src.ID, src.Status, src.LastError); uerr != nil {
			slog.ErrorContext(ctx, "failed to record publish failure", "error", uerr, "source_id", src.ID)
		}
	}
}

// Upload registers a stored file or transcript. The handler has already
// written the bytes; contentHash is the hash of the file contents, so the
// same document uploaded twice is rejected regardless of its stored name.
func (s *Service) Upload(ctx context.Context, typ, name, contentHash string) (*Source, error) {
	if typ != "file" && typ != "transcript" {
		return nil, fmt.Errorf("unknown upload type %q", typ)
	}

	exists, err := s.repo.ExistsByHash(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}

	src := &Source{
		Type:        typ,
		Locator:     name,
		ContentHash: contentHash,
		Status:      "pending",
		IndexName:   identifier.IndexName(name),
	}
	if err := s.repo.Save(ctx, src); err != nil {
		return nil, err
	}

	s.markFailedOnPublishError(ctx, src)
	return src, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Source, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Source, error) {
	return s.repo.List(ctx)
}

// Delete drops the source's search index, then soft-deletes the registry
// row.
func (s *Service) Delete(ctx context.Context, id string) error {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if src.IndexName != "" {
		if err := s.indexes.DeleteIndex(ctx, src.IndexName); err != nil {
			return fmt.Errorf("delete index %s: %w", src.IndexName, err)
		}
	}
	return s.repo.SoftDelete(ctx, id)
}

// ReSync re-queues a source. Deterministic ids make the rerun an idempotent
// overwrite of the existing index.
func (s *Service) ReSync(ctx context.Context, id string) error {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, "pending", ""); err != nil {
		return err
	}

	if err := s.publishTask(ctx, src); err != nil {
		return err
	}
	return nil
}

func (s *Service) publishTask(ctx context.Context, src *Source) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"source_id":      src.ID,
		"type":           src.Type,
		"locator":        src.Locator,
		"messages":       src.Messages,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIndexTask, payload); err != nil {
		slog.Error("failed to publish index.task event", "error", err, "source_id", src.ID)
		return err
	}
	slog.Info("published index.task event", "source_id", src.ID, "type", src.Type, "locator", src.Locator)
	return nil
}

func indexNameFor(src *Source) string {
	if src.Type == "conversation" {
		return identifier.IndexName("conversation-" + src.Locator)
	}
	return identifier.IndexName(src.Locator)
}
