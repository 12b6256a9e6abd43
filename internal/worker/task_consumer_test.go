package worker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docgenie/apps/indexer/internal/pipeline"
)

func taskMessage(t *testing.T, payload IndexTaskPayload) *nsq.Message {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return nsq.NewMessage(nsq.MessageID{}, body)
}

func TestHandleMessage(t *testing.T) {
	t.Run("web task completes the source", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		updater.On("UpdateStatus", mock.Anything, "src-1", "in_progress", "").Return(nil)
		indexer.On("IndexWebPage", mock.Anything, "https://example.com/docs").
			Return(pipeline.Result{IndexName: "example-com-docs-1a2b3c4d", Records: 12}, nil)
		updater.On("UpdateResult", mock.Anything, "src-1", "completed", "example-com-docs-1a2b3c4d", 12).Return(nil)

		err := consumer.HandleMessage(taskMessage(t, IndexTaskPayload{
			SourceID: "src-1",
			Type:     "web",
			Locator:  "https://example.com/docs",
		}))
		require.NoError(t, err)
		indexer.AssertExpectations(t)
		updater.AssertExpectations(t)
	})

	t.Run("pipeline failure marks source failed without requeue", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		updater.On("UpdateStatus", mock.Anything, "src-2", "in_progress", "").Return(nil)
		indexer.On("IndexFile", mock.Anything, "guide.pdf").
			Return(pipeline.Result{}, errors.New("read document: no such file"))
		updater.On("UpdateStatus", mock.Anything, "src-2", "failed", "read document: no such file").Return(nil)

		err := consumer.HandleMessage(taskMessage(t, IndexTaskPayload{
			SourceID: "src-2",
			Type:     "file",
			Locator:  "guide.pdf",
		}))
		assert.NoError(t, err)
		updater.AssertExpectations(t)
	})

	t.Run("skipped source is recorded with its reason", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		updater.On("UpdateStatus", mock.Anything, "src-3", "in_progress", "").Return(nil)
		indexer.On("IndexTranscript", mock.Anything, "empty.txt").
			Return(pipeline.Result{Skipped: true, Reason: "no extractable content"}, nil)
		updater.On("UpdateStatus", mock.Anything, "src-3", "skipped", "no extractable content").Return(nil)

		err := consumer.HandleMessage(taskMessage(t, IndexTaskPayload{
			SourceID: "src-3",
			Type:     "transcript",
			Locator:  "empty.txt",
		}))
		assert.NoError(t, err)
		updater.AssertExpectations(t)
		updater.AssertNotCalled(t, "UpdateResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("conversation task passes messages through", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		messages := []pipeline.Message{{Role: "User", Content: "hello"}}
		updater.On("UpdateStatus", mock.Anything, "src-4", "in_progress", "").Return(nil)
		indexer.On("IndexConversation", mock.Anything, "conv-9", messages).
			Return(pipeline.Result{IndexName: "conversation-conv-9-abc12345", Records: 3}, nil)
		updater.On("UpdateResult", mock.Anything, "src-4", "completed", "conversation-conv-9-abc12345", 3).Return(nil)

		err := consumer.HandleMessage(taskMessage(t, IndexTaskPayload{
			SourceID: "src-4",
			Type:     "conversation",
			Locator:  "conv-9",
			Messages: messages,
		}))
		assert.NoError(t, err)
		indexer.AssertExpectations(t)
	})

	t.Run("unknown type marks source failed", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		updater.On("UpdateStatus", mock.Anything, "src-5", "in_progress", "").Return(nil)
		updater.On("UpdateStatus", mock.Anything, "src-5", "failed", mock.Anything).Return(nil)

		err := consumer.HandleMessage(taskMessage(t, IndexTaskPayload{SourceID: "src-5", Type: "rss", Locator: "x"}))
		assert.NoError(t, err)
		updater.AssertExpectations(t)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		err := consumer.HandleMessage(nsq.NewMessage(nsq.MessageID{}, []byte("not json")))
		assert.NoError(t, err)
		updater.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty body is dropped", func(t *testing.T) {
		consumer := NewTaskConsumer(new(MockIndexer), new(MockUpdater))
		assert.NoError(t, consumer.HandleMessage(nsq.NewMessage(nsq.MessageID{}, nil)))
	})

	t.Run("missing source id is dropped", func(t *testing.T) {
		indexer := new(MockIndexer)
		updater := new(MockUpdater)
		consumer := NewTaskConsumer(indexer, updater)

		err := consumer.HandleMessage(taskMessage(t, IndexTaskPayload{Type: "web", Locator: "https://example.com"}))
		assert.NoError(t, err)
		indexer.AssertNotCalled(t, "IndexWebPage", mock.Anything, mock.Anything)
	})
}
