package source

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docgenie/apps/indexer/internal/config"
	"docgenie/apps/indexer/internal/identifier"
	"docgenie/apps/indexer/internal/pipeline"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) Save(ctx context.Context, src *Source) error {
	args := m.Called(ctx, src)
	if args.Error(0) == nil && src.ID == "" {
		src.ID = "generated-id"
	}
	return args.Error(0)
}

func (m *MockRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) Get(ctx context.Context, id string) (*Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Source), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context) ([]Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Source), args.Error(1)
}

func (m *MockRepo) UpdateStatus(ctx context.Context, id, status, lastError string) error {
	return m.Called(ctx, id, status, lastError).Error(0)
}

func (m *MockRepo) UpdateResult(ctx context.Context, id, status, indexName string, records int) error {
	return m.Called(ctx, id, status, indexName, records).Error(0)
}

func (m *MockRepo) SoftDelete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

type MockIndexDeleter struct{ mock.Mock }

func (m *MockIndexDeleter) DeleteIndex(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func TestCreate(t *testing.T) {
	t.Run("registers a web source and publishes a task", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		var published []byte
		pub.On("Publish", config.TopicIndexTask, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(1).([]byte) }).
			Return(nil)

		src := &Source{Locator: "https://example.com/docs"}
		require.NoError(t, svc.Create(context.Background(), src))

		assert.Equal(t, "web", src.Type)
		assert.Equal(t, "pending", src.Status)
		assert.Equal(t, identifier.IndexName("https://example.com/docs"), src.IndexName)

		var task map[string]interface{}
		require.NoError(t, json.Unmarshal(published, &task))
		assert.Equal(t, "generated-id", task["source_id"])
		assert.Equal(t, "web", task["type"])
		assert.Equal(t, "https://example.com/docs", task["locator"])
	})

	t.Run("conversation source carries its messages", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		var published []byte
		pub.On("Publish", config.TopicIndexTask, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(1).([]byte) }).
			Return(nil)

		src := &Source{
			Type:     "conversation",
			Locator:  "conv-42",
			Messages: []pipeline.Message{{Role: "User", Content: "hello"}},
		}
		require.NoError(t, svc.Create(context.Background(), src))
		assert.Equal(t, identifier.IndexName("conversation-conv-42"), src.IndexName)

		var task struct {
			Messages []pipeline.Message `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(published, &task))
		require.Len(t, task.Messages, 1)
		assert.Equal(t, "hello", task.Messages[0].Content)
	})

	t.Run("duplicate locator is rejected", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(true, nil)

		err := svc.Create(context.Background(), &Source{Locator: "https://example.com"})
		assert.ErrorIs(t, err, ErrDuplicate)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		svc := NewService(new(MockRepo), new(MockPublisher), new(MockIndexDeleter))
		err := svc.Create(context.Background(), &Source{Type: "rss", Locator: "x"})
		assert.Error(t, err)
	})

	t.Run("publish failure marks the source failed", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		repo.On("UpdateStatus", mock.Anything, "generated-id", "failed", mock.Anything).Return(nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd down"))

		src := &Source{Locator: "https://example.com"}
		require.NoError(t, svc.Create(context.Background(), src))

		assert.Equal(t, "failed", src.Status)
		assert.Contains(t, src.LastError, "nsqd down")
		repo.AssertCalled(t, "UpdateStatus", mock.Anything, "generated-id", "failed", mock.Anything)
	})
}

func TestUpload(t *testing.T) {
	t.Run("registers a stored file", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, "abc123").Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		pub.On("Publish", config.TopicIndexTask, mock.Anything).Return(nil)

		src, err := svc.Upload(context.Background(), "file", "uuid_guide.pdf", "abc123")
		require.NoError(t, err)
		assert.Equal(t, "file", src.Type)
		assert.Equal(t, "uuid_guide.pdf", src.Locator)
		assert.Equal(t, "abc123", src.ContentHash)
	})

	t.Run("duplicate content hash is rejected", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, new(MockPublisher), new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, "abc123").Return(true, nil)

		_, err := svc.Upload(context.Background(), "transcript", "standup.txt", "abc123")
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("rejects non upload types", func(t *testing.T) {
		svc := NewService(new(MockRepo), new(MockPublisher), new(MockIndexDeleter))
		_, err := svc.Upload(context.Background(), "web", "x", "h")
		assert.Error(t, err)
	})

	t.Run("publish failure marks the upload failed", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("ExistsByHash", mock.Anything, "abc123").Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		repo.On("UpdateStatus", mock.Anything, "generated-id", "failed", mock.Anything).Return(nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd down"))

		src, err := svc.Upload(context.Background(), "file", "uuid_guide.pdf", "abc123")
		require.NoError(t, err)
		assert.Equal(t, "failed", src.Status)
		assert.Contains(t, src.LastError, "nsqd down")
	})
}

func TestDelete(t *testing.T) {
	t.Run("drops the index then soft deletes", func(t *testing.T) {
		repo := new(MockRepo)
		indexes := new(MockIndexDeleter)
		svc := NewService(repo, new(MockPublisher), indexes)

		repo.On("Get", mock.Anything, "id-1").Return(&Source{ID: "id-1", IndexName: "example-com-1a2b3c4d"}, nil)
		indexes.On("DeleteIndex", mock.Anything, "example-com-1a2b3c4d").Return(nil)
		repo.On("SoftDelete", mock.Anything, "id-1").Return(nil)

		require.NoError(t, svc.Delete(context.Background(), "id-1"))
		indexes.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("index deletion failure keeps the source", func(t *testing.T) {
		repo := new(MockRepo)
		indexes := new(MockIndexDeleter)
		svc := NewService(repo, new(MockPublisher), indexes)

		repo.On("Get", mock.Anything, "id-1").Return(&Source{ID: "id-1", IndexName: "stuck-index"}, nil)
		indexes.On("DeleteIndex", mock.Anything, "stuck-index").Return(errors.New("service unavailable"))

		assert.Error(t, svc.Delete(context.Background(), "id-1"))
		repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})
}

func TestReSync(t *testing.T) {
	t.Run("resets status and republishes", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("Get", mock.Anything, "id-1").
			Return(&Source{ID: "id-1", Type: "web", Locator: "https://example.com"}, nil)
		repo.On("UpdateStatus", mock.Anything, "id-1", "pending", "").Return(nil)

		var published []byte
		pub.On("Publish", config.TopicIndexTask, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(1).([]byte) }).
			Return(nil)

		require.NoError(t, svc.ReSync(context.Background(), "id-1"))

		var task map[string]interface{}
		require.NoError(t, json.Unmarshal(published, &task))
		assert.Equal(t, "id-1", task["source_id"])
		assert.Equal(t, "https://example.com", task["locator"])
	})

	t.Run("publish failure surfaces", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := NewService(repo, pub, new(MockIndexDeleter))

		repo.On("Get", mock.Anything, "id-1").Return(&Source{ID: "id-1", Type: "web", Locator: "x"}, nil)
		repo.On("UpdateStatus", mock.Anything, "id-1", "pending", "").Return(nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd down"))

		assert.Error(t, svc.ReSync(context.Background(), "id-1"))
	})
}
