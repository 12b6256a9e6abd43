package worker

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docgenie/apps/indexer/internal/pipeline"
)

type MockIndexer struct{ mock.Mock }

func (m *MockIndexer) IndexWebPage(ctx context.Context, url string) (pipeline.Result, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *MockIndexer) IndexFile(ctx context.Context, name string) (pipeline.Result, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *MockIndexer) IndexTranscript(ctx context.Context, name string) (pipeline.Result, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *MockIndexer) IndexConversation(ctx context.Context, conversationID string, messages []pipeline.Message) (pipeline.Result, error) {
	args := m.Called(ctx, conversationID, messages)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

type MockUpdater struct{ mock.Mock }

func (m *MockUpdater) UpdateStatus(ctx context.Context, id, status, lastError string) error {
	return m.Called(ctx, id, status, lastError).Error(0)
}

func (m *MockUpdater) UpdateResult(ctx context.Context, id, status, indexName string, records int) error {
	return m.Called(ctx, id, status, indexName, records).Error(0)
}
