package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgenie/apps/indexer/internal/app"
	"docgenie/apps/indexer/internal/config"
)

type nopPublisher struct{}

func (nopPublisher) Publish(topic string, body []byte) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SearchServiceName:  "test-search",
		SearchAdminKey:     "test-key",
		SearchAPIVersion:   "2021-04-30-Preview",
		ModelEndpoint:      "http://localhost:9",
		ModelDeployment:    "test",
		ModelMaxTokens:     4000,
		EnableAPI:          true,
		ServerPort:         8081,
		ChunkSize:          3000,
		ChunkOverlap:       300,
		QAMinPairs:         10,
		QAMaxPairs:         50,
		QAPairMultiple:     2,
		QAMaxRetries:       3,
		ThrottleWaitSec:    1,
		ContentID:          "_content",
		DocumentDir:        t.TempDir(),
		TranscriptDir:      t.TempDir(),
		SemanticTitleField: "title",
	}
}

func TestNew_RegistersRoutes(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a, err := app.New(testConfig(t), db, nopPublisher{})
	require.NoError(t, err)
	require.NotNil(t, a.TaskConsumer)

	t.Run("health is always served", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("preflight is handled by CORS middleware", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/sources", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestNew_APIDisabled(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig(t)
	cfg.EnableAPI = false

	a, err := app.New(cfg, db, nopPublisher{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sources", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
