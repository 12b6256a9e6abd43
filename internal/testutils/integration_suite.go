package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"docgenie/apps/indexer/internal/config"
)

// IntegrationSuite starts Postgres and nsqd in containers and hands out
// connected clients. Tests that use it must skip in -short mode.
type IntegrationSuite struct {
	T   *testing.T
	DB  *sql.DB
	NSQ *nsq.Producer

	dbHost  string
	dbPort  int
	nsqHost string
	nsqHTTP string

	pgContainer  *postgres.PostgresContainer
	nsqContainer testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Postgres
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("docgenie_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(s.T, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)
	s.dbHost = pgHost
	s.dbPort = pgPort.Int()

	// Run Migrations
	m, err := migrate.New(s.MigrationPath(), connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())

	// 2. NSQ
	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqHost, err := nsqC.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := nsqC.MappedPort(ctx, "4150")
	require.NoError(s.T, err)
	s.nsqHost = fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port())

	nsqHTTPPort, err := nsqC.MappedPort(ctx, "4151")
	require.NoError(s.T, err)
	s.nsqHTTP = fmt.Sprintf("%s:%s", nsqHost, nsqHTTPPort.Port())

	nsqCfg := nsq.NewConfig()
	s.NSQ, err = nsq.NewProducer(s.nsqHost, nsqCfg)
	require.NoError(s.T, err)
}

// MigrationPath resolves the repo-root migrations directory as a file:// URL,
// independent of the test's working directory.
func (s *IntegrationSuite) MigrationPath() string {
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	return fmt.Sprintf("file://%s/../../migrations", basepath)
}

// GetAppConfig returns a Config pointed at the containers. The search and
// model endpoints are placeholders; nothing dials them at startup.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	return &config.Config{
		DBHost: s.dbHost,
		DBPort: s.dbPort,
		DBUser: "test",
		DBPass: "test",
		DBName: "docgenie_test",

		SearchServiceName: "test-search",
		SearchAdminKey:    "test-key",
		SearchAPIVersion:  "2021-04-30-Preview",

		ModelEndpoint:   "http://localhost:9",
		ModelAPIKey:     "test-key",
		ModelDeployment: "test-deployment",
		ModelMaxTokens:  4000,

		NSQDHost: s.nsqHost,
		NSQDHTTP: s.nsqHTTP,

		BootstrapRetryAttempts:     3,
		BootstrapRetryDelaySeconds: 1,

		EnableAPI:    true,
		EnableWorker: false,

		MigrationPath: s.MigrationPath(),
		ServerPort:    8081,

		ChunkSize:          3000,
		ChunkOverlap:       300,
		QAMinPairs:         10,
		QAMaxPairs:         50,
		QAPairMultiple:     2,
		QAMaxRetries:       3,
		ThrottleWaitSec:    1,
		ContentID:          "_content",
		TranscriptDir:      s.T.TempDir(),
		DocumentDir:        s.T.TempDir(),
		SemanticTitleField: "title",
	}
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.DB != nil {
		s.DB.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
