package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidChunking = errors.New("invalid chunking configuration")
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"docgenie"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"docgenie"`

	// Search index service (admin key grants index create/delete/upload).
	SearchServiceName string `envconfig:"SEARCH_SERVICE_NAME"`
	SearchAdminKey    string `envconfig:"SEARCH_ADMIN_KEY"`
	SearchAPIVersion  string `envconfig:"SEARCH_API_VERSION" default:"2021-04-30-Preview"`

	// Model service (chat completions endpoint).
	ModelEndpoint   string `envconfig:"MODEL_ENDPOINT"`
	ModelAPIKey     string `envconfig:"MODEL_API_KEY"`
	ModelDeployment string `envconfig:"MODEL_DEPLOYMENT"`
	ModelMaxTokens  int    `envconfig:"MODEL_MAX_TOKENS" default:"4000"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`

	EnableAPI    bool `envconfig:"ENABLE_API" default:"true"`
	EnableWorker bool `envconfig:"ENABLE_WORKER" default:"true"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`

	// Pipeline tuning.
	ChunkSize       int    `envconfig:"CHUNK_SIZE" default:"3000"`
	ChunkOverlap    int    `envconfig:"CHUNK_OVERLAP" default:"300"`
	QAMinPairs      int    `envconfig:"QA_MIN_PAIRS" default:"10"`
	QAMaxPairs      int    `envconfig:"QA_MAX_PAIRS" default:"50"`
	QAPairMultiple  int    `envconfig:"QA_PAIR_MULTIPLE" default:"2"`
	QAMaxRetries    int    `envconfig:"QA_MAX_RETRIES" default:"3"`
	ThrottleWaitSec int    `envconfig:"THROTTLE_WAIT_SEC" default:"21"`
	ContentID       string `envconfig:"CONTENT_CONTAINER_ID" default:"_content"`
	TranscriptDir   string `envconfig:"TRANSCRIPT_DIR" default:"data/transcripts"`
	DocumentDir     string `envconfig:"DOCUMENT_DIR" default:"data/documents"`

	// Which field the semantic ranking config treats as the title. The
	// source pipelines disagree between "title" and "file_name", so it is
	// left to deployment config.
	SemanticTitleField string `envconfig:"SEMANTIC_TITLE_FIELD" default:"title"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SearchServiceName == "" {
		return fmt.Errorf("%w: SEARCH_SERVICE_NAME", ErrMissingRequired)
	}
	if c.SearchAdminKey == "" {
		return fmt.Errorf("%w: SEARCH_ADMIN_KEY", ErrMissingRequired)
	}
	if c.ModelEndpoint == "" {
		return fmt.Errorf("%w: MODEL_ENDPOINT", ErrMissingRequired)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidChunking)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must satisfy 0 <= overlap < CHUNK_SIZE", ErrInvalidChunking)
	}
	if c.SemanticTitleField != "title" && c.SemanticTitleField != "file_name" {
		return fmt.Errorf("%w: SEMANTIC_TITLE_FIELD must be title or file_name", ErrMissingRequired)
	}
	return nil
}
