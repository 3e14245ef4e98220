package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database    *dbConfig
	Service     *svcConfig
	Pipeline    *pipelineConfig
	Translation *translationConfig
	Storage     *storageConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"prismy"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	MetricsAddress string `envconfig:"PRISMY_METRICS_ADDRESS" default:":8080"`
	LogLevel       string `envconfig:"PRISMY_LOG_LEVEL" default:"info"`
}

type pipelineConfig struct {
	BatchSize          int           `envconfig:"PRISMY_EXTRACTION_BATCH_SIZE" default:"50"`
	MinTextLength      int           `envconfig:"PRISMY_MIN_TEXT_LENGTH" default:"50"`
	ChunkSize          int           `envconfig:"PRISMY_CHUNK_SIZE" default:"3000"`
	OverlapSize        int           `envconfig:"PRISMY_OVERLAP_SIZE" default:"200"`
	JobTTL             time.Duration `envconfig:"PRISMY_JOB_TTL" default:"24h"`
	CleanupInterval    time.Duration `envconfig:"PRISMY_CLEANUP_INTERVAL" default:"1h"`
	ExtractWorkers     int           `envconfig:"PRISMY_EXTRACT_WORKERS" default:"4"`
	ChunkWorkers       int           `envconfig:"PRISMY_CHUNK_WORKERS" default:"4"`
	TranslateWorkers   int           `envconfig:"PRISMY_TRANSLATE_WORKERS" default:"8"`
	ReconstructWorkers int           `envconfig:"PRISMY_RECONSTRUCT_WORKERS" default:"4"`
	ExtractTimeout     time.Duration `envconfig:"PRISMY_EXTRACT_TIMEOUT" default:"10m"`
	ChunkTimeout       time.Duration `envconfig:"PRISMY_CHUNK_TIMEOUT" default:"5m"`
	TranslateTimeout   time.Duration `envconfig:"PRISMY_TRANSLATE_TIMEOUT" default:"30m"`
	ReconstructTimeout time.Duration `envconfig:"PRISMY_RECONSTRUCT_TIMEOUT" default:"5m"`
}

type translationConfig struct {
	Concurrency   int           `envconfig:"PRISMY_TRANSLATION_CONCURRENCY" default:"5"`
	MaxAttempts   int           `envconfig:"PRISMY_TRANSLATION_MAX_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"PRISMY_TRANSLATION_RETRY_DELAY" default:"2s"`
	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OpenAITimeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"120s"`
}

type storageConfig struct {
	OutputDir       string `envconfig:"PRISMY_OUTPUT_DIR" default:"output"`
	MinioEndpoint   string `envconfig:"PRISMY_MINIO_ENDPOINT" default:""`
	MinioBucket     string `envconfig:"PRISMY_MINIO_BUCKET" default:"prismy-results"`
	MinioAccessKey  string `envconfig:"PRISMY_MINIO_ACCESS_KEY" default:""`
	MinioSecretKey  string `envconfig:"PRISMY_MINIO_SECRET_KEY" default:""`
	MinioUseSSL     bool   `envconfig:"PRISMY_MINIO_USE_SSL" default:"false"`
}

func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewDefault returns a configuration without reading the environment,
// backed by an in-memory sqlite database. Used by tests.
func NewDefault() *Config {
	return &Config{
		// shared cache keeps every pooled connection on the same in-memory db
		Database: &dbConfig{Type: "sqlite", Name: "file::memory:?cache=shared"},
		Service:  &svcConfig{MetricsAddress: ":8080", LogLevel: "info"},
		Pipeline: &pipelineConfig{
			BatchSize:          50,
			MinTextLength:      50,
			ChunkSize:          3000,
			OverlapSize:        200,
			JobTTL:             24 * time.Hour,
			CleanupInterval:    time.Hour,
			ExtractWorkers:     1,
			ChunkWorkers:       1,
			TranslateWorkers:   1,
			ReconstructWorkers: 1,
			ExtractTimeout:     10 * time.Minute,
			ChunkTimeout:       5 * time.Minute,
			TranslateTimeout:   30 * time.Minute,
			ReconstructTimeout: 5 * time.Minute,
		},
		Translation: &translationConfig{
			Concurrency: 5,
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
		},
		Storage: &storageConfig{OutputDir: "output", MinioBucket: "prismy-results"},
	}
}
