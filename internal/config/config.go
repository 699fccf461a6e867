// Package config loads runtime configuration from the environment and the
// category definition file. Required settings fail the process at load.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// Telegram Bot API (publication and moderation surface).
	BotToken        string `env:"BOT_TOKEN,required"`
	ModeratorChatID int64  `env:"MODERATOR_CHAT_ID,required"`
	PreviewChatID   int64  `env:"PREVIEW_CHAT_ID"`
	NotifyChatID    int64  `env:"NOTIFY_CHAT_ID"`

	// MTProto listener.
	TGAPIID              int           `env:"TG_API_ID"`
	TGAPIHash            string        `env:"TG_API_HASH"`
	TGPhone              string        `env:"TG_PHONE"`
	TG2FAPassword        string        `env:"TG_2FA_PASSWORD"`
	TGSessionPath        string        `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	ListenerFetchLimit   int           `env:"LISTENER_FETCH_LIMIT" envDefault:"50"`
	ListenerPollInterval time.Duration `env:"LISTENER_POLL_INTERVAL" envDefault:"30s"`

	// LLM selection.
	LLMAPIKey         string        `env:"LLM_API_KEY,required"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMChunkSize      int           `env:"LLM_CHUNK_SIZE" envDefault:"50"`
	LLMRequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"60s"`

	// Embeddings and deduplication.
	EmbeddingModel      string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingBatchSize  int     `env:"EMBEDDING_BATCH_SIZE" envDefault:"32"`
	EmbeddingDimensions int     `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	DuplicateThreshold  float32 `env:"DUPLICATE_THRESHOLD" envDefault:"0.85"`
	PublishedWindowDays int     `env:"PUBLISHED_WINDOW_DAYS" envDefault:"60"`

	// Pipeline.
	UnprocessedWindow time.Duration `env:"UNPROCESSED_WINDOW" envDefault:"24h"`
	ProcessInterval   time.Duration `env:"PROCESS_INTERVAL" envDefault:"1h"`
	CategoriesPath    string        `env:"CATEGORIES_PATH" envDefault:"./categories.yaml"`

	// Moderation.
	ModerationTimeout      time.Duration `env:"MODERATION_TIMEOUT" envDefault:"2h"`
	ModerationPollInterval time.Duration `env:"MODERATION_POLL_INTERVAL" envDefault:"3s"`

	// Retention.
	RawRetentionDays       int `env:"RAW_RETENTION_DAYS" envDefault:"14"`
	PublishedRetentionDays int `env:"PUBLISHED_RETENTION_DAYS" envDefault:"60"`

	// Outbound rate limiting and observability.
	RateLimitRPS int `env:"RATE_LIMIT_RPS" envDefault:"1"`
	HealthPort   int `env:"HEALTH_PORT" envDefault:"8080"`

	// Connection pool.
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LLMChunkSize <= 0 {
		return fmt.Errorf("LLM_CHUNK_SIZE must be positive, got %d", c.LLMChunkSize)
	}

	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive, got %d", c.EmbeddingBatchSize)
	}

	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be in (0,1], got %f", c.DuplicateThreshold)
	}

	if c.ModerationPollInterval <= 0 {
		return fmt.Errorf("MODERATION_POLL_INTERVAL must be positive, got %s", c.ModerationPollInterval)
	}

	return nil
}
