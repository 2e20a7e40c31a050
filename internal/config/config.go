package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Server
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// Redis front for the AI content cache. Empty address disables it.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"AI_CACHE_TTL" default:"168h"`

	Log LogConfig

	Queue             QueueConfig
	Email             EmailConfig
	Summarizer        SummarizerConfig
	Captions          CaptionsConfig
	Hub               HubConfig
	SubscriptionCheck SubscriptionCheckConfig

	// Base URL of the dashboard, used for links in emails.
	DashboardURL string `envconfig:"DASHBOARD_URL" default:"https://tubealert.app"`

	// Workers started at boot; the rest can be started via the control API.
	AutoStartWorkers []string `envconfig:"AUTOSTART_WORKERS" default:"queue,email,subscription-check"`
}

type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"json"`
	File       string `envconfig:"LOG_FILE"`
	MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`
}

type QueueConfig struct {
	// "postgres" or "memory"
	Backend           string        `envconfig:"QUEUE_BACKEND" default:"postgres"`
	PollInterval      time.Duration `envconfig:"QUEUE_POLL_INTERVAL" default:"2s"`
	VisibilityTimeout time.Duration `envconfig:"QUEUE_VISIBILITY_TIMEOUT" default:"5m"`
	MaxAttempts       int           `envconfig:"QUEUE_MAX_ATTEMPTS" default:"5"`
	BackoffBase       time.Duration `envconfig:"QUEUE_BACKOFF_BASE" default:"10s"`
	BackoffMax        time.Duration `envconfig:"QUEUE_BACKOFF_MAX" default:"10m"`
	WorkTimeout       time.Duration `envconfig:"QUEUE_WORK_TIMEOUT" default:"3m"`
}

type EmailConfig struct {
	// "resend" or "smtp"
	Provider     string        `envconfig:"EMAIL_PROVIDER" default:"resend"`
	From         string        `envconfig:"EMAIL_FROM" default:"TubeAlert <alerts@tubealert.app>"`
	APIKey       string        `envconfig:"EMAIL_API_KEY"`
	APIBaseURL   string        `envconfig:"EMAIL_API_BASE_URL" default:"https://api.resend.com"`
	Timeout      time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`
	BatchSize    int           `envconfig:"EMAIL_BATCH_SIZE" default:"10"`
	PollInterval time.Duration `envconfig:"EMAIL_POLL_INTERVAL" default:"5s"`
	ClaimLease   time.Duration `envconfig:"EMAIL_CLAIM_LEASE" default:"10m"`
	RateLimit    int           `envconfig:"EMAIL_RATE_LIMIT" default:"10"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPUseTLS   bool   `envconfig:"SMTP_USE_TLS" default:"false"`
}

type SummarizerConfig struct {
	BaseURL            string        `envconfig:"SUMMARIZER_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"SUMMARIZER_API_KEY"`
	Model              string        `envconfig:"SUMMARIZER_MODEL" default:"gpt-4o-mini"`
	Timeout            time.Duration `envconfig:"SUMMARIZER_TIMEOUT" default:"60s"`
	MaxTranscriptChars int           `envconfig:"SUMMARIZER_MAX_TRANSCRIPT_CHARS" default:"48000"`
	RateLimit          int           `envconfig:"SUMMARIZER_RATE_LIMIT" default:"2"`
}

type CaptionsConfig struct {
	BaseURL  string        `envconfig:"CAPTIONS_BASE_URL" default:"https://www.youtube.com"`
	Language string        `envconfig:"CAPTIONS_LANGUAGE" default:"en"`
	Timeout  time.Duration `envconfig:"CAPTIONS_TIMEOUT" default:"15s"`
}

type HubConfig struct {
	URL         string        `envconfig:"HUB_URL" default:"https://pubsubhubbub.appspot.com/subscribe"`
	CallbackURL string        `envconfig:"HUB_CALLBACK_URL" default:"https://tubealert.app/webhooks/youtube"`
	Timeout     time.Duration `envconfig:"HUB_TIMEOUT" default:"10s"`
}

type SubscriptionCheckConfig struct {
	Interval     time.Duration `envconfig:"SUBSCRIPTION_CHECK_INTERVAL" default:"5m"`
	Window       time.Duration `envconfig:"SUBSCRIPTION_CHECK_WINDOW" default:"1h"`
	Environments []string      `envconfig:"SUBSCRIPTION_CHECK_ENVIRONMENTS" default:"production"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Queue.MaxAttempts < 1 {
		return nil, fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.Email.BatchSize < 1 {
		return nil, fmt.Errorf("EMAIL_BATCH_SIZE must be at least 1")
	}
	return &cfg, nil
}

// SubscriptionCheckEnabled reports whether the subscription sweep runs in
// the current deployment environment.
func (c *Config) SubscriptionCheckEnabled() bool {
	return slices.Contains(c.SubscriptionCheck.Environments, c.Environment)
}
