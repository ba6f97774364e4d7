package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN,required,notEmpty"`
	Mode     string `env:"BOT_MODE" envDefault:"webhook"` // "webhook" | "polling"

	Port            string        `env:"PORT" envDefault:"8080"`
	WebhookURL      string        `env:"WEBHOOK_URL"` // registered with Telegram on start when set
	WebhookPath     string        `env:"WEBHOOK_PATH" envDefault:"/api/webhook"`
	WebhookSecret   string        `env:"WEBHOOK_SECRET"` // required in webhook mode
	UpdateTimeout   time.Duration `env:"UPDATE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	Store

	Admins          []int64 `env:"ADMINS" envSeparator:","`
	SearchLimit     int     `env:"SEARCH_LIMIT" envDefault:"10"`
	InlineCacheTime int     `env:"INLINE_CACHE_TIME" envDefault:"5"`
	PollTimeout     int     `env:"POLL_TIMEOUT" envDefault:"60"`
	MaxConcurrent   int     `env:"MAX_CONCURRENT" envDefault:"16"`

	RateLimitBurst  int    `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitPerMin int    `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	RedisAddr       string `env:"REDIS_ADDR"` // empty = in-memory limiter
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
}

// Store holds the settings shared by the bot and the seed command.
type Store struct {
	MongoURI       string        `env:"MONGODB_URI,required,notEmpty"`
	MongoDatabase  string        `env:"MONGODB_DATABASE" envDefault:"movie_bot_db"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	PrettyLog bool   `env:"PRETTY_LOG" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStore reads only the store and logging settings, so tools that never
// talk to Telegram run without BOT_TOKEN.
func LoadStore() (*Store, error) {
	st := &Store{}
	if err := env.Parse(st); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := st.validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) validate() error {
	if s.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be > 0, got %v", s.StoreTimeout)
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be > 0, got %v", s.ConnectTimeout)
	}
	return nil
}

func (c *Config) validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case ModeWebhook, ModePolling:
	default:
		return fmt.Errorf("BOT_MODE must be %q or %q, got %q", ModeWebhook, ModePolling, c.Mode)
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return fmt.Errorf("WEBHOOK_PATH must start with /, got %q", c.WebhookPath)
	}
	if c.Mode == ModeWebhook {
		if err := validateSecret(c.WebhookSecret); err != nil {
			return err
		}
	}
	if c.UpdateTimeout <= 0 {
		return fmt.Errorf("UPDATE_TIMEOUT must be > 0, got %v", c.UpdateTimeout)
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if c.SearchLimit < 1 || c.SearchLimit > 50 {
		return fmt.Errorf("SEARCH_LIMIT must be within 1..50, got %d", c.SearchLimit)
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	return nil
}

// validateSecret applies Telegram's secret_token rules: 1..256 characters
// from A-Z, a-z, 0-9, _ and -.
func validateSecret(s string) error {
	if s == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required in %s mode", ModeWebhook)
	}
	if len(s) > 256 {
		return fmt.Errorf("WEBHOOK_SECRET must be at most 256 characters, got %d", len(s))
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("WEBHOOK_SECRET may only contain A-Z, a-z, 0-9, _ and -, got %q", r)
		}
	}
	return nil
}

// ListenAddr accepts both PORT=8080 and PORT=:8080.
func (c *Config) ListenAddr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// Redacted is safe to log.
func (c Config) Redacted() Config {
	if c.BotToken != "" {
		c.BotToken = "***REDACTED***"
	}
	if c.WebhookSecret != "" {
		c.WebhookSecret = "***REDACTED***"
	}
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	c.MongoURI = "***REDACTED***"
	return c
}
