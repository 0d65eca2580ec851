package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// ReviewConfig describes where reviews come from and where they go.
// The usernames only feed the menu links and may be empty.
type ReviewConfig struct {
	ChannelUsername string `yaml:"channel_username" envconfig:"CHANNEL_USERNAME"`
	ProfileUsername string `yaml:"profile_username" envconfig:"PROFILE_USERNAME"`
	GroupID         int64  `yaml:"group_id" envconfig:"GROUP_ID"`
	// SpamCooldown is the per-user pause between reviews, in seconds.
	SpamCooldown *int `yaml:"spam_cooldown" envconfig:"SPAM_COOLDOWN"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format    string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder string `yaml:"keys_order"`
	Dir       string `yaml:"dir" envconfig:"LOG_DIR"`
	File      string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for the generic per-user update flood guard.
// It is unrelated to the review cooldown and disabled when IntervalMS is 0.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"METRICS_ADDR"`
}

// DatabaseConfig holds connection settings for the optional review ledger.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Review    ReviewConfig    `yaml:"review"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
}

const (
	// DefaultSpamCooldown is used when SPAM_COOLDOWN is not set.
	DefaultSpamCooldown = 60
	// DefaultLogFile is the log file name written next to the binary.
	DefaultLogFile = "bot.log"
)

// Options tells Load where to look for optional config sources.
type Options struct {
	// DotEnvPath points to a .env file; missing files are ignored.
	DotEnvPath string
	// YAMLPath points to a YAML file; empty or missing paths are ignored.
	YAMLPath string
}

// Load reads .env, an optional YAML file and environment variables, then normalizes the result.
func Load(opts Options) (*Config, error) {
	var cfg Config

	if err := loadDotEnv(opts.DotEnvPath); err != nil {
		return nil, err
	}

	if path := strings.TrimSpace(opts.YAMLPath); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	// godotenv never overrides variables that are already set.
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}

	if cfg.Review.GroupID == 0 {
		return fmt.Errorf("GROUP_ID is required and must be non-zero")
	}
	cfg.Review.ChannelUsername = strings.TrimPrefix(strings.TrimSpace(cfg.Review.ChannelUsername), "@")
	cfg.Review.ProfileUsername = strings.TrimPrefix(strings.TrimSpace(cfg.Review.ProfileUsername), "@")
	if cfg.Review.SpamCooldown == nil {
		def := DefaultSpamCooldown
		cfg.Review.SpamCooldown = &def
	}
	if *cfg.Review.SpamCooldown < 0 {
		return fmt.Errorf("SPAM_COOLDOWN must be >= 0, got %d", *cfg.Review.SpamCooldown)
	}

	level := strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	switch level {
	case "":
		level = "info"
	case "debug", "info", "warn", "warning", "error", "fatal":
	case "critical":
		level = "fatal"
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q; allowed: debug, info, warn, error, critical", cfg.Logging.Level)
	}
	cfg.Logging.Level = level
	if strings.TrimSpace(cfg.Logging.File) == "" {
		cfg.Logging.File = DefaultLogFile
	}
	if strings.TrimSpace(cfg.Logging.Dir) == "" {
		cfg.Logging.Dir = "."
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	cfg.Metrics.Addr = strings.TrimSpace(cfg.Metrics.Addr)

	if strings.TrimSpace(cfg.Database.Host) != "" {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required when DB_HOST is set")
		}
	}
	return nil
}

// Cooldown returns the configured spam cooldown in whole seconds.
func (c *Config) Cooldown() int {
	if c == nil || c.Review.SpamCooldown == nil {
		return DefaultSpamCooldown
	}
	return *c.Review.SpamCooldown
}

// LedgerEnabled reports whether the optional review ledger database is configured.
func (c *Config) LedgerEnabled() bool {
	return c != nil && strings.TrimSpace(c.Database.Host) != ""
}
