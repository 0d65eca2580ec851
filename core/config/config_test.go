package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("GROUP_ID", "-1001234567890")
	t.Setenv("CHANNEL_USERNAME", "@reviews")
	t.Setenv("PROFILE_USERNAME", "owner")
}

func missingDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(Options{DotEnvPath: missingDotEnv(t)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Review.GroupID != -1001234567890 {
		t.Fatalf("group id = %d", cfg.Review.GroupID)
	}
	if cfg.Review.ChannelUsername != "reviews" {
		t.Fatalf("channel username = %q, want leading @ stripped", cfg.Review.ChannelUsername)
	}
	if cfg.Cooldown() != DefaultSpamCooldown {
		t.Fatalf("cooldown = %d, want %d", cfg.Cooldown(), DefaultSpamCooldown)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("log level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.File != DefaultLogFile {
		t.Fatalf("log file = %q", cfg.Logging.File)
	}
	if cfg.LedgerEnabled() {
		t.Fatal("ledger must be disabled without DB_HOST")
	}
}

func TestLoadZeroCooldownIsKept(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SPAM_COOLDOWN", "0")

	cfg, err := Load(Options{DotEnvPath: missingDotEnv(t)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cooldown() != 0 {
		t.Fatalf("cooldown = %d, want 0", cfg.Cooldown())
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	for _, key := range []string{"BOT_TOKEN", "GROUP_ID", "CHANNEL_USERNAME", "PROFILE_USERNAME", "SPAM_COOLDOWN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"BOT_TOKEN=42:token",
		"GROUP_ID=-100500",
		"CHANNEL_USERNAME=chan",
		"PROFILE_USERNAME=@me",
		"SPAM_COOLDOWN=15",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		for _, key := range []string{"BOT_TOKEN", "GROUP_ID", "CHANNEL_USERNAME", "PROFILE_USERNAME", "SPAM_COOLDOWN"} {
			os.Unsetenv(key)
		}
	})

	cfg, err := Load(Options{DotEnvPath: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "42:token" || cfg.Review.GroupID != -100500 {
		t.Fatalf("unexpected config: %+v", cfg.Telegram)
	}
	if cfg.Cooldown() != 15 {
		t.Fatalf("cooldown = %d, want 15", cfg.Cooldown())
	}
	if cfg.Review.ProfileUsername != "me" {
		t.Fatalf("profile username = %q", cfg.Review.ProfileUsername)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
review:
  spam_cooldown: 90
logging:
  level: error
  format: json
rate_limit:
  interval_ms: 500
  exclude_updates: [" Callback "]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := Load(Options{DotEnvPath: missingDotEnv(t), YAMLPath: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cooldown() != 90 {
		t.Fatalf("cooldown = %d, want 90", cfg.Cooldown())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("env must override yaml level, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format = %q", cfg.Logging.Format)
	}
	if got := cfg.RateLimit.ExcludeUpdates; len(got) != 1 || got[0] != UpdateCallback {
		t.Fatalf("exclude updates = %v", got)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	negative := -5
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = " " }, "BOT_TOKEN"},
		{"zero group", func(c *Config) { c.Review.GroupID = 0 }, "GROUP_ID"},
		{"negative cooldown", func(c *Config) { c.Review.SpamCooldown = &negative }, "SPAM_COOLDOWN"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad exclude", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline"} }, "exclude_updates"},
		{"db without name", func(c *Config) { c.Database.Host = "localhost" }, "DB_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Telegram: TelegramConfig{Token: "t"},
				Review: ReviewConfig{
					ChannelUsername: "c",
					ProfileUsername: "p",
					GroupID:         -1,
				},
			}
			tt.mutate(cfg)
			err := Normalize(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestNormalizeDatabaseDefaults(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Review:   ReviewConfig{ChannelUsername: "c", ProfileUsername: "p", GroupID: 7},
		Database: DatabaseConfig{Host: "db", Name: "reviews"},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !cfg.LedgerEnabled() {
		t.Fatal("ledger should be enabled")
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" || cfg.Database.MaxConnections != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg.Database)
	}
}

func TestNormalizeAllowsMissingUsernames(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Review:   ReviewConfig{ChannelUsername: " @ ", GroupID: -1},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Review.ChannelUsername != "" || cfg.Review.ProfileUsername != "" {
		t.Fatalf("usernames = %q / %q, want empty", cfg.Review.ChannelUsername, cfg.Review.ProfileUsername)
	}
}

func TestNormalizeLogLevelAliases(t *testing.T) {
	for in, want := range map[string]string{"CRITICAL": "fatal", "fatal": "fatal", "Warning": "warning"} {
		cfg := &Config{Telegram: TelegramConfig{Token: "t"}, Review: ReviewConfig{GroupID: 1}}
		cfg.Logging.Level = in
		if err := Normalize(cfg); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if cfg.Logging.Level != want {
			t.Fatalf("level %q -> %q, want %q", in, cfg.Logging.Level, want)
		}
	}
}
