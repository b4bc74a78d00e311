package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != ":8080" || cfg.Storage.Driver != "memory" || cfg.IntroScope != IntroScopeSession {
		t.Fatalf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Session.AutoAdvanceDelay != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s auto advance delay, got %v", cfg.Session.AutoAdvanceDelay)
	}
	if len(cfg.Warnings) != 2 {
		t.Errorf("Expected missing file and default secret warnings, got %v", cfg.Warnings)
	}
}

func TestStrictBankFollowsGinMode(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		strict bool
	}{
		{"debug by default", nil, true},
		{"release", map[string]string{"STUDYQUIZ_GIN_MODE": "release"}, false},
		{"release with explicit strict", map[string]string{"STUDYQUIZ_GIN_MODE": "release", "STUDYQUIZ_BANK_STRICT": "true"}, true},
		{"debug with strict off", map[string]string{"STUDYQUIZ_BANK_STRICT": "false"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := load(viper.New(), t.TempDir())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.Bank.Strict != tt.strict {
				t.Errorf("Expected strict=%v in %s mode, got %v", tt.strict, cfg.GinMode, cfg.Bank.Strict)
			}
		})
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "SERVER_PORT: \":9090\"\nSTORAGE:\n  DRIVER: sqlite\n  SQLITE_PATH: /tmp/q.db\nBANK:\n  STRICT: true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDYQUIZ_INTRO_SCOPE", "persistent")
	t.Setenv("STUDYQUIZ_SESSION_AUTO_ADVANCE_DELAY", "2s")
	t.Setenv("STUDYQUIZ_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := load(viper.New(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != ":9090" || cfg.Storage.Driver != "sqlite" || !cfg.Bank.Strict {
		t.Errorf("Expected file values, got %+v", cfg)
	}
	if cfg.IntroScope != IntroScopePersistent {
		t.Errorf("Expected env override of INTRO_SCOPE, got %q", cfg.IntroScope)
	}
	if cfg.Session.AutoAdvanceDelay != 2*time.Second {
		t.Errorf("Expected nested env override, got %v", cfg.Session.AutoAdvanceDelay)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("Expected two CORS origins, got %v", cfg.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage:    StorageConfig{Driver: "memory"},
			Bank:       BankConfig{Path: "bank"},
			IntroScope: IntroScopeSession,
			Session: SessionConfig{
				Secret: "s", IdleTTL: time.Hour, SweepInterval: time.Minute, ViewerTTL: time.Hour,
			},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"bad intro scope", func(c *Config) { c.IntroScope = "forever" }},
		{"missing bank", func(c *Config) { c.Bank.Path = "" }},
		{"missing secret", func(c *Config) { c.Session.Secret = "" }},
		{"negative delay", func(c *Config) { c.Session.AutoAdvanceDelay = -time.Second }},
		{"zero ttl", func(c *Config) { c.Session.IdleTTL = 0 }},
	}
	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("Expected base config to validate, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
