package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.TablePageSize != 10 || cfg.LoginDelay != 800*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TABLE_PAGE_SIZE", "25")
	t.Setenv("LOGIN_DELAY", "10ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TablePageSize != 25 || cfg.LoginDelay != 10*time.Millisecond || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		TablePageSize:      10,
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 5,
		SessionTTL:         time.Hour,
		SessionKeyPrefix:   "ems:",
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"page size", func(c *Config) { c.TablePageSize = 0 }, "TABLE_PAGE_SIZE"},
		{"body limit", func(c *Config) { c.MaxBodyBytes = 10 }, "MAX_BODY_BYTES"},
		{"rate limit", func(c *Config) { c.RateLimitPerMinute = 0 }, "RATE_LIMIT_PER_MINUTE"},
		{"negative delay", func(c *Config) { c.LoginDelay = -time.Second }, "LOGIN_DELAY"},
		{"production secret", func(c *Config) { c.Environment = "production"; c.SessionSecret = "short" }, "SESSION_SECRET"},
		{"production redis key", func(c *Config) {
			c.Environment = "production"
			c.SessionSecret = strings.Repeat("s", 32)
			c.RedisAddr = "redis:6379"
		}, "DATA_ENCRYPTION_KEY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
