package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        `env:"APP_ADDR" envDefault:":8080"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	SessionSecret        string        `env:"SESSION_SECRET"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	SessionLoadingWait   time.Duration `env:"SESSION_LOADING_WAIT" envDefault:"2s"`
	SessionMaxGates      int           `env:"SESSION_MAX_GATES" envDefault:"10000"`
	SessionKeyPrefix     string        `env:"SESSION_KEY_PREFIX" envDefault:"ems:session:"`
	LoginDelay           time.Duration `env:"LOGIN_DELAY" envDefault:"800ms"`
	CredentialsFile      string        `env:"CREDENTIALS_FILE"`
	DataEncryptionKey    string        `env:"DATA_ENCRYPTION_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DatabaseURL      string `env:"DATABASE_URL"`
	RunMigrations    bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	AuditLogCapacity int    `env:"AUDIT_LOG_CAPACITY" envDefault:"1000"`

	TablePageSize      int   `env:"TABLE_PAGE_SIZE" envDefault:"10"`
	MaxBodyBytes       int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitPerMinute int   `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	MetricsEnabled     bool  `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.SessionKeyPrefix = strings.TrimSpace(cfg.SessionKeyPrefix)
	return cfg, nil
}

func (c Config) Production() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if c.Production() {
		if len(strings.TrimSpace(c.SessionSecret)) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" && c.RedisAddr != "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production when sessions are stored in Redis")
		}
	}
	if c.TablePageSize <= 0 {
		return fmt.Errorf("TABLE_PAGE_SIZE must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.LoginDelay < 0 {
		return fmt.Errorf("LOGIN_DELAY must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SessionMaxGates < 0 {
		return fmt.Errorf("SESSION_MAX_GATES must not be negative")
	}
	if c.SessionKeyPrefix == "" {
		return fmt.Errorf("SESSION_KEY_PREFIX must not be empty")
	}
	return nil
}
