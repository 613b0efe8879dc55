// Package config loads settings from defaults, an optional YAML file and the
// environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig   `yaml:"server"`
	Database      DatabaseConfig `yaml:"database"`
	Log           LogConfig      `yaml:"log"`
	Ledger        LedgerConfig   `yaml:"ledger"`
	Reaper        ReaperConfig   `yaml:"reaper"`
	Hub           HubConfig      `yaml:"hub"`
	SnowflakeNode int64          `yaml:"snowflake_node"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	GinMode         string        `yaml:"gin_mode"`
	CORSOrigin      string        `yaml:"cors_origin"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per IP
	RateBurst       int           `yaml:"rate_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LedgerConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type ReaperConfig struct {
	Schedule  string        `yaml:"schedule"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batch_size"`
}

type HubConfig struct {
	PingInterval time.Duration `yaml:"ping_interval"`
	PongGrace    time.Duration `yaml:"pong_grace"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SendBuffer   int           `yaml:"send_buffer"`
	BatchWindow  time.Duration `yaml:"batch_window"`
	MaxBatch     int           `yaml:"max_batch"`
	InboundRate  float64       `yaml:"inbound_rate"`
	InboundBurst int           `yaml:"inbound_burst"`
	// MaxMessageSize caps one inbound websocket frame in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			GinMode:         "debug",
			CORSOrigin:      "*",
			RateLimit:       50,
			RateBurst:       100,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:dinein.db?cache=shared&_busy_timeout=5000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Ledger: LedgerConfig{
			CacheTTL: 30 * time.Second,
		},
		Reaper: ReaperConfig{
			Schedule:  "@every 10m",
			Timeout:   30 * time.Minute,
			BatchSize: 200,
		},
		Hub: HubConfig{
			PingInterval:   25 * time.Second,
			PongGrace:      10 * time.Second,
			WriteTimeout:   5 * time.Second,
			SendBuffer:     64,
			BatchWindow:    50 * time.Millisecond,
			MaxBatch:       32,
			InboundRate:    10,
			InboundBurst:   20,
			MaxMessageSize: 4096,
		},
		SnowflakeNode: 1,
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs *multierror.Error
	env := envReader{errs: &errs}

	c.Server.Port = env.str("PORT", c.Server.Port)
	c.Server.GinMode = env.str("GIN_MODE", c.Server.GinMode)
	c.Server.CORSOrigin = env.str("CORS_ORIGIN", c.Server.CORSOrigin)
	c.Server.RateLimit = env.float("HTTP_RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateBurst = env.int("HTTP_RATE_BURST", c.Server.RateBurst)
	c.Server.ShutdownTimeout = env.duration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Driver = env.str("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = env.str("DB_DSN", c.Database.DSN)

	c.Log.Level = env.str("LOG_LEVEL", c.Log.Level)
	c.Log.Format = env.str("LOG_FORMAT", c.Log.Format)

	c.Ledger.CacheTTL = env.duration("LEDGER_CACHE_TTL", c.Ledger.CacheTTL)

	c.Reaper.Schedule = env.str("REAPER_SCHEDULE", c.Reaper.Schedule)
	c.Reaper.Timeout = env.duration("REAPER_TIMEOUT", c.Reaper.Timeout)
	c.Reaper.BatchSize = env.int("REAPER_BATCH_SIZE", c.Reaper.BatchSize)

	c.Hub.PingInterval = env.duration("HUB_PING_INTERVAL", c.Hub.PingInterval)
	c.Hub.PongGrace = env.duration("HUB_PONG_GRACE", c.Hub.PongGrace)
	c.Hub.WriteTimeout = env.duration("HUB_WRITE_TIMEOUT", c.Hub.WriteTimeout)
	c.Hub.SendBuffer = env.int("HUB_SEND_BUFFER", c.Hub.SendBuffer)
	c.Hub.BatchWindow = env.duration("HUB_BATCH_WINDOW", c.Hub.BatchWindow)
	c.Hub.MaxBatch = env.int("HUB_MAX_BATCH", c.Hub.MaxBatch)
	c.Hub.InboundRate = env.float("HUB_INBOUND_RATE", c.Hub.InboundRate)
	c.Hub.InboundBurst = env.int("HUB_INBOUND_BURST", c.Hub.InboundBurst)
	c.Hub.MaxMessageSize = int64(env.int("HUB_MAX_MESSAGE_SIZE", int(c.Hub.MaxMessageSize)))

	c.SnowflakeNode = int64(env.int("SNOWFLAKE_NODE", int(c.SnowflakeNode)))

	return errs.ErrorOrNil()
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs *multierror.Error
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.Server.Port == "" {
		errs = multierror.Append(errs, errors.New("PORT must not be empty"))
	}
	if c.Reaper.Timeout <= 0 {
		errs = multierror.Append(errs, errors.New("REAPER_TIMEOUT must be positive"))
	}
	if c.Hub.MaxMessageSize <= 0 {
		errs = multierror.Append(errs, errors.New("HUB_MAX_MESSAGE_SIZE must be positive"))
	}
	if c.Hub.MaxBatch <= 0 {
		errs = multierror.Append(errs, errors.New("HUB_MAX_BATCH must be positive"))
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		errs = multierror.Append(errs, fmt.Errorf("SNOWFLAKE_NODE %d out of range 0-1023", c.SnowflakeNode))
	}
	return errs.ErrorOrNil()
}

// envReader returns the fallback for unset keys and records parse errors.
type envReader struct {
	errs **multierror.Error
}

func (r envReader) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (r envReader) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*r.errs = multierror.Append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return i
}

func (r envReader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*r.errs = multierror.Append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (r envReader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*r.errs = multierror.Append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
