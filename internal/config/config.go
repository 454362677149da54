// Package config assembles server settings from SENDA_* environment
// variables. Every knob has a default so `senda serve` starts with no
// environment at all, backed by the in-memory store.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sendahq/senda/pkg/resume"
)

// Store backend names accepted by SENDA_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Store    string
	Redis    RedisConfig
	Postgres PostgresConfig
	Resume   ResumeConfig
	Security SecurityConfig
	Log      LogConfig
	// FlowsDir is scanned for *.yaml definitions at startup.
	FlowsDir string
	// CommandsFile optionally names a process-command manifest.
	CommandsFile string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ResumeConfig struct {
	// Window is the trailing period in which a context signature resumes
	// its previous workflow instead of starting fresh.
	Window time.Duration
	// SweepSchedule is a cron expression for expiring stale instances.
	// Empty disables the sweeper.
	SweepSchedule string
}

type SecurityConfig struct {
	// EncryptionKey is a hex-encoded 32-byte key. When set, variable values
	// are encrypted at rest. Additional comma-separated keys in
	// EncryptionFallbacks are tried on decrypt to allow rotation.
	EncryptionKey       string
	EncryptionFallbacks string
	// PIIPatterns is a comma-separated list of regular expressions; values
	// of matching variable keys are masked before persistence.
	PIIPatterns string
}

// EncryptionKeys decodes the configured keys. The active key is nil when
// encryption is disabled.
func (s SecurityConfig) EncryptionKeys() (active []byte, fallbacks [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("SENDA_ENCRYPTION_KEY: %w", err)
	}
	for _, raw := range splitList(s.EncryptionFallbacks) {
		key, err := decodeKey(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("SENDA_ENCRYPTION_FALLBACK_KEYS: %w", err)
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

// MaskPatterns splits and compiles the PII pattern list, returning the raw
// expressions once each is known to be valid.
func (s SecurityConfig) MaskPatterns() ([]string, error) {
	patterns := splitList(s.PIIPatterns)
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("SENDA_PII_PATTERNS: %q: %w", p, err)
		}
	}
	return patterns, nil
}

func decodeKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("SENDA_ADDR", ":8080"),
			ReadTimeout:     getDurationEnv("SENDA_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SENDA_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SENDA_SHUTDOWN_TIMEOUT", 20*time.Second),
		},
		Store: getEnv("SENDA_STORE", StoreMemory),
		Redis: RedisConfig{
			Addr:     getEnv("SENDA_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("SENDA_REDIS_PASSWORD", ""),
			DB:       getIntEnv("SENDA_REDIS_DB", 0),
			Prefix:   getEnv("SENDA_REDIS_PREFIX", ""),
			TTL:      getDurationEnv("SENDA_REDIS_TTL", 0),
		},
		Postgres: PostgresConfig{
			DSN:             getEnv("SENDA_POSTGRES_DSN", ""),
			MaxOpenConns:    getIntEnv("SENDA_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("SENDA_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("SENDA_POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Resume: ResumeConfig{
			Window:        getDurationEnv("SENDA_RESUME_WINDOW", resume.DefaultWindow),
			SweepSchedule: getEnv("SENDA_SWEEP_SCHEDULE", "@hourly"),
		},
		Security: SecurityConfig{
			EncryptionKey:       getEnv("SENDA_ENCRYPTION_KEY", ""),
			EncryptionFallbacks: getEnv("SENDA_ENCRYPTION_FALLBACK_KEYS", ""),
			PIIPatterns:         getEnv("SENDA_PII_PATTERNS", ""),
		},
		Log: LogConfig{
			Level:  getEnv("SENDA_LOG_LEVEL", "info"),
			Format: getEnv("SENDA_LOG_FORMAT", "text"),
		},
		FlowsDir:     getEnv("SENDA_FLOWS_DIR", "flows"),
		CommandsFile: getEnv("SENDA_COMMANDS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("SENDA_POSTGRES_DSN is required when SENDA_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown SENDA_STORE %q", c.Store)
	}
	if c.Resume.Window <= 0 {
		return fmt.Errorf("SENDA_RESUME_WINDOW must be positive")
	}
	if _, _, err := c.Security.EncryptionKeys(); err != nil {
		return err
	}
	if _, err := c.Security.MaskPatterns(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
