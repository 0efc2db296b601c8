// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// DatabaseConfig provides the database connection string.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides the secret used to verify identity-provider tokens.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetBulkImportRate() float64
	GetBulkImportBurst() int
}

// RedisConfig provides the Redis connection used by the counter store and asynq.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetOpenLeadSweepInterval() time.Duration
}

// SMTPConfig provides outbound mail settings for assignment notifications.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromAddress() string
	GetSMTPFromName() string
	IsSMTPEnabled() bool
}

// SequenceConfig tunes the counter retry loop and selects its backend.
type SequenceConfig interface {
	GetCounterBackend() string
	GetSequenceMaxAttempts() int
	GetSequenceBaseDelay() time.Duration
	GetSequenceMaxDelay() time.Duration
}

// LeadsConfig provides lead lifecycle tuning.
type LeadsConfig interface {
	GetAssignConcurrency() int
	GetLeadCodeLocation() *time.Location
}

type MetricsConfig interface {
	GetMetricsNamespace() string
}

// Config holds all configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	StoreDriver       string
	DevRMs            []string
	DatabaseURL       string
	MigrateOnStart    bool
	JWTAccessSecret   string
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool
	BulkImportRate    float64
	BulkImportBurst   int
	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueue        string
	AsynqConcurrency  int
	OpenLeadSweep     time.Duration
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFromAddress   string
	SMTPFromName      string
	CounterBackend    string
	SeqMaxAttempts    int
	SeqBaseDelay      time.Duration
	SeqMaxDelay       time.Duration
	AssignConcurrency int
	LeadCodeTimezone  string
	MetricsNamespace  string

	leadCodeLocation *time.Location
}

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetBulkImportRate() float64 { return c.BulkImportRate }
func (c *Config) GetBulkImportBurst() int    { return c.BulkImportBurst }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetOpenLeadSweepInterval() time.Duration { return c.OpenLeadSweep }

func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) GetSMTPFromName() string    { return c.SMTPFromName }
func (c *Config) IsSMTPEnabled() bool        { return c.SMTPHost != "" && c.SMTPFromAddress != "" }

func (c *Config) GetCounterBackend() string           { return c.CounterBackend }
func (c *Config) GetSequenceMaxAttempts() int         { return c.SeqMaxAttempts }
func (c *Config) GetSequenceBaseDelay() time.Duration { return c.SeqBaseDelay }
func (c *Config) GetSequenceMaxDelay() time.Duration  { return c.SeqMaxDelay }

func (c *Config) GetAssignConcurrency() int { return c.AssignConcurrency }

// GetLeadCodeLocation is the zone whose calendar month goes into lead codes.
func (c *Config) GetLeadCodeLocation() *time.Location {
	if c.leadCodeLocation == nil {
		return time.UTC
	}
	return c.leadCodeLocation
}

func (c *Config) GetMetricsNamespace() string { return c.MetricsNamespace }

// UsesMemoryStore reports whether persistence runs in-process.
func (c *Config) UsesMemoryStore() bool {
	return strings.EqualFold(c.StoreDriver, "memory")
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:       getEnv("STORE_DRIVER", "postgres"),
		DevRMs:            splitCSV(getEnv("DEV_RMS", "")),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		MigrateOnStart:    strings.EqualFold(getEnv("MIGRATE_ON_START", "true"), "true"),
		JWTAccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:      corsAllowAll,
		CORSOrigins:       corsOrigins,
		CORSAllowCreds:    strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		BulkImportRate:    mustFloat(getEnv("BULK_IMPORT_RATE", "0.2")),
		BulkImportBurst:   mustInt(getEnv("BULK_IMPORT_BURST", "3")),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisTLSInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueue:        getEnv("ASYNQ_QUEUE", "leads"),
		AsynqConcurrency:  mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		OpenLeadSweep:     mustDuration(getEnv("OPEN_LEAD_SWEEP_INTERVAL", "15m")),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPFromAddress:   getEnv("SMTP_FROM_ADDRESS", ""),
		SMTPFromName:      getEnv("SMTP_FROM_NAME", "IPK Wealth"),
		CounterBackend:    getEnv("COUNTER_BACKEND", "postgres"),
		SeqMaxAttempts:    mustInt(getEnv("SEQUENCE_MAX_ATTEMPTS", "10")),
		SeqBaseDelay:      mustDuration(getEnv("SEQUENCE_BASE_DELAY", "25ms")),
		SeqMaxDelay:       mustDuration(getEnv("SEQUENCE_MAX_DELAY", "300ms")),
		AssignConcurrency: mustInt(getEnv("ASSIGN_CONCURRENCY", "10")),
		LeadCodeTimezone:  getEnv("LEAD_CODE_TIMEZONE", "UTC"),
		MetricsNamespace:  getEnv("METRICS_NAMESPACE", "ipk"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !c.UsesMemoryStore() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required unless STORE_DRIVER=memory")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	switch strings.ToLower(c.CounterBackend) {
	case "postgres", "redis":
	default:
		return fmt.Errorf("COUNTER_BACKEND must be postgres or redis, got %q", c.CounterBackend)
	}
	if strings.EqualFold(c.CounterBackend, "redis") && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when COUNTER_BACKEND=redis")
	}
	if c.SeqMaxAttempts < 1 {
		return fmt.Errorf("SEQUENCE_MAX_ATTEMPTS must be at least 1")
	}
	if c.AssignConcurrency < 1 {
		return fmt.Errorf("ASSIGN_CONCURRENCY must be at least 1")
	}
	loc, err := time.LoadLocation(c.LeadCodeTimezone)
	if err != nil {
		return fmt.Errorf("LEAD_CODE_TIMEZONE: %w", err)
	}
	c.leadCodeLocation = loc
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
