// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	BasePath       string
	GRPCHealthPort string // "" disables the gRPC health server

	SessionTTL     time.Duration
	ReaperInterval time.Duration
	TickInterval   time.Duration

	Sink SinkConfig
}

// SinkConfig controls the best-effort response audit trail.
type SinkConfig struct {
	Enabled      bool
	QueueSize    int
	WriteTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/valentine.db"),
		BasePath:       normalizeBasePath(getEnv("BASE_PATH", "/")),
		GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 60*time.Minute),
		ReaperInterval: getEnvDuration("REAPER_INTERVAL", 5*time.Minute),
		TickInterval:   getEnvDuration("TICK_INTERVAL", time.Second),
		Sink: SinkConfig{
			Enabled:      getEnvBool("SINK_ENABLED", true),
			QueueSize:    getEnvInt("SINK_QUEUE_SIZE", 32),
			WriteTimeout: getEnvDuration("SINK_WRITE_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Sink.Enabled && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.GRPCHealthPort != "" && c.GRPCHealthPort == c.Port {
		return fmt.Errorf("GRPC_HEALTH_PORT must differ from PORT")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be > 0")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be > 0")
	}
	if c.Sink.QueueSize <= 0 {
		return fmt.Errorf("SINK_QUEUE_SIZE must be > 0")
	}
	if c.Sink.WriteTimeout <= 0 {
		return fmt.Errorf("SINK_WRITE_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the origins CORS should accept.
func (c *Config) AllowedOrigins() []string {
	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if c.FrontendURL != "" {
		origins = append(origins, strings.TrimRight(c.FrontendURL, "/"))
	}
	return origins
}

// normalizeBasePath returns p with one leading slash and no trailing slash,
// or "/" for the root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
