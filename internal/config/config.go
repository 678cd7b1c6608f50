package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the dashboard sync core.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	SyncServerURL        string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration

	AssignMode string

	OracleMode    string
	OracleHTTPURL string
	OracleTimeout time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8090"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "missionboard"),
		SyncServerURL:        envOrDefault("SYNC_SERVER_URL", "ws://127.0.0.1:8080/ws"),
		ReconnectInterval:    3 * time.Second,
		MaxReconnectAttempts: 10,
		HeartbeatInterval:    30 * time.Second,
		AssignMode:           envOrDefault("ASSIGN_MODE", "global"),
		OracleMode:           envOrDefault("ORACLE_MODE", "auto"),
		OracleHTTPURL:        envTrimmed("ORACLE_HTTP_URL"),
		OracleTimeout:        60 * time.Second,
		DatabaseURL:          envTrimmed("DATABASE_URL"),
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectInterval, err = durationFromEnv("SYNC_RECONNECT_INTERVAL", cfg.ReconnectInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.HeartbeatInterval, err = durationFromEnv("SYNC_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.OracleTimeout, err = durationFromEnv("ORACLE_TIMEOUT", cfg.OracleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxReconnectAttempts, err = intFromEnv("SYNC_MAX_RECONNECT_ATTEMPTS", cfg.MaxReconnectAttempts)
	if err != nil {
		return Config{}, err
	}

	if _, err := url.Parse(cfg.SyncServerURL); err != nil {
		return Config{}, fmt.Errorf("SYNC_SERVER_URL parse error: %w", err)
	}
	if cfg.ReconnectInterval < 100*time.Millisecond {
		return Config{}, fmt.Errorf("SYNC_RECONNECT_INTERVAL must be at least 100ms")
	}
	if cfg.MaxReconnectAttempts <= 0 {
		return Config{}, fmt.Errorf("SYNC_MAX_RECONNECT_ATTEMPTS must be positive")
	}
	if cfg.HeartbeatInterval < time.Second {
		return Config{}, fmt.Errorf("SYNC_HEARTBEAT_INTERVAL must be at least 1s")
	}
	if cfg.OracleTimeout <= 0 {
		return Config{}, fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.AssignMode)) {
	case "global":
		cfg.AssignMode = "global"
	case "manual":
		cfg.AssignMode = "manual"
	default:
		return Config{}, fmt.Errorf("ASSIGN_MODE must be global or manual, got %q", cfg.AssignMode)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
