package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Addr             string
	ServiceName      string
	TelemetryEnabled bool
	LogLevel         string
	SessionTTL       time.Duration
	MaxSessions      int
	MaxKeys          int
	ShutdownTimeout  time.Duration
}

// Load reads the configuration from the environment, applying defaults
// for unset variables.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		Addr:             ":8080",
		ServiceName:      "calculator-api",
		TelemetryEnabled: true,
		LogLevel:         "info",
		SessionTTL:       30 * time.Minute,
		MaxSessions:      10000,
		MaxKeys:          256,
		ShutdownTimeout:  5 * time.Second,
	}

	var err error

	if v, ok := lookup("HTTP_ADDR"); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup("OTEL_SERVICE_NAME"); ok && v != "" {
		cfg.ServiceName = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}

	if v, ok := lookup("OTEL_ENABLED"); ok && v != "" {
		if cfg.TelemetryEnabled, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("OTEL_ENABLED: %w", err)
		}
	}

	if cfg.SessionTTL, err = durationVar(lookup, "CALC_SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationVar(lookup, "SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessions, err = intVar(lookup, "CALC_MAX_SESSIONS", cfg.MaxSessions); err != nil {
		return Config{}, err
	}
	if cfg.MaxKeys, err = intVar(lookup, "CALC_MAX_KEYS", cfg.MaxKeys); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func durationVar(lookup func(string) (string, bool), key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %s", key, v)
	}
	return d, nil
}

func intVar(lookup func(string) (string, bool), key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %d", key, n)
	}
	return n, nil
}
