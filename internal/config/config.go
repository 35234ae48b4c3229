package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":8080"
	defaultEndpointURL   = "https://mon5abi.onrender.com/api/ping"
	defaultSecret        = "4321"
	defaultClientName    = "vps"
	defaultIntervalS     = 300
	defaultMaxAttempts   = 3
	defaultInitialDelayS = 2
	defaultMaxDelayS     = 30
	defaultReqTimeoutS   = 10
	defaultShutdownJoinS = 3

	envListenAddr   = "BEACON_LISTEN_ADDR"
	envEndpointURL  = "BEACON_ENDPOINT_URL"
	envSecret       = "BEACON_SECRET"
	envIdentifier   = "BEACON_IDENTIFIER"
	envIntervalS    = "BEACON_INTERVAL_S"
	envMaxAttempts  = "BEACON_MAX_ATTEMPTS"
	envInitialDelay = "BEACON_INITIAL_BACKOFF_S"
	envReqTimeout   = "BEACON_REQUEST_TIMEOUT_S"
	envLogLevel     = "BEACON_LOG_LEVEL"
	envLogFile      = "BEACON_LOG_FILE"
	envDisplay      = "BEACON_DISPLAY"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string

	// Remote endpoint.
	EndpointURL    string
	Secret         string
	ClientName     string
	RequestTimeout time.Duration

	// Engine timing.
	Interval       time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	ShutdownJoin   time.Duration

	// Identifier autostarts a run at boot when non-empty.
	Identifier string

	LogLevel slog.Level
	// LogFile receives the structured log when set; empty means stdout.
	LogFile string
	// Display enables the terminal countdown/status renderer.
	Display bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		EndpointURL:    defaultEndpointURL,
		Secret:         defaultSecret,
		ClientName:     defaultClientName,
		RequestTimeout: defaultReqTimeoutS * time.Second,
		Interval:       defaultIntervalS * time.Second,
		MaxAttempts:    defaultMaxAttempts,
		InitialBackoff: defaultInitialDelayS * time.Second,
		MaxBackoff:     defaultMaxDelayS * time.Second,
		ShutdownJoin:   defaultShutdownJoinS * time.Second,
		LogLevel:       slog.LevelInfo,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envEndpointURL); v != "" {
		cfg.EndpointURL = v
	}
	if v := os.Getenv(envSecret); v != "" {
		cfg.Secret = v
	}
	if v := os.Getenv(envIdentifier); v != "" {
		cfg.Identifier = v
	}
	if v := parsePositiveInt(os.Getenv(envIntervalS)); v > 0 {
		cfg.Interval = time.Duration(v) * time.Second
	}
	if v := parsePositiveInt(os.Getenv(envMaxAttempts)); v > 0 {
		cfg.MaxAttempts = v
	}
	if v := parsePositiveInt(os.Getenv(envInitialDelay)); v > 0 {
		cfg.InitialBackoff = time.Duration(v) * time.Second
	}
	if v := parsePositiveInt(os.Getenv(envReqTimeout)); v > 0 {
		cfg.RequestTimeout = time.Duration(v) * time.Second
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envDisplay); v != "" {
		cfg.Display = parseBool(v)
	}

	return cfg
}

// parsePositiveInt returns the parsed value, or 0 for empty, malformed, or
// non-positive input.
func parsePositiveInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && v
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenLogWriter returns the destination for the structured log: the
// configured file (appended, created if absent) or stdout when unset. The
// returned close function is a no-op for stdout.
func (c Config) OpenLogWriter() (io.Writer, func() error, error) {
	if c.LogFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
