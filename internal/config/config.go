package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds all dashboard settings, populated from environment variables.
type Config struct {
	BackendURL  string
	Lines       []string
	DefaultLine string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	RateLimit       float64

	// Optional bus arrivals card.
	BusStop    string
	BusService string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "20s")
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "0s")
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	rateLimit, err := parseRateLimit()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BackendURL:  envOrDefault("BACKEND_URL", "http://localhost:8000"),
		Lines:       parseLines(envOrDefault("MRT_LINES", "NSL,EWL,NEL,CCL,DTL,TEL")),
		DefaultLine: strings.ToUpper(envOrDefault("DEFAULT_LINE", "NSL")),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,

		FetchTimeout:    fetchTimeout,
		RefreshInterval: refreshInterval,
		RateLimit:       rateLimit,

		BusStop:    strings.TrimSpace(os.Getenv("BUS_STOP")),
		BusService: strings.TrimSpace(os.Getenv("BUS_SERVICE")),
	}

	u, err := url.Parse(cfg.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("BACKEND_URL must be an absolute URL")
	}
	if len(cfg.Lines) == 0 {
		return nil, errors.New("MRT_LINES is required")
	}
	if !slices.Contains(cfg.Lines, cfg.DefaultLine) {
		return nil, fmt.Errorf("DEFAULT_LINE %q is not in MRT_LINES", cfg.DefaultLine)
	}
	if cfg.BusService != "" && cfg.BusStop == "" {
		return nil, errors.New("BUS_SERVICE is set but BUS_STOP is not")
	}

	return cfg, nil
}

// parseLines splits a comma-separated list of line codes, upper-casing each
// and dropping empty entries.
func parseLines(s string) []string {
	var lines []string
	for _, part := range strings.Split(s, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if !slices.Contains(lines, code) {
			lines = append(lines, code)
		}
	}
	return lines
}

func parseDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(envOrDefault(key, def))
}

func parseRateLimit() (float64, error) {
	s := envOrDefault("REQUEST_RATE_LIMIT", "0")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid REQUEST_RATE_LIMIT")
	}
	return n, nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
