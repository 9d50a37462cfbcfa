// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	PendingTTL         time.Duration
	PromptTimeout      time.Duration
	PendingCheckDelays []time.Duration
	FillAttempts       int
	FillRetryDelay     time.Duration
	NavigationSettle   time.Duration
	LivenessInterval   time.Duration
	PageCallTimeout    time.Duration

	BrowserEnabled    bool
	BrowserControlURL string
	BrowserBin        string
	BrowserHeadless   bool

	// CoordinatorURL points page agents at a remote coordinator instead of
	// the in-process one.
	CoordinatorURL string
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. Defaults: PASSPANEL_LISTEN_ADDR (127.0.0.1:8080),
// PASSPANEL_DB_PATH (passpanel.db), PASSPANEL_PENDING_TTL (5m),
// PASSPANEL_PROMPT_TIMEOUT (10s), PASSPANEL_PENDING_CHECK_DELAYS (1s,3s,5s),
// PASSPANEL_FILL_ATTEMPTS (5), PASSPANEL_FILL_RETRY_DELAY (500ms),
// PASSPANEL_NAVIGATION_SETTLE (500ms), PASSPANEL_LIVENESS_INTERVAL (5s),
// PASSPANEL_PAGE_CALL_TIMEOUT (5s),
// PASSPANEL_BROWSER_ENABLED (false), PASSPANEL_BROWSER_HEADLESS (false).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         "127.0.0.1:8080",
		DBPath:             "passpanel.db",
		PendingTTL:         5 * time.Minute,
		PromptTimeout:      10 * time.Second,
		PendingCheckDelays: []time.Duration{time.Second, 3 * time.Second, 5 * time.Second},
		FillAttempts:       5,
		FillRetryDelay:     500 * time.Millisecond,
		NavigationSettle:   500 * time.Millisecond,
		LivenessInterval:   5 * time.Second,
		PageCallTimeout:    5 * time.Second,
	}

	if v, ok := os.LookupEnv("PASSPANEL_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("PASSPANEL_DB_PATH"); ok {
		cfg.DBPath = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PASSPANEL_PENDING_TTL", &cfg.PendingTTL},
		{"PASSPANEL_PROMPT_TIMEOUT", &cfg.PromptTimeout},
		{"PASSPANEL_FILL_RETRY_DELAY", &cfg.FillRetryDelay},
		{"PASSPANEL_NAVIGATION_SETTLE", &cfg.NavigationSettle},
		{"PASSPANEL_LIVENESS_INTERVAL", &cfg.LivenessInterval},
		{"PASSPANEL_PAGE_CALL_TIMEOUT", &cfg.PageCallTimeout},
	}
	for _, d := range durations {
		if err := lookupDuration(d.key, d.dst); err != nil {
			return nil, err
		}
	}

	if v, ok := os.LookupEnv("PASSPANEL_PENDING_CHECK_DELAYS"); ok {
		delays, err := parseDurationList(v)
		if err != nil {
			return nil, fmt.Errorf("PASSPANEL_PENDING_CHECK_DELAYS has invalid value %q: %w", v, err)
		}
		cfg.PendingCheckDelays = delays
	}

	if v, ok := os.LookupEnv("PASSPANEL_FILL_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("PASSPANEL_FILL_ATTEMPTS must be a positive integer, got %q", v)
		}
		cfg.FillAttempts = n
	}

	if err := lookupBool("PASSPANEL_BROWSER_ENABLED", &cfg.BrowserEnabled); err != nil {
		return nil, err
	}
	if err := lookupBool("PASSPANEL_BROWSER_HEADLESS", &cfg.BrowserHeadless); err != nil {
		return nil, err
	}
	cfg.BrowserControlURL = os.Getenv("PASSPANEL_BROWSER_CONTROL_URL")
	cfg.BrowserBin = os.Getenv("PASSPANEL_BROWSER_BIN")
	cfg.CoordinatorURL = strings.TrimRight(os.Getenv("PASSPANEL_COORDINATOR_URL"), "/")

	if cfg.LivenessInterval <= 0 {
		return nil, fmt.Errorf("PASSPANEL_LIVENESS_INTERVAL must be positive, got %s", cfg.LivenessInterval)
	}
	if cfg.PendingTTL <= 0 {
		return nil, fmt.Errorf("PASSPANEL_PENDING_TTL must be positive, got %s", cfg.PendingTTL)
	}

	return cfg, nil
}

func lookupDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed < 0 {
		return fmt.Errorf("%s must not be negative, got %q", key, v)
	}
	*dst = parsed
	return nil
}

func lookupBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

// parseDurationList parses a comma-separated list of durations. An empty
// string yields no delays, which disables pending checks after load.
func parseDurationList(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 && d < out[len(out)-1] {
			return nil, fmt.Errorf("delays must be ascending: %s after %s", d, out[len(out)-1])
		}
		out = append(out, d)
	}
	return out, nil
}
