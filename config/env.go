package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads KEY=value pairs from path into the process environment.
// Variables already set win; a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a Go duration, or as milliseconds when it is a
// bare integer.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, true, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overlays the UF_* and scraper variables onto c.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"UF_BASE_URL":      &c.BaseURL,
		"UF_LOGIN_URL":     &c.LoginURL,
		"UF_START_LISTING": &c.StartURL,
		"UF_EMAIL":         &c.Email,
		"UF_PASSWORD":      &c.Password,
		"SCRAPER_FETCHER":  &c.Fetcher,
		"SCRAPER_OUTPUT":   &c.OutputDir,
		"METRICS_ADDR":     &c.MetricsAddr,
	}
	for key, dst := range strs {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"MAX_PAGES":               &c.MaxPages,
		"MAX_REQUESTS":            &c.MaxRequests,
		"CONCURRENCY":             &c.Parallelism,
		"MAX_REQUESTS_PER_MINUTE": &c.RequestsPerMinute,
		"MAX_RETRIES":             &c.MaxRetries,
	}
	for key, dst := range ints {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT_MS": &c.Timeout,
		"RUN_TIMEOUT":        &c.RunTimeout,
	}
	for key, dst := range durations {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	bools := map[string]*bool{
		"RESPECT_ROBOTS_TXT": &c.RespectRobotsTxt,
		"INCREMENTAL_MODE":   &c.Incremental,
		"BROWSER_HEADLESS":   &c.Headless,
	}
	for key, dst := range bools {
		value, ok, err := EnvBool(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	return nil
}
