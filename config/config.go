// Package config holds the crawl configuration and its environment loading.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Fetcher names accepted by Config.Fetcher.
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL  string
	StartURL string
	LoginURL string
	Email    string
	Password string

	// DetailMarker is the path segment that identifies a product page.
	DetailMarker string

	MaxPages          int // listing pages, 0 = unlimited
	MaxRequests       int // unique requests per run, 0 = unlimited
	Parallelism       int
	RequestsPerMinute int // 0 disables the throttle
	Timeout           time.Duration
	RunTimeout        time.Duration // 0 = no run deadline
	AuthTimeout       time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration

	Fetcher             string // http or browser
	Headless            bool
	DismissCookieBanner bool
	UserAgent           string
	RespectRobotsTxt    bool

	OutputDir          string
	ShopifyPriceField  string // retail or sale
	Incremental        bool
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int

	Verbose     bool
	MetricsAddr string
}

// DefaultConfig returns conservative defaults for the vendor site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://www.unitedfabrics.com",
		StartURL:           "https://www.unitedfabrics.com/fabric/",
		LoginURL:           "https://www.unitedfabrics.com/my-account/",
		DetailMarker:       "/product/",
		MaxPages:           0,
		MaxRequests:        0,
		Parallelism:        3,
		RequestsPerMinute:  30,
		Timeout:            45 * time.Second,
		RunTimeout:         0,
		AuthTimeout:        15 * time.Second,
		MaxRetries:         3,
		RetryBackoff:       time.Second,
		RetryBackoffMax:    10 * time.Second,
		Fetcher:            FetcherHTTP,
		Headless:           true,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RespectRobotsTxt:   false,
		OutputDir:          "output",
		ShopifyPriceField:  "retail",
		Incremental:        true,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      100000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"base URL": c.BaseURL, "start URL": c.StartURL, "login URL": c.LoginURL} {
		if raw == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must include scheme and host", name)
		}
	}
	if c.DetailMarker == "" {
		return fmt.Errorf("detail marker cannot be empty")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("max requests cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout cannot be negative")
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("auth timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Fetcher != FetcherHTTP && c.Fetcher != FetcherBrowser {
		return fmt.Errorf("fetcher must be %s or %s", FetcherHTTP, FetcherBrowser)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.ShopifyPriceField != "retail" && c.ShopifyPriceField != "sale" {
		return fmt.Errorf("shopify price field must be retail or sale")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}

// HasCredentials reports whether a login attempt is possible.
func (c *Config) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}
