package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-fabrics/config"
	"github.com/aluiziolira/go-scrape-fabrics/models"
	"github.com/aluiziolira/go-scrape-fabrics/page"
	"github.com/aluiziolira/go-scrape-fabrics/pipeline"
	"github.com/aluiziolira/go-scrape-fabrics/scraper"
)

const (
	shopifyFile     = "shopify_products.csv"
	wooCommerceFile = "woocommerce_products.csv"
	wpAllImportFile = "wp_all_import.csv"
	snapshotFile    = "raw-products.jsonl"
	summaryFile     = "last-run.json"
)

func main() {
	if err := run(); err != nil {
		slog.Error("scrape failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	envFile := ".env"
	if value, ok := config.EnvString("SCRAPER_ENV_FILE"); ok {
		envFile = value
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	bindFlags(cfg)
	flag.Parse()

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg.Fetcher = strings.ToLower(cfg.Fetcher)
	cfg.DismissCookieBanner = cfg.Fetcher == config.FetcherBrowser
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.HasCredentials() {
		slog.Warn("no credentials configured, wholesale prices will be missing")
	}

	factory, closeFactory, err := newPageFactory(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFactory(); err != nil {
			slog.Error("close fetcher", slog.Any("error", err))
		}
	}()

	s, err := scraper.NewScraper(cfg, factory)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	metricsServer := startMetricsServer(cfg.MetricsAddr, s)
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}()

	slog.Info("starting scrape",
		slog.String("run_id", s.RunID()),
		slog.String("start_url", cfg.StartURL),
		slog.String("fetcher", cfg.Fetcher),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Int("workers", cfg.Parallelism),
	)

	result, err := s.Run(ctx)
	if err != nil {
		return err
	}

	// The snapshot must be read before the JSONL writer truncates it.
	var (
		rec     *pipeline.Reconciliation
		carried []*models.Product
	)
	if cfg.Incremental {
		previous, err := pipeline.LoadSnapshot(filepath.Join(cfg.OutputDir, snapshotFile))
		if err != nil {
			slog.Warn("previous snapshot unreadable, reconciliation skipped", slog.Any("error", err))
		} else {
			rec = pipeline.Reconcile(previous, result.Products, pipeline.CoverageOf(result))
			carried = rec.Carried(previous)
		}
	}

	exported, err := export(cfg, result.Products, carried)
	if err != nil {
		return err
	}

	summary := pipeline.NewRunSummary(result, exported)
	if rec != nil {
		counts := rec.Counts()
		summary.Reconciliation = &counts
		for _, u := range rec.Discontinued {
			slog.Info("product discontinued", slog.String("url", u))
		}
		if len(rec.Unverified) > 0 {
			slog.Warn("products not verified this run, previous records kept",
				slog.Int("count", len(rec.Unverified)),
				slog.Bool("complete_run", result.Complete()),
			)
		}
	}
	if err := pipeline.WriteRunSummary(filepath.Join(cfg.OutputDir, summaryFile), summary); err != nil {
		slog.Error("write run summary", slog.Any("error", err))
	}

	printSummary(result, summary, cfg.OutputDir)
	return nil
}

func bindFlags(cfg *config.Config) {
	flag.StringVar(&cfg.StartURL, "start-url", cfg.StartURL, "Listing URL the crawl starts from")
	flag.StringVar(&cfg.LoginURL, "login-url", cfg.LoginURL, "Account login URL")
	flag.IntVar(&cfg.MaxPages, "pages", cfg.MaxPages, "Maximum listing pages to crawl (0 = unlimited)")
	flag.IntVar(&cfg.MaxRequests, "max-requests", cfg.MaxRequests, "Maximum unique requests per run (0 = unlimited)")
	flag.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Number of concurrent workers")
	flag.IntVar(&cfg.RequestsPerMinute, "rpm", cfg.RequestsPerMinute, "Maximum requests per minute (0 = unthrottled)")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	flag.DurationVar(&cfg.RunTimeout, "run-timeout", cfg.RunTimeout, "Whole run deadline (0 = none)")
	flag.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum attempts per URL")
	flag.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	flag.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	flag.StringVar(&cfg.Fetcher, "fetcher", cfg.Fetcher, "Page fetcher: http or browser")
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser fetcher headless")
	flag.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Output directory")
	flag.StringVar(&cfg.ShopifyPriceField, "shopify-price", cfg.ShopifyPriceField, "Shopify Variant Price source: retail or sale")
	flag.BoolVar(&cfg.Incremental, "incremental", cfg.Incremental, "Reconcile against the previous snapshot")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Metrics and status listen address (e.g. :9090)")
}

func newPageFactory(cfg *config.Config) (page.Factory, func() error, error) {
	switch cfg.Fetcher {
	case config.FetcherHTTP:
		fetcher := page.NewHTMLFetcher(page.HTMLOptions{
			AllowedDomains:   allowedDomains(cfg.BaseURL),
			UserAgent:        cfg.UserAgent,
			Timeout:          cfg.Timeout,
			RespectRobotsTxt: cfg.RespectRobotsTxt,
		})
		return fetcher.NewPage, func() error { return nil }, nil
	case config.FetcherBrowser:
		browser, err := page.NewBrowser(page.BrowserOptions{
			Headless:  cfg.Headless,
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
			Logger:    slog.Default(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("starting browser: %w", err)
		}
		return browser.NewPage, browser.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported fetcher: %s", cfg.Fetcher)
	}
}

// allowedDomains returns the base host with and without its www prefix.
func allowedDomains(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := u.Hostname()
	bare := strings.TrimPrefix(host, "www.")
	if bare == host {
		return []string{host, "www." + host}
	}
	return []string{host, bare}
}

func startMetricsServer(addr string, s *scraper.Scraper) *http.Server {
	if addr == "" || s.Metrics == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
			slog.Debug("encode status", slog.Any("error", err))
		}
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

// export writes every platform feed and the JSONL snapshot. carried records
// go to the snapshot only. It returns the number of products that reached
// the writers.
func export(cfg *config.Config, products, carried []*models.Product) (int, error) {
	writer, snapshot, err := newExportWriter(cfg)
	if err != nil {
		return 0, err
	}

	// Exports run to completion even after an interrupt.
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	processErr := p.Process(products...)
	closeErr := p.Close()
	var carryErr error
	if len(carried) > 0 {
		carryErr = snapshot.Write(carried)
	}
	writerErr := writer.Close()
	if err := errors.Join(processErr, closeErr, carryErr, writerErr); err != nil {
		return p.Exported(), fmt.Errorf("export: %w", err)
	}

	if err := writer.Validate(); err != nil {
		slog.Warn("export produced no records", slog.Any("error", err))
	}
	slog.Info("export complete",
		slog.Int("products", p.Exported()),
		slog.String("dir", cfg.OutputDir),
	)
	return p.Exported(), nil
}

func newExportWriter(cfg *config.Config) (*pipeline.MultiWriter, *pipeline.JSONLWriter, error) {
	mw := pipeline.NewMultiWriter()
	fail := func(err error) (*pipeline.MultiWriter, *pipeline.JSONLWriter, error) {
		_ = mw.Close()
		return nil, nil, err
	}
	path := func(name string) string { return filepath.Join(cfg.OutputDir, name) }

	shopify, err := pipeline.NewShopifyWriter(path(shopifyFile), cfg.ShopifyPriceField)
	if err != nil {
		return fail(fmt.Errorf("create shopify writer: %w", err))
	}
	mw.Add("shopify", shopify)

	woo, err := pipeline.NewWooCommerceWriter(path(wooCommerceFile))
	if err != nil {
		return fail(fmt.Errorf("create woocommerce writer: %w", err))
	}
	mw.Add("woocommerce", woo)

	wpai, err := pipeline.NewWPAllImportWriter(path(wpAllImportFile))
	if err != nil {
		return fail(fmt.Errorf("create wp all import writer: %w", err))
	}
	mw.Add("wp-all-import", wpai)

	snapshot, err := pipeline.NewJSONLWriter(path(snapshotFile))
	if err != nil {
		return fail(fmt.Errorf("create snapshot writer: %w", err))
	}
	mw.Add("snapshot", snapshot)

	return mw, snapshot, nil
}

func printSummary(result *models.ScraperResult, summary *pipeline.RunSummary, outputDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Run ID:        %s\n", result.RunID)
	fmt.Printf("  Authenticated: %t\n", result.Authenticated)
	fmt.Printf("  Pages:         %d\n", result.PagesCrawled)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Parsed:        %d\n", result.ProductsParsed)
	fmt.Printf("  Exported:      %d\n", summary.ProductsExported)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.Errors))
	if result.Unvisited > 0 {
		fmt.Printf("  Unvisited:     %d\n", result.Unvisited)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if rec := summary.Reconciliation; rec != nil {
		fmt.Printf("  Catalog:       new=%d changed=%d unchanged=%d discontinued=%d unverified=%d\n",
			rec.New, rec.Changed, rec.Unchanged, rec.Discontinued, rec.Unverified)
	}
	fmt.Printf("  Duration:      %.1fs\n", summary.DurationSeconds)
	fmt.Printf("  Output dir:    %s\n", outputDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
