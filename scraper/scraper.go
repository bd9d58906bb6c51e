package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-fabrics/config"
	"github.com/aluiziolira/go-scrape-fabrics/models"
	"github.com/aluiziolira/go-scrape-fabrics/page"
	"github.com/aluiziolira/go-scrape-fabrics/parser"
)

// Scraper coordinates one crawl run: it owns the frontier, the worker pool,
// the product map and the run statistics.
type Scraper struct {
	cfg      *config.Config
	factory  page.Factory
	sel      *Selectors
	router   *Router
	listing  *ListingExtractor
	detail   *DetailExtractor
	auth     *Authenticator
	limiter  *rate.Limiter
	frontier *frontier
	Metrics  *Metrics

	runID        string
	startTime    time.Time
	running      atomic.Bool
	startFailed  atomic.Bool
	halted       atomic.Bool
	requestCount atomic.Int64
	pageCount    atomic.Int64
	parsedCount  atomic.Int64
	validCount   atomic.Int64

	mu           sync.Mutex
	products     map[string]*models.Product
	failures     []models.FailedRequest
	errorsByType map[string]int
}

// NewScraper builds a scraper that opens its pages through factory.
func NewScraper(cfg *config.Config, factory page.Factory) (*Scraper, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if factory == nil {
		return nil, errors.New("nil page factory")
	}

	sel := DefaultSelectors()
	s := &Scraper{
		cfg:          cfg,
		factory:      factory,
		sel:          sel,
		router:       NewRouter(cfg.LoginURL, cfg.DetailMarker),
		listing:      NewListingExtractor(sel.Listing),
		detail:       NewDetailExtractor(sel.Detail),
		auth:         NewAuthenticator(cfg.LoginURL, cfg.Email, cfg.Password, sel.Login, cfg.AuthTimeout),
		frontier:     newFrontier(cfg.MaxRequests, cfg.MaxPages, cfg.MaxRetries, cfg.RetryBackoff, cfg.RetryBackoffMax),
		Metrics:      NewMetrics(),
		runID:        uuid.NewString(),
		products:     make(map[string]*models.Product),
		errorsByType: make(map[string]int),
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return s, nil
}

// Run crawls from the start listing until the frontier drains, the run
// timeout expires or ctx is cancelled. Page failures are recorded in the
// result; only setup failures are returned as errors.
func (s *Scraper) Run(ctx context.Context) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.New("scraper already running")
	}
	defer s.running.Store(false)

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	s.mu.Lock()
	s.startTime = time.Now()
	s.mu.Unlock()
	handles, err := s.openPages()
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, h := range handles {
			if err := h.Close(); err != nil {
				slog.Debug("close page", slog.Any("error", err))
			}
		}
	}()

	slog.Info("crawl starting",
		slog.String("run_id", s.runID),
		slog.String("start_url", s.cfg.StartURL),
		slog.Int("workers", len(handles)),
		slog.Int("max_pages", s.cfg.MaxPages),
		slog.Int("max_requests", s.cfg.MaxRequests),
	)
	s.frontier.Add(models.CrawlRequest{URL: s.cfg.StartURL, Kind: models.PageListing})

	stop := context.AfterFunc(runCtx, s.halt)
	defer stop()

	var g errgroup.Group
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			s.work(runCtx, i, h)
			return nil
		})
	}
	_ = g.Wait()
	s.halted.Store(runCtx.Err() != nil)
	s.halt()

	result := s.result()
	slog.Info("crawl finished",
		slog.String("run_id", result.RunID),
		slog.Int("pages", result.PagesCrawled),
		slog.Int("products_valid", result.ProductsValid),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)

	if s.startFailed.Load() && result.PagesCrawled == 0 {
		return result, fmt.Errorf("%w: %s", ErrStartUnreachable, s.cfg.StartURL)
	}
	return result, nil
}

func (s *Scraper) openPages() ([]page.Handle, error) {
	handles := make([]page.Handle, 0, s.cfg.Parallelism)
	for i := 0; i < s.cfg.Parallelism; i++ {
		h, err := s.factory()
		if err != nil {
			if len(handles) == 0 {
				return nil, fmt.Errorf("%w: %w", ErrNoPages, err)
			}
			slog.Warn("running with fewer workers",
				slog.Int("workers", len(handles)),
				slog.Any("error", err),
			)
			break
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (s *Scraper) work(ctx context.Context, worker int, h page.Handle) {
	for {
		req, ok := s.frontier.Next(ctx)
		if !ok {
			return
		}
		s.Metrics.SetQueueDepth(s.frontier.Pending())
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				s.frontier.Release(req.URL)
				return
			}
		}
		s.process(ctx, worker, h, req)
	}
}

func (s *Scraper) process(ctx context.Context, worker int, h page.Handle, req models.CrawlRequest) {
	kind := s.router.Classify(req)
	if kind == models.PageUnknown {
		slog.Info("skipping non-crawlable page", slog.String("url", req.URL), slog.String("label", req.Label))
		s.frontier.Done(req.URL)
		return
	}

	s.Metrics.SetAuthenticated(s.auth.Ensure(ctx, h))

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	current := s.requestCount.Add(1)
	started := time.Now()
	err := h.Navigate(reqCtx, req.URL)
	s.Metrics.ObserveDuration(string(kind), time.Since(started))
	if err != nil {
		s.Metrics.IncRequest(string(kind), "error")
		s.navigationFailed(req, kind, err)
		return
	}
	s.Metrics.IncRequest(string(kind), "ok")
	if current%50 == 0 {
		slog.Debug("crawl progress",
			slog.Int64("requests", current),
			slog.Int64("pages", s.pageCount.Load()),
			slog.Int64("products", s.validCount.Load()),
			slog.Int("worker", worker),
		)
	}

	if s.cfg.DismissCookieBanner {
		s.dismissCookieBanner(reqCtx, h)
	}

	switch kind {
	case models.PageListing:
		s.handleListing(h, req)
	case models.PageDetail:
		s.handleDetail(h, req)
	}
	s.frontier.Done(req.URL)
}

func (s *Scraper) handleListing(h page.Handle, req models.CrawlRequest) {
	s.pageCount.Add(1)
	res := s.listing.Extract(h, req.URL)

	added := 0
	for _, u := range res.ProductURLs {
		if s.frontier.Add(models.CrawlRequest{URL: u, Kind: models.PageDetail}) {
			added++
		}
	}
	next := false
	if res.NextURL != "" {
		next = s.frontier.Add(models.CrawlRequest{URL: res.NextURL, Kind: models.PageListing})
	}
	slog.Info("listing crawled",
		slog.String("url", req.URL),
		slog.Int("products_found", len(res.ProductURLs)),
		slog.Int("products_queued", added),
		slog.Bool("next_queued", next),
	)
}

func (s *Scraper) handleDetail(h page.Handle, req models.CrawlRequest) {
	product, err := s.detail.Extract(h, req.URL)
	if err != nil {
		s.recordFailure(req, models.StageExtract, err)
		return
	}
	s.parsedCount.Add(1)
	s.Metrics.IncParsed()

	if err := parser.ValidateProduct(product); err != nil {
		s.Metrics.IncValidationFailure()
		s.recordFailure(req, models.StageValidate, err)
		return
	}
	s.validCount.Add(1)
	s.Metrics.IncValid()

	s.mu.Lock()
	s.products[product.URL] = product
	s.mu.Unlock()
	slog.Debug("product stored", slog.String("url", product.URL), slog.String("sku", product.SKU))
}

func (s *Scraper) navigationFailed(req models.CrawlRequest, kind models.PageKind, err error) {
	classified := classifyNavigation(err)
	retry, attempts := s.frontier.Fail(req.URL)
	if retry {
		s.Metrics.IncRetries()
		s.countError(errorTypeLabel(classified))
		slog.Warn("navigation failed, retrying",
			slog.String("url", req.URL),
			slog.String("kind", string(kind)),
			slog.Int("attempt", attempts),
			slog.String("category", errorTypeLabel(classified)),
			slog.Any("error", err),
		)
		return
	}
	req.RetryCount = attempts
	s.recordFailure(req, models.StageFetch, classified)
	if req.URL == parser.StripFragment(s.cfg.StartURL) {
		s.startFailed.Store(true)
	}
}

// recordFailure appends a permanent failure to the error list.
func (s *Scraper) recordFailure(req models.CrawlRequest, stage string, err error) {
	category := errorTypeLabel(err)
	if stage == models.StageValidate {
		category = "validation"
	}
	s.countError(category)
	slog.Error("request failed",
		slog.String("url", req.URL),
		slog.String("stage", stage),
		slog.String("category", category),
		slog.Int("retry_count", req.RetryCount),
		slog.Any("error", err),
	)

	s.mu.Lock()
	s.failures = append(s.failures, models.FailedRequest{
		URL:        req.URL,
		Kind:       req.Kind,
		Stage:      stage,
		Error:      err.Error(),
		RetryCount: req.RetryCount,
	})
	s.mu.Unlock()
}

func (s *Scraper) countError(category string) {
	s.Metrics.IncError(category)
	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()
}

func (s *Scraper) dismissCookieBanner(ctx context.Context, h page.Handle) {
	button, selector := page.First(h, s.sel.CookieBanner)
	if button == nil {
		return
	}
	if err := button.Click(ctx); err != nil {
		slog.Debug("cookie banner dismissal failed", slog.String("selector", selector), slog.Any("error", err))
	}
}

// halt stops dequeues and fails requests that were waiting for a retry.
func (s *Scraper) halt() {
	for _, req := range s.frontier.Stop() {
		s.recordFailure(req, models.StageFetch, errors.New("run halted before retry"))
	}
}

func (s *Scraper) result() *models.ScraperResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].URL < products[j].URL })

	failures := make([]models.FailedRequest, len(s.failures))
	copy(failures, s.failures)
	errorsByType := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		errorsByType[k] = v
	}

	return &models.ScraperResult{
		RunID:          s.runID,
		StartTime:      s.startTime,
		EndTime:        time.Now(),
		Authenticated:  s.auth.Authenticated(),
		PagesCrawled:   int(s.pageCount.Load()),
		ProductsParsed: int(s.parsedCount.Load()),
		ProductsValid:  int(s.validCount.Load()),
		RequestCount:   int(s.requestCount.Load()),
		RetryCount:     s.frontier.Retries(),
		RequestsByKind: s.frontier.ByKind(),
		Unvisited:      s.frontier.Unvisited(),
		Truncated:      s.frontier.Capped() > 0,
		Halted:         s.halted.Load(),
		Errors:         failures,
		ErrorsByType:   errorsByType,
		Products:       products,
	}
}

// Status is a live snapshot of the run for the status endpoint.
type Status struct {
	RunID          string    `json:"runId"`
	Running        bool      `json:"running"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
	Authenticated  bool      `json:"authenticated"`
	Requests       int64     `json:"requests"`
	PagesCrawled   int64     `json:"pagesCrawled"`
	ProductsParsed int64     `json:"productsParsed"`
	ProductsValid  int64     `json:"productsValid"`
	Queued         int       `json:"queued"`
	Retries        int       `json:"retries"`
	Errors         int       `json:"errors"`
}

func (s *Scraper) Status() Status {
	s.mu.Lock()
	errCount := len(s.failures)
	startedAt := s.startTime
	s.mu.Unlock()
	return Status{
		RunID:          s.runID,
		Running:        s.running.Load(),
		StartedAt:      startedAt,
		Authenticated:  s.auth.Authenticated(),
		Requests:       s.requestCount.Load(),
		PagesCrawled:   s.pageCount.Load(),
		ProductsParsed: s.parsedCount.Load(),
		ProductsValid:  s.validCount.Load(),
		Queued:         s.frontier.Pending(),
		Retries:        s.frontier.Retries(),
		Errors:         errCount,
	}
}

// RunID identifies this run in logs and the run summary.
func (s *Scraper) RunID() string {
	return s.runID
}
