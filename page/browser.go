package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserOptions configures the headless browser fetcher.
type BrowserOptions struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// Browser owns one playwright process, one browser and one shared context.
// Pages opened from it share cookies.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

// NewBrowser starts playwright and launches Chromium.
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: bctx,
		timeout: opts.Timeout,
		logger:  logger.With("component", "browser"),
	}, nil
}

// NewPage opens a tab in the shared context.
func (b *Browser) NewPage() (Handle, error) {
	p, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	p.SetDefaultTimeout(float64(b.timeout.Milliseconds()))
	return &BrowserPage{page: p, timeout: b.timeout, logger: b.logger}, nil
}

func (b *Browser) Close() error {
	var errs []error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BrowserPage is a Handle over a live browser tab.
type BrowserPage struct {
	page    playwright.Page
	timeout time.Duration
	logger  *slog.Logger
}

func (p *BrowserPage) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	resp, err := p.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(ctx, p.timeout)),
	})
	if err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	if resp != nil && resp.Status() >= 400 {
		return &NavigationError{
			URL:        target,
			StatusCode: resp.Status(),
			Err:        fmt.Errorf("status %d", resp.Status()),
		}
	}
	p.logger.Debug("navigated", "url", p.page.URL())
	return nil
}

func (p *BrowserPage) URL() string {
	return p.page.URL()
}

func (p *BrowserPage) FindAll(selector string) ([]Element, error) {
	return locatorElements(p.page.Locator(selector), p.timeout)
}

func (p *BrowserPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(millis(ctx, timeout)),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
		}
		return err
	}
	return nil
}

func (p *BrowserPage) Close() error {
	return p.page.Close()
}

type browserElement struct {
	loc     playwright.Locator
	timeout time.Duration
}

func locatorElements(loc playwright.Locator, timeout time.Duration) ([]Element, error) {
	count, err := loc.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &browserElement{loc: loc.Nth(i), timeout: timeout})
	}
	return out, nil
}

func (e *browserElement) Text() (string, error) {
	return e.loc.TextContent()
}

func (e *browserElement) Attr(name string) (string, error) {
	return e.loc.GetAttribute(name)
}

func (e *browserElement) HTML() (string, error) {
	return e.loc.InnerHTML()
}

func (e *browserElement) FindAll(selector string) ([]Element, error) {
	return locatorElements(e.loc.Locator(selector), e.timeout)
}

func (e *browserElement) Fill(value string) error {
	return e.loc.Fill(value)
}

func (e *browserElement) Click(ctx context.Context) error {
	return e.loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(ctx, e.timeout)),
	})
}

// millis returns the smaller of fallback and the time left on ctx.
func millis(ctx context.Context, fallback time.Duration) float64 {
	d := fallback
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return float64(d.Milliseconds())
}
