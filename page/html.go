package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gocolly/colly/v2"
)

const navKey = "nav"

// HTMLOptions configures the static HTML fetcher.
type HTMLOptions struct {
	AllowedDomains   []string
	UserAgent        string
	Timeout          time.Duration
	RespectRobotsTxt bool
}

// HTMLFetcher hands out static pages. All pages share one HTTP backend and
// cookie jar, so a login performed on one page authenticates the others.
type HTMLFetcher struct {
	collector *colly.Collector
}

// NewHTMLFetcher builds a synchronous collector configured from opts.
func NewHTMLFetcher(opts HTMLOptions) *HTMLFetcher {
	collector := colly.NewCollector(
		colly.AllowedDomains(opts.AllowedDomains...),
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = !opts.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &HTMLFetcher{collector: collector}
}

// WithTransport swaps the HTTP transport of every page, existing or future.
func (f *HTMLFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// NewPage opens a page backed by a clone of the shared collector.
func (f *HTMLFetcher) NewPage() (Handle, error) {
	p := &HTMLPage{collector: f.collector.Clone()}
	p.collector.OnResponse(p.onResponse)
	p.collector.OnError(p.onError)
	return p, nil
}

// HTMLPage is a Handle over a parsed static document.
type HTMLPage struct {
	collector *colly.Collector

	mu        sync.Mutex
	seq       uint64
	loadedSeq uint64
	status    int
	parseErr  error
	doc       *goquery.Document
	url       string
}

// FromHTML wraps an already fetched document. The page cannot navigate.
func FromHTML(rawURL, body string) (*HTMLPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLPage{doc: doc, url: rawURL}, nil
}

func (p *HTMLPage) Navigate(ctx context.Context, target string) error {
	return p.do(ctx, http.MethodGet, target, nil, nil)
}

func (p *HTMLPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *HTMLPage) FindAll(selector string) ([]Element, error) {
	matcher, err := compile(selector)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	if doc == nil {
		return nil, ErrNoDocument
	}
	return p.wrap(doc.FindMatcher(matcher)), nil
}

// WaitFor checks selector once; a static document never changes.
func (p *HTMLPage) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	found, err := p.FindAll(selector)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
	}
	return nil
}

func (p *HTMLPage) Close() error {
	p.mu.Lock()
	p.doc = nil
	p.mu.Unlock()
	return nil
}

func (p *HTMLPage) do(ctx context.Context, method, target string, body io.Reader, hdr http.Header) error {
	if p.collector == nil {
		return &NavigationError{URL: target, Err: errors.New("static document cannot navigate")}
	}
	if err := ctx.Err(); err != nil {
		return &NavigationError{URL: target, Err: err}
	}

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.status = 0
	p.parseErr = nil
	p.mu.Unlock()

	cctx := colly.NewContext()
	cctx.Put(navKey, seq)

	done := make(chan error, 1)
	go func() {
		done <- p.collector.Request(method, target, body, cctx, hdr)
	}()

	select {
	case <-ctx.Done():
		p.mu.Lock()
		p.seq++
		p.mu.Unlock()
		return &NavigationError{URL: target, Err: ctx.Err()}
	case err := <-done:
		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			return &NavigationError{URL: target, StatusCode: p.status, Err: err}
		}
		if p.parseErr != nil {
			return &NavigationError{URL: target, StatusCode: p.status, Err: p.parseErr}
		}
		if p.loadedSeq != seq {
			return &NavigationError{URL: target, Err: errors.New("no response body")}
		}
		return nil
	}
}

func (p *HTMLPage) onResponse(r *colly.Response) {
	seq, _ := r.Ctx.GetAny(navKey).(uint64)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return
	}
	p.status = r.StatusCode
	if err != nil {
		p.parseErr = fmt.Errorf("parse html: %w", err)
		return
	}
	p.doc = doc
	p.url = r.Request.URL.String()
	p.loadedSeq = seq
}

func (p *HTMLPage) onError(r *colly.Response, _ error) {
	if r == nil || r.Ctx == nil {
		return
	}
	seq, _ := r.Ctx.GetAny(navKey).(uint64)
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq == p.seq {
		p.status = r.StatusCode
	}
}

func (p *HTMLPage) wrap(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &htmlElement{page: p, sel: s})
	})
	return out
}

// submit serialises form the way a browser would and sends it.
func (p *HTMLPage) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(s) {
		case "input":
			switch strings.ToLower(s.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); checked {
					values.Add(name, s.AttrOr("value", "on"))
				}
			default:
				values.Add(name, s.AttrOr("value", ""))
			}
		case "select":
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
		case "textarea":
			values.Add(name, s.Text())
		}
	})
	if name := submitter.AttrOr("name", ""); name != "" {
		values.Add(name, submitter.AttrOr("value", ""))
	}

	action, err := p.resolve(form.AttrOr("action", ""))
	if err != nil {
		return err
	}
	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		hdr := http.Header{}
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
		return p.do(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()), hdr)
	}
	action.RawQuery = values.Encode()
	return p.Navigate(ctx, action.String())
}

func (p *HTMLPage) resolve(href string) (*url.URL, error) {
	base, err := url.Parse(p.URL())
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("parse href %q: %w", href, err)
	}
	return base.ResolveReference(ref), nil
}

type htmlElement struct {
	page *HTMLPage
	sel  *goquery.Selection
}

func (e *htmlElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *htmlElement) Attr(name string) (string, error) {
	return e.sel.AttrOr(name, ""), nil
}

func (e *htmlElement) HTML() (string, error) {
	return e.sel.Html()
}

func (e *htmlElement) FindAll(selector string) ([]Element, error) {
	matcher, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return e.page.wrap(e.sel.FindMatcher(matcher)), nil
}

func (e *htmlElement) Fill(value string) error {
	switch goquery.NodeName(e.sel) {
	case "input":
		e.sel.SetAttr("value", value)
	case "textarea":
		e.sel.SetText(value)
	default:
		return fmt.Errorf("fill <%s>: %w", goquery.NodeName(e.sel), ErrNotInteractive)
	}
	return nil
}

func (e *htmlElement) Click(ctx context.Context) error {
	switch goquery.NodeName(e.sel) {
	case "a":
		href := e.sel.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "#") {
			return ErrNotInteractive
		}
		target, err := e.page.resolve(href)
		if err != nil {
			return err
		}
		return e.page.Navigate(ctx, target.String())
	case "button", "input":
		if !isSubmit(e.sel) {
			return ErrNotInteractive
		}
		form := e.sel.Closest("form")
		if form.Length() == 0 {
			return ErrNotInteractive
		}
		return e.page.submit(ctx, form, e.sel)
	default:
		return ErrNotInteractive
	}
}

func isSubmit(sel *goquery.Selection) bool {
	typ := strings.ToLower(sel.AttrOr("type", ""))
	if goquery.NodeName(sel) == "button" {
		return typ == "" || typ == "submit"
	}
	return typ == "submit" || typ == "image"
}

var matchers sync.Map // selector -> goquery.Matcher

func compile(selector string) (goquery.Matcher, error) {
	if m, ok := matchers.Load(selector); ok {
		return m.(goquery.Matcher), nil
	}
	compiled, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	matchers.Store(selector, goquery.Matcher(compiled))
	return compiled, nil
}
