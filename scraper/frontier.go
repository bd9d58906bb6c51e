package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-fabrics/models"
	"github.com/aluiziolira/go-scrape-fabrics/parser"
)

type frontierEntry struct {
	req   models.CrawlRequest
	state models.RequestState
	timer *time.Timer
}

// frontier owns every request of a run and its state machine:
//
//	queued -> in-flight -> succeeded
//	                    -> retrying -> queued
//	                    -> failed
//
// It is the only place where URL de-duplication and the request and page
// ceilings are enforced.
type frontier struct {
	maxRequests int
	maxPages    int
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration

	mu        sync.Mutex
	entries   map[string]*frontierEntry
	queue     []string
	inFlight  int
	retrying  int
	listings  int
	retries   int
	unvisited int
	capped    int
	byKind    map[models.PageKind]int
	stopped   bool
	changed   chan struct{}
}

func newFrontier(maxRequests, maxPages, maxRetries int, backoffBase, backoffMax time.Duration) *frontier {
	return &frontier{
		maxRequests: maxRequests,
		maxPages:    maxPages,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		entries:     make(map[string]*frontierEntry),
		byKind:      make(map[models.PageKind]int),
		changed:     make(chan struct{}),
	}
}

// Add queues req unless its URL was seen before, a ceiling is reached or the
// frontier is stopped. It reports whether req was accepted.
func (f *frontier) Add(req models.CrawlRequest) bool {
	req.URL = parser.StripFragment(req.URL)
	if req.URL == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return false
	}
	if _, ok := f.entries[req.URL]; ok {
		return false
	}
	if f.maxRequests > 0 && len(f.entries) >= f.maxRequests {
		f.capped++
		return false
	}
	if req.Kind == models.PageListing {
		if f.maxPages > 0 && f.listings >= f.maxPages {
			f.capped++
			return false
		}
		f.listings++
	}

	f.entries[req.URL] = &frontierEntry{req: req, state: models.StateQueued}
	f.queue = append(f.queue, req.URL)
	f.byKind[req.Kind]++
	f.notifyLocked()
	return true
}

// Next blocks until a request can be dispatched and marks it in-flight. It
// returns false once nothing is queued, in flight or waiting for a retry,
// or when the frontier is stopped or ctx is done.
func (f *frontier) Next(ctx context.Context) (models.CrawlRequest, bool) {
	for {
		f.mu.Lock()
		if f.stopped {
			f.mu.Unlock()
			return models.CrawlRequest{}, false
		}
		if len(f.queue) > 0 {
			url := f.queue[0]
			f.queue = f.queue[1:]
			entry := f.entries[url]
			entry.state = models.StateInFlight
			f.inFlight++
			f.mu.Unlock()
			return entry.req, true
		}
		if f.inFlight == 0 && f.retrying == 0 {
			f.mu.Unlock()
			return models.CrawlRequest{}, false
		}
		changed := f.changed
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.CrawlRequest{}, false
		case <-changed:
		}
	}
}

// Done marks an in-flight request as succeeded.
func (f *frontier) Done(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[url]
	if !ok || entry.state != models.StateInFlight {
		return
	}
	entry.state = models.StateSucceeded
	f.inFlight--
	f.notifyLocked()
}

// Fail records a failed attempt. While the retry budget lasts the request is
// re-queued after an exponential backoff and Fail returns true. Otherwise
// the request is failed for good. The second result is the request's retry
// count after this attempt.
func (f *frontier) Fail(url string) (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[url]
	if !ok || entry.state != models.StateInFlight {
		return false, 0
	}
	f.inFlight--
	entry.req.RetryCount++
	attempts := entry.req.RetryCount

	if f.stopped || attempts >= f.maxRetries {
		entry.state = models.StateFailed
		f.notifyLocked()
		return false, attempts
	}

	entry.state = models.StateRetrying
	f.retrying++
	f.retries++
	entry.timer = time.AfterFunc(f.backoff(attempts), func() {
		f.requeue(url)
	})
	f.notifyLocked()
	return true, attempts
}

// Release puts an in-flight request back without counting an attempt.
func (f *frontier) Release(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[url]
	if !ok || entry.state != models.StateInFlight {
		return
	}
	f.inFlight--
	entry.state = models.StateQueued
	if f.stopped {
		f.unvisited++
	} else {
		f.queue = append([]string{url}, f.queue...)
	}
	f.notifyLocked()
}

// Stop halts dequeues. Queued requests are counted as unvisited; requests
// waiting for a retry are failed and returned so the caller can record
// them. Stop is idempotent.
func (f *frontier) Stop() []models.CrawlRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true

	f.unvisited += len(f.queue)
	f.queue = nil

	var abandoned []models.CrawlRequest
	for _, entry := range f.entries {
		if entry.state != models.StateRetrying {
			continue
		}
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.state = models.StateFailed
		f.retrying--
		abandoned = append(abandoned, entry.req)
	}
	f.notifyLocked()
	return abandoned
}

func (f *frontier) requeue(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[url]
	if !ok || f.stopped || entry.state != models.StateRetrying {
		return
	}
	entry.state = models.StateQueued
	entry.timer = nil
	f.retrying--
	f.queue = append(f.queue, url)
	f.notifyLocked()
}

func (f *frontier) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.backoffBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.backoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// State returns the state of url and whether it is known.
func (f *frontier) State(url string) (models.RequestState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[parser.StripFragment(url)]
	if !ok {
		return 0, false
	}
	return entry.state, true
}

func (f *frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *frontier) Retries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retries
}

func (f *frontier) Unvisited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unvisited
}

// Capped counts new URLs turned away by the request or page ceiling.
func (f *frontier) Capped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capped
}

func (f *frontier) ByKind() map[models.PageKind]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[models.PageKind]int, len(f.byKind))
	for k, v := range f.byKind {
		out[k] = v
	}
	return out
}

// notifyLocked wakes every goroutine blocked in Next.
func (f *frontier) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}
