package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

func TestFrontierDeduplicates(t *testing.T) {
	f := newFrontier(0, 0, 3, time.Millisecond, time.Millisecond)

	if !f.Add(models.CrawlRequest{URL: "http://example.test/product/a/", Kind: models.PageDetail}) {
		t.Fatalf("first add should be accepted")
	}
	if f.Add(models.CrawlRequest{URL: "http://example.test/product/a/#reviews", Kind: models.PageDetail}) {
		t.Fatalf("fragment variant should be a duplicate")
	}
	if f.Add(models.CrawlRequest{URL: "", Kind: models.PageDetail}) {
		t.Fatalf("empty url should be rejected")
	}
	if got := f.ByKind()[models.PageDetail]; got != 1 {
		t.Fatalf("detail requests = %d, want 1", got)
	}
}

func TestFrontierLimits(t *testing.T) {
	tests := []struct {
		name        string
		maxRequests int
		maxPages    int
		adds        []models.CrawlRequest
		wantKinds   map[models.PageKind]int
		wantCapped  int
	}{
		{
			name:     "max pages caps listings only",
			maxPages: 1,
			adds: []models.CrawlRequest{
				{URL: "http://example.test/fabric/", Kind: models.PageListing},
				{URL: "http://example.test/fabric/page/2/", Kind: models.PageListing},
				{URL: "http://example.test/product/a/", Kind: models.PageDetail},
			},
			wantKinds:  map[models.PageKind]int{models.PageListing: 1, models.PageDetail: 1},
			wantCapped: 1,
		},
		{
			name:        "max requests caps everything",
			maxRequests: 2,
			adds: []models.CrawlRequest{
				{URL: "http://example.test/fabric/", Kind: models.PageListing},
				{URL: "http://example.test/product/a/", Kind: models.PageDetail},
				{URL: "http://example.test/product/b/", Kind: models.PageDetail},
			},
			wantKinds:  map[models.PageKind]int{models.PageListing: 1, models.PageDetail: 1},
			wantCapped: 1,
		},
		{
			name:     "duplicates are not capped",
			maxPages: 1,
			adds: []models.CrawlRequest{
				{URL: "http://example.test/fabric/", Kind: models.PageListing},
				{URL: "http://example.test/fabric/", Kind: models.PageListing},
			},
			wantKinds: map[models.PageKind]int{models.PageListing: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFrontier(tt.maxRequests, tt.maxPages, 3, time.Millisecond, time.Millisecond)
			for _, req := range tt.adds {
				f.Add(req)
			}
			got := f.ByKind()
			for kind, want := range tt.wantKinds {
				if got[kind] != want {
					t.Fatalf("%s requests = %d, want %d", kind, got[kind], want)
				}
			}
			if got := f.Capped(); got != tt.wantCapped {
				t.Fatalf("capped = %d, want %d", got, tt.wantCapped)
			}
		})
	}
}

func TestFrontierRetryBudget(t *testing.T) {
	f := newFrontier(0, 0, 3, time.Millisecond, 2*time.Millisecond)
	url := "http://example.test/product/broken/"
	f.Add(models.CrawlRequest{URL: url, Kind: models.PageDetail})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for attempt := 1; attempt <= 3; attempt++ {
		req, ok := f.Next(ctx)
		if !ok {
			t.Fatalf("attempt %d: expected a request", attempt)
		}
		if req.RetryCount != attempt-1 {
			t.Fatalf("attempt %d: retry count = %d, want %d", attempt, req.RetryCount, attempt-1)
		}
		retry, count := f.Fail(url)
		if count != attempt {
			t.Fatalf("attempt %d: count = %d", attempt, count)
		}
		if wantRetry := attempt < 3; retry != wantRetry {
			t.Fatalf("attempt %d: retry = %v, want %v", attempt, retry, wantRetry)
		}
	}

	if _, ok := f.Next(ctx); ok {
		t.Fatalf("frontier should be drained after permanent failure")
	}
	if state, _ := f.State(url); state != models.StateFailed {
		t.Fatalf("state = %s, want failed", state)
	}
	if got := f.Retries(); got != 2 {
		t.Fatalf("retries = %d, want 2", got)
	}
}

func TestFrontierZeroRetries(t *testing.T) {
	f := newFrontier(0, 0, 0, time.Millisecond, time.Millisecond)
	f.Add(models.CrawlRequest{URL: "http://example.test/fabric/", Kind: models.PageListing})

	if _, ok := f.Next(context.Background()); !ok {
		t.Fatalf("expected a request")
	}
	if retry, count := f.Fail("http://example.test/fabric/"); retry || count != 1 {
		t.Fatalf("Fail = (%v, %d), want (false, 1)", retry, count)
	}
}

func TestFrontierNextWaitsForInFlight(t *testing.T) {
	f := newFrontier(0, 0, 3, time.Millisecond, time.Millisecond)
	f.Add(models.CrawlRequest{URL: "http://example.test/fabric/", Kind: models.PageListing})

	ctx := context.Background()
	if _, ok := f.Next(ctx); !ok {
		t.Fatalf("expected listing")
	}

	got := make(chan models.CrawlRequest, 1)
	go func() {
		req, ok := f.Next(ctx)
		if ok {
			got <- req
		}
		close(got)
	}()

	f.Add(models.CrawlRequest{URL: "http://example.test/product/a/", Kind: models.PageDetail})
	f.Done("http://example.test/fabric/")

	select {
	case req, ok := <-got:
		if !ok || req.URL != "http://example.test/product/a/" {
			t.Fatalf("waiting worker got %+v, %v", req, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("waiting worker was never woken")
	}
}

func TestFrontierStop(t *testing.T) {
	f := newFrontier(0, 0, 3, time.Hour, time.Hour)
	f.Add(models.CrawlRequest{URL: "http://example.test/product/a/", Kind: models.PageDetail})
	f.Add(models.CrawlRequest{URL: "http://example.test/product/b/", Kind: models.PageDetail})
	f.Add(models.CrawlRequest{URL: "http://example.test/product/c/", Kind: models.PageDetail})

	ctx := context.Background()
	first, _ := f.Next(ctx)
	f.Fail(first.URL)
	second, _ := f.Next(ctx)

	abandoned := f.Stop()
	if len(abandoned) != 1 || abandoned[0].URL != first.URL || abandoned[0].RetryCount != 1 {
		t.Fatalf("abandoned = %+v", abandoned)
	}
	if got := f.Unvisited(); got != 1 {
		t.Fatalf("unvisited = %d, want 1", got)
	}
	if _, ok := f.Next(ctx); ok {
		t.Fatalf("stopped frontier must not dispatch")
	}
	if f.Add(models.CrawlRequest{URL: "http://example.test/product/d/", Kind: models.PageDetail}) {
		t.Fatalf("stopped frontier must not accept requests")
	}

	f.Release(second.URL)
	if got := f.Unvisited(); got != 2 {
		t.Fatalf("unvisited after release = %d, want 2", got)
	}
	if f.Stop() != nil {
		t.Fatalf("second stop should be a no-op")
	}
}

func TestFrontierBackoffCapped(t *testing.T) {
	f := newFrontier(0, 0, 3, 200*time.Millisecond, 500*time.Millisecond)

	if got := f.backoff(1); got != 200*time.Millisecond {
		t.Fatalf("backoff(1) = %v", got)
	}
	if got := f.backoff(2); got != 400*time.Millisecond {
		t.Fatalf("backoff(2) = %v", got)
	}
	if got := f.backoff(4); got != 500*time.Millisecond {
		t.Fatalf("backoff(4) = %v, want cap", got)
	}
}
