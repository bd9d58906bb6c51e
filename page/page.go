// Package page defines the small set of page capabilities the extractors
// rely on. Two adapters satisfy it: a static HTML adapter backed by colly and
// goquery, and a headless browser adapter backed by playwright.
package page

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoDocument is returned when a page is queried before a navigation.
	ErrNoDocument = errors.New("page: no document loaded")
	// ErrNotInteractive is returned by Click on elements that neither
	// navigate nor submit a form.
	ErrNotInteractive = errors.New("page: element is not clickable")
	// ErrWaitTimeout is returned when WaitFor gives up.
	ErrWaitTimeout = errors.New("page: wait for selector timed out")
)

// Handle is one page/tab. A Handle is not safe for concurrent use; every
// crawl worker owns its own.
type Handle interface {
	Navigate(ctx context.Context, url string) error
	// URL is the address of the loaded document after redirects.
	URL() string
	// FindAll returns every element matching selector. An invalid selector
	// is an error; no match is an empty slice.
	FindAll(selector string) ([]Element, error)
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}

// Element is a node inside a Handle's current document.
type Element interface {
	Text() (string, error)
	Attr(name string) (string, error)
	HTML() (string, error)
	FindAll(selector string) ([]Element, error)
	Fill(value string) error
	Click(ctx context.Context) error
}

// Factory opens a new Handle.
type Factory func() (Handle, error)

// NavigationError reports a failed page load.
type NavigationError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NavigationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("navigate %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
