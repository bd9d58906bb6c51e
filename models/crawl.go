package models

import "time"

// PageKind tells the router which extractor handles a request.
type PageKind string

const (
	PageListing PageKind = "listing"
	PageDetail  PageKind = "detail"
	PageUnknown PageKind = "unknown"
)

// LabelLogin marks a request that points at the login form.
const LabelLogin = "login"

// CrawlRequest is one entry of the frontier.
type CrawlRequest struct {
	URL        string   `json:"url"`
	Kind       PageKind `json:"pageKind"`
	RetryCount int      `json:"retryCount"`
	Label      string   `json:"label,omitempty"`
}

// RequestState tracks a request through the frontier.
type RequestState int

const (
	StateQueued RequestState = iota
	StateInFlight
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInFlight:
		return "in-flight"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s RequestState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Failure stages recorded in FailedRequest.Stage.
const (
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageValidate = "validate"
)

// FailedRequest is one entry of the run's error list.
type FailedRequest struct {
	URL        string   `json:"url"`
	Kind       PageKind `json:"pageKind"`
	Stage      string   `json:"stage"`
	Error      string   `json:"error"`
	RetryCount int      `json:"retryCount"`
}

// ScraperResult holds the overall result of a crawl run.
type ScraperResult struct {
	RunID          string
	StartTime      time.Time
	EndTime        time.Time
	Authenticated  bool
	PagesCrawled   int
	ProductsParsed int
	ProductsValid  int
	RequestCount   int
	RetryCount     int
	// RequestsByKind counts unique requests accepted into the frontier.
	RequestsByKind map[PageKind]int
	// Unvisited counts requests still queued when the run was halted.
	Unvisited int
	// Truncated is set when the request or page ceiling turned URLs away.
	Truncated bool
	// Halted is set when the run timeout or cancellation stopped the crawl.
	Halted       bool
	Errors       []FailedRequest
	ErrorsByType map[string]int
	Products     []*Product
}

// Complete reports whether the run saw the whole catalog: nothing was cut
// off by a ceiling, a deadline or a failed listing page.
func (r *ScraperResult) Complete() bool {
	if r.Truncated || r.Halted || r.Unvisited > 0 {
		return false
	}
	for _, f := range r.Errors {
		if f.Kind == PageListing {
			return false
		}
	}
	return true
}
