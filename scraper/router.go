package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

// Router classifies requests from their URL and label alone.
type Router struct {
	loginPath    string
	detailMarker string
}

func NewRouter(loginURL, detailMarker string) *Router {
	r := &Router{detailMarker: detailMarker}
	if u, err := url.Parse(loginURL); err == nil {
		r.loginPath = strings.TrimSuffix(u.Path, "/")
	}
	return r
}

// Classify returns the page kind for req. Login requests are unknown: the
// authenticator handles them, the crawl does not.
func (r *Router) Classify(req models.CrawlRequest) models.PageKind {
	if req.Label == models.LabelLogin {
		return models.PageUnknown
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		slog.Debug("unroutable url", slog.String("url", req.URL), slog.Any("error", err))
		return models.PageUnknown
	}
	path := strings.TrimSuffix(u.Path, "/")
	if r.loginPath != "" && path == r.loginPath {
		return models.PageUnknown
	}
	if r.detailMarker != "" && strings.Contains(u.Path, r.detailMarker) {
		return models.PageDetail
	}
	return models.PageListing
}
