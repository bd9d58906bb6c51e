package scraper

import (
	"github.com/aluiziolira/go-scrape-fabrics/page"
	"github.com/aluiziolira/go-scrape-fabrics/parser"
)

// ListingResult is what one listing page yields.
type ListingResult struct {
	ProductURLs []string
	NextURL     string
}

// ListingExtractor pulls product links and the next-page link.
type ListingExtractor struct {
	sel ListingSelectors
}

func NewListingExtractor(sel ListingSelectors) *ListingExtractor {
	return &ListingExtractor{sel: sel}
}

// Extract reads h. Links are absolute, fragment-free and unique in page
// order. NextURL is empty when there is no next page or it points back at
// pageURL.
func (l *ListingExtractor) Extract(h page.Handle, pageURL string) ListingResult {
	var res ListingResult

	base := h.URL()
	if base == "" {
		base = pageURL
	}

	tiles, _ := page.All(h, l.sel.ProductTiles)
	seen := make(map[string]struct{}, len(tiles))
	for _, tile := range tiles {
		abs := parser.StripFragment(parser.AbsoluteURL(base, page.ElementAttr(tile, "href")))
		if abs == "" {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		res.ProductURLs = append(res.ProductURLs, abs)
	}

	next := parser.StripFragment(parser.AbsoluteURL(base, page.Attr(h, l.sel.NextButton, "href")))
	if next != "" && next != parser.StripFragment(base) && next != parser.StripFragment(pageURL) {
		res.NextURL = next
	}
	return res
}
