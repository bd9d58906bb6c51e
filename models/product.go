// Package models defines data structures for the scraper.
package models

import (
	"strings"
	"time"
)

// Brand is the vendor name stamped on every product.
const Brand = "United Fabrics"

// Image is one gallery entry. Position is 1-based and defines display order.
type Image struct {
	Src      string `json:"src"`
	Position int    `json:"position"`
	Alt      string `json:"alt,omitempty"`
}

// Details holds the textile attributes read from the specification table.
// An empty field means the attribute was not found on the page.
type Details struct {
	Content         string   `json:"content,omitempty"`
	Width           string   `json:"width,omitempty"`
	PatternRepeat   string   `json:"patternRepeat,omitempty"`
	Abrasion        string   `json:"abrasion,omitempty"`
	Backing         string   `json:"backing,omitempty"`
	FireRating      string   `json:"fireRating,omitempty"`
	CountryOfOrigin string   `json:"countryOfOrigin,omitempty"`
	CleaningCode    string   `json:"cleaningCode,omitempty"`
	Railroaded      string   `json:"railroaded,omitempty"`
	Usage           []string `json:"usage,omitempty"`
}

// Product is the canonical record extracted from one detail page.
type Product struct {
	URL             string   `json:"url"`
	SKU             string   `json:"sku"`
	Title           string   `json:"title"`
	Color           string   `json:"color,omitempty"`
	Collection      string   `json:"collection,omitempty"`
	Brand           string   `json:"brand"`
	DescriptionHTML string   `json:"descriptionHtml,omitempty"`
	Details         Details  `json:"details"`
	Categories      []string `json:"categories"`
	Tags            []string `json:"tags"`

	// Sale and retail are derived from wholesale and never set on their own.
	WholesalePrice *float64 `json:"wholesalePrice"`
	SalePrice      *float64 `json:"salePrice"`
	RetailPrice    *float64 `json:"retailPrice"`

	Images  []Image `json:"images"`
	InStock bool    `json:"inStock"`
	// Stock is the yard count summed over all warehouses (NJ + CA).
	Stock *int `json:"stock,omitempty"`

	ContentHash string    `json:"contentHash,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
}

// SpecKey is the canonical name of a specification attribute.
type SpecKey string

const (
	SpecContent         SpecKey = "content"
	SpecWidth           SpecKey = "width"
	SpecPatternRepeat   SpecKey = "patternRepeat"
	SpecAbrasion        SpecKey = "abrasion"
	SpecBacking         SpecKey = "backing"
	SpecFireRating      SpecKey = "fireRating"
	SpecCountryOfOrigin SpecKey = "countryOfOrigin"
	SpecCleaningCode    SpecKey = "cleaningCode"
	SpecRailroaded      SpecKey = "railroaded"
	SpecUsage           SpecKey = "usage"
)

// Set records value under key. Usage is split on commas.
func (d *Details) Set(key SpecKey, value string) {
	switch key {
	case SpecContent:
		d.Content = value
	case SpecWidth:
		d.Width = value
	case SpecPatternRepeat:
		d.PatternRepeat = value
	case SpecAbrasion:
		d.Abrasion = value
	case SpecBacking:
		d.Backing = value
	case SpecFireRating:
		d.FireRating = value
	case SpecCountryOfOrigin:
		d.CountryOfOrigin = value
	case SpecCleaningCode:
		d.CleaningCode = value
	case SpecRailroaded:
		d.Railroaded = value
	case SpecUsage:
		d.Usage = nil
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				d.Usage = append(d.Usage, part)
			}
		}
	}
}
