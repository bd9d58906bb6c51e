package scraper

import (
	"github.com/aluiziolira/go-scrape-fabrics/models"
	"github.com/aluiziolira/go-scrape-fabrics/page"
	"github.com/aluiziolira/go-scrape-fabrics/parser"
)

type readMode int

const (
	readText readMode = iota
	readAttr
	readHTML
)

// fieldSpec describes one scalar product field: where to look, how to read
// it, how to clean it and where to store it.
type fieldSpec struct {
	name      string
	selectors []string
	read      readMode
	attr      string
	required  bool
	post      func(string) string
	apply     func(p *models.Product, value string)
}

func (f fieldSpec) extract(h page.Handle) string {
	var value string
	switch f.read {
	case readAttr:
		value = page.Attr(h, f.selectors, f.attr)
	case readHTML:
		value = page.HTML(h, f.selectors)
	default:
		value = page.Text(h, f.selectors)
	}
	if f.post != nil {
		value = f.post(value)
	}
	return value
}

func scalarFields(sel DetailSelectors) []fieldSpec {
	return []fieldSpec{
		{
			name:      "title",
			selectors: sel.Title,
			required:  true,
			apply:     func(p *models.Product, v string) { p.Title = v },
		},
		{
			name:      "sku",
			selectors: sel.SKU,
			post:      parser.StripSKULabel,
			apply:     func(p *models.Product, v string) { p.SKU = v },
		},
		{
			name:      "description",
			selectors: sel.Description,
			read:      readHTML,
			apply:     func(p *models.Product, v string) { p.DescriptionHTML = v },
		},
		{
			name:      "color",
			selectors: sel.Color,
			read:      readAttr,
			attr:      "data-color",
			apply:     func(p *models.Product, v string) { p.Color = v },
		},
		{
			name:      "collection",
			selectors: sel.Collection,
			read:      readAttr,
			attr:      "data-collection",
			apply:     func(p *models.Product, v string) { p.Collection = v },
		},
		{
			name:      "wholesalePrice",
			selectors: sel.Price,
			apply: func(p *models.Product, v string) {
				p.WholesalePrice = parser.ParsePrice(v)
			},
		},
	}
}
