package scraper

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-fabrics/models"
	"github.com/aluiziolira/go-scrape-fabrics/page"
	"github.com/aluiziolira/go-scrape-fabrics/parser"
)

const maxImages = 20

// DetailExtractor builds a Product from a loaded detail page.
type DetailExtractor struct {
	sel    DetailSelectors
	fields []fieldSpec
	now    func() time.Time
}

func NewDetailExtractor(sel DetailSelectors) *DetailExtractor {
	return &DetailExtractor{
		sel:    sel,
		fields: scalarFields(sel),
		now:    time.Now,
	}
}

// Extract reads every field it can. A step that fails leaves its field
// empty and the remaining steps still run. The only hard failure is a
// missing title, reported as ErrMissingTitle.
func (d *DetailExtractor) Extract(h page.Handle, pageURL string) (*models.Product, error) {
	now := d.now()
	p := &models.Product{
		URL:        parser.StripFragment(pageURL),
		Brand:      models.Brand,
		Categories: []string{},
		Tags:       []string{},
		Images:     []models.Image{},
		LastSeen:   now.UTC(),
	}

	for _, f := range d.fields {
		d.step(f.name, pageURL, func() {
			value := f.extract(h)
			if value == "" && f.required {
				slog.Warn("required field missing", slog.String("field", f.name), slog.String("url", pageURL))
			}
			f.apply(p, value)
		})
	}

	d.step("sku fallback", pageURL, func() {
		if p.SKU == "" {
			p.SKU = parser.NormalizeSpace(page.Attr(h, []string{"[data-sku]"}, "data-sku"))
		}
		if p.SKU == "" {
			p.SKU = fmt.Sprintf("UF-%d", now.UnixMilli())
			slog.Debug("synthesized sku", slog.String("sku", p.SKU), slog.String("url", pageURL))
		}
	})
	d.step("images", pageURL, func() { p.Images = d.images(h, p.URL, p.Title) })
	d.step("specifications", pageURL, func() { d.specifications(h, &p.Details) })
	d.step("stock status", pageURL, func() { p.InStock = page.SelectFirst(h, d.sel.InStock) != "" })
	d.step("stock quantity", pageURL, func() { p.Stock = d.stock(h) })
	d.step("prices", pageURL, func() {
		prices := parser.DerivePrices(p.WholesalePrice)
		p.SalePrice = prices.Sale
		p.RetailPrice = prices.Retail
	})

	if p.Title == "" {
		return nil, fmt.Errorf("extract %s: %w", pageURL, ErrMissingTitle)
	}
	p.ContentHash = parser.ProductHash(p.URL, parser.SpecText(p.Details))
	return p, nil
}

// step runs fn, turning a panic in an adapter into a logged field miss.
func (d *DetailExtractor) step(name, pageURL string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("extraction step failed",
				slog.String("step", name),
				slog.String("url", pageURL),
				slog.Any("panic", r),
			)
		}
	}()
	fn()
}

func (d *DetailExtractor) images(h page.Handle, pageURL, alt string) []models.Image {
	var srcs []string
	seen := make(map[string]struct{})
	add := func(src string) {
		if src == "" || len(srcs) >= maxImages {
			return
		}
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		srcs = append(srcs, src)
	}

	links, _ := page.All(h, d.sel.GalleryLinks)
	for _, link := range links {
		href := parser.AbsoluteURL(pageURL, page.ElementAttr(link, "href"))
		if parser.IsImageURL(href) {
			add(parser.StripFragment(href))
		}
	}

	if len(srcs) == 0 {
		imgs, _ := page.All(h, d.sel.GalleryImages)
		for _, img := range imgs {
			src := page.ElementAttr(img, "data-large_image")
			if src == "" {
				src = page.ElementAttr(img, "src")
			}
			src = parser.AbsoluteURL(pageURL, src)
			if !parser.IsImageURL(src) {
				continue
			}
			add(parser.CleanImageURL(src))
		}
	}

	images := make([]models.Image, 0, len(srcs))
	for i, src := range srcs {
		images = append(images, models.Image{Src: src, Position: i + 1, Alt: alt})
	}
	return images
}

func (d *DetailExtractor) specifications(h page.Handle, details *models.Details) {
	container, _ := page.First(h, d.sel.Specifications)
	if container == nil {
		return
	}
	rows, _ := page.AllWithin(container, d.sel.SpecRows)
	for _, row := range rows {
		cells, _ := page.AllWithin(row, d.sel.SpecCells)
		if len(cells) < 2 {
			continue
		}
		key, ok := parser.NormalizeSpecKey(page.ElementText(cells[0]))
		if !ok {
			continue
		}
		if value := page.ElementText(cells[1]); value != "" {
			details.Set(key, value)
		}
	}
}

// stock sums the warehouse yard counts found in the stock notices.
func (d *DetailExtractor) stock(h page.Handle) *int {
	notices, _ := page.All(h, d.sel.StockText)
	for _, notice := range notices {
		if qty, ok := parser.ParseStock(page.ElementText(notice)); ok {
			return &qty
		}
	}
	if qty, ok := parser.ParseStock(page.Text(h, []string{"body"})); ok {
		return &qty
	}
	return nil
}
