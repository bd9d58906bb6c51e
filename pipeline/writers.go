package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-fabrics/models"
	"github.com/aluiziolira/go-scrape-fabrics/parser"
)

// Shopify price columns selectable with NewShopifyWriter.
const (
	PriceFieldRetail = "retail"
	PriceFieldSale   = "sale"
)

const (
	productCategory = "Upholstery Fabric"
	wooCategories   = "Upholstery > United Fabrics"
	shortDescMax    = 120
)

var (
	shopifyHeader = []string{
		"Handle", "Title", "Body (HTML)", "Vendor", "Product Category", "Tags",
		"Published", "Option1 Name", "Option1 Value", "Variant SKU", "Variant Price",
		"Variant Requires Shipping", "Variant Taxable", "Image Src", "Image Position", "Status",
	}
	wooCommerceHeader = []string{
		"Type", "SKU", "Name", "Published", "Visibility in catalog", "Short description",
		"Description", "Tax status", "In stock?", "Regular price", "Sale price",
		"Categories", "Images", "Attributes",
	}
	wpAllImportHeader = []string{
		"post_title", "post_content", "sku", "regular_price", "sale_price", "images",
		"brand", "collection", "color", "categories", "tags",
		"meta_width", "meta_abrasion", "meta_pattern_repeat", "meta_backing",
		"meta_fire_rating", "meta_country_of_origin", "meta_cleaning_code",
		"meta_railroaded", "meta_usage", "meta_content",
	}
)

// csvFile is the shared file handling behind the platform writers.
type csvFile struct {
	file   *os.File
	writer *csv.Writer
	rows   int
	mu     sync.Mutex
}

func createCSV(filename string, header []string) (*csvFile, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &csvFile{file: f, writer: writer}, nil
}

func (c *csvFile) writeRows(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, record := range rows {
		if err := c.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		c.rows++
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (c *csvFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return c.file.Close()
}

// Validate ensures the file has at least one record besides the header.
func (c *csvFile) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rows == 0 {
		return fmt.Errorf("csv file %s has no records", c.file.Name())
	}
	return nil
}

// ShopifyWriter writes the Shopify product import layout, one row per image.
type ShopifyWriter struct {
	*csvFile
	priceField string
}

// NewShopifyWriter creates filename. priceField picks the Variant Price
// source and is either PriceFieldRetail or PriceFieldSale.
func NewShopifyWriter(filename, priceField string) (*ShopifyWriter, error) {
	if priceField != PriceFieldRetail && priceField != PriceFieldSale {
		return nil, fmt.Errorf("shopify price field %q: want %s or %s", priceField, PriceFieldRetail, PriceFieldSale)
	}
	c, err := createCSV(filename, shopifyHeader)
	if err != nil {
		return nil, err
	}
	return &ShopifyWriter{csvFile: c, priceField: priceField}, nil
}

// Write appends products to the CSV output.
func (w *ShopifyWriter) Write(products []*models.Product) error {
	var rows [][]string
	for _, p := range products {
		price := p.RetailPrice
		if w.priceField == PriceFieldSale {
			price = p.SalePrice
		}
		base := []string{
			parser.GenerateHandle(p.Title, p.Color),
			p.Title,
			p.DescriptionHTML,
			models.Brand,
			productCategory,
			strings.Join(p.Tags, ","),
			"TRUE",
			"Default Title",
			"Default Title",
			p.SKU,
			formatPrice(price),
			"TRUE",
			"TRUE",
		}

		if len(p.Images) == 0 {
			rows = append(rows, append(clone(base), "", "", "active"))
			continue
		}
		for _, img := range p.Images {
			rows = append(rows, append(clone(base), img.Src, strconv.Itoa(img.Position), "active"))
		}
	}
	return w.writeRows(rows)
}

// WooCommerceWriter writes the WooCommerce product CSV importer layout.
type WooCommerceWriter struct {
	*csvFile
}

func NewWooCommerceWriter(filename string) (*WooCommerceWriter, error) {
	c, err := createCSV(filename, wooCommerceHeader)
	if err != nil {
		return nil, err
	}
	return &WooCommerceWriter{csvFile: c}, nil
}

// Write appends products to the CSV output.
func (w *WooCommerceWriter) Write(products []*models.Product) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		inStock := "0"
		if p.InStock {
			inStock = "1"
		}
		rows = append(rows, []string{
			"simple",
			p.SKU,
			p.Title,
			"1",
			"visible",
			shortDescription(p.DescriptionHTML),
			p.DescriptionHTML,
			"taxable",
			inStock,
			formatPrice(p.RetailPrice),
			formatPrice(p.SalePrice),
			wooCategories,
			joinImages(p.Images, "|"),
			wooAttributes(p),
		})
	}
	return w.writeRows(rows)
}

// WPAllImportWriter writes a flat layout for WP All Import field mapping.
type WPAllImportWriter struct {
	*csvFile
}

func NewWPAllImportWriter(filename string) (*WPAllImportWriter, error) {
	c, err := createCSV(filename, wpAllImportHeader)
	if err != nil {
		return nil, err
	}
	return &WPAllImportWriter{csvFile: c}, nil
}

// Write appends products to the CSV output.
func (w *WPAllImportWriter) Write(products []*models.Product) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		d := p.Details
		rows = append(rows, []string{
			p.Title,
			p.DescriptionHTML,
			p.SKU,
			formatPrice(p.RetailPrice),
			formatPrice(p.SalePrice),
			// WP All Import fetches each remote URL on its own line.
			joinImages(p.Images, "\n"),
			models.Brand,
			p.Collection,
			p.Color,
			strings.Join(p.Categories, ","),
			strings.Join(p.Tags, ","),
			d.Width,
			d.Abrasion,
			d.PatternRepeat,
			d.Backing,
			d.FireRating,
			d.CountryOfOrigin,
			d.CleaningCode,
			d.Railroaded,
			strings.Join(d.Usage, ","),
			d.Content,
		})
	}
	return w.writeRows(rows)
}

// JSONLWriter writes newline-delimited JSON records.
type JSONLWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	records int
	mu      sync.Mutex
}

// NewJSONLWriter initialises the JSONL writer.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create jsonl file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONLWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends products in JSONL format.
func (jw *JSONLWriter) Write(products []*models.Product) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		if err := jw.encoder.Encode(p); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.records++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush jsonl writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush jsonl writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures at least one record was written.
func (jw *JSONLWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.records == 0 {
		return fmt.Errorf("jsonl file %s has no records", jw.file.Name())
	}
	return nil
}

// formatPrice renders a price with two decimals, or empty when unknown.
func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func joinImages(images []models.Image, sep string) string {
	srcs := make([]string, 0, len(images))
	for _, img := range images {
		srcs = append(srcs, img.Src)
	}
	return strings.Join(srcs, sep)
}

func wooAttributes(p *models.Product) string {
	attrs := []string{"Brand|" + models.Brand}
	add := func(name, value string) {
		if value != "" {
			attrs = append(attrs, name+"|"+value)
		}
	}
	add("Collection", p.Collection)
	add("Color", p.Color)
	add("Content", p.Details.Content)
	add("Width", p.Details.Width)
	add("Pattern Repeat", p.Details.PatternRepeat)
	add("Abrasion", p.Details.Abrasion)
	add("Backing", p.Details.Backing)
	add("Fire Rating", p.Details.FireRating)
	add("Country of Origin", p.Details.CountryOfOrigin)
	add("Cleaning Code", p.Details.CleaningCode)
	add("Railroaded", p.Details.Railroaded)
	return strings.Join(attrs, "; ")
}

// shortDescription is the plain text of the description cut to
// shortDescMax runes.
func shortDescription(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	text := []rune(parser.NormalizeSpace(doc.Text()))
	if len(text) > shortDescMax {
		text = text[:shortDescMax]
	}
	return strings.TrimSpace(string(text))
}

func clone(s []string) []string {
	return append(make([]string, 0, len(s)+3), s...)
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
