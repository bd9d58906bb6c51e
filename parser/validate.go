package parser

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

// ValidateProduct checks the fields exports depend on and the derived-price
// relationship. The returned error joins every violation found.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}

	var errs []error
	if !validURL(p.URL) {
		errs = append(errs, fmt.Errorf("invalid url %q", p.URL))
	}
	if strings.TrimSpace(p.SKU) == "" {
		errs = append(errs, fmt.Errorf("product missing sku"))
	}
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, fmt.Errorf("product missing title"))
	}
	if p.Brand != models.Brand {
		errs = append(errs, fmt.Errorf("brand %q, want %q", p.Brand, models.Brand))
	}
	if err := validatePrices(p); err != nil {
		errs = append(errs, err)
	}
	for i, img := range p.Images {
		if img.Position != i+1 {
			errs = append(errs, fmt.Errorf("image %d has position %d, want %d", i, img.Position, i+1))
		}
		if !validURL(img.Src) {
			errs = append(errs, fmt.Errorf("image %d has invalid src %q", i, img.Src))
		}
	}
	if p.Stock != nil && *p.Stock < 0 {
		errs = append(errs, fmt.Errorf("negative stock %d", *p.Stock))
	}
	if p.LastSeen.IsZero() {
		errs = append(errs, fmt.Errorf("product missing lastSeen"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validate %s: %w", p.URL, errors.Join(errs...))
	}
	return nil
}

func validatePrices(p *models.Product) error {
	if p.WholesalePrice == nil {
		if p.SalePrice != nil || p.RetailPrice != nil {
			return fmt.Errorf("sale/retail set without wholesale price")
		}
		return nil
	}

	w := *p.WholesalePrice
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return fmt.Errorf("invalid wholesale price %v", w)
	}
	want := DerivePrices(p.WholesalePrice)
	if p.SalePrice == nil || *p.SalePrice != *want.Sale {
		return fmt.Errorf("sale price %s inconsistent with wholesale %v (want %v)", formatPrice(p.SalePrice), w, *want.Sale)
	}
	if p.RetailPrice == nil || *p.RetailPrice != *want.Retail {
		return fmt.Errorf("retail price %s inconsistent with wholesale %v (want %v)", formatPrice(p.RetailPrice), w, *want.Retail)
	}
	return nil
}

func formatPrice(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", *v)
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
