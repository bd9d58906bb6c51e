package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	skuLabel     = regexp.MustCompile(`(?i)^sku\s*:?\s*`)
	priceToken   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	thumbSuffix  = regexp.MustCompile(`(?i)-(?:scaled|thumb|small)([-_.])`)
	sizeSuffix   = regexp.MustCompile(`-\d+x\d+(\.[A-Za-z0-9]+)$`)
	imageExt     = regexp.MustCompile(`(?i)\.(?:jpe?g|png|webp)(?:$|\?)`)
	warehouseQty = regexp.MustCompile(`(?i)(\d[\d,]*)\s*yards?\s*\((NJ|CA)\)`)
)

// NormalizeSpace trims s and collapses inner whitespace runs to one space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripSKULabel removes a leading "SKU:" label, case-insensitively.
func StripSKULabel(text string) string {
	return strings.TrimSpace(skuLabel.ReplaceAllString(strings.TrimSpace(text), ""))
}

// ParsePrice reads the first numeric token of text as a decimal, commas
// stripped. It returns nil when text holds no number.
func ParsePrice(text string) *float64 {
	token := priceToken.FindString(text)
	if token == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &value
}

// IsImageURL reports whether src points at a jpg, png or webp file.
func IsImageURL(src string) bool {
	return imageExt.MatchString(src)
}

// CleanImageURL recovers the canonical upload URL from a thumbnail src by
// dropping the query string and the known size suffixes.
func CleanImageURL(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	src = thumbSuffix.ReplaceAllString(src, "$1")
	return sizeSuffix.ReplaceAllString(src, "$1")
}

// AbsoluteURL resolves href against base. It returns "" when either fails
// to parse or the result is not http(s).
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// StripFragment drops the #fragment of a URL.
func StripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// ParseStock sums per-warehouse yard counts such as "120 Yards (NJ)" and
// "35 Yards (CA)". The second result is false when no count was found.
func ParseStock(text string) (int, bool) {
	matches := warehouseQty.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	seen := make(map[string]bool, 2)
	total := 0
	for _, m := range matches {
		warehouse := strings.ToUpper(m[2])
		if seen[warehouse] {
			continue
		}
		qty, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		seen[warehouse] = true
		total += qty
	}
	return total, len(seen) > 0
}
