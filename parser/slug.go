package parser

import (
	"regexp"
	"strings"
)

var (
	nonSlug    = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
)

const maxHandleLen = 255

// GenerateHandle builds a Shopify handle from title and optional color.
func GenerateHandle(title, color string) string {
	handle := slugify(title)
	if c := slugify(color); c != "" {
		handle += "-" + c
	}
	if len(handle) > maxHandleLen {
		handle = handle[:maxHandleLen]
	}
	return handle
}

func slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
	return whitespace.ReplaceAllString(s, "-")
}
