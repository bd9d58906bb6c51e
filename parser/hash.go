package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

// ProductHash returns a stable hex digest of url and specText used to tell
// changed products apart on incremental runs.
func ProductHash(url, specText string) string {
	sum := sha256.Sum256([]byte(url + "|" + specText))
	return hex.EncodeToString(sum[:])
}

// SpecText renders details as sorted key=value lines.
func SpecText(d models.Details) string {
	fields := map[models.SpecKey]string{
		models.SpecContent:         d.Content,
		models.SpecWidth:           d.Width,
		models.SpecPatternRepeat:   d.PatternRepeat,
		models.SpecAbrasion:        d.Abrasion,
		models.SpecBacking:         d.Backing,
		models.SpecFireRating:      d.FireRating,
		models.SpecCountryOfOrigin: d.CountryOfOrigin,
		models.SpecCleaningCode:    d.CleaningCode,
		models.SpecRailroaded:      d.Railroaded,
		models.SpecUsage:           strings.Join(d.Usage, ","),
	}
	lines := make([]string, 0, len(fields))
	for key, value := range fields {
		if value != "" {
			lines = append(lines, string(key)+"="+value)
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
