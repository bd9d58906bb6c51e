package parser

import (
	"strings"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

// specKeys maps lower-cased on-page labels to canonical keys. The table is
// intentionally partial; unknown labels are ignored by callers.
var specKeys = map[string]models.SpecKey{
	"content":           models.SpecContent,
	"fiber":             models.SpecContent,
	"composition":       models.SpecContent,
	"width":             models.SpecWidth,
	"width (inches)":    models.SpecWidth,
	"pattern repeat":    models.SpecPatternRepeat,
	"pattern":           models.SpecPatternRepeat,
	"abrasion":          models.SpecAbrasion,
	"rubs":              models.SpecAbrasion,
	"backing":           models.SpecBacking,
	"back":              models.SpecBacking,
	"fire rating":       models.SpecFireRating,
	"rating":            models.SpecFireRating,
	"country of origin": models.SpecCountryOfOrigin,
	"origin":            models.SpecCountryOfOrigin,
	"cleaning code":     models.SpecCleaningCode,
	"clean":             models.SpecCleaningCode,
	"railroaded":        models.SpecRailroaded,
	"usage":             models.SpecUsage,
}

// NormalizeSpecKey maps a raw label to its canonical key. The lookup is
// case-insensitive on the trimmed label; a trailing colon is ignored.
func NormalizeSpecKey(raw string) (models.SpecKey, bool) {
	label := strings.ToLower(NormalizeSpace(raw))
	label = strings.TrimSpace(strings.TrimSuffix(label, ":"))
	key, ok := specKeys[label]
	return key, ok
}
