package order

import (
	"regexp"
	"strings"
)

// Legacy regex-driven name resolution, used when no alias table is
// configured. The alias-table Normalizer is the canonical mode; this covers
// only the handful of spelling variants that actually show up on order
// forms.
var (
	chingensaiPattern = regexp.MustCompile(`チンゲン菜|チンゲンサイ|青梗菜`)
	shungikuPattern   = regexp.MustCompile(`春菊|シュンギク|しゅんぎく`)
	cucumberPattern   = regexp.MustCompile(`胡瓜|きゅうり|キュウリ`)
	negiPattern       = regexp.MustCompile(`長ネギ|長ねぎ|ネギ`)

	loosePattern   = regexp.MustCompile(`バラ|ばら`)
	threePkPattern = regexp.MustCompile(`3本`)
)

// FallbackNormalize resolves known spelling variants to canonical item
// names without an alias table. The cucumber family splits into the packed
// and loose sub-variants on the presence of a loose marker; an ambiguous
// cucumber defaults to loose. Unrecognized text is returned trimmed but
// otherwise as-is.
func FallbackNormalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	switch {
	case chingensaiPattern.MatchString(raw):
		return "青梗菜"
	case shungikuPattern.MatchString(raw):
		return "春菊"
	case cucumberPattern.MatchString(raw):
		if threePkPattern.MatchString(raw) && !loosePattern.MatchString(raw) {
			return "胡瓜(3本P)"
		}
		return "胡瓜(バラ)"
	case negiPattern.MatchString(raw):
		return "長ネギ(2本P)"
	}

	return raw
}

// MatchItem reports whether text mentions one of the known produce items,
// returning the canonical name. Used by the OCR line parser to tell item
// lines apart from store-name lines.
func MatchItem(text string) (string, bool) {
	switch {
	case chingensaiPattern.MatchString(text),
		shungikuPattern.MatchString(text),
		cucumberPattern.MatchString(text),
		negiPattern.MatchString(text):
		return FallbackNormalize(text), true
	}
	return "", false
}
