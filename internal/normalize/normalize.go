// Package normalize turns a raw, free-text stream name into a NormalizedStream:
// mojibake repaired, accents folded, provider prefixes stripped, and date/
// time/league hints extracted so the classifier sees clean text.
package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Result is the normalizer's output — the Go equivalent of NormalizedStream.
type Result struct {
	Original       string
	Normalized     string
	ExtractedDate  *time.Time
	ExtractedTime  string
	LeagueHint     string
	ProviderPrefix string
}

// cityTranslations maps common non-English city/team spellings to the Latin
// form providers use, for the cases diacritic folding alone won't fix
// (transliteration, not just accent stripping).
// Keys are already diacritic-folded (ü→u, í→i) since applyCityTranslations
// runs after foldDiacritics in the pipeline.
var cityTranslations = map[string]string{
	"munchen":        "Munich",
	"koln":           "Cologne",
	"bayern munchen": "Bayern Munich",
	"athina":         "Athens",
	"moskva":         "Moscow",
	"praha":          "Prague",
}

// providerPrefixes are stripped from the front of a stream name before any
// further analysis. Matching is case-insensitive and prefix-anchored.
var providerPrefixes = []string{
	"espn+ : ", "espn+: ", "espn : ", "espn: ",
	"dazn 1 | ", "dazn 2 | ", "dazn | ",
	"bein sports | ", "bein sports: ",
	"fox sports | ", "fox sports: ",
	"sky sports | ", "sky sports: ",
	"nbc sports | ", "nbc sports: ",
	"fubo | ", "fubo: ",
	"peacock | ", "peacock: ",
}

// datePattern matches common embedded date forms: 10/15, 10-15-24, 2024-10-15.
var datePattern = regexp.MustCompile(`\b(\d{1,2}[/\-]\d{1,2}(?:[/\-]\d{2,4})?|\d{4}-\d{2}-\d{2})\b`)

// timePattern matches embedded clock times: 8:20 PM, 20:00, 7PM.
var timePattern = regexp.MustCompile(`(?i)\b(\d{1,2}(:\d{2})?\s*(am|pm)|\d{1,2}:\d{2})\b`)

// leagueHintPattern matches a trailing " | NFL" / " - NBA" style league tag.
var leagueHintPattern = regexp.MustCompile(`(?i)[|\-]\s*([A-Za-z0-9.]{2,10})\s*$`)

// placeholderNames are curated stream names known to carry no game content.
var placeholderNames = map[string]bool{
	"":                 true,
	"no event":         true,
	"no game today":    true,
	"off air":          true,
	"coming soon":      true,
	"to be announced":  true,
	"tba":              true,
	"placeholder":      true,
}

// IsPlaceholder reports whether normalized text matches the curated
// known-empty list. The classifier also short-circuits on "no separator and
// no hints", which it checks itself since it has the hint fields too.
func IsPlaceholder(normalized string) bool {
	return placeholderNames[strings.TrimSpace(strings.ToLower(normalized))]
}

// Normalize cleans a raw stream name and extracts hints.
func Normalize(raw string) Result {
	r := Result{Original: raw}

	text := repairMojibake(raw)
	text, prefix := stripProviderPrefix(text)
	r.ProviderPrefix = prefix

	text = foldDiacritics(text)
	text = applyCityTranslations(text)

	if m := datePattern.FindString(text); m != "" {
		if t, ok := parseLooseDate(m); ok {
			r.ExtractedDate = &t
		}
		text = datePattern.ReplaceAllString(text, " ")
	}
	if m := timePattern.FindString(text); m != "" {
		r.ExtractedTime = strings.ToUpper(strings.TrimSpace(m))
		text = timePattern.ReplaceAllString(text, " ")
	}
	if m := leagueHintPattern.FindStringSubmatch(text); len(m) == 2 {
		r.LeagueHint = strings.ToLower(m[1])
		text = leagueHintPattern.ReplaceAllString(text, "")
	}

	text = collapseWhitespace(text)
	r.Normalized = strings.TrimSpace(text)
	return r
}

// repairMojibake fixes the common double-UTF-8-encoding artifact where
// accented bytes were decoded as Latin-1 then re-encoded as UTF-8
// (e.g. "MÃ¼nchen" should read "München"). Only applied when the tell-tale
// "Ã" lead byte sequence is present, so ordinary ASCII text is untouched.
func repairMojibake(s string) string {
	if !strings.Contains(s, "Ã") {
		return s
	}
	// Round-trip: reinterpret each rune's low byte as Latin-1, then decode
	// the resulting byte string as UTF-8.
	bs := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s // not actually mojibake — bail out rather than corrupt
		}
		bs = append(bs, byte(r))
	}
	if repaired := string(bs); repaired != "" && !strings.Contains(repaired, "�") {
		return repaired
	}
	return s
}

// foldDiacritics strips combining accent marks via NFD decomposition, the
// same approach Python's unidecode achieves through a transliteration
// table — here we rely on Unicode normalization rather than a hand-rolled
// table, which covers the overwhelming majority of Latin-script accents.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func applyCityTranslations(s string) string {
	lower := strings.ToLower(s)
	for from, to := range cityTranslations {
		if strings.Contains(lower, from) {
			idx := strings.Index(lower, from)
			s = s[:idx] + to + s[idx+len(from):]
			lower = strings.ToLower(s)
		}
	}
	return s
}

func stripProviderPrefix(s string) (string, string) {
	lower := strings.ToLower(s)
	for _, p := range providerPrefixes {
		if strings.HasPrefix(lower, p) {
			return s[len(p):], strings.TrimSpace(strings.Trim(p, " :|"))
		}
	}
	return s, ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseLooseDate(s string) (time.Time, bool) {
	layouts := []string{"2006-01-02", "1/2/06", "1/2/2006", "1-2-06", "1-2-2006", "1/2"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
