// Package classify assigns a normalized stream to one of three categories —
// PLACEHOLDER, TEAM_VS_TEAM, or EVENT_CARD — and extracts the team pair or
// event hint the matchers need.
package classify

import (
	"regexp"
	"strings"

	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/normalize"
)

// separators are scanned in priority order; the first match wins. " - " is
// last and padded with spaces so it doesn't fire on hyphenated team names
// like "Paris Saint-Germain", nor on score strings like "2-1".
var separators = []struct {
	token string
	regex *regexp.Regexp
}{
	{"vs", regexp.MustCompile(`(?i)\bvs\.?\b`)},
	{"v", regexp.MustCompile(`(?i)\bv\b`)},
	{"@", regexp.MustCompile(`@`)},
	{"at", regexp.MustCompile(`(?i)\bat\b`)},
	{"-", regexp.MustCompile(` - `)},
}

// eventCardKeywords are substrings that mark a stream as a combat-sports
// card broadcast rather than a team-vs-team game, along with the segment
// they imply. Checked in order, so "early prelims" wins over "prelims".
var eventCardKeywords = []struct {
	keyword string
	segment string
}{
	{"early prelims", "early_prelims"},
	{"prelims", "prelims"},
	{"main card", "main_card"},
	{"ppv", "main_card"},
}

// CustomRegexConfig lets a group override any built-in pattern. When a
// pattern is Enabled, it is tried before the corresponding built-in logic;
// named capture groups "team1"/"team2" take priority over numbered groups
// 1 and 2.
type CustomRegexConfig struct {
	Teams      CustomPattern
	Date       CustomPattern
	Time       CustomPattern
	League     CustomPattern
	Fighters   CustomPattern
	EventName  CustomPattern
}

// CustomPattern is one optional override slot.
type CustomPattern struct {
	Enabled bool
	Pattern *regexp.Regexp
}

// Classify turns a normalizer Result into a model.ClassifiedStream.
func Classify(raw model.RawStream, norm normalize.Result, leagues []model.League, cfg *CustomRegexConfig) model.ClassifiedStream {
	cs := model.ClassifiedStream{
		RawStream:      raw,
		Normalized:     norm.Normalized,
		ExtractedDate:  norm.ExtractedDate,
		LeagueHint:     strPtrOrNil(norm.LeagueHint),
		ProviderPrefix: strPtrOrNil(norm.ProviderPrefix),
	}
	if norm.ExtractedTime != "" {
		t := norm.ExtractedTime
		cs.ExtractedTime = &t
	}

	if cfg != nil && cfg.Teams.Enabled && cfg.Teams.Pattern != nil {
		if t1, t2, ok := matchCustomTeams(cfg.Teams.Pattern, norm.Normalized); ok {
			cs.Category = model.CategoryTeamVsTeam
			cs.ParsedTeam1, cs.ParsedTeam2 = t1, t2
			return cs
		}
	}

	if normalize.IsPlaceholder(norm.Normalized) {
		cs.Category = model.CategoryPlaceholder
		return cs
	}

	if dominantEventType(leagues) == "event_card" || containsEventCardKeyword(norm.Normalized) {
		cs.Category = model.CategoryEventCard
		cs.EventHint = norm.Normalized
		return cs
	}

	if t1, t2, ok := splitOnSeparator(norm.Normalized); ok {
		cs.Category = model.CategoryTeamVsTeam
		cs.ParsedTeam1, cs.ParsedTeam2 = t1, t2
		return cs
	}

	if norm.LeagueHint == "" && norm.Normalized != "" {
		// No separator, no league hint, no custom-regex hit: not a game.
		cs.Category = model.CategoryPlaceholder
		return cs
	}

	// A league hint with no separator still isn't a parseable game — treat
	// as placeholder rather than guessing a team split.
	cs.Category = model.CategoryPlaceholder
	return cs
}

// CardSegment returns the combat-sports segment implied by keyword
// substrings in the stream name, defaulting to "combined" when no keyword
// is present (the matcher treats "combined" as "main_card").
func CardSegment(normalized string) string {
	lower := strings.ToLower(normalized)
	for _, kw := range eventCardKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.segment
		}
	}
	return "combined"
}

func containsEventCardKeyword(normalized string) bool {
	lower := strings.ToLower(normalized)
	for _, kw := range eventCardKeywords {
		if strings.Contains(lower, kw.keyword) {
			return true
		}
	}
	return false
}

// dominantEventType returns the majority event_type among the given
// leagues' configured provider mapping ("team_vs_team" or "event_card").
func dominantEventType(leagues []model.League) string {
	counts := map[string]int{}
	for _, l := range leagues {
		if l.EventType != "" {
			counts[l.EventType]++
		}
	}
	best, bestN := "", 0
	for t, n := range counts {
		if n > bestN {
			best, bestN = t, n
		}
	}
	return best
}

func splitOnSeparator(normalized string) (string, string, bool) {
	for _, sep := range separators {
		loc := sep.regex.FindStringIndex(normalized)
		if loc == nil {
			continue
		}
		left := strings.TrimSpace(normalized[:loc[0]])
		right := strings.TrimSpace(normalized[loc[1]:])
		if left == "" || right == "" {
			continue
		}
		return left, right, true
	}
	return "", "", false
}

func matchCustomTeams(pattern *regexp.Regexp, text string) (string, string, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	names := pattern.SubexpNames()
	var t1, t2 string
	for i, name := range names {
		switch name {
		case "team1":
			t1 = m[i]
		case "team2":
			t2 = m[i]
		}
	}
	if t1 == "" && len(m) > 1 {
		t1 = m[1]
	}
	if t2 == "" && len(m) > 2 {
		t2 = m[2]
	}
	if t1 == "" || t2 == "" {
		return "", "", false
	}
	return strings.TrimSpace(t1), strings.TrimSpace(t2), true
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
