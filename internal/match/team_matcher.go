package match

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// fuzzyAcceptThreshold is the minimum FuzzyRatio for a fallback team match
// to be accepted when no alias hits.
const fuzzyAcceptThreshold = 0.72

// EventFetcher returns events for one league on one calendar date. Both the
// single-league and multi-league matchers are built on top of it; the
// multi-league path and StreamMatcher's single-league path additionally
// consult a prefetch map before calling through.
type EventFetcher interface {
	GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error)
}

// TeamDirectory resolves the roster a league's matcher compares parsed team
// names against.
type TeamDirectory interface {
	TeamsForLeague(league string) []model.Team
}

// TeamMatcher implements the team-vs-team matching ladder.
type TeamMatcher struct {
	Events          EventFetcher
	Teams           TeamDirectory
	UserTZ          *time.Location
	SportDurations  map[string]float64 // league -> typical game length in hours
	IncludeFinal    bool
}

// defaultDuration is used for leagues with no configured sport duration.
const defaultDuration = 3.0

func (m *TeamMatcher) duration(league string) time.Duration {
	hours := defaultDuration
	if h, ok := m.SportDurations[league]; ok {
		hours = h
	}
	return time.Duration(hours * float64(time.Hour))
}

// MatchSingleLeague runs the full ladder against one league's candidates.
func (m *TeamMatcher) MatchSingleLeague(ctx context.Context, cs model.ClassifiedStream, league string, targetDate time.Time) (MatchOutcome, error) {
	candidates, err := m.candidates(ctx, league, targetDate, nil)
	if err != nil {
		return MatchOutcome{}, err
	}
	return m.rankCandidates(cs, league, targetDate, candidates), nil
}

// MatchMultiLeague narrows the search to a stream's detected league hint
// when present, otherwise searches every configured league and keeps the
// best result. prefetched is consulted before any live fetch.
func (m *TeamMatcher) MatchMultiLeague(ctx context.Context, cs model.ClassifiedStream, leagues []string, targetDate time.Time, prefetched map[string][]model.Event) (MatchOutcome, error) {
	searchLeagues := leagues
	if cs.LeagueHint != nil && *cs.LeagueHint != "" {
		hint := *cs.LeagueHint
		found := false
		for _, l := range leagues {
			if strings.EqualFold(l, hint) {
				found = true
				break
			}
		}
		if !found {
			return Filtered(FilteredLeagueNotEnabled), nil
		}
		searchLeagues = []string{hint}
	}

	best := Failed(FailedNoEventOnDate)
	for _, league := range searchLeagues {
		candidates, err := m.candidates(ctx, league, targetDate, prefetched)
		if err != nil {
			return MatchOutcome{}, err
		}
		outcome := m.rankCandidates(cs, league, targetDate, candidates)
		if outcome.IsMatched() && (!best.IsMatched() || outcome.Confidence > best.Confidence) {
			best = outcome
		}
	}
	return best, nil
}

// candidates assembles the event pool for (league, targetDate): events on
// targetDate plus non-final events from targetDate-1 whose estimated end
// (start + sport duration) is still in the future.
func (m *TeamMatcher) candidates(ctx context.Context, league string, targetDate time.Time, prefetched map[string][]model.Event) ([]model.Event, error) {
	today, err := m.fetch(ctx, league, targetDate, prefetched)
	if err != nil {
		return nil, err
	}
	yesterday, err := m.fetch(ctx, league, targetDate.AddDate(0, 0, -1), prefetched)
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(today)+len(yesterday))
	out = append(out, today...)
	now := time.Now()
	for _, e := range yesterday {
		if e.IsFinal() {
			continue
		}
		estEnd := e.StartTime.Add(m.duration(league))
		if estEnd.After(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *TeamMatcher) fetch(ctx context.Context, league string, date time.Time, prefetched map[string][]model.Event) ([]model.Event, error) {
	if prefetched != nil {
		if events, ok := prefetched[prefetchKey(league, date)]; ok {
			return events, nil
		}
	}
	if m.Events == nil {
		return nil, nil
	}
	return m.Events.GetEvents(ctx, league, date)
}

// prefetchKey builds the prefetch map key; PrefetchKey below exports it so
// callers building the prefetch map (BuildPrefetch) key it identically.
func prefetchKey(league string, date time.Time) string {
	return league + "|" + date.Format("2006-01-02")
}

// PrefetchKey is the exported form of prefetchKey for package match's
// callers assembling a shared events map.
func PrefetchKey(league string, date time.Time) string { return prefetchKey(league, date) }

func (m *TeamMatcher) rankCandidates(cs model.ClassifiedStream, league string, targetDate time.Time, candidates []model.Event) MatchOutcome {
	if len(candidates) == 0 {
		return Failed(FailedNoEventOnDate)
	}

	type scored struct {
		event      model.Event
		method     model.MatchMethod
		confidence float64
	}
	var results []scored
	var lastReason FailedReason = FailedNoEventOnDate

	teams := m.Teams.TeamsForLeague(league)
	for _, ev := range candidates {
		if cs.ExtractedDate != nil {
			loc := m.tz()
			if !sameDate(cs.ExtractedDate.In(loc), ev.StartTime.In(loc)) {
				lastReason = FailedDateMismatch
				continue
			}
		}

		homeTeam := lookupTeam(teams, ev.HomeTeam)
		awayTeam := lookupTeam(teams, ev.AwayTeam)

		m1Home, c1Home, ok1Home := matchTeamName(cs.ParsedTeam1, ev.HomeTeam, homeTeam)
		m1Away, c1Away, ok1Away := matchTeamName(cs.ParsedTeam1, ev.AwayTeam, awayTeam)
		m2Home, c2Home, ok2Home := matchTeamName(cs.ParsedTeam2, ev.HomeTeam, homeTeam)
		m2Away, c2Away, ok2Away := matchTeamName(cs.ParsedTeam2, ev.AwayTeam, awayTeam)

		// Orientation A: team1->home, team2->away. Orientation B: reversed.
		var method model.MatchMethod
		var conf float64
		matched := false

		if ok1Home && ok2Away {
			method, conf = worseMethod(m1Home, m2Away), math.Min(c1Home, c2Away)
			matched = true
		} else if ok1Away && ok2Home {
			method, conf = worseMethod(m1Away, m2Home), math.Min(c1Away, c2Home)
			matched = true
		}

		if !matched {
			if !ok1Home && !ok1Away {
				lastReason = FailedTeam1NotFound
			} else {
				lastReason = FailedTeam2NotFound
			}
			continue
		}

		results = append(results, scored{event: ev, method: method, confidence: conf})
	}

	if len(results) == 0 {
		return Failed(lastReason)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.confidence > best.confidence {
			best = r
			continue
		}
		if r.confidence == best.confidence {
			if timeHintCloser(cs.ExtractedTime, r.event.StartTime, best.event.StartTime, m.tz()) {
				best = r
			}
		}
	}

	ev := best.event
	return Matched(&ev, league, best.method, best.confidence)
}

func (m *TeamMatcher) tz() *time.Location {
	if m.UserTZ != nil {
		return m.UserTZ
	}
	return time.UTC
}

func sameDate(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}

func lookupTeam(teams []model.Team, name string) *model.Team {
	for i := range teams {
		if strings.EqualFold(teams[i].Name, name) {
			return &teams[i]
		}
	}
	return nil
}

// matchTeamName tries the alias table first, then fuzzy ratio against the
// team's name/short name/abbreviation/city/aliases.
func matchTeamName(parsed, canonicalName string, team *model.Team) (model.MatchMethod, float64, bool) {
	if parsed == "" {
		return model.MethodNone, 0, false
	}
	candidates := []string{canonicalName}
	if team != nil {
		candidates = append(candidates, team.Name, team.ShortName, team.Abbreviation, team.City)
		candidates = append(candidates, team.Aliases...)
	}

	lowerParsed := strings.ToLower(strings.TrimSpace(parsed))
	for _, c := range candidates {
		if c != "" && strings.EqualFold(lowerParsed, strings.TrimSpace(c)) {
			return model.MethodAlias, 1.0, true
		}
	}

	ratio := BestRatio(parsed, candidates)
	if ratio >= fuzzyAcceptThreshold {
		return model.MethodFuzzy, ratio, true
	}
	return model.MethodNone, ratio, false
}

func worseMethod(a, b model.MatchMethod) model.MatchMethod {
	if a == model.MethodFuzzy || b == model.MethodFuzzy {
		return model.MethodFuzzy
	}
	return model.MethodAlias
}

// timeHintCloser reports whether candidate b's start time is closer to the
// stream's extracted time hint than candidate a's — the doubleheader
// disambiguation rule.
func timeHintCloser(hint *string, bStart, aStart time.Time, tz *time.Location) bool {
	if hint == nil || *hint == "" {
		return false
	}
	target, ok := parseClockHint(*hint, aStart.In(tz))
	if !ok {
		return false
	}
	return absDuration(bStart.In(tz).Sub(target)) < absDuration(aStart.In(tz).Sub(target))
}

func parseClockHint(hint string, sameDay time.Time) (time.Time, bool) {
	hint = strings.ToUpper(strings.TrimSpace(hint))
	for _, layout := range []string{"3:04 PM", "3 PM", "15:04"} {
		if t, err := time.Parse(layout, hint); err == nil {
			return time.Date(sameDay.Year(), sameDay.Month(), sameDay.Day(), t.Hour(), t.Minute(), 0, 0, sameDay.Location()), true
		}
	}
	return time.Time{}, false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
