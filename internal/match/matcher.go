package match

import (
	"context"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/classify"
	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/normalize"
)

// StreamMatcher is the single entry point GroupProcessor calls per stream:
// normalize, classify, check the cache, and fall through to whichever
// ladder (team-vs-team or event-card) the classification selected.
type StreamMatcher struct {
	Team    *TeamMatcher
	Event   *EventCardMatcher
	Cache   *StreamCache
	Leagues []model.League
}

// MatchStream resolves one raw stream against one group's configuration.
// prefetched, when non-nil, is consulted by the team ladder before any
// live provider call — see BuildPrefetch.
func (m *StreamMatcher) MatchStream(ctx context.Context, group model.EventEPGGroup, raw model.RawStream, targetDate time.Time, generation int64, prefetched map[string][]model.Event) (MatchOutcome, error) {
	norm := normalize.Normalize(raw.Name)
	cs := classify.Classify(raw, norm, m.Leagues, nil)

	if cs.Category == model.CategoryPlaceholder {
		return Filtered(FilteredUnclassifiable), nil
	}

	cached, hit, err := m.Cache.Lookup(ctx, raw.GroupID, raw.StreamID, raw.Name)
	if err != nil {
		return MatchOutcome{}, err
	}
	if hit {
		return cached, nil
	}

	var outcome MatchOutcome
	switch cs.Category {
	case model.CategoryTeamVsTeam:
		outcome, err = m.matchTeam(ctx, group, cs, targetDate, prefetched)
	case model.CategoryEventCard:
		outcome, err = m.matchEventCard(ctx, group, cs, targetDate)
	default:
		outcome = Filtered(FilteredUnclassifiable)
	}
	if err != nil {
		return MatchOutcome{}, err
	}

	eventDate := ""
	if outcome.Event != nil {
		eventDate = outcome.Event.StartTime.Format("2006-01-02")
	}
	if err := m.Cache.StorePut(ctx, raw.GroupID, raw.StreamID, raw.Name, generation, eventDate, outcome); err != nil {
		return MatchOutcome{}, err
	}
	return outcome, nil
}

func (m *StreamMatcher) matchTeam(ctx context.Context, group model.EventEPGGroup, cs model.ClassifiedStream, targetDate time.Time, prefetched map[string][]model.Event) (MatchOutcome, error) {
	if group.MultiLeague {
		return m.Team.MatchMultiLeague(ctx, cs, group.Leagues, targetDate, prefetched)
	}
	if len(group.Leagues) == 0 {
		return Filtered(FilteredLeagueNotEnabled), nil
	}
	league := group.Leagues[0]
	candidates, err := m.Team.candidates(ctx, league, targetDate, prefetched)
	if err != nil {
		return MatchOutcome{}, err
	}
	return m.Team.rankCandidates(cs, league, targetDate, candidates), nil
}

func (m *StreamMatcher) matchEventCard(ctx context.Context, group model.EventEPGGroup, cs model.ClassifiedStream, targetDate time.Time) (MatchOutcome, error) {
	league := ""
	if len(group.Leagues) > 0 {
		league = group.Leagues[0]
	}
	if cs.LeagueHint != nil && *cs.LeagueHint != "" {
		league = *cs.LeagueHint
	}
	if league == "" {
		return Filtered(FilteredLeagueNotEnabled), nil
	}
	return m.Event.Match(ctx, cs, league, targetDate)
}

// Included is the inclusion gate: a matched stream is rendered into output
// only when its detected league is one of the group's include_leagues, and
// it is either still upcoming or the group explicitly wants final events.
func Included(outcome MatchOutcome, group model.EventEPGGroup) bool {
	if !outcome.IsMatched() {
		return false
	}
	if !leagueIncluded(group.IncludeLeagues, outcome.DetectedLeague) {
		return false
	}
	if outcome.Event != nil && outcome.Event.IsFinal() && !group.IncludeFinal {
		return false
	}
	return true
}

func leagueIncluded(includeLeagues []string, league string) bool {
	if len(includeLeagues) == 0 {
		return true
	}
	for _, l := range includeLeagues {
		if l == league {
			return true
		}
	}
	return false
}

// BuildPrefetch fetches every (league, day) combination in [from, to] once
// up front, so a group's per-stream matching never repeats a provider call
// for a day/league pair another stream in the same group (or another group
// sharing a league) already needed.
func BuildPrefetch(ctx context.Context, fetcher EventFetcher, leagues []string, from, to time.Time) (map[string][]model.Event, error) {
	out := make(map[string][]model.Event)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for _, league := range leagues {
			events, err := fetcher.GetEvents(ctx, league, d)
			if err != nil {
				return nil, err
			}
			out[PrefetchKey(league, d)] = events
		}
	}
	return out, nil
}
