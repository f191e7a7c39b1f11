package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

type fakeEventFetcher struct {
	byKey map[string][]model.Event
}

func (f *fakeEventFetcher) GetEvents(_ context.Context, league string, date time.Time) ([]model.Event, error) {
	return f.byKey[PrefetchKey(league, date)], nil
}

type fakeTeamDirectory struct {
	byLeague map[string][]model.Team
}

func (f *fakeTeamDirectory) TeamsForLeague(league string) []model.Team {
	return f.byLeague[league]
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return parsed.UTC()
}

func TestTeamMatcher_AliasMatchBothOrientations(t *testing.T) {
	target := day(t, "2026-09-14 13:00")
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("nfl", target): {
			{ID: "evt-1", League: "nfl", HomeTeam: "Detroit Lions", AwayTeam: "Tampa Bay Buccaneers", StartTime: target},
		},
	}}
	teams := &fakeTeamDirectory{byLeague: map[string][]model.Team{
		"nfl": {
			{Name: "Detroit Lions", Aliases: []string{"Lions"}},
			{Name: "Tampa Bay Buccaneers", Aliases: []string{"Buccaneers", "Bucs"}},
		},
	}}
	m := &TeamMatcher{Events: events, Teams: teams, SportDurations: map[string]float64{"nfl": 3.2}}

	cs := model.ClassifiedStream{ParsedTeam1: "Tampa Bay Buccaneers", ParsedTeam2: "Detroit Lions"}
	outcome, err := m.MatchSingleLeague(context.Background(), cs, "nfl", target)
	require.NoError(t, err)
	require.True(t, outcome.IsMatched())
	assert.Equal(t, "evt-1", outcome.Event.ID)
	assert.Equal(t, model.MethodAlias, outcome.Method)
	assert.Equal(t, 1.0, outcome.Confidence)
}

func TestTeamMatcher_Team1NotFoundFails(t *testing.T) {
	target := day(t, "2026-09-14 13:00")
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("nfl", target): {
			{ID: "evt-1", League: "nfl", HomeTeam: "Detroit Lions", AwayTeam: "Chicago Bears", StartTime: target},
		},
	}}
	teams := &fakeTeamDirectory{byLeague: map[string][]model.Team{
		"nfl": {{Name: "Detroit Lions"}, {Name: "Chicago Bears"}},
	}}
	m := &TeamMatcher{Events: events, Teams: teams}

	cs := model.ClassifiedStream{ParsedTeam1: "Seattle Seahawks", ParsedTeam2: "Chicago Bears"}
	outcome, err := m.MatchSingleLeague(context.Background(), cs, "nfl", target)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, FailedTeam1NotFound, outcome.FailedReason)
}

func TestTeamMatcher_YesterdayCandidateExcludedWhenFinal(t *testing.T) {
	target := day(t, "2026-09-14 08:00")
	yesterday := target.AddDate(0, 0, -1)
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("nfl", target):    {},
		PrefetchKey("nfl", yesterday): {{ID: "evt-old", League: "nfl", HomeTeam: "Detroit Lions", AwayTeam: "Chicago Bears", StartTime: yesterday, Status: "final"}},
	}}
	teams := &fakeTeamDirectory{byLeague: map[string][]model.Team{
		"nfl": {{Name: "Detroit Lions"}, {Name: "Chicago Bears"}},
	}}
	m := &TeamMatcher{Events: events, Teams: teams}

	cs := model.ClassifiedStream{ParsedTeam1: "Detroit Lions", ParsedTeam2: "Chicago Bears"}
	outcome, err := m.MatchSingleLeague(context.Background(), cs, "nfl", target)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, FailedNoEventOnDate, outcome.FailedReason)
}

func TestTeamMatcher_MultiLeagueHonorsLeagueHint(t *testing.T) {
	target := day(t, "2026-09-14 13:00")
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("nba", target): {{ID: "evt-nba", League: "nba", HomeTeam: "Lakers", AwayTeam: "Celtics", StartTime: target}},
	}}
	teams := &fakeTeamDirectory{byLeague: map[string][]model.Team{
		"nba": {{Name: "Lakers"}, {Name: "Celtics"}},
		"nfl": {{Name: "Lions"}, {Name: "Bears"}},
	}}
	m := &TeamMatcher{Events: events, Teams: teams}

	hint := "nba"
	cs := model.ClassifiedStream{ParsedTeam1: "Lakers", ParsedTeam2: "Celtics", LeagueHint: &hint}
	outcome, err := m.MatchMultiLeague(context.Background(), cs, []string{"nfl", "nba"}, target, nil)
	require.NoError(t, err)
	require.True(t, outcome.IsMatched())
	assert.Equal(t, "nba", outcome.DetectedLeague)
}

func TestTeamMatcher_MultiLeagueHintNotEnabledIsFiltered(t *testing.T) {
	m := &TeamMatcher{Events: &fakeEventFetcher{}, Teams: &fakeTeamDirectory{}}
	hint := "mlb"
	cs := model.ClassifiedStream{ParsedTeam1: "A", ParsedTeam2: "B", LeagueHint: &hint}
	outcome, err := m.MatchMultiLeague(context.Background(), cs, []string{"nfl", "nba"}, day(t, "2026-09-14 13:00"), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, outcome.Kind)
	assert.Equal(t, FilteredLeagueNotEnabled, outcome.FilteredReason)
}
