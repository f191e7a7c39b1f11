package provider

import (
	"sort"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// StaticLeagueMappings is an in-memory LeagueMappingSource seeded once at
// startup — the same "load every mapping into memory so no provider call
// ever touches a lookup table again" design its database-backed
// counterpart uses, simplified to a built-in table rather than a leagues
// schema, since no part of this system otherwise needs leagues to be
// user-editable at runtime. Safe for concurrent use: the map is built once
// and never mutated afterward.
type StaticLeagueMappings struct {
	byLeague map[string]LeagueMapping
}

// NewStaticLeagueMappings builds a mapping source from a fixed table of
// canonical league code -> TheSportsDB identifiers.
func NewStaticLeagueMappings(entries map[string]LeagueMapping) *StaticLeagueMappings {
	m := &StaticLeagueMappings{byLeague: make(map[string]LeagueMapping, len(entries))}
	for league, mapping := range entries {
		m.byLeague[league] = mapping
	}
	return m
}

// DefaultTSDBLeagueMappings is the built-in league table for TheSportsDB's
// free-tier league IDs, covering the major US leagues plus combat sports.
func DefaultTSDBLeagueMappings() *StaticLeagueMappings {
	return NewStaticLeagueMappings(map[string]LeagueMapping{
		"nfl":  {ProviderLeagueID: "4391", ProviderLeagueName: "NFL", Sport: "American Football"},
		"nba":  {ProviderLeagueID: "4387", ProviderLeagueName: "NBA", Sport: "Basketball"},
		"nhl":  {ProviderLeagueID: "4380", ProviderLeagueName: "NHL", Sport: "Ice Hockey"},
		"mlb":  {ProviderLeagueID: "4424", ProviderLeagueName: "MLB", Sport: "Baseball"},
		"mls":  {ProviderLeagueID: "4346", ProviderLeagueName: "American Major League Soccer", Sport: "Soccer"},
		"epl":  {ProviderLeagueID: "4328", ProviderLeagueName: "English Premier League", Sport: "Soccer"},
		"ufc":  {ProviderLeagueID: "4443", ProviderLeagueName: "UFC", Sport: "Fighting"},
		"pfl":  {ProviderLeagueID: "5516", ProviderLeagueName: "Professional Fighters League", Sport: "Fighting"},
		"ncaaf": {ProviderLeagueID: "4409", ProviderLeagueName: "NCAA Football", Sport: "American Football"},
		"ncaab": {ProviderLeagueID: "4607", ProviderLeagueName: "NCAA Basketball", Sport: "Basketball"},
	})
}

// Mapping resolves a canonical league code, case-sensitively (callers are
// expected to pass the lowercase code stored in event_epg_groups.leagues).
func (m *StaticLeagueMappings) Mapping(league string) (LeagueMapping, bool) {
	mapping, ok := m.byLeague[league]
	return mapping, ok
}

// SupportedLeagues returns every configured league code, sorted for
// deterministic output.
func (m *StaticLeagueMappings) SupportedLeagues() []string {
	out := make([]string, 0, len(m.byLeague))
	for league := range m.byLeague {
		out = append(out, league)
	}
	sort.Strings(out)
	return out
}

// Leagues builds the model.League catalogue match.StreamMatcher classifies
// streams against, derived from the same table Mapping reads: combat-sports
// leagues ("Fighting") classify as event-card content, everything else as
// team-vs-team.
func (m *StaticLeagueMappings) Leagues() []model.League {
	leagues := make([]model.League, 0, len(m.byLeague))
	for code, mapping := range m.byLeague {
		eventType := model.CategoryTeamVsTeam
		if mapping.Sport == "Fighting" {
			eventType = model.CategoryEventCard
		}
		leagues = append(leagues, model.League{
			ID:        code,
			Name:      mapping.ProviderLeagueName,
			Provider:  "tsdb",
			EventType: string(eventType),
			Active:    true,
		})
	}
	sort.Slice(leagues, func(i, j int) bool { return leagues[i].ID < leagues[j].ID })
	return leagues
}
