package provider

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

type fakeRosterSource struct {
	byLeague map[string][]model.Team
	failFor  map[string]bool
	calls    int32
}

func (f *fakeRosterSource) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failFor[league] {
		return nil, assert.AnError
	}
	return f.byLeague[league], nil
}

func TestTeamCache_RefreshPopulatesBothLookups(t *testing.T) {
	src := &fakeRosterSource{byLeague: map[string][]model.Team{
		"nfl": {{ID: "chi", Name: "Bears"}, {ID: "gb", Name: "Packers"}},
		"nba": {{ID: "lal", Name: "Lakers"}},
	}}
	cache := NewTeamCache(src)

	err := cache.Refresh(context.Background(), []string{"nfl", "nba"})
	require.NoError(t, err)

	assert.Len(t, cache.TeamsForLeague("nfl"), 2)
	team, ok := cache.Team("nfl", "chi")
	require.True(t, ok)
	assert.Equal(t, "Bears", team.Name)

	_, ok = cache.Team("nba", "bos")
	assert.False(t, ok)
}

func TestTeamCache_TeamsForLeague_UnknownLeagueReturnsNil(t *testing.T) {
	cache := NewTeamCache(&fakeRosterSource{})
	assert.Nil(t, cache.TeamsForLeague("xfl"))
}

func TestTeamCache_Refresh_OneLeagueFailingDoesNotBlankOthers(t *testing.T) {
	src := &fakeRosterSource{
		byLeague: map[string][]model.Team{"nfl": {{ID: "chi", Name: "Bears"}}},
		failFor:  map[string]bool{"nhl": true},
	}
	cache := NewTeamCache(src)

	err := cache.Refresh(context.Background(), []string{"nfl", "nhl"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nhl")

	assert.Len(t, cache.TeamsForLeague("nfl"), 1)
	assert.Nil(t, cache.TeamsForLeague("nhl"))
}

func TestTeamCache_Refresh_CallsEveryLeagueExactlyOnce(t *testing.T) {
	src := &fakeRosterSource{byLeague: map[string][]model.Team{
		"nfl": {}, "nba": {}, "nhl": {}, "mlb": {},
	}}
	cache := NewTeamCache(src)

	require.NoError(t, cache.Refresh(context.Background(), []string{"nfl", "nba", "nhl", "mlb"}))
	assert.EqualValues(t, 4, src.calls)
}
