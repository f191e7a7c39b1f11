package provider

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// maxRosterWorkers bounds how many leagues are fetched concurrently during
// a Refresh — the same ceiling the reference cache refresher puts on its
// thread pool when pulling every provider's roster.
const maxRosterWorkers = 50

// RosterSource resolves one league's full roster. *Registry satisfies this
// directly.
type RosterSource interface {
	GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error)
}

// TeamCache is a build-once, read-many roster cache: Refresh fetches every
// configured league's teams concurrently and atomically swaps them in, so
// match.TeamMatcher and groups.Processor's synchronous, no-context lookups
// (TeamsForLeague, Team) never make a provider call on the hot matching
// path. Safe for concurrent use.
type TeamCache struct {
	source RosterSource

	mu       sync.RWMutex
	byLeague map[string][]model.Team
	byID     map[string]map[string]model.Team
}

func NewTeamCache(source RosterSource) *TeamCache {
	return &TeamCache{source: source}
}

// leagueFetch is one league's refresh outcome, collected into a fixed-size
// slice so no lock is held while providers are still being called.
type leagueFetch struct {
	league string
	teams  []model.Team
}

// Refresh fetches every league's roster, up to maxRosterWorkers at a time.
// A single league's failure is recorded in the returned error (joined with
// "; ", one entry per league) but never stops the rest — one dead provider shouldn't
// blank out every other league's cache.
func (c *TeamCache) Refresh(ctx context.Context, leagues []string) error {
	results := make([]leagueFetch, len(leagues))

	var mu sync.Mutex
	var errs []error

	g := new(errgroup.Group)
	g.SetLimit(maxRosterWorkers)
	for i, league := range leagues {
		i, league := i, league
		g.Go(func() error {
			teams, err := c.source.GetLeagueTeams(ctx, league)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("league %s: %w", league, err))
				mu.Unlock()
				return nil
			}
			results[i] = leagueFetch{league: league, teams: teams}
			return nil
		})
	}
	_ = g.Wait() // Go bodies above never return a non-nil error; nothing to propagate here

	byLeague := make(map[string][]model.Team, len(leagues))
	byID := make(map[string]map[string]model.Team, len(leagues))
	for _, r := range results {
		if r.league == "" {
			continue
		}
		byLeague[r.league] = r.teams
		ids := make(map[string]model.Team, len(r.teams))
		for _, t := range r.teams {
			ids[t.ID] = t
		}
		byID[r.league] = ids
	}

	c.mu.Lock()
	c.byLeague = byLeague
	c.byID = byID
	c.mu.Unlock()

	if len(errs) == 0 {
		return nil
	}
	msg := "team cache refresh: "
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return fmt.Errorf("%s", msg)
}

// TeamsForLeague implements match.TeamDirectory.
func (c *TeamCache) TeamsForLeague(league string) []model.Team {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byLeague[league]
}

// Team implements groups.TeamDirectory.
func (c *TeamCache) Team(league, teamID string) (model.Team, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.byID[league]
	if !ok {
		return model.Team{}, false
	}
	t, ok := ids[teamID]
	return t, ok
}
