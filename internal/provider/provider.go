// Package provider defines the sports-data provider interface and a
// priority-ordered registry, plus a TheSportsDB (TSDB) implementation.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// Provider is implemented by each sports-data backend (TSDB, ESPN,
// Cricbuzz, ...). Every method that can fail returns an error; a provider
// that simply has no data for a league is reported as ErrNoProviderForLeague
// by SupportsLeague's callers rather than a bespoke sentinel per method.
type Provider interface {
	Name() string
	SupportsLeague(league string) bool
	SupportedLeagues() []string
	GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error)
	GetEvent(ctx context.Context, league, eventID string) (model.Event, error)
	GetTeam(ctx context.Context, teamID string) (model.Team, error)
	GetTeamSchedule(ctx context.Context, teamID string, daysBack int) ([]model.Event, error)
	GetTeamStats(ctx context.Context, teamID string) (model.TeamStats, error)
	GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error)
}

// Registry resolves a league to the highest-priority provider that
// supports it. Providers are tried in registration order.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a registry from providers in priority order — the
// first provider in the list wins whenever more than one supports a
// league.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// ErrNoProviderForLeague is returned when no registered provider supports
// the requested league.
type ErrNoProviderForLeague struct{ League string }

func (e ErrNoProviderForLeague) Error() string {
	return fmt.Sprintf("provider: no registered provider supports league %q", e.League)
}

// For returns the highest-priority provider that supports league.
func (r *Registry) For(league string) (Provider, error) {
	for _, p := range r.providers {
		if p.SupportsLeague(league) {
			return p, nil
		}
	}
	return nil, ErrNoProviderForLeague{League: league}
}

// GetEvents delegates to whichever registered provider supports league.
func (r *Registry) GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	p, err := r.For(league)
	if err != nil {
		return nil, err
	}
	return p.GetEvents(ctx, league, date)
}

// GetEvent delegates to whichever registered provider supports league.
func (r *Registry) GetEvent(ctx context.Context, league, eventID string) (model.Event, error) {
	p, err := r.For(league)
	if err != nil {
		return model.Event{}, err
	}
	return p.GetEvent(ctx, league, eventID)
}

// GetLeagueTeams delegates to whichever registered provider supports league.
func (r *Registry) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	p, err := r.For(league)
	if err != nil {
		return nil, err
	}
	return p.GetLeagueTeams(ctx, league)
}
