// Package sports carries the data model for the team-EPG track: a standing
// per-team channel/XMLTV feed, separate from the event-group pipeline
// internal/groups owns. It is scoped to data types and template variables
// only — the original's full team-channel lifecycle (its own scheduler loop,
// parallel per-team worker pool, XMLTV persistence) is out of scope here, so
// this package never runs anything on its own; it only makes a tracked
// team's config and stats available to the same template engine event
// groups already use.
package sports

import (
	"github.com/titooo7/teamarr-sub000/internal/groups"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// TeamConfig is one team's standing-channel registration: which provider
// team to follow, which leagues to pull its schedule from, and which
// managed channel its EPG should land on.
type TeamConfig struct {
	ID             string
	Provider       string
	ProviderTeamID string
	PrimaryLeague  string
	Leagues        []string
	Sport          string
	TeamName       string
	TeamAbbrev     string
	TeamLogoURL    string
	ChannelID      string
	ChannelLogoURL string
	TemplateID     string
	Active         bool
}

// BuildContext folds a tracked team's provider metadata and its current
// stats into the same TemplateContext groups.BuildVars resolves for
// event-group channels; cfg is not read, so nothing in the team's config
// reaches the context. The tracked team always occupies the "home" slot —
// a team-standing channel has no opposing side, so every home_* variable
// describes the team itself and every away_* variable resolves empty.
func BuildContext(cfg TeamConfig, team model.Team, stats *model.TeamStats) groups.TemplateContext {
	return groups.TemplateContext{
		HomeTeam:  team,
		HomeStats: stats,
	}
}

// RegisterTeamVariables adds the team-track-specific template variables
// (team_city, team_venue, team_conference, team_division, team_logo) to the
// shared extractor registry groups.BuildVars consults. These read from
// HomeTeam, the slot BuildContext always places the tracked team in, so they
// resolve for team-track channels and stay blank (team.City is the zero
// value) for ordinary event-group channels that never set it.
func RegisterTeamVariables() {
	groups.RegisterExtractor("team_city", func(c groups.TemplateContext) string { return c.HomeTeam.City })
	groups.RegisterExtractor("team_venue", func(c groups.TemplateContext) string { return c.HomeTeam.Venue })
	groups.RegisterExtractor("team_conference", func(c groups.TemplateContext) string { return c.HomeTeam.Conference })
	groups.RegisterExtractor("team_division", func(c groups.TemplateContext) string { return c.HomeTeam.Division })
	groups.RegisterExtractor("team_logo", func(c groups.TemplateContext) string { return c.HomeTeam.LogoURL })
}
