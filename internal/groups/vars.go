package groups

import (
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// Extractor computes one template variable's value for a matched event. The
// registry below is a practical subset of the reference's ~141-variable
// identity/time/score catalog (templates/variables/identity.py), covering
// the variables channel naming and filler templates actually reach for;
// it is a map so new extractors can be added without touching callers.
type Extractor func(TemplateContext) string

// TemplateContext is everything one event's variable resolution needs:
// the matched event itself, which side of it is "home" from the group's
// perspective (multi-league/event-card groups have no single answer, so
// HomeIsAnchor is only meaningful for single-team group channels), and the
// optional team/stat lookups the registry consults for record/standing
// variables.
type TemplateContext struct {
	Event      model.Event
	HomeTeam   model.Team
	AwayTeam   model.Team
	HomeStats  *model.TeamStats
	AwayStats  *model.TeamStats
	Keyword    string
}

var registry = map[string]Extractor{
	"home_team":     func(c TemplateContext) string { return c.Event.HomeTeam },
	"away_team":     func(c TemplateContext) string { return c.Event.AwayTeam },
	"home_abbrev":   func(c TemplateContext) string { return c.HomeTeam.Abbreviation },
	"away_abbrev":   func(c TemplateContext) string { return c.AwayTeam.Abbreviation },
	"matchup":       func(c TemplateContext) string { return c.Event.AwayTeam + " @ " + c.Event.HomeTeam },
	"matchup_abbrev": func(c TemplateContext) string {
		return firstNonEmpty(c.AwayTeam.Abbreviation, c.Event.AwayTeam) + " @ " + firstNonEmpty(c.HomeTeam.Abbreviation, c.Event.HomeTeam)
	},
	"league":      func(c TemplateContext) string { return c.Event.League },
	"venue":       func(c TemplateContext) string { return c.Event.Venue },
	"event_name":  func(c TemplateContext) string { return c.Event.EventName },
	"status":      func(c TemplateContext) string { return c.Event.Status },
	"game_date":   func(c TemplateContext) string { return c.Event.StartTime.Format("Jan 2") },
	"game_time":   func(c TemplateContext) string { return c.Event.StartTime.Format("3:04 PM") },
	"game_date_iso": func(c TemplateContext) string { return c.Event.StartTime.Format("2006-01-02") },
	"home_record": func(c TemplateContext) string { return recordString(c.HomeStats) },
	"away_record": func(c TemplateContext) string { return recordString(c.AwayStats) },
	"home_streak": func(c TemplateContext) string {
		if c.HomeStats == nil {
			return ""
		}
		return c.HomeStats.Streak
	},
	"away_streak": func(c TemplateContext) string {
		if c.AwayStats == nil {
			return ""
		}
		return c.AwayStats.Streak
	},
	"home_standing": func(c TemplateContext) string {
		if c.HomeStats == nil {
			return ""
		}
		return c.HomeStats.Standing
	},
	"away_standing": func(c TemplateContext) string {
		if c.AwayStats == nil {
			return ""
		}
		return c.AwayStats.Standing
	},
	"keyword": func(c TemplateContext) string { return c.Keyword },
}

func recordString(s *model.TeamStats) string {
	if s == nil {
		return ""
	}
	if s.Ties > 0 {
		return fmt.Sprintf("%d-%d-%d", s.Wins, s.Losses, s.Ties)
	}
	return fmt.Sprintf("%d-%d", s.Wins, s.Losses)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// BuildVars resolves every registered extractor against ctx into the
// {variable: value} map lifecycle.NameInputs and xmltv.Substitute consume.
func BuildVars(ctx TemplateContext) map[string]string {
	vars := make(map[string]string, len(registry))
	for name, fn := range registry {
		vars[name] = fn(ctx)
	}
	return vars
}

// RegisterExtractor adds or overrides a named variable, letting callers
// extend the catalog (e.g. sport-specific variables) without forking
// BuildVars.
func RegisterExtractor(name string, fn Extractor) {
	registry[name] = fn
}

// BuildContext resolves an event's home/away team metadata through teams
// (nil-safe — an absent directory just yields blank team variables) into
// the TemplateContext BuildVars consumes.
func BuildContext(teams TeamDirectory, event model.Event) TemplateContext {
	ctx := TemplateContext{Event: event}
	if teams == nil {
		return ctx
	}
	if t, ok := teams.Team(event.League, event.HomeTeam); ok {
		ctx.HomeTeam = t
	}
	if t, ok := teams.Team(event.League, event.AwayTeam); ok {
		ctx.AwayTeam = t
	}
	return ctx
}

// TeamDirectory resolves a team's metadata by (league, id) — the same
// lookup surface match.TeamMatcher uses, kept as its own minimal interface
// here so this package depends on it by name rather than by import.
type TeamDirectory interface {
	Team(league, teamID string) (model.Team, bool)
}
