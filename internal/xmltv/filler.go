package xmltv

import (
	"regexp"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// FillerKind is the flavor of filler content shown between scheduled
// events on a channel.
type FillerKind string

const (
	FillerPregame  FillerKind = "pregame"
	FillerPostgame FillerKind = "postgame"
	FillerIdle     FillerKind = "idle"
)

// Template is one filler kind's title/subtitle/description text, still
// containing {variable} placeholders for Substitute to resolve.
type Template struct {
	Title       string
	SubTitle    string
	Description string
	ArtURL      string
}

// ConditionalTemplate lets postgame/idle description vary by whether the
// most recent game has gone final.
type ConditionalTemplate struct {
	Enabled           bool
	DescriptionFinal  string
	DescriptionNotFinal string
}

// OffseasonTemplate overrides idle content when no games are scheduled at
// all (as opposed to idle between two scheduled games).
type OffseasonTemplate struct {
	Enabled     bool
	Title       string
	SubTitle    string
	Description string
}

// Config holds every filler template and the category metadata applied to
// filler programmes, populated from the templates table.
type Config struct {
	PregameEnabled  bool
	PregameTemplate Template

	PostgameEnabled     bool
	PostgameTemplate    Template
	PostgameConditional ConditionalTemplate

	IdleEnabled     bool
	IdleTemplate    Template
	IdleConditional ConditionalTemplate
	IdleOffseason   OffseasonTemplate

	Category          string
	XMLTVCategories   []string
	CategoriesApplyTo string // "all" or "events"
}

// DefaultConfig mirrors the reference defaults: pregame/postgame/idle all
// enabled with generic templates, category "Sports".
func DefaultConfig() Config {
	return Config{
		PregameEnabled:  true,
		PregameTemplate: Template{Title: "Pregame Coverage", Description: "{team_name} vs {opponent.next} starts at {game_time.next}"},

		PostgameEnabled:  true,
		PostgameTemplate: Template{Title: "Postgame Recap", Description: "{team_name} {result_text.last} {final_score.last}"},

		IdleEnabled:  true,
		IdleTemplate: Template{Title: "{team_name} Programming", Description: "Next game: {game_date.next} vs {opponent.next}"},

		Category:          "Sports",
		XMLTVCategories:   []string{"Sports"},
		CategoriesApplyTo: "events",
	}
}

// Options configures gap-filling behavior independent of template text.
type Options struct {
	OutputDaysAhead        int
	EPGTimezone            *time.Location
	MidnightCrossoverMode  string // "postgame" or "idle"
	SportDurations         map[string]float64
	DefaultDuration        float64
	PregameBufferMinutes   int
}

// DefaultOptions mirrors the reference defaults.
func DefaultOptions() Options {
	return Options{
		OutputDaysAhead:       14,
		EPGTimezone:           time.UTC,
		MidnightCrossoverMode: "postgame",
		DefaultDuration:       3.0,
		PregameBufferMinutes:  0,
	}
}

var placeholderPattern = regexp.MustCompile(`\{[^{}]+\}`)

// Substitute replaces every {key} placeholder in template with vars[key];
// an unresolved placeholder is dropped rather than left in the output, so
// a missing variable degrades the sentence instead of leaking syntax.
func Substitute(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := token[1 : len(token)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		return ""
	})
}

// templateFor resolves which Template and (for postgame/idle) which
// conditional description variant applies.
func templateFor(kind FillerKind, cfg Config, lastEventFinal bool) (title, subtitle, description, art string) {
	switch kind {
	case FillerPregame:
		t := cfg.PregameTemplate
		return t.Title, t.SubTitle, t.Description, t.ArtURL
	case FillerPostgame:
		t := cfg.PostgameTemplate
		desc := t.Description
		if cfg.PostgameConditional.Enabled {
			if lastEventFinal && cfg.PostgameConditional.DescriptionFinal != "" {
				desc = cfg.PostgameConditional.DescriptionFinal
			} else if !lastEventFinal && cfg.PostgameConditional.DescriptionNotFinal != "" {
				desc = cfg.PostgameConditional.DescriptionNotFinal
			}
		}
		return t.Title, t.SubTitle, desc, t.ArtURL
	default: // FillerIdle
		t := cfg.IdleTemplate
		desc := t.Description
		if cfg.IdleConditional.Enabled {
			if lastEventFinal && cfg.IdleConditional.DescriptionFinal != "" {
				desc = cfg.IdleConditional.DescriptionFinal
			} else if !lastEventFinal && cfg.IdleConditional.DescriptionNotFinal != "" {
				desc = cfg.IdleConditional.DescriptionNotFinal
			}
		}
		return t.Title, t.SubTitle, desc, t.ArtURL
	}
}

// FillGap builds one filler Programme covering [start, stop) on channelID,
// with every {variable} in the chosen template resolved from vars.
func FillGap(channelID string, start, stop time.Time, kind FillerKind, cfg Config, lastEventFinal bool, vars map[string]string) model.Programme {
	title, subtitle, description, art := templateFor(kind, cfg, lastEventFinal)

	category := ""
	if cfg.CategoriesApplyTo == "all" && len(cfg.XMLTVCategories) > 0 {
		category = cfg.XMLTVCategories[0]
	}

	return model.Programme{
		ChannelID:   channelID,
		Start:       start,
		Stop:        stop,
		Title:       Substitute(title, vars),
		SubTitle:    Substitute(subtitle, vars),
		Description: Substitute(description, vars),
		Category:    category,
		IconURL:     art,
	}
}

// FillGaps walks sorted programmes on one channel and inserts filler
// programmes into every gap, covering [windowStart, windowEnd). The first
// gap (before the first real programme) gets pregame filler; gaps between
// two events get idle filler; the gap after the last programme gets
// postgame filler, or idle filler whenever MidnightCrossoverMode is
// "idle" (whether that gap crosses midnight is not checked).
func FillGaps(channelID string, programmes []model.Programme, windowStart, windowEnd time.Time, cfg Config, opts Options, lastEventFinal bool, vars map[string]string) []model.Programme {
	var filled []model.Programme
	cursor := windowStart

	emit := func(kind FillerKind, start, stop time.Time, enabled bool) {
		if !enabled || !stop.After(start) {
			return
		}
		filled = append(filled, FillGap(channelID, start, stop, kind, cfg, lastEventFinal, vars))
	}

	for _, p := range programmes {
		if p.Start.After(cursor) {
			kind := FillerIdle
			if cursor.Equal(windowStart) {
				kind = FillerPregame
			}
			enabled := cfg.IdleEnabled
			if kind == FillerPregame {
				enabled = cfg.PregameEnabled
			}
			bufferedStop := p.Start
			if kind == FillerPregame && opts.PregameBufferMinutes > 0 {
				bufferedStop = p.Start.Add(-time.Duration(opts.PregameBufferMinutes) * time.Minute)
			}
			emit(kind, cursor, bufferedStop, enabled)
		}
		filled = append(filled, p)
		if p.Stop.After(cursor) {
			cursor = p.Stop
		}
	}

	if windowEnd.After(cursor) {
		kind := FillerPostgame
		if opts.MidnightCrossoverMode == "idle" {
			kind = FillerIdle
		}
		enabled := cfg.PostgameEnabled
		if kind == FillerIdle {
			enabled = cfg.IdleEnabled
		}
		emit(kind, cursor, windowEnd, enabled)
	}

	return filled
}
