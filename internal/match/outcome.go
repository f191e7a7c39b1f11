// Package match contains the team-vs-team and event-card matching ladders,
// the unified StreamMatcher that routes between them, and the persisted
// match cache that lets repeat runs skip re-matching unchanged streams.
package match

import "github.com/titooo7/teamarr-sub000/internal/model"

// OutcomeKind tags which payload a MatchOutcome carries. Re-expressing the
// three result categories (FILTERED / FAILED / MATCHED) as a closed sum
// type rather than a stringly-typed "exclusion_reason" field.
type OutcomeKind int

const (
	OutcomeMatched OutcomeKind = iota
	OutcomeFiltered
	OutcomeFailed
)

// FilteredReason enumerates why a stream was never eligible for matching.
type FilteredReason string

const (
	FilteredLeagueNotEnabled FilteredReason = "league_not_enabled"
	FilteredUnclassifiable   FilteredReason = "unclassifiable"
	FilteredNoGameIndicator  FilteredReason = "no_game_indicator"
)

// FailedReason enumerates why a matching attempt was made but did not resolve.
type FailedReason string

const (
	FailedNoEventOnDate    FailedReason = "no_event_on_date"
	FailedTeam1NotFound    FailedReason = "team1_not_found"
	FailedTeam2NotFound    FailedReason = "team2_not_found"
	FailedDateMismatch     FailedReason = "date_mismatch"
	FailedNoEventCardMatch FailedReason = "no_event_card_match"
)

// MatchOutcome is the result of one matching attempt, constructed only
// through the constructors below so the payload is always valid for Kind.
type MatchOutcome struct {
	Kind OutcomeKind

	// valid when Kind == OutcomeMatched
	Event             *model.Event
	DetectedLeague    string
	Method            model.MatchMethod
	OriginMethod      model.MatchMethod
	Confidence        float64
	CardSegment       string
	FromCache         bool

	// valid when Kind == OutcomeFiltered
	FilteredReason FilteredReason

	// valid when Kind == OutcomeFailed
	FailedReason FailedReason
}

// IsMatched reports whether a candidate event was identified, independent
// of whether it will ultimately be included in output.
func (o MatchOutcome) IsMatched() bool { return o.Kind == OutcomeMatched }

// Matched constructs a successful-match outcome.
func Matched(event *model.Event, league string, method model.MatchMethod, confidence float64) MatchOutcome {
	return MatchOutcome{
		Kind:           OutcomeMatched,
		Event:          event,
		DetectedLeague: league,
		Method:         method,
		OriginMethod:   method,
		Confidence:     confidence,
	}
}

// Filtered constructs a filtered outcome — the stream was never a
// matching candidate.
func Filtered(reason FilteredReason) MatchOutcome {
	return MatchOutcome{Kind: OutcomeFiltered, FilteredReason: reason}
}

// Failed constructs a failed outcome — matching was attempted but no
// candidate resolved.
func Failed(reason FailedReason) MatchOutcome {
	return MatchOutcome{Kind: OutcomeFailed, FailedReason: reason}
}

// WithCardSegment returns a copy of a matched outcome annotated with the
// combat-sports segment it routes to.
func (o MatchOutcome) WithCardSegment(segment string) MatchOutcome {
	o.CardSegment = segment
	return o
}

// WithCache returns a copy marking the outcome as served from cache, with
// the original tier preserved in OriginMethod.
func (o MatchOutcome) WithCache(origin model.MatchMethod) MatchOutcome {
	o.FromCache = true
	o.OriginMethod = origin
	o.Method = model.MethodCache
	return o
}
