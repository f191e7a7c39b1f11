// Package groups implements the per-group processing pipeline: fetch
// streams from the upstream aggregator, filter, match against provider
// event data, sort, enrich with a fresh status fetch, route through
// channel lifecycle, render XMLTV, and record an audit trail. Cross-group
// enforcement and scheduling live one layer up, in internal/generation.
package groups

import (
	"context"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/match"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// StreamSource lists the raw streams an upstream aggregator currently
// carries for a group — an external collaborator; this package never talks
// HTTP or SQL to get them.
type StreamSource interface {
	StreamsForGroup(ctx context.Context, group model.EventEPGGroup) ([]model.RawStream, error)
}

// EventEnricher refetches one event's current status so a channel created
// from a morning match doesn't render an EPG entry with stale "scheduled"
// status by evening. Distinct from match.EventFetcher (which answers
// "what's on league L on day D") because enrichment wants a single
// known-ID lookup, not a full day's schedule.
type EventEnricher interface {
	GetEvent(ctx context.Context, league, eventID string) (model.Event, error)
}

// Store is the audit-trail persistence groups needs: a record of every
// matched and failed stream for the run, independent of the channel state
// lifecycle.Store already owns. The record types live in internal/model
// (not here) so internal/store can implement this interface without
// importing internal/groups, which would cycle back through
// internal/match's dependency on internal/store.
type Store interface {
	RecordMatchedStream(ctx context.Context, rec model.MatchedStreamRecord) error
	RecordFailedMatch(ctx context.Context, rec model.FailedMatchRecord) error
}

// MatchedStreamRecord and FailedMatchRecord are re-exported so existing
// callers that referred to them via this package keep compiling.
type MatchedStreamRecord = model.MatchedStreamRecord
type FailedMatchRecord = model.FailedMatchRecord

// NamedEvent pairs a matched event with the stream that produced it, ready
// for sorting and lifecycle routing.
type NamedEvent struct {
	Stream      model.RawStream
	Event       model.Event
	League      string
	Method      model.MatchMethod
	CardSegment string // combat-sports card segment, set by EventCardMatcher; empty for team-vs-team matches
}

// GroupResult summarizes one call to Process: the lifecycle outcome plus
// the rendered XMLTV document bytes, left for the caller to persist and
// push to the aggregator.
type GroupResult struct {
	Lifecycle  lifecycle.ProcessResult
	XMLTV      []byte
	Matched    int
	Failed     int
	Filtered   int
	Errors     []string
}

// EventFetcher is re-exported for callers that only need the prefetch
// shape groups.Process expects — it's exactly match.EventFetcher, named
// here so callers needn't import internal/match just to build a Processor.
type EventFetcher = match.EventFetcher
