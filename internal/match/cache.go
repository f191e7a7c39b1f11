package match

import (
	"context"
	"database/sql"
	"errors"

	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/store"
)

// EventByID resolves a cached match back to a full Event so a cache hit can
// be re-rendered (channel name, EPG listing) without re-running the
// matching ladder.
type EventByID interface {
	GetEvent(ctx context.Context, provider, eventID string) (model.Event, error)
}

// StreamCache bridges the persisted match_cache table (internal/store) to
// the in-memory MatchOutcome shape the matchers and GroupProcessor work
// with.
type StreamCache struct {
	Store  *store.Store
	Events EventByID
}

// Lookup checks the cache for (groupID, streamID, streamName). ok is false
// on a cold cache (the caller should run the matching ladder); when ok is
// true, outcome.FromCache is always set.
func (c *StreamCache) Lookup(ctx context.Context, groupID, streamID, streamName string) (outcome MatchOutcome, ok bool, err error) {
	fp := store.Fingerprint(groupID, streamID, streamName)
	entry, err := c.Store.GetCacheEntry(ctx, fp)
	if errors.Is(err, sql.ErrNoRows) {
		return MatchOutcome{}, false, nil
	}
	if err != nil {
		return MatchOutcome{}, false, err
	}

	if entry.Failed {
		return Failed(FailedReason(entry.MatchMethod)).WithCache(model.MethodNone), true, nil
	}

	var event *model.Event
	if entry.EventID != "" && c.Events != nil {
		ev, err := c.Events.GetEvent(ctx, entry.League, entry.EventID)
		if err != nil {
			// The upstream event vanished (provider data pruned, event
			// cancelled outright): treat as a cold cache rather than
			// surfacing a stale channel pointed at nothing.
			return MatchOutcome{}, false, nil
		}
		event = &ev
	}

	out := Matched(event, entry.League, model.MatchMethod(entry.MatchMethod), entry.Confidence).
		WithCardSegment(entry.CardSegment).
		WithCache(model.MatchMethod(entry.MatchMethod))
	return out, true, nil
}

// StorePut persists the outcome of a fresh matching attempt at the given
// generation. FromCache outcomes are never re-persisted — callers only
// call StorePut for freshly computed outcomes.
func (c *StreamCache) StorePut(ctx context.Context, groupID, streamID, streamName string, generation int64, eventDate string, outcome MatchOutcome) error {
	fp := store.Fingerprint(groupID, streamID, streamName)
	entry := store.CacheEntry{
		Fingerprint: fp,
		GroupID:     groupID,
		StreamName:  streamName,
		Generation:  generation,
		EventDate:   eventDate,
	}

	switch outcome.Kind {
	case OutcomeMatched:
		entry.League = outcome.DetectedLeague
		entry.MatchMethod = string(outcome.OriginMethod)
		entry.Confidence = outcome.Confidence
		entry.CardSegment = outcome.CardSegment
		if outcome.Event != nil {
			entry.EventID = outcome.Event.ID
		}
	case OutcomeFailed:
		entry.Failed = true
		entry.MatchMethod = string(outcome.FailedReason)
	case OutcomeFiltered:
		// Filtered streams never reach the ladder, so there is nothing
		// date-sensitive to cache; callers should not call StorePut for
		// a Filtered outcome, but guard against it being harmless if they do.
		return nil
	}

	return c.Store.PutCacheEntry(ctx, entry)
}

// MarkUserCorrected pins a stream's cache row so PurgeStale and
// routine re-matching never override a manual correction.
func (c *StreamCache) MarkUserCorrected(ctx context.Context, groupID, streamID, streamName string) error {
	fp := store.Fingerprint(groupID, streamID, streamName)
	return c.Store.MarkUserCorrected(ctx, fp)
}

// PurgeStale evicts cache rows past the two-tier staleness horizon,
// preserving user-corrected pins.
func (c *StreamCache) PurgeStale(ctx context.Context, currentGeneration int64) (int64, error) {
	return c.Store.PurgeStale(ctx, store.DefaultPurgeParams(currentGeneration))
}
