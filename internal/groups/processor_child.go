package groups

import (
	"context"
	"fmt"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/match"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// ProcessChild runs a child group's streams through the same fetch/filter/
// match/sort/enrich pipeline as Process, but routes the result onto the
// parent group's channels via lifecycle.Service.ProcessChildStreams instead
// of ProcessMatchedStreams, and never renders its own XMLTV — the parent
// group's own Process call already emits programmes for the channels this
// one just added streams to.
func (p *Processor) ProcessChild(ctx context.Context, group model.EventEPGGroup, parentGroupID, runID string, generation int64, targetDate time.Time, prefetched map[string][]model.Event) (GroupResult, error) {
	result := GroupResult{}

	raw, err := p.Streams.StreamsForGroup(ctx, group)
	if err != nil {
		return result, fmt.Errorf("groups: fetch streams for child %s: %w", group.ID, err)
	}

	includeRe, excludeRe, err := compilePatterns(group)
	if err != nil {
		return result, fmt.Errorf("groups: compile patterns for child %s: %w", group.ID, err)
	}

	var matched []NamedEvent
	for _, stream := range raw {
		if stream.Stale {
			result.Filtered++
			continue
		}
		if includeRe != nil && !includeRe.MatchString(stream.Name) {
			result.Filtered++
			continue
		}
		if excludeRe != nil && excludeRe.MatchString(stream.Name) {
			result.Filtered++
			continue
		}

		outcome, err := p.Matcher.MatchStream(ctx, group, stream, targetDate, generation, prefetched)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", stream.StreamID, err))
			continue
		}

		switch outcome.Kind {
		case match.OutcomeFiltered:
			result.Filtered++
			continue
		case match.OutcomeFailed:
			result.Failed++
			p.recordFailed(ctx, runID, group.ID, stream, string(outcome.FailedReason))
			continue
		}

		included := match.Included(outcome, group)
		exclusionReason := ""
		if !included {
			exclusionReason = "league_or_status_excluded"
		}
		p.recordMatched(ctx, runID, group.ID, stream, outcome, included, exclusionReason)
		if !included || outcome.Event == nil {
			continue
		}

		result.Matched++
		matched = append(matched, NamedEvent{
			Stream: stream,
			Event:  *outcome.Event,
			League: outcome.DetectedLeague,
			Method: outcome.Method,
		})
	}

	SortMatched(matched, group.ChannelSortOrder)

	if p.Enricher != nil {
		for i, ne := range matched {
			fresh, err := p.Enricher.GetEvent(ctx, ne.League, ne.Event.ID)
			if err == nil {
				matched[i].Event = fresh
			}
		}
	}

	streams := make([]lifecycle.MatchedStream, 0, len(matched))
	for _, ne := range matched {
		streams = append(streams, lifecycle.MatchedStream{Stream: ne.Stream, Event: ne.Event})
	}

	lcResult, err := p.Lifecycle.ProcessChildStreams(ctx, streams, parentGroupID, group)
	if err != nil {
		return result, fmt.Errorf("groups: child lifecycle for %s: %w", group.ID, err)
	}
	result.Lifecycle = lcResult
	result.Errors = append(result.Errors, lcResult.Errors...)

	return result, nil
}
