package groups

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/match"
	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/numbering"
	"github.com/titooo7/teamarr-sub000/internal/ufc"
	"github.com/titooo7/teamarr-sub000/internal/xmltv"
)

// Processor runs one group through fetch → filter → match → sort →
// enrich → lifecycle → render. It owns none of the persistence beyond the
// audit trail (Store) — channel state lives behind Lifecycle.Store,
// channel numbering behind Lifecycle.Numbering.
type Processor struct {
	Streams   StreamSource
	Matcher   *match.StreamMatcher
	Enricher  EventEnricher
	Teams     TeamDirectory
	Lifecycle *lifecycle.Service
	Store     Store
	Generator string // XMLTV generator-info-name
}

// Process runs the full per-group pipeline for one generation run:
// fetch this group's streams, filter, match against provider data, sort
// per the group's configured order, refresh each matched event's status,
// route through lifecycle, render XMLTV, and record the run's audit trail.
func (p *Processor) Process(ctx context.Context, group model.EventEPGGroup, groupInfo numbering.GroupInfo, runID string, generation int64, targetDate time.Time, prefetched map[string][]model.Event) (GroupResult, error) {
	result := GroupResult{}

	raw, err := p.Streams.StreamsForGroup(ctx, group)
	if err != nil {
		return result, fmt.Errorf("groups: fetch streams for %s: %w", group.ID, err)
	}

	includeRe, excludeRe, err := compilePatterns(group)
	if err != nil {
		return result, fmt.Errorf("groups: compile patterns for %s: %w", group.ID, err)
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
			Stream:      stream,
			Event:       *outcome.Event,
			League:      outcome.DetectedLeague,
			Method:      outcome.Method,
			CardSegment: outcome.CardSegment,
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

	matched = expandCardSegments(matched)

	streams := make([]lifecycle.MatchedStream, 0, len(matched))
	for _, ne := range matched {
		streams = append(streams, lifecycle.MatchedStream{Stream: ne.Stream, Event: ne.Event})
	}

	names := func(event model.Event) lifecycle.NameInputs {
		tctx := BuildContext(p.Teams, event)
		return lifecycle.NameInputs{
			Template:     group.NameTemplate,
			LogoTemplate: group.LogoTemplate,
			Vars:         BuildVars(tctx),
			AwayName:     event.AwayTeam,
			HomeName:     event.HomeTeam,
			HomeLogoURL:  tctx.HomeTeam.LogoURL,
		}
	}

	lcResult, err := p.Lifecycle.ProcessMatchedStreams(ctx, streams, group,
		groupInfo, lifecycle.CreateTiming(group.CreateTiming), lifecycle.DeleteTiming(group.DeleteTiming), names)
	if err != nil {
		return result, fmt.Errorf("groups: lifecycle for %s: %w", group.ID, err)
	}
	result.Lifecycle = lcResult
	result.Errors = append(result.Errors, lcResult.Errors...)

	doc, err := p.render(group, matched, lcResult)
	if err != nil {
		return result, fmt.Errorf("groups: render xmltv for %s: %w", group.ID, err)
	}
	result.XMLTV = doc

	return result, nil
}

// expandCardSegments routes combat-sports events onto per-segment channels
// (Early Prelims / Prelims / Main Card) when the matched streams for that
// event actually cover more than one segment — a single PPV feed still
// becomes one ordinary channel, same as a team-vs-team event, since there's
// nothing to split. Every other matched event passes through untouched.
func expandCardSegments(matched []NamedEvent) []NamedEvent {
	segmentsSeen := make(map[string]map[string]bool)
	for _, ne := range matched {
		if !ufc.IsUFCEvent(&ne.Event) {
			continue
		}
		seen := segmentsSeen[ne.Event.ID]
		if seen == nil {
			seen = make(map[string]bool)
			segmentsSeen[ne.Event.ID] = seen
		}
		seen[firstNonEmpty(ne.CardSegment, ufc.SegmentCombined)] = true
	}

	needsExpansion := make(map[string]bool, len(segmentsSeen))
	for eventID, seen := range segmentsSeen {
		if len(seen) > 1 {
			needsExpansion[eventID] = true
		}
	}
	if len(needsExpansion) == 0 {
		return matched
	}

	methodByStream := make(map[string]model.MatchMethod)
	leagueByStream := make(map[string]string)
	var ufcMatches []ufc.Match
	rest := make([]NamedEvent, 0, len(matched))
	for _, ne := range matched {
		if !needsExpansion[ne.Event.ID] {
			rest = append(rest, ne)
			continue
		}
		methodByStream[ne.Stream.StreamID] = ne.Method
		leagueByStream[ne.Stream.StreamID] = ne.League
		ufcMatches = append(ufcMatches, ufc.Match{Stream: ne.Stream, Event: ne.Event, Segment: ne.CardSegment})
	}

	for _, sm := range ufc.ExpandSegments(ufcMatches, 0) {
		event := sm.Event
		event.ID = sm.Event.ID + "#" + sm.Segment
		event.EventName = sm.Event.EventName + ufc.DisplaySuffix(sm.Segment)
		event.StartTime = sm.Start
		event.DurationHours = sm.End.Sub(sm.Start).Hours()
		event.CardDescription = sm.Description

		rest = append(rest, NamedEvent{
			Stream:      sm.Stream,
			Event:       event,
			League:      leagueByStream[sm.Stream.StreamID],
			Method:      methodByStream[sm.Stream.StreamID],
			CardSegment: sm.Segment,
		})
	}

	return rest
}

func (p *Processor) render(group model.EventEPGGroup, matched []NamedEvent, lcResult lifecycle.ProcessResult) ([]byte, error) {
	byEventID := make(map[string]model.Event, len(matched))
	for _, ne := range matched {
		byEventID[ne.Event.ID] = ne.Event
	}

	var channels []model.Channel
	var programmes []model.Programme
	all := append(append([]model.ManagedChannel{}, lcResult.Created...), lcResult.Updated...)
	for _, ch := range all {
		channels = append(channels, model.Channel{ID: ch.TVGID, DisplayName: ch.Name, IconURL: ch.LogoURL})
		event, ok := byEventID[ch.EventID]
		if !ok {
			continue
		}
		duration := event.DurationHours
		if duration <= 0 {
			duration = 3
		}
		programmes = append(programmes, model.Programme{
			ChannelID:   ch.TVGID,
			Title:       ch.Name,
			Description: firstNonEmpty(event.CardDescription, event.EventName, event.AwayTeam+" @ "+event.HomeTeam),
			Category:    "Sports",
			IconURL:     ch.LogoURL,
			Start:       event.StartTime,
			Stop:        event.StartTime.Add(time.Duration(duration * float64(time.Hour))),
		})
	}

	return xmltv.Render(channels, programmes, p.Generator)
}

func (p *Processor) recordMatched(ctx context.Context, runID, groupID string, stream model.RawStream, outcome match.MatchOutcome, included bool, reason string) {
	if p.Store == nil {
		return
	}
	eventID := ""
	if outcome.Event != nil {
		eventID = outcome.Event.ID
	}
	_ = p.Store.RecordMatchedStream(ctx, MatchedStreamRecord{
		RunID:           runID,
		GroupID:         groupID,
		StreamID:        stream.StreamID,
		StreamName:      stream.Name,
		EventID:         eventID,
		League:          outcome.DetectedLeague,
		MatchMethod:     string(outcome.Method),
		Confidence:      outcome.Confidence,
		Included:        included,
		ExclusionReason: reason,
	})
}

func (p *Processor) recordFailed(ctx context.Context, runID, groupID string, stream model.RawStream, reason string) {
	if p.Store == nil {
		return
	}
	_ = p.Store.RecordFailedMatch(ctx, FailedMatchRecord{
		RunID:      runID,
		GroupID:    groupID,
		StreamID:   stream.StreamID,
		StreamName: stream.Name,
		Reason:     reason,
	})
}

func compilePatterns(group model.EventEPGGroup) (include, exclude *regexp.Regexp, err error) {
	if group.IncludePattern != "" {
		include, err = regexp.Compile(group.IncludePattern)
		if err != nil {
			return nil, nil, fmt.Errorf("include_pattern: %w", err)
		}
	}
	if group.ExcludePattern != "" {
		exclude, err = regexp.Compile(group.ExcludePattern)
		if err != nil {
			return nil, nil, fmt.Errorf("exclude_pattern: %w", err)
		}
	}
	return include, exclude, nil
}
