// Package ufc expands UFC/MMA matched streams into segment-based channels
// (Early Prelims, Prelims, Main Card) using bout-level timing from the
// provider's event data.
package ufc

import (
	"strings"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// Segment codes, ordered from earliest to latest.
const (
	SegmentEarlyPrelims = "early_prelims"
	SegmentPrelims      = "prelims"
	SegmentMainCard     = "main_card"
	SegmentCombined     = "combined"
)

// segmentOrder walks earliest to latest; segmentDisplayNames gives the
// channel-name suffix for each — main card and combined streams get no
// suffix since they land on the default channel.
var segmentOrder = []string{SegmentEarlyPrelims, SegmentPrelims, SegmentMainCard}

var segmentDisplayNames = map[string]string{
	SegmentEarlyPrelims: "Early Prelims",
	SegmentPrelims:      "Prelims",
	SegmentMainCard:     "",
	SegmentCombined:     "",
}

// excludedKeywords mark non-fight-card content (weigh-ins, press
// conferences, pre/post shows) that should never become a segment channel.
var excludedKeywords = []string{
	"weigh in", "weigh-in", "weighin",
	"press conference",
	"countdown",
	"post fight", "post-fight", "postfight",
	"pre fight show", "pre-fight show",
	"media day",
}

const defaultMMADurationHours = 5.0

// IsUFCEvent reports whether event is MMA content needing segment handling.
func IsUFCEvent(event *model.Event) bool {
	return event != nil && strings.EqualFold(event.League, "ufc")
}

// IsExcluded reports whether a stream name is non-card content that should
// never be matched to a segment channel.
func IsExcluded(streamName string) bool {
	lower := strings.ToLower(streamName)
	for _, kw := range excludedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DisplaySuffix returns the channel-name suffix for a segment, e.g.
// " - Early Prelims", or "" for main card/combined/unknown segments.
func DisplaySuffix(segment string) string {
	display, ok := segmentDisplayNames[segment]
	if !ok || display == "" {
		return ""
	}
	return " - " + display
}

// Match pairs a matched stream with its event, mirroring the matcher's
// raw output before UFC expansion groups it by segment.
type Match struct {
	Stream  model.RawStream
	Event   model.Event
	Segment string
}

// SegmentMatch is one stream routed to a concrete segment channel, with
// exact timing resolved from the event's bout-level data.
type SegmentMatch struct {
	Stream        model.RawStream
	Event         model.Event
	Segment       string
	SegmentDisplay string
	Description   string // bout-level card description, see DescribeSegment
	Start         time.Time
	End           time.Time
}

// SegmentTimes returns the exact [start, end) window for segment using the
// event's bout-level segment_times when available, falling back to an
// estimate derived from MainCardStart or StartTime otherwise.
func SegmentTimes(event model.Event, segment string, mmaDurationHours float64) (time.Time, time.Time) {
	if mmaDurationHours <= 0 {
		mmaDurationHours = defaultMMADurationHours
	}

	if len(event.SegmentTimes) > 0 {
		start, ok := event.SegmentTimes[segment]
		if ok {
			var present []string
			for _, s := range segmentOrder {
				if _, ok := event.SegmentTimes[s]; ok {
					present = append(present, s)
				}
			}
			idx := indexOf(present, segment)
			if idx >= 0 && idx < len(present)-1 {
				return start, event.SegmentTimes[present[idx+1]]
			}
			return start, start.Add(time.Duration(mmaDurationHours/2*float64(time.Hour)))
		}
	}

	return estimateSegmentTimes(event, segment, mmaDurationHours)
}

func estimateSegmentTimes(event model.Event, segment string, mmaDurationHours float64) (time.Time, time.Time) {
	if event.MainCardStart != nil {
		mainStart := *event.MainCardStart
		switch segment {
		case SegmentEarlyPrelims:
			prelimsStart := mainStart.Add(-90 * time.Minute)
			return event.StartTime, prelimsStart
		case SegmentPrelims:
			prelimsStart := mainStart.Add(-90 * time.Minute)
			if event.StartTime.After(prelimsStart) {
				prelimsStart = event.StartTime
			}
			return prelimsStart, mainStart
		default:
			duration := time.Duration(mmaDurationHours / 2 * float64(time.Hour))
			return mainStart, mainStart.Add(duration)
		}
	}

	segDuration := time.Duration(mmaDurationHours / 3 * float64(time.Hour))
	switch segment {
	case SegmentEarlyPrelims:
		return event.StartTime, event.StartTime.Add(segDuration)
	case SegmentPrelims:
		start := event.StartTime.Add(segDuration)
		return start, start.Add(segDuration)
	default:
		start := event.StartTime.Add(2 * segDuration)
		return start, start.Add(segDuration)
	}
}

// ExpandSegments groups UFC matches by event and detected segment, resolves
// each segment's timing, and emits one SegmentMatch per stream. Matches are
// not checked for league here, so a non-UFC match is expanded like any
// other; the caller passes only matches it has already selected for
// expansion (see IsUFCEvent).
func ExpandSegments(matches []Match, mmaDurationHours float64) []SegmentMatch {
	type eventSegments struct {
		event    model.Event
		byStream map[string][]Match
	}
	byEvent := map[string]*eventSegments{}
	order := map[string][]string{} // eventID -> segments in first-seen order

	for _, m := range matches {
		if IsExcluded(m.Stream.Name) {
			continue
		}
		segment := m.Segment
		if segment == "" {
			segment = SegmentMainCard
		}
		if segment == SegmentCombined {
			segment = SegmentMainCard
		}

		es, ok := byEvent[m.Event.ID]
		if !ok {
			es = &eventSegments{event: m.Event, byStream: map[string][]Match{}}
			byEvent[m.Event.ID] = es
		}
		if _, seen := es.byStream[segment]; !seen {
			order[m.Event.ID] = append(order[m.Event.ID], segment)
		}
		es.byStream[segment] = append(es.byStream[segment], m)
	}

	var result []SegmentMatch
	for _, segment := range segmentOrder {
		for eventID, es := range byEvent {
			streams, ok := es.byStream[segment]
			if !ok || len(streams) == 0 {
				continue
			}
			start, end := SegmentTimes(es.event, segment, mmaDurationHours)
			for _, m := range streams {
				result = append(result, SegmentMatch{
					Stream:         m.Stream,
					Event:          es.event,
					Segment:        segment,
					SegmentDisplay: segmentDisplayNames[segment],
					Description:    DescribeSegment(es.event, segment),
					Start:          start,
					End:            end,
				})
			}
			_ = eventID
		}
	}

	return result
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
