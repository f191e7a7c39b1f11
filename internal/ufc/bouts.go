package ufc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// BoutsForSegment returns the event's bouts on the given segment, ordered
// card position earliest-first. A combined-card event records every bout
// under SegmentMainCard, so segment "combined" returns the whole card.
func BoutsForSegment(event model.Event, segment string) []model.Bout {
	if len(event.Bouts) == 0 {
		return nil
	}
	var out []model.Bout
	for _, b := range event.Bouts {
		if segment == SegmentCombined || b.Segment == segment {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// DescribeSegment renders the programme description for a segment channel:
// the fighters actually on that segment, main event last. Falls back to the
// bare event name when no bout-level data was recorded.
func DescribeSegment(event model.Event, segment string) string {
	bouts := BoutsForSegment(event, segment)
	if len(bouts) == 0 {
		return event.EventName
	}
	lines := make([]string, 0, len(bouts))
	for _, b := range bouts {
		lines = append(lines, fmt.Sprintf("%s vs %s", b.Fighter1, b.Fighter2))
	}
	return strings.Join(lines, "; ")
}
