package match

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// eventNumberPattern pulls a promotion's numbered event out of a stream
// name: "UFC 315", "UFC Fight Night 240", "Bellator 301", "PFL 10".
var eventNumberPattern = regexp.MustCompile(`(?i)\b(?:ufc\s*(?:fn|fight\s*night)?|pfl|bellator|one\s*fc)\s*(\d+)\b`)

// minFighterNameLen is the shortest last-name fragment the fallback tier
// will accept, to avoid matching on short common words.
const minFighterNameLen = 4

// EventCardMatcher implements the three-tier combat-sports matching ladder:
// event number, then keyword overlap, then fighter last-name substring.
type EventCardMatcher struct {
	Events EventFetcher
}

// Match resolves a classified event-card stream against the candidate
// events on targetDate for league.
func (m *EventCardMatcher) Match(ctx context.Context, cs model.ClassifiedStream, league string, targetDate time.Time) (MatchOutcome, error) {
	events, err := m.Events.GetEvents(ctx, league, targetDate)
	if err != nil {
		return MatchOutcome{}, err
	}
	if len(events) == 0 {
		return Failed(FailedNoEventOnDate), nil
	}

	outcome := matchByEventNumber(cs, league, events)
	if outcome.IsMatched() {
		return outcome.WithCardSegment(cardSegment(cs)), nil
	}

	outcome = matchByKeyword(cs, league, events)
	if outcome.IsMatched() {
		return outcome.WithCardSegment(cardSegment(cs)), nil
	}

	outcome = matchByFighterName(cs, league, events)
	if outcome.IsMatched() {
		return outcome.WithCardSegment(cardSegment(cs)), nil
	}

	return Failed(FailedNoEventCardMatch), nil
}

func cardSegment(cs model.ClassifiedStream) string {
	lower := strings.ToLower(cs.EventHint)
	switch {
	case strings.Contains(lower, "early prelims"):
		return "early_prelims"
	case strings.Contains(lower, "prelims"):
		return "prelims"
	case strings.Contains(lower, "main card"), strings.Contains(lower, "ppv"):
		return "main_card"
	default:
		return "combined"
	}
}

// matchByEventNumber is tier 1: an exact numbered-event match is always
// confidence 1.0 regardless of how many other events share the date.
func matchByEventNumber(cs model.ClassifiedStream, league string, events []model.Event) MatchOutcome {
	num, ok := extractEventNumber(cs.Normalized)
	if !ok {
		return Failed(FailedNoEventCardMatch)
	}
	for i := range events {
		if n, ok := extractEventNumber(events[i].EventName); ok && n == num {
			ev := events[i]
			return Matched(&ev, league, model.MethodKeyword, 1.0)
		}
	}
	return Failed(FailedNoEventCardMatch)
}

func extractEventNumber(text string) (string, bool) {
	m := eventNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// matchByKeyword is tier 2. With exactly one event_card event on the date,
// any keyword overlap is enough at confidence 0.9. With multiple events on
// the date, at least two overlapping significant words are required, at
// confidence 0.85.
func matchByKeyword(cs model.ClassifiedStream, league string, events []model.Event) MatchOutcome {
	streamWords := significantWords(cs.Normalized)
	if len(streamWords) == 0 {
		return Failed(FailedNoEventCardMatch)
	}

	type candidate struct {
		event   model.Event
		overlap int
	}
	var candidates []candidate
	for _, ev := range events {
		overlap := overlapCount(streamWords, significantWords(ev.EventName))
		if overlap > 0 {
			candidates = append(candidates, candidate{event: ev, overlap: overlap})
		}
	}
	if len(candidates) == 0 {
		return Failed(FailedNoEventCardMatch)
	}

	if len(events) == 1 {
		return Matched(&candidates[0].event, league, model.MethodKeyword, 0.9)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.overlap > best.overlap {
			best = c
		}
	}
	if best.overlap < 2 {
		return Failed(FailedNoEventCardMatch)
	}
	return Matched(&best.event, league, model.MethodKeyword, 0.85)
}

// matchByFighterName is tier 3, the last resort: a >= minFighterNameLen
// substring shared between the stream name and an event's fighter roster
// (modeled here through EventName, which carries "Lastname1 vs Lastname2"
// style titles for card events without a clean numbered title).
func matchByFighterName(cs model.ClassifiedStream, league string, events []model.Event) MatchOutcome {
	lowerStream := strings.ToLower(cs.Normalized)
	for i := range events {
		for _, word := range significantWords(events[i].EventName) {
			if len(word) >= minFighterNameLen && strings.Contains(lowerStream, word) {
				ev := events[i]
				return Matched(&ev, league, model.MethodFuzzy, 0.75)
			}
		}
	}
	return Failed(FailedNoEventCardMatch)
}

var stopWords = map[string]bool{
	"the": true, "vs": true, "v": true, "and": true, "at": true, "ufc": true,
	"fight": true, "night": true, "early": true, "prelims": true, "main": true,
	"card": true, "ppv": true, "on": true, "espn": true,
}

func significantWords(s string) []string {
	lower := strings.ToLower(s)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		if _, err := strconv.Atoi(w); err == nil {
			continue
		}
		out = append(out, w)
	}
	return out
}

func overlapCount(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	count := 0
	for _, w := range b {
		if set[w] {
			count++
		}
	}
	return count
}
