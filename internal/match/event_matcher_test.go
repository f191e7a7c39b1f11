package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

func TestEventCardMatcher_ExactEventNumber(t *testing.T) {
	target := day(t, "2026-09-14 22:00")
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("ufc", target): {
			{ID: "evt-315", League: "ufc", EventName: "UFC 315: Rodriguez vs Lopes", StartTime: target},
			{ID: "evt-other", League: "ufc", EventName: "UFC Fight Night 241", StartTime: target},
		},
	}}
	m := &EventCardMatcher{Events: events}

	cs := model.ClassifiedStream{Normalized: "UFC 315 Early Prelims", EventHint: "UFC 315 Early Prelims"}
	outcome, err := m.Match(context.Background(), cs, "ufc", target)
	require.NoError(t, err)
	require.True(t, outcome.IsMatched())
	assert.Equal(t, "evt-315", outcome.Event.ID)
	assert.Equal(t, 1.0, outcome.Confidence)
	assert.Equal(t, "early_prelims", outcome.CardSegment)
}

func TestEventCardMatcher_KeywordSingleEvent(t *testing.T) {
	target := day(t, "2026-09-14 22:00")
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("ufc", target): {
			{ID: "evt-1", League: "ufc", EventName: "Rodriguez vs Lopes", StartTime: target},
		},
	}}
	m := &EventCardMatcher{Events: events}

	cs := model.ClassifiedStream{Normalized: "UFC Fight Night: Rodriguez vs Lopes Main Card", EventHint: "UFC Fight Night: Rodriguez vs Lopes Main Card"}
	outcome, err := m.Match(context.Background(), cs, "ufc", target)
	require.NoError(t, err)
	require.True(t, outcome.IsMatched())
	assert.Equal(t, 0.9, outcome.Confidence)
	assert.Equal(t, "main_card", outcome.CardSegment)
}

func TestEventCardMatcher_KeywordMultipleEventsRequiresTwoOverlap(t *testing.T) {
	target := day(t, "2026-09-14 22:00")
	events := &fakeEventFetcher{byKey: map[string][]model.Event{
		PrefetchKey("ufc", target): {
			{ID: "evt-a", League: "ufc", EventName: "Rodriguez vs Lopes", StartTime: target},
			{ID: "evt-b", League: "ufc", EventName: "Garcia vs Ferreira", StartTime: target},
		},
	}}
	m := &EventCardMatcher{Events: events}

	cs := model.ClassifiedStream{Normalized: "Rodriguez vs Lopes Prelims", EventHint: "Rodriguez vs Lopes Prelims"}
	outcome, err := m.Match(context.Background(), cs, "ufc", target)
	require.NoError(t, err)
	require.True(t, outcome.IsMatched())
	assert.Equal(t, "evt-a", outcome.Event.ID)
	assert.Equal(t, 0.85, outcome.Confidence)
}

func TestEventCardMatcher_NoCandidatesFails(t *testing.T) {
	target := day(t, "2026-09-14 22:00")
	m := &EventCardMatcher{Events: &fakeEventFetcher{}}
	cs := model.ClassifiedStream{Normalized: "UFC 999 Prelims", EventHint: "UFC 999 Prelims"}
	outcome, err := m.Match(context.Background(), cs, "ufc", target)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, FailedNoEventOnDate, outcome.FailedReason)
}
