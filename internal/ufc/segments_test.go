package ufc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

func TestIsUFCEvent(t *testing.T) {
	assert.False(t, IsUFCEvent(nil))
	assert.False(t, IsUFCEvent(&model.Event{League: "nfl"}))
	assert.True(t, IsUFCEvent(&model.Event{League: "ufc"}))
	assert.True(t, IsUFCEvent(&model.Event{League: "UFC"}))
}

func TestIsExcluded(t *testing.T) {
	assert.True(t, IsExcluded("UFC 309 Weigh-In"))
	assert.True(t, IsExcluded("Press Conference"))
	assert.False(t, IsExcluded("UFC 309 Main Card"))
}

func TestDisplaySuffix(t *testing.T) {
	assert.Equal(t, " - Early Prelims", DisplaySuffix(SegmentEarlyPrelims))
	assert.Equal(t, " - Prelims", DisplaySuffix(SegmentPrelims))
	assert.Equal(t, "", DisplaySuffix(SegmentMainCard))
	assert.Equal(t, "", DisplaySuffix(SegmentCombined))
	assert.Equal(t, "", DisplaySuffix("unknown"))
}

func TestSegmentTimes_UsesESPNBoutData(t *testing.T) {
	base := time.Date(2026, 9, 14, 22, 0, 0, 0, time.UTC)
	event := model.Event{
		ID:        "evt-1",
		StartTime: base,
		SegmentTimes: map[string]time.Time{
			SegmentEarlyPrelims: base,
			SegmentPrelims:      base.Add(90 * time.Minute),
			SegmentMainCard:     base.Add(3 * time.Hour),
		},
	}

	start, end := SegmentTimes(event, SegmentEarlyPrelims, 5.0)
	assert.Equal(t, base, start)
	assert.Equal(t, base.Add(90*time.Minute), end)

	start, end = SegmentTimes(event, SegmentMainCard, 6.0)
	assert.Equal(t, base.Add(3*time.Hour), start)
	assert.Equal(t, base.Add(3*time.Hour).Add(3*time.Hour), end)
}

func TestSegmentTimes_FallsBackToMainCardStartEstimate(t *testing.T) {
	base := time.Date(2026, 9, 14, 20, 0, 0, 0, time.UTC)
	mainStart := base.Add(4 * time.Hour)
	event := model.Event{
		ID:            "evt-2",
		StartTime:     base,
		MainCardStart: &mainStart,
	}

	start, end := SegmentTimes(event, SegmentEarlyPrelims, 5.0)
	assert.Equal(t, base, start)
	assert.Equal(t, mainStart.Add(-90*time.Minute), end)

	start, end = SegmentTimes(event, SegmentPrelims, 5.0)
	assert.Equal(t, mainStart.Add(-90*time.Minute), start)
	assert.Equal(t, mainStart, end)

	start, end = SegmentTimes(event, SegmentMainCard, 4.0)
	assert.Equal(t, mainStart, start)
	assert.Equal(t, mainStart.Add(2*time.Hour), end)
}

func TestExpandSegments_GroupsByEventAndSegment(t *testing.T) {
	event := model.Event{
		ID:        "evt-1",
		League:    "ufc",
		StartTime: time.Date(2026, 9, 14, 18, 0, 0, 0, time.UTC),
		SegmentTimes: map[string]time.Time{
			SegmentPrelims:  time.Date(2026, 9, 14, 20, 0, 0, 0, time.UTC),
			SegmentMainCard: time.Date(2026, 9, 14, 22, 0, 0, 0, time.UTC),
		},
	}
	matches := []Match{
		{Stream: model.RawStream{Name: "UFC 309 Prelims"}, Event: event, Segment: SegmentPrelims},
		{Stream: model.RawStream{Name: "UFC 309 Main Card"}, Event: event, Segment: SegmentMainCard},
		{Stream: model.RawStream{Name: "UFC 309 Weigh-In"}, Event: event, Segment: SegmentPrelims},
		{Stream: model.RawStream{Name: "UFC 309 Combined"}, Event: event, Segment: SegmentCombined},
	}

	result := ExpandSegments(matches, 5.0)

	require.Len(t, result, 3) // weigh-in excluded, combined folded into main_card
	bySegment := map[string]int{}
	for _, m := range result {
		bySegment[m.Segment]++
	}
	assert.Equal(t, 1, bySegment[SegmentPrelims])
	assert.Equal(t, 2, bySegment[SegmentMainCard])
}

func TestExpandSegments_NoSegmentDetectedDefaultsToMainCard(t *testing.T) {
	event := model.Event{ID: "evt-3", League: "ufc", StartTime: time.Now()}
	matches := []Match{{Stream: model.RawStream{Name: "UFC 310"}, Event: event}}

	result := ExpandSegments(matches, 5.0)
	require.Len(t, result, 1)
	assert.Equal(t, SegmentMainCard, result[0].Segment)
}
