package numbering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	auto       []GroupInfo
	actual     map[string]int
	minChannel map[string]int // 0 means none
	used       map[string]map[int]bool
	allAuto    map[int]bool
	reserved   []Range
}

func (f *fakeStore) AutoGroups(ctx context.Context) ([]GroupInfo, error) {
	return f.auto, nil
}

func (f *fakeStore) ActualChannelCount(ctx context.Context, groupID string) (int, error) {
	return f.actual[groupID], nil
}

func (f *fakeStore) MinChannelNumber(ctx context.Context, groupID string) (int, bool, error) {
	v, ok := f.minChannel[groupID]
	if !ok || v == 0 {
		return 0, false, nil
	}
	return v, true, nil
}

func (f *fakeStore) UsedChannelNumbers(ctx context.Context, groupID string) (map[int]bool, error) {
	if f.used[groupID] == nil {
		return map[int]bool{}, nil
	}
	return f.used[groupID], nil
}

func (f *fakeStore) AllAutoUsedChannelNumbers(ctx context.Context) (map[int]bool, error) {
	if f.allAuto == nil {
		return map[int]bool{}, nil
	}
	return f.allAuto, nil
}

func (f *fakeStore) ReservedManualRanges(ctx context.Context) ([]Range, error) {
	return f.reserved, nil
}

func TestBlocksNeeded(t *testing.T) {
	assert.Equal(t, 1, blocksNeeded(0))
	assert.Equal(t, 1, blocksNeeded(1))
	assert.Equal(t, 1, blocksNeeded(10))
	assert.Equal(t, 2, blocksNeeded(11))
	assert.Equal(t, 3, blocksNeeded(25))
}

func TestNextChannelNumber_StrictBlock_ReservesByStreamCount(t *testing.T) {
	store := &fakeStore{
		auto: []GroupInfo{
			{ID: "nfl", SortOrder: 0, AssignmentMode: AssignmentAuto, TotalStreamCount: 15},
			{ID: "nba", SortOrder: 1, AssignmentMode: AssignmentAuto, TotalStreamCount: 5},
		},
		used: map[string]map[int]bool{},
	}
	n := &Numbering{Store: store, Mode: ModeStrictBlock, RangeStart: 101}

	num, err := n.NextChannelNumber(context.Background(), store.auto[0])
	require.NoError(t, err)
	assert.Equal(t, 101, num)

	// nfl reserves ceil(15/10)=2 blocks -> 20 channels, so nba starts at 121.
	num, err = n.NextChannelNumber(context.Background(), store.auto[1])
	require.NoError(t, err)
	assert.Equal(t, 121, num)
}

func TestNextChannelNumber_RationalBlock_ReservesByActualCount(t *testing.T) {
	store := &fakeStore{
		auto: []GroupInfo{
			{ID: "nfl", SortOrder: 0, AssignmentMode: AssignmentAuto, TotalStreamCount: 40},
			{ID: "nba", SortOrder: 1, AssignmentMode: AssignmentAuto, TotalStreamCount: 5},
		},
		actual: map[string]int{"nfl": 3}, // far fewer real channels than raw stream count
		used:   map[string]map[int]bool{},
	}
	n := &Numbering{Store: store, Mode: ModeRationalBlock, RangeStart: 101}

	num, err := n.NextChannelNumber(context.Background(), store.auto[1])
	require.NoError(t, err)
	// nfl reserves ceil(3/10)=1 block -> nba starts right at 111, not 141.
	assert.Equal(t, 111, num)
}

func TestNextChannelNumber_StrictBlock_SkipsUsedNumbers(t *testing.T) {
	store := &fakeStore{
		auto: []GroupInfo{{ID: "nfl", SortOrder: 0, AssignmentMode: AssignmentAuto, TotalStreamCount: 5}},
		used: map[string]map[int]bool{"nfl": {101: true, 102: true}},
	}
	n := &Numbering{Store: store, Mode: ModeStrictBlock, RangeStart: 101}

	num, err := n.NextChannelNumber(context.Background(), store.auto[0])
	require.NoError(t, err)
	assert.Equal(t, 103, num)
}

func TestNextCompactChannelNumber_SharesGlobalPool(t *testing.T) {
	store := &fakeStore{allAuto: map[int]bool{101: true, 102: true, 103: true}}
	n := &Numbering{Store: store, Mode: ModeStrictCompact, RangeStart: 101}

	num, err := n.NextCompactChannelNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 104, num)
}

func TestNextChannelNumber_Manual_UsesFixedStart(t *testing.T) {
	store := &fakeStore{used: map[string]map[int]bool{"promos": {201: true}}}
	n := &Numbering{Store: store, Mode: ModeStrictBlock, RangeStart: 101}
	group := GroupInfo{ID: "promos", AssignmentMode: AssignmentManual, ChannelStartNumber: 201}

	num, err := n.NextChannelNumber(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 202, num)
}

func TestNextChannelNumber_Manual_AutoAssignsAtX01Boundary(t *testing.T) {
	store := &fakeStore{
		reserved: []Range{{Start: 101, End: 130}, {Start: 201, End: 210}},
		used:     map[string]map[int]bool{},
	}
	n := &Numbering{Store: store, Mode: ModeStrictBlock, RangeStart: 101}
	group := GroupInfo{ID: "new-manual", AssignmentMode: AssignmentManual}

	num, err := n.NextChannelNumber(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 211, num)
}

func TestGroupChannelRange_Manual(t *testing.T) {
	store := &fakeStore{}
	n := &Numbering{Store: store, Mode: ModeStrictBlock, RangeStart: 101}
	group := GroupInfo{ID: "promos", AssignmentMode: AssignmentManual, ChannelStartNumber: 201, TotalStreamCount: 3}

	start, end, err := n.GroupChannelRange(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 201, start)
	assert.Equal(t, 210, end) // reservation floors to 10 even for a tiny group
}

func TestValidateInRange_StrictCompact_AnyGlobalSlotValid(t *testing.T) {
	store := &fakeStore{}
	n := &Numbering{Store: store, Mode: ModeStrictCompact, RangeStart: 101, RangeEnd: 199}
	group := GroupInfo{ID: "nfl", AssignmentMode: AssignmentAuto}

	ok, err := n.ValidateInRange(context.Background(), group, 150)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = n.ValidateInRange(context.Background(), group, 200)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReassignOutOfRange_PicksNextFreeInGroupRange(t *testing.T) {
	store := &fakeStore{
		auto: []GroupInfo{{ID: "nfl", SortOrder: 0, AssignmentMode: AssignmentAuto, TotalStreamCount: 5}},
		used: map[string]map[int]bool{"nfl": {101: true}},
	}
	n := &Numbering{Store: store, Mode: ModeStrictBlock, RangeStart: 101}

	num, err := n.ReassignOutOfRange(context.Background(), store.auto[0])
	require.NoError(t, err)
	assert.Equal(t, 102, num)
}
