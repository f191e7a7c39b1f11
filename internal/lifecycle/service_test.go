package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/numbering"
)

type fakeNumberingStore struct{}

func (fakeNumberingStore) AutoGroups(ctx context.Context) ([]numbering.GroupInfo, error) {
	return nil, nil
}
func (fakeNumberingStore) ActualChannelCount(ctx context.Context, groupID string) (int, error) {
	return 0, nil
}
func (fakeNumberingStore) MinChannelNumber(ctx context.Context, groupID string) (int, bool, error) {
	return 0, false, nil
}
func (fakeNumberingStore) UsedChannelNumbers(ctx context.Context, groupID string) (map[int]bool, error) {
	return map[int]bool{}, nil
}
func (fakeNumberingStore) AllAutoUsedChannelNumbers(ctx context.Context) (map[int]bool, error) {
	return map[int]bool{}, nil
}
func (fakeNumberingStore) ReservedManualRanges(ctx context.Context) ([]numbering.Range, error) {
	return nil, nil
}

type fakeLifecycleStore struct {
	byEvent   map[string]model.ManagedChannel
	byStream  map[string]model.ManagedChannel
	streamsOn map[string]map[string]bool
	priority  map[string]int
	created   []model.ManagedChannel
	deleted   map[string]string
	history   []string
	keywords  []ExceptionKeyword
	pending   []model.ManagedChannel
}

func newFakeLifecycleStore() *fakeLifecycleStore {
	return &fakeLifecycleStore{
		byEvent:   map[string]model.ManagedChannel{},
		byStream:  map[string]model.ManagedChannel{},
		streamsOn: map[string]map[string]bool{},
		priority:  map[string]int{},
		deleted:   map[string]string{},
	}
}

func key(groupID, eventID, eventProvider, exceptionKeyword string) string {
	return groupID + "|" + eventID + "|" + eventProvider + "|" + exceptionKeyword
}

func (f *fakeLifecycleStore) FindExistingChannel(ctx context.Context, groupID, eventID, eventProvider, exceptionKeyword string) (model.ManagedChannel, bool, error) {
	ch, ok := f.byEvent[key(groupID, eventID, eventProvider, exceptionKeyword)]
	return ch, ok, nil
}

func (f *fakeLifecycleStore) ChannelsForPrimaryStream(ctx context.Context, groupID, eventID, eventProvider, streamID string) (model.ManagedChannel, bool, error) {
	ch, ok := f.byStream[streamID]
	return ch, ok, nil
}

func (f *fakeLifecycleStore) NextStreamPriority(ctx context.Context, channelID string) (int, error) {
	f.priority[channelID]++
	return f.priority[channelID], nil
}

func (f *fakeLifecycleStore) StreamExistsOnChannel(ctx context.Context, channelID, streamID string) (bool, error) {
	return f.streamsOn[channelID][streamID], nil
}

func (f *fakeLifecycleStore) AddStreamToChannel(ctx context.Context, channelID, streamID, streamName string, priority int) error {
	if f.streamsOn[channelID] == nil {
		f.streamsOn[channelID] = map[string]bool{}
	}
	f.streamsOn[channelID][streamID] = true
	return nil
}

func (f *fakeLifecycleStore) CreateManagedChannel(ctx context.Context, channel model.ManagedChannel, streamID, streamName string) (model.ManagedChannel, error) {
	channel.ID = "ch-" + streamID
	f.byEvent[key(channel.GroupID, channel.EventID, channel.EventProvider, "")] = channel
	f.byStream[streamID] = channel
	f.created = append(f.created, channel)
	return channel, nil
}

func (f *fakeLifecycleStore) MarkChannelDeleted(ctx context.Context, channelID, reason string) error {
	f.deleted[channelID] = reason
	return nil
}

func (f *fakeLifecycleStore) LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error {
	f.history = append(f.history, changeType+":"+notes)
	return nil
}

func (f *fakeLifecycleStore) ChannelsPendingDeletion(ctx context.Context, now time.Time) ([]model.ManagedChannel, error) {
	return f.pending, nil
}

func (f *fakeLifecycleStore) ExceptionKeywords(ctx context.Context, groupID string) ([]ExceptionKeyword, error) {
	return f.keywords, nil
}

func testService(store *fakeLifecycleStore, now time.Time) *Service {
	return &Service{
		Store:     store,
		Numbering: &numbering.Numbering{Store: fakeNumberingStore{}, Mode: numbering.ModeStrictCompact, RangeStart: 100},
		Now:       func() time.Time { return now },
		Timezone:  time.UTC,
		DefaultDurationHours: 3,
	}
}

func TestProcessMatchedStreams_CreatesNewChannelWhenWindowOpen(t *testing.T) {
	store := newFakeLifecycleStore()
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	svc := testService(store, now)

	event := model.Event{ID: "401", Provider: "espn", League: "nfl", HomeTeam: "DET", AwayTeam: "TB", StartTime: now.Add(2 * time.Hour)}
	streams := []MatchedStream{{Stream: model.RawStream{StreamID: "s1", Name: "ESPN: TB vs DET"}, Event: event}}
	group := model.EventEPGGroup{ID: "g1", NumberingMode: "strict_compact"}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := svc.ProcessMatchedStreams(context.Background(), streams, group, groupInfo, CreateSameDay, DeleteDayAfter, nil)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "401", result.Created[0].EventID)
	assert.Equal(t, "teamarr-event-espn-401", result.Created[0].TVGID)
	assert.NotNil(t, result.Created[0].ScheduledDeleteAt)
}

func TestProcessMatchedStreams_SkipsWhenBeforeCreateWindow(t *testing.T) {
	store := newFakeLifecycleStore()
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	svc := testService(store, now)

	event := model.Event{ID: "401", Provider: "espn", StartTime: time.Date(2026, 9, 20, 20, 0, 0, 0, time.UTC)}
	streams := []MatchedStream{{Stream: model.RawStream{StreamID: "s1", Name: "Game"}, Event: event}}
	group := model.EventEPGGroup{ID: "g1"}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := svc.ProcessMatchedStreams(context.Background(), streams, group, groupInfo, CreateDayBefore, DeleteDayAfter, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "before_window", result.Skipped[0].Reason)
}

func TestProcessMatchedStreams_ConsolidateAttachesSecondStream(t *testing.T) {
	store := newFakeLifecycleStore()
	store.byEvent[key("g1", "401", "espn", "")] = model.ManagedChannel{ID: "ch-existing", GroupID: "g1", EventID: "401", EventProvider: "espn"}
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	svc := testService(store, now)

	event := model.Event{ID: "401", Provider: "espn", StartTime: now.Add(time.Hour)}
	streams := []MatchedStream{{Stream: model.RawStream{StreamID: "s2", Name: "Alt Feed"}, Event: event}}
	group := model.EventEPGGroup{ID: "g1", DuplicateHandling: "consolidate"}
	groupInfo := numbering.GroupInfo{ID: "g1"}

	result, err := svc.ProcessMatchedStreams(context.Background(), streams, group, groupInfo, CreateSameDay, DeleteDayAfter, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	require.Len(t, result.Updated, 1)
	assert.True(t, store.streamsOn["ch-existing"]["s2"])
}

func TestProcessMatchedStreams_IgnoreModeDiscardsDuplicate(t *testing.T) {
	store := newFakeLifecycleStore()
	store.byEvent[key("g1", "401", "espn", "")] = model.ManagedChannel{ID: "ch-existing", GroupID: "g1", EventID: "401", EventProvider: "espn"}
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	svc := testService(store, now)

	event := model.Event{ID: "401", Provider: "espn", StartTime: now.Add(time.Hour)}
	streams := []MatchedStream{{Stream: model.RawStream{StreamID: "s2", Name: "Dup"}, Event: event}}
	group := model.EventEPGGroup{ID: "g1", DuplicateHandling: "ignore"}
	groupInfo := numbering.GroupInfo{ID: "g1"}

	result, err := svc.ProcessMatchedStreams(context.Background(), streams, group, groupInfo, CreateSameDay, DeleteDayAfter, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Empty(t, result.Updated)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "ignored_duplicate", result.Skipped[0].Reason)
	assert.False(t, store.streamsOn["ch-existing"]["s2"])
}

func TestProcessMatchedStreams_ExceptionKeywordOverridesDuplicateMode(t *testing.T) {
	store := newFakeLifecycleStore()
	store.keywords = []ExceptionKeyword{{Keyword: "Spanish", Behavior: ModeSeparate}}
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	svc := testService(store, now)

	event := model.Event{ID: "401", Provider: "espn", StartTime: now.Add(time.Hour)}
	streams := []MatchedStream{{Stream: model.RawStream{StreamID: "s1", Name: "Spanish Feed"}, Event: event}}
	group := model.EventEPGGroup{ID: "g1", DuplicateHandling: "consolidate"}
	groupInfo := numbering.GroupInfo{ID: "g1"}

	result, err := svc.ProcessMatchedStreams(context.Background(), streams, group, groupInfo, CreateSameDay, DeleteDayAfter, nil)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
}

func TestProcessScheduledDeletions_DeletesDueChannels(t *testing.T) {
	store := newFakeLifecycleStore()
	store.pending = []model.ManagedChannel{{ID: "ch1"}, {ID: "ch2"}}
	svc := testService(store, time.Now())

	var deletedViaGateway []string
	count, err := svc.ProcessScheduledDeletions(context.Background(), func(ctx context.Context, ch model.ManagedChannel) error {
		deletedViaGateway = append(deletedViaGateway, ch.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"ch1", "ch2"}, deletedViaGateway)
	assert.Equal(t, "scheduled", store.deleted["ch1"])
	assert.Equal(t, "scheduled", store.deleted["ch2"])
}

func TestResetChannels_PurgesOnlyRecognizedChannelsAndSkipsOthers(t *testing.T) {
	store := newFakeLifecycleStore()
	svc := testService(store, time.Now())

	active := []model.ManagedChannel{
		{ID: "ch1", TVGID: "teamarr-event-espn-401"},
		{ID: "ch2", TVGID: "teamarr-event-tsdb-55"},
		{ID: "ch3", TVGID: "some-other-channel"},
	}

	var resetViaGateway []string
	count, err := svc.ResetChannels(context.Background(), active, func(ctx context.Context, ch model.ManagedChannel) error {
		resetViaGateway = append(resetViaGateway, ch.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"ch1", "ch2"}, resetViaGateway)
	assert.Equal(t, "scheduled_reset", store.deleted["ch1"])
	assert.Equal(t, "scheduled_reset", store.deleted["ch2"])
	assert.NotContains(t, store.deleted, "ch3")
}

func TestResetChannels_PropagatesGatewayError(t *testing.T) {
	store := newFakeLifecycleStore()
	svc := testService(store, time.Now())

	active := []model.ManagedChannel{{ID: "ch1", TVGID: "teamarr-event-espn-401"}}
	count, err := svc.ResetChannels(context.Background(), active, func(ctx context.Context, ch model.ManagedChannel) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, store.deleted)
}

func TestGenerateChannelName_FallsBackWhenTemplateUnresolved(t *testing.T) {
	name := GenerateChannelName("{team_name} Special", map[string]string{}, "Tampa Bay Buccaneers", "Detroit Lions", "")
	assert.Equal(t, "Tampa Bay Buccaneers @ Detroit Lions", name)
}

func TestGenerateChannelName_UsesTemplateWhenResolved(t *testing.T) {
	name := GenerateChannelName("{team_name} Showcase", map[string]string{"team_name": "Lions"}, "Bucs", "Lions", "")
	assert.Equal(t, "Lions Showcase", name)
}

func TestGenerateChannelName_AppendsExceptionKeyword(t *testing.T) {
	name := GenerateChannelName("", nil, "Bucs", "Lions", "spanish")
	assert.Equal(t, "Bucs @ Lions (Spanish)", name)
}

func TestResolveLogoURL_FallsBackToHomeLogo(t *testing.T) {
	url := ResolveLogoURL("{missing}", nil, "http://logos/home.png")
	assert.Equal(t, "http://logos/home.png", url)
}

func TestCheckExceptionKeyword_CaseInsensitiveSubstring(t *testing.T) {
	keywords := []ExceptionKeyword{{Keyword: "Alt Cam", Behavior: ModeSeparate}}
	matched, behavior, ok := CheckExceptionKeyword("Feed: alt cam 2", keywords)
	require.True(t, ok)
	assert.Equal(t, "Alt Cam", matched)
	assert.Equal(t, ModeSeparate, behavior)
}

func TestShouldCreateChannel_ManualNeverAutoCreates(t *testing.T) {
	d := ShouldCreateChannel(CreateManual, time.Now(), time.Now(), time.UTC)
	assert.False(t, d.ShouldAct)
}

func TestShouldCreateChannel_StreamAvailableAlwaysOpen(t *testing.T) {
	d := ShouldCreateChannel(CreateStreamAvailable, time.Now().Add(30*24*time.Hour), time.Now(), time.UTC)
	assert.True(t, d.ShouldAct)
}

func TestScheduledDeleteAt_DayAfterIsPastEventDay(t *testing.T) {
	eventStart := time.Date(2026, 9, 14, 20, 0, 0, 0, time.UTC)
	at := ScheduledDeleteAt(DeleteDayAfter, eventStart, 3, time.UTC)
	assert.True(t, at.After(eventStart.Add(3*time.Hour)))
}

func TestGenerateEventTVGID_MatchesConfiguredFormat(t *testing.T) {
	assert.Equal(t, "teamarr-event-espn-401547", GenerateEventTVGID("401547", "espn"))
}

func TestHasEventPrefix(t *testing.T) {
	assert.True(t, HasEventPrefix("teamarr-event-espn-401547"))
	assert.False(t, HasEventPrefix("some-other-channel"))
}
