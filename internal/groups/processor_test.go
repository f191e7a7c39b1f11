package groups

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/match"
	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/numbering"
	"github.com/titooo7/teamarr-sub000/internal/store"
	"github.com/titooo7/teamarr-sub000/internal/ufc"
)

type fakeStreamSource struct {
	streams []model.RawStream
	err     error
}

func (f fakeStreamSource) StreamsForGroup(ctx context.Context, group model.EventEPGGroup) ([]model.RawStream, error) {
	return f.streams, f.err
}

type fakeEnricher struct {
	byEventID map[string]model.Event
}

func (f fakeEnricher) GetEvent(ctx context.Context, league, eventID string) (model.Event, error) {
	if e, ok := f.byEventID[eventID]; ok {
		return e, nil
	}
	return model.Event{}, assert.AnError
}

type fakeTeamDirectory struct {
	teams map[string]model.Team
}

func (f fakeTeamDirectory) Team(league, teamID string) (model.Team, bool) {
	t, ok := f.teams[league+"|"+teamID]
	return t, ok
}

type fakeAuditStore struct {
	matched []model.MatchedStreamRecord
	failed  []model.FailedMatchRecord
}

func (f *fakeAuditStore) RecordMatchedStream(ctx context.Context, rec model.MatchedStreamRecord) error {
	f.matched = append(f.matched, rec)
	return nil
}

func (f *fakeAuditStore) RecordFailedMatch(ctx context.Context, rec model.FailedMatchRecord) error {
	f.failed = append(f.failed, rec)
	return nil
}

type fakeLifecycleStore struct {
	nextID int
}

func (f *fakeLifecycleStore) FindExistingChannel(ctx context.Context, groupID, eventID, eventProvider, exceptionKeyword string) (model.ManagedChannel, bool, error) {
	return model.ManagedChannel{}, false, nil
}

func (f *fakeLifecycleStore) ChannelsForPrimaryStream(ctx context.Context, groupID, eventID, eventProvider, streamID string) (model.ManagedChannel, bool, error) {
	return model.ManagedChannel{}, false, nil
}

func (f *fakeLifecycleStore) NextStreamPriority(ctx context.Context, channelID string) (int, error) {
	return 0, nil
}

func (f *fakeLifecycleStore) StreamExistsOnChannel(ctx context.Context, channelID, streamID string) (bool, error) {
	return false, nil
}

func (f *fakeLifecycleStore) AddStreamToChannel(ctx context.Context, channelID, streamID, streamName string, priority int) error {
	return nil
}

func (f *fakeLifecycleStore) CreateManagedChannel(ctx context.Context, channel model.ManagedChannel, streamID, streamName string) (model.ManagedChannel, error) {
	f.nextID++
	channel.ID = "ch-gen"
	return channel, nil
}

func (f *fakeLifecycleStore) MarkChannelDeleted(ctx context.Context, channelID, reason string) error {
	return nil
}

func (f *fakeLifecycleStore) LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error {
	return nil
}

func (f *fakeLifecycleStore) ChannelsPendingDeletion(ctx context.Context, now time.Time) ([]model.ManagedChannel, error) {
	return nil, nil
}

func (f *fakeLifecycleStore) ExceptionKeywords(ctx context.Context, groupID string) ([]lifecycle.ExceptionKeyword, error) {
	return nil, nil
}

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

func testProcessor(t *testing.T, now time.Time) (*Processor, *fakeAuditStore) {
	t.Helper()
	leagues := []model.League{{ID: "nfl", Name: "NFL", Provider: "espn", EventType: "team_vs_team", Active: true}}
	teamMatcher := &match.TeamMatcher{
		Events: fakeEventFetcher{},
		Teams: fakeTeamLister{
			"nfl": {
				{ID: "DET", League: "nfl", Name: "Detroit Lions", Abbreviation: "DET"},
				{ID: "TB", League: "nfl", Name: "Tampa Bay Buccaneers", Abbreviation: "TB"},
			},
		},
	}
	audit := &fakeAuditStore{}
	lcStore := &fakeLifecycleStore{}

	dbStore, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	proc := &Processor{
		Matcher: &match.StreamMatcher{
			Team:    teamMatcher,
			Cache:   &match.StreamCache{Store: dbStore},
			Leagues: leagues,
		},
		Store:     audit,
		Generator: "teamarr-test",
		Teams: fakeTeamDirectory{teams: map[string]model.Team{
			"nfl|DET": {ID: "DET", LogoURL: "http://logos/det.png"},
		}},
		Lifecycle: &lifecycle.Service{
			Store:                lcStore,
			Numbering:            &numbering.Numbering{Store: fakeNumberingStore{}, Mode: numbering.ModeStrictCompact, RangeStart: 100},
			Now:                  func() time.Time { return now },
			Timezone:             time.UTC,
			DefaultDurationHours: 3,
		},
	}
	return proc, audit
}

// fakeEventFetcher and fakeTeamLister ground the matcher's dependencies
// directly rather than pulling in the full match package's own test
// fakes, since this package only needs a minimal single-event schedule.
type fakeEventFetcher struct{}

func (fakeEventFetcher) GetEvents(ctx context.Context, league string, day time.Time) ([]model.Event, error) {
	return nil, nil
}

type fakeTeamLister map[string][]model.Team

func (f fakeTeamLister) TeamsForLeague(league string) []model.Team { return f[league] }

func TestProcess_FiltersStaleStream(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	proc, _ := testProcessor(t, now)
	proc.Streams = fakeStreamSource{streams: []model.RawStream{
		{StreamID: "s1", Name: "ESPN: TB vs DET", Stale: true},
	}}

	group := model.EventEPGGroup{ID: "g1", Leagues: []string{"nfl"}, IncludeLeagues: []string{"nfl"}}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := proc.Process(context.Background(), group, groupInfo, "run1", 1, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Filtered)
	assert.Equal(t, 0, result.Matched)
}

func TestProcess_ExcludePatternFiltersMatchingName(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	proc, _ := testProcessor(t, now)
	proc.Streams = fakeStreamSource{streams: []model.RawStream{
		{StreamID: "s1", Name: "Backup Feed: TB vs DET"},
	}}

	group := model.EventEPGGroup{ID: "g1", Leagues: []string{"nfl"}, IncludeLeagues: []string{"nfl"}, ExcludePattern: "Backup"}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := proc.Process(context.Background(), group, groupInfo, "run1", 1, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Filtered)
}

func TestProcess_FailedMatchIsRecordedAndCounted(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	proc, audit := testProcessor(t, now)
	proc.Streams = fakeStreamSource{streams: []model.RawStream{
		{StreamID: "s1", Name: "ESPN: Unknown Team vs Other Team"},
	}}

	group := model.EventEPGGroup{ID: "g1", Leagues: []string{"nfl"}, IncludeLeagues: []string{"nfl"}}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := proc.Process(context.Background(), group, groupInfo, "run1", 1, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, audit.failed, 1)
	assert.Equal(t, "s1", audit.failed[0].StreamID)
}

func TestProcess_MatchedStreamProducesChannelAndXMLTV(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	proc, audit := testProcessor(t, now)
	prefetched := map[string][]model.Event{
		match.PrefetchKey("nfl", now): {
			{ID: "401", League: "nfl", Provider: "espn", HomeTeam: "DET", AwayTeam: "TB", StartTime: now.Add(2 * time.Hour)},
		},
	}
	proc.Streams = fakeStreamSource{streams: []model.RawStream{
		{StreamID: "s1", Name: "ESPN: TB vs DET"},
	}}
	proc.Enricher = fakeEnricher{byEventID: map[string]model.Event{
		"401": {ID: "401", League: "nfl", Provider: "espn", HomeTeam: "DET", AwayTeam: "TB", StartTime: now.Add(2 * time.Hour), Status: "scheduled"},
	}}

	group := model.EventEPGGroup{ID: "g1", Leagues: []string{"nfl"}, IncludeLeagues: []string{"nfl"}, ChannelSortOrder: "time"}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := proc.Process(context.Background(), group, groupInfo, "run1", 1, now, prefetched)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	require.Len(t, result.Lifecycle.Created, 1)
	assert.Equal(t, "401", result.Lifecycle.Created[0].EventID)
	assert.NotEmpty(t, result.XMLTV)
	assert.Contains(t, string(result.XMLTV), "teamarr-event-espn-401")
	require.Len(t, audit.matched, 1)
	assert.True(t, audit.matched[0].Included)
}

func TestProcess_LeagueExcludedFromIncludeLeaguesIsNotRendered(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	proc, audit := testProcessor(t, now)
	prefetched := map[string][]model.Event{
		match.PrefetchKey("nfl", now): {
			{ID: "401", League: "nfl", Provider: "espn", HomeTeam: "DET", AwayTeam: "TB", StartTime: now.Add(2 * time.Hour)},
		},
	}
	proc.Streams = fakeStreamSource{streams: []model.RawStream{
		{StreamID: "s1", Name: "ESPN: TB vs DET"},
	}}

	group := model.EventEPGGroup{ID: "g1", Leagues: []string{"nfl"}, IncludeLeagues: []string{"ncaaf"}}
	groupInfo := numbering.GroupInfo{ID: "g1", AssignmentMode: numbering.AssignmentAuto}

	result, err := proc.Process(context.Background(), group, groupInfo, "run1", 1, now, prefetched)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	require.Len(t, audit.matched, 1)
	assert.False(t, audit.matched[0].Included)
	assert.Equal(t, "league_or_status_excluded", audit.matched[0].ExclusionReason)
}

func TestSortMatched_TimeOrderIsAscending(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	events := []NamedEvent{
		{Event: model.Event{ID: "later", StartTime: now.Add(3 * time.Hour)}, League: "nfl"},
		{Event: model.Event{ID: "earlier", StartTime: now.Add(1 * time.Hour)}, League: "nba"},
	}
	SortMatched(events, "time")
	require.Len(t, events, 2)
	assert.Equal(t, "earlier", events[0].Event.ID)
	assert.Equal(t, "later", events[1].Event.ID)
}

func TestSortMatched_LeagueTimeOrdersByLeagueThenTime(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	events := []NamedEvent{
		{Event: model.Event{ID: "nfl-late", StartTime: now.Add(3 * time.Hour)}, League: "nfl"},
		{Event: model.Event{ID: "nba-early", StartTime: now.Add(1 * time.Hour)}, League: "nba"},
	}
	SortMatched(events, "league_time")
	require.Len(t, events, 2)
	assert.Equal(t, "nba-early", events[0].Event.ID)
	assert.Equal(t, "nfl-late", events[1].Event.ID)
}

func TestExpandCardSegments_SplitsMultiSegmentEventIntoPerSegmentChannels(t *testing.T) {
	now := time.Date(2026, 9, 14, 18, 0, 0, 0, time.UTC)
	event := model.Event{
		ID: "evt-309", League: "ufc", Provider: "tsdb", EventName: "UFC 309",
		StartTime: now,
		MainCardStart: func() *time.Time { t := now.Add(3 * time.Hour); return &t }(),
	}
	matched := []NamedEvent{
		{Stream: model.RawStream{StreamID: "s-early", Name: "UFC 309 Early Prelims"}, Event: event, League: "ufc", CardSegment: ufc.SegmentEarlyPrelims},
		{Stream: model.RawStream{StreamID: "s-prelims", Name: "UFC 309 Prelims"}, Event: event, League: "ufc", CardSegment: ufc.SegmentPrelims},
		{Stream: model.RawStream{StreamID: "s-main", Name: "UFC 309 Main Card"}, Event: event, League: "ufc", CardSegment: ufc.SegmentMainCard},
	}

	expanded := expandCardSegments(matched)
	require.Len(t, expanded, 3)

	byStream := map[string]NamedEvent{}
	for _, ne := range expanded {
		byStream[ne.Stream.StreamID] = ne
	}

	early := byStream["s-early"]
	assert.Equal(t, "evt-309#early_prelims", early.Event.ID)
	assert.Equal(t, "UFC 309 - Early Prelims", early.Event.EventName)
	assert.Equal(t, "ufc", early.League)

	main := byStream["s-main"]
	assert.Equal(t, "evt-309#main_card", main.Event.ID)
	assert.Equal(t, "UFC 309", main.Event.EventName)

	// segments are strictly ordered and non-overlapping
	assert.True(t, byStream["s-prelims"].Event.StartTime.Before(main.Event.StartTime) ||
		byStream["s-prelims"].Event.StartTime.Equal(main.Event.StartTime))
	assert.True(t, early.Event.StartTime.Before(byStream["s-prelims"].Event.StartTime) ||
		early.Event.StartTime.Equal(byStream["s-prelims"].Event.StartTime))
}

func TestExpandCardSegments_SingleSegmentStreamPassesThroughUnchanged(t *testing.T) {
	event := model.Event{ID: "evt-310", League: "ufc", EventName: "UFC 310"}
	matched := []NamedEvent{
		{Stream: model.RawStream{StreamID: "s-ppv", Name: "UFC 310 PPV"}, Event: event, League: "ufc", CardSegment: ufc.SegmentMainCard},
	}

	expanded := expandCardSegments(matched)
	require.Len(t, expanded, 1)
	assert.Equal(t, "evt-310", expanded[0].Event.ID)
	assert.Equal(t, "UFC 310", expanded[0].Event.EventName)
}

func TestExpandCardSegments_NonUFCEventsUntouched(t *testing.T) {
	matched := []NamedEvent{
		{Stream: model.RawStream{StreamID: "s1"}, Event: model.Event{ID: "401", League: "nfl"}, League: "nfl"},
	}
	expanded := expandCardSegments(matched)
	assert.Equal(t, matched, expanded)
}

func TestBuildVars_ResolvesTeamAndRecordVariables(t *testing.T) {
	teams := fakeTeamDirectory{teams: map[string]model.Team{
		"nfl|DET": {Abbreviation: "DET", LogoURL: "http://logos/det.png"},
		"nfl|TB":  {Abbreviation: "TB"},
	}}
	event := model.Event{League: "nfl", HomeTeam: "DET", AwayTeam: "TB", StartTime: time.Date(2026, 9, 14, 20, 0, 0, 0, time.UTC)}
	ctx := BuildContext(teams, event)
	ctx.HomeStats = &model.TeamStats{Wins: 10, Losses: 2, Streak: "W3"}

	vars := BuildVars(ctx)
	assert.Equal(t, "DET", vars["home_abbrev"])
	assert.Equal(t, "TB @ DET", vars["matchup"])
	assert.Equal(t, "10-2", vars["home_record"])
	assert.Equal(t, "W3", vars["home_streak"])
}
