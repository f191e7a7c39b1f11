// Package model holds the shared data types passed between the matching,
// lifecycle, and rendering layers. None of these types own persistence —
// internal/store is the only package that talks to the database.
package model

import "time"

// League describes one sport/competition tracked by the system.
type League struct {
	ID          string
	Name        string
	Provider    string // "espn", "tsdb", "cricbuzz", ...
	EventType   string // "team_vs_team" or "event_card"
	Active      bool
	Aliases     []string
	IncludeOnce bool // cricket/tennis-style leagues where only one team needs to match
}

// Team is a roster entry used by both the matcher and the template engine.
type Team struct {
	ID            string
	League        string
	Name          string
	ShortName     string
	Abbreviation  string
	City          string
	Venue         string
	PrimaryColor  string
	SecondaryColor string
	Conference    string
	Division      string
	LogoURL       string
	Aliases       []string
}

// TeamStats is the subset of standings data the template engine exposes as
// {team.record}, {team.streak}, {team.standing}.
type TeamStats struct {
	TeamID   string
	Wins     int
	Losses   int
	Ties     int
	Streak   string // e.g. "W3", "L1"
	Standing string // e.g. "1st in AFC East"
}

// Event is a single scheduled game, fight card, or match.
type Event struct {
	ID            string
	League        string
	Provider      string
	HomeTeam      string
	AwayTeam      string
	StartTime     time.Time
	Venue         string
	Status        string // "scheduled", "live", "final", "postponed", "cancelled"
	EventName     string // for EVENT_CARD leagues: "UFC 309", "PFL 12"
	SegmentTimes  map[string]time.Time
	MainCardStart *time.Time
	DurationHours float64
	Bouts         []Bout // full fight card for combat-sports events, not just the headline bout

	// CardDescription overrides the rendered programme description when set,
	// used for combat-sports segment channels (see internal/ufc) whose
	// description lists the fighters on that segment rather than the bare
	// event name.
	CardDescription string
}

// Bout is a single matchup on a combat-sports card (UFC, boxing, ...),
// used to render a segment channel's programme description with the
// actual fighters on that segment rather than just the event name.
type Bout struct {
	Fighter1 string
	Fighter2 string
	Segment  string // "early_prelims", "prelims", "main_card"
	Order    int    // position on the card; 0 is the opener, higher is later
}

// IsFinal reports whether the event has concluded.
func (e Event) IsFinal() bool {
	return e.Status == "final" || e.Status == "postponed" || e.Status == "cancelled"
}

// StreamCategory classifies a raw stream name before matching is attempted.
type StreamCategory string

const (
	CategoryTeamVsTeam StreamCategory = "team_vs_team"
	CategoryEventCard  StreamCategory = "event_card"
	CategoryPlaceholder StreamCategory = "placeholder"
)

// RawStream is an unclassified stream as delivered by the aggregator.
type RawStream struct {
	Name     string
	StreamID string
	GroupID  string
	Stale    bool // aggregator-reported dead/unreachable stream, filtered before matching
}

// ClassifiedStream is a RawStream annotated with the normalizer/classifier output.
type ClassifiedStream struct {
	RawStream
	Normalized     string
	ExtractedDate  *time.Time
	ExtractedTime  *string
	LeagueHint     *string
	ProviderPrefix *string
	Category       StreamCategory
	ParsedTeam1    string
	ParsedTeam2    string
	EventHint      string
}

// MatchMethod records which tier of the matching ladder produced a result.
type MatchMethod string

const (
	MethodCache    MatchMethod = "cache"
	MethodAlias    MatchMethod = "alias"
	MethodPattern  MatchMethod = "pattern"
	MethodFuzzy    MatchMethod = "fuzzy"
	MethodKeyword  MatchMethod = "keyword"
	MethodNone     MatchMethod = "none"
)

// ManagedChannel is a channel this system created and owns on the aggregator.
type ManagedChannel struct {
	ID              string
	GroupID         string
	ChannelNumber   int
	Name            string
	TVGID           string
	LogoURL         string
	EventID         string
	EventProvider   string
	League          string
	Segment         string
	ExceptionKeyword string // non-empty for a keyword channel sibling of the main event channel
	SourceGroupType string
	CreatedAt       time.Time
	ScheduledDeleteAt *time.Time // nil for DeleteStreamRemoved, which has no fixed timestamp
	DeletedAt       *time.Time
	DeleteReason    string
	Numbering       string // numbering mode the channel was created under
}

// EventEPGGroup is a user-configured group of leagues/teams to build channels for.
type EventEPGGroup struct {
	ID                string
	Name              string
	Leagues           []string
	IncludeLeagues    []string
	MultiLeague       bool
	OverlapHandling   string // "create_all", "add_stream", "add_only", "skip"
	DuplicateHandling string // "consolidate", "separate", "ignore" (default "consolidate")
	NumberingMode     string // "strict_block", "rational_block", "strict_compact", "manual"
	AssignmentMode    string // "auto" or "manual" — drives numbering's per-group assignment
	ChannelStartNum   int
	IncludeFinal      bool
	DaysAhead         int
	Enabled           bool
	ExceptionKeywords []string
	SortOrder         int
	ParentGroupID     string // non-empty for a child group spun off by overlap handling
	TotalStreamCount  int    // raw upstream stream count, used by strict_block reservation
	CreateTiming      string
	DeleteTiming      string
	ChannelSortOrder  string // "time", "sport_time", "league_time" — order matched streams are turned into channels
	IncludePattern    string // regex; stream names must match to be considered (empty = no filter)
	ExcludePattern    string // regex; matching stream names are dropped before matching
	NameTemplate      string // "{away_abbrev} @ {home_abbrev}" style channel-name template; empty falls back to "<Away> @ <Home>"
	LogoTemplate      string // same placeholder syntax, resolved against the home team's logo when unset/unresolved
}

// IsChild reports whether this group was spun off from a parent via
// overlap handling rather than configured directly by the user.
func (g EventEPGGroup) IsChild() bool {
	return g.ParentGroupID != ""
}

// MatchedStreamRecord is one audited row for a stream that produced (or
// would have produced, absent an inclusion-gate reject) a matched event.
type MatchedStreamRecord struct {
	RunID           string
	GroupID         string
	StreamID        string
	StreamName      string
	EventID         string
	League          string
	MatchMethod     string
	Confidence      float64
	Included        bool
	ExclusionReason string
}

// FailedMatchRecord is one audited row for a stream that never became a
// channel, carrying why.
type FailedMatchRecord struct {
	RunID      string
	GroupID    string
	StreamID   string
	StreamName string
	Reason     string
	Detail     string
}

// Programme is one schedule entry destined for XMLTV output.
type Programme struct {
	ChannelID   string
	Title       string
	SubTitle    string
	Description string
	Category    string
	IconURL     string
	Start       time.Time
	Stop        time.Time
}

// Channel is the XMLTV <channel> element payload.
type Channel struct {
	ID          string
	DisplayName string
	IconURL     string
}
