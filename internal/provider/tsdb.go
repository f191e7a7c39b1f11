package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/platform/metrics"
	"github.com/titooo7/teamarr-sub000/internal/ratelimit"
)

const tsdbBaseURL = "https://www.thesportsdb.com/api/v1/json"

// tsdbFreeAPIKey is TheSportsDB's published test key for the free tier.
const tsdbFreeAPIKey = "123"

// Default exponential backoff schedule for reactive 429 handling: 5s, 10s,
// 20s, 40s, 80s, capped at 120s, up to 5 attempts. Exposed as TSDBClient
// fields (not pure constants) so tests can shrink the schedule without
// sleeping in real time.
const (
	defaultBackoffBase       = 5 * time.Second
	defaultBackoffMax        = 120 * time.Second
	defaultBackoffMaxRetries = 5
)

// RateLimitStats mirrors the reference client's UI-facing counters so an
// admin surface can show users when the TSDB rate limit is affecting
// generation time.
type RateLimitStats struct {
	TotalRequests    int64
	PreemptiveWaits  int64
	ReactiveWaits    int64
	TotalWaitSeconds float64
	LastWaitAt       time.Time
	LastWaitSeconds  float64
	SessionStart     time.Time
}

// IsRateLimited reports whether any wait (preemptive or reactive) has
// occurred since SessionStart.
func (s RateLimitStats) IsRateLimited() bool {
	return s.PreemptiveWaits > 0 || s.ReactiveWaits > 0
}

// TotalWaits is the combined preemptive+reactive wait count.
func (s RateLimitStats) TotalWaits() int64 {
	return s.PreemptiveWaits + s.ReactiveWaits
}

// LeagueMapping resolves a canonical league code to the TSDB-specific
// identifiers needed to call its endpoints.
type LeagueMapping struct {
	ProviderLeagueID   string
	ProviderLeagueName string
	Sport              string
}

// LeagueMappingSource supplies the per-league TSDB identifiers; kept as a
// seam so internal/store (or a config file) can own the mapping table
// without this package depending on it directly.
type LeagueMappingSource interface {
	Mapping(league string) (LeagueMapping, bool)
	SupportedLeagues() []string
}

// TSDBClient is a rate-limited, retrying HTTP client for TheSportsDB's
// free-tier JSON API.
type TSDBClient struct {
	httpClient *http.Client
	apiKey     string
	leagues    LeagueMappingSource
	limiter    *ratelimit.Limiter
	rate       int // requests per minute

	backoffBase       time.Duration
	backoffMax        time.Duration
	backoffMaxRetries int

	mu    sync.Mutex
	stats RateLimitStats
}

// NewTSDBClient builds a client. apiKey may be empty, in which case the
// free test key is used and the preemptive limiter is engaged; a non-empty
// (premium) key disables preemptive limiting entirely.
func NewTSDBClient(apiKey string, leagues LeagueMappingSource) *TSDBClient {
	return &TSDBClient{
		httpClient:        &http.Client{Timeout: 10 * time.Second},
		apiKey:            apiKey,
		leagues:           leagues,
		limiter:           ratelimit.NewInMemory(),
		rate:              30,
		backoffBase:       defaultBackoffBase,
		backoffMax:        defaultBackoffMax,
		backoffMaxRetries: defaultBackoffMaxRetries,
		stats:             RateLimitStats{SessionStart: time.Now()},
	}
}

func (c *TSDBClient) key() string {
	if c.apiKey != "" {
		return c.apiKey
	}
	return tsdbFreeAPIKey
}

func (c *TSDBClient) isPremium() bool { return c.apiKey != "" }

// Name identifies this provider in the registry and in logs.
func (c *TSDBClient) Name() string { return "tsdb" }

// SupportsLeague reports whether a league mapping is configured.
func (c *TSDBClient) SupportsLeague(league string) bool {
	if c.leagues == nil {
		return false
	}
	_, ok := c.leagues.Mapping(league)
	return ok
}

// SupportedLeagues lists every league this client has a mapping for.
func (c *TSDBClient) SupportedLeagues() []string {
	if c.leagues == nil {
		return nil
	}
	return c.leagues.SupportedLeagues()
}

// Stats returns a snapshot of the session's rate-limit statistics.
func (c *TSDBClient) Stats() RateLimitStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStats clears statistics, called at the start of a generation run so
// each run's numbers reflect only that run's provider traffic.
func (c *TSDBClient) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = RateLimitStats{SessionStart: time.Now()}
}

// request performs a rate-limited, retrying GET against one TSDB endpoint
// and decodes the JSON body into dst. Never returns on a 429 until either
// the response succeeds or the backoff schedule is exhausted.
func (c *TSDBClient) request(ctx context.Context, endpoint string, params url.Values, dst interface{}) error {
	requestStart := time.Now()
	defer func() {
		metrics.ProviderRequestDuration.WithLabelValues("tsdb").Observe(time.Since(requestStart).Seconds())
	}()

	if !c.isPremium() {
		before := time.Now()
		if err := c.limiter.Wait(ctx, "tsdb", c.rate, time.Minute); err != nil {
			return fmt.Errorf("tsdb: rate limit wait: %w", err)
		}
		if waited := time.Since(before); waited > 50*time.Millisecond {
			c.mu.Lock()
			c.stats.PreemptiveWaits++
			c.stats.TotalWaitSeconds += waited.Seconds()
			c.stats.LastWaitAt = time.Now()
			c.stats.LastWaitSeconds = waited.Seconds()
			c.mu.Unlock()
		}
	}

	reqURL := fmt.Sprintf("%s/%s/%s", tsdbBaseURL, c.key(), endpoint)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.mu.Lock()
	c.stats.TotalRequests++
	c.mu.Unlock()

	for attempt := 0; attempt <= c.backoffMaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("tsdb: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("tsdb: request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == c.backoffMaxRetries {
				return fmt.Errorf("tsdb: 429 persisted after %d retries", c.backoffMaxRetries)
			}
			wait := c.backoffBase * time.Duration(1<<uint(attempt))
			if wait > c.backoffMax {
				wait = c.backoffMax
			}
			c.mu.Lock()
			c.stats.ReactiveWaits++
			c.stats.TotalWaitSeconds += wait.Seconds()
			c.stats.LastWaitAt = time.Now()
			c.stats.LastWaitSeconds = wait.Seconds()
			c.mu.Unlock()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("tsdb: HTTP %d for %s", resp.StatusCode, endpoint)
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("tsdb: decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("tsdb: exhausted retries for %s", endpoint)
}

type tsdbEvent struct {
	IDEvent       string `json:"idEvent"`
	StrEvent      string `json:"strEvent"`
	IDHomeTeam    string `json:"idHomeTeam"`
	IDAwayTeam    string `json:"idAwayTeam"`
	StrHomeTeam   string `json:"strHomeTeam"`
	StrAwayTeam   string `json:"strAwayTeam"`
	DateEvent     string `json:"dateEvent"`
	StrTime       string `json:"strTime"`
	StrVenue      string `json:"strVenue"`
	StrStatus     string `json:"strStatus"`
}

type tsdbEventsResponse struct {
	Events []tsdbEvent `json:"events"`
}

// GetEvents fetches events for a league on one calendar date via
// eventsday.php, which (unlike most TSDB endpoints) takes the league's
// display name rather than its numeric ID.
func (c *TSDBClient) GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	mapping, ok := c.leagues.Mapping(league)
	if !ok {
		return nil, ErrNoProviderForLeague{League: league}
	}
	var resp tsdbEventsResponse
	params := url.Values{"d": {date.Format("2006-01-02")}, "l": {mapping.ProviderLeagueName}}
	if err := c.request(ctx, "eventsday.php", params, &resp); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		events = append(events, tsdbEventToModel(e, league))
	}
	return events, nil
}

// GetEvent fetches one event by ID via lookupevent.php.
func (c *TSDBClient) GetEvent(ctx context.Context, league, eventID string) (model.Event, error) {
	var resp tsdbEventsResponse
	if err := c.request(ctx, "lookupevent.php", url.Values{"id": {eventID}}, &resp); err != nil {
		return model.Event{}, err
	}
	if len(resp.Events) == 0 {
		return model.Event{}, fmt.Errorf("tsdb: event %s not found", eventID)
	}
	return tsdbEventToModel(resp.Events[0], league), nil
}

func tsdbEventToModel(e tsdbEvent, league string) model.Event {
	start := parseTSDBDateTime(e.DateEvent, e.StrTime)
	return model.Event{
		ID:        e.IDEvent,
		League:    league,
		Provider:  "tsdb",
		HomeTeam:  e.StrHomeTeam,
		AwayTeam:  e.StrAwayTeam,
		StartTime: start,
		Venue:     e.StrVenue,
		Status:    normalizeTSDBStatus(e.StrStatus),
		EventName: e.StrEvent,
	}
}

func normalizeTSDBStatus(raw string) string {
	switch raw {
	case "Match Finished", "FT", "Finished":
		return "final"
	case "Postponed":
		return "postponed"
	case "Cancelled":
		return "cancelled"
	case "":
		return "scheduled"
	default:
		return "scheduled"
	}
}

func parseTSDBDateTime(dateStr, timeStr string) time.Time {
	if timeStr == "" {
		timeStr = "00:00:00"
	}
	t, err := time.Parse("2006-01-02 15:04:05", dateStr+" "+timeStr)
	if err != nil {
		return time.Time{}
	}
	return t
}

type tsdbTeam struct {
	IDTeam       string `json:"idTeam"`
	StrTeam      string `json:"strTeam"`
	StrTeamShort string `json:"strTeamShort"`
	StrStadium   string `json:"strStadium"`
	StrBadge     string `json:"strBadge"`
}

type tsdbTeamsResponse struct {
	Teams []tsdbTeam `json:"teams"`
}

// GetTeam fetches one team's details via lookupteam.php.
func (c *TSDBClient) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	var resp tsdbTeamsResponse
	if err := c.request(ctx, "lookupteam.php", url.Values{"id": {teamID}}, &resp); err != nil {
		return model.Team{}, err
	}
	if len(resp.Teams) == 0 {
		return model.Team{}, fmt.Errorf("tsdb: team %s not found", teamID)
	}
	return tsdbTeamToModel(resp.Teams[0]), nil
}

func tsdbTeamToModel(t tsdbTeam) model.Team {
	return model.Team{
		ID:           t.IDTeam,
		Name:         t.StrTeam,
		ShortName:    t.StrTeamShort,
		Venue:        t.StrStadium,
		LogoURL:      t.StrBadge,
	}
}

// GetLeagueTeams fetches every team in a league via search_all_teams.php.
// The free tier caps this at 10 teams; callers that need the full roster
// should supplement from season events, as the reference client does.
func (c *TSDBClient) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	mapping, ok := c.leagues.Mapping(league)
	if !ok {
		return nil, ErrNoProviderForLeague{League: league}
	}
	var resp tsdbTeamsResponse
	if err := c.request(ctx, "search_all_teams.php", url.Values{"l": {mapping.ProviderLeagueName}}, &resp); err != nil {
		return nil, err
	}
	teams := make([]model.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		teams = append(teams, tsdbTeamToModel(t))
	}
	return teams, nil
}

// GetTeamSchedule fetches a team's recent and upcoming fixtures. The free
// tier's eventsnext.php only returns home fixtures; daysBack controls how
// far eventslast.php looks back for already-played games still relevant to
// "yesterday, not yet final" candidate assembly.
func (c *TSDBClient) GetTeamSchedule(ctx context.Context, teamID string, daysBack int) ([]model.Event, error) {
	var next, last tsdbEventsResponse
	if err := c.request(ctx, "eventsnext.php", url.Values{"id": {teamID}}, &next); err != nil {
		return nil, err
	}
	if err := c.request(ctx, "eventslast.php", url.Values{"id": {teamID}}, &last); err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -daysBack)
	events := make([]model.Event, 0, len(next.Events)+len(last.Events))
	for _, e := range append(next.Events, last.Events...) {
		ev := tsdbEventToModel(e, "")
		if ev.StartTime.Before(cutoff) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetTeamStats is not available on TSDB's free tier (standings require a
// premium key and a different endpoint this client does not call); it
// returns a zero-value TeamStats rather than an error so callers building
// template context can render "record unavailable" gracefully.
func (c *TSDBClient) GetTeamStats(ctx context.Context, teamID string) (model.TeamStats, error) {
	return model.TeamStats{TeamID: teamID}, nil
}

var _ Provider = (*TSDBClient)(nil)
