package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeagueMappings struct {
	byLeague map[string]LeagueMapping
}

func (f *fakeLeagueMappings) Mapping(league string) (LeagueMapping, bool) {
	m, ok := f.byLeague[league]
	return m, ok
}

func (f *fakeLeagueMappings) SupportedLeagues() []string {
	out := make([]string, 0, len(f.byLeague))
	for l := range f.byLeague {
		out = append(out, l)
	}
	return out
}

// newTestClient builds a TSDBClient pointed at a local httptest server by
// overriding the base URL through the client's httpClient transport.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*TSDBClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewTSDBClient("", &fakeLeagueMappings{byLeague: map[string]LeagueMapping{
		"nfl": {ProviderLeagueID: "4391", ProviderLeagueName: "NFL"},
	}})
	c.httpClient = srv.Client()
	// Redirect requests to the test server by rewriting the transport.
	c.httpClient.Transport = rewriteHostTransport{base: srv.URL, inner: http.DefaultTransport}
	return c, srv
}

type rewriteHostTransport struct {
	base  string
	inner http.RoundTripper
}

func (t rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base, err := url.Parse(t.base)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = base.Scheme
	req.URL.Host = base.Host
	return t.inner.RoundTrip(req)
}

func TestTSDBClient_GetEvents_ParsesResponse(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "eventsday.php")
		assert.Equal(t, "NFL", r.URL.Query().Get("l"))
		fmt.Fprint(w, `{"events":[{"idEvent":"e1","strEvent":"Lions vs Bucs","idHomeTeam":"h1","idAwayTeam":"a1","strHomeTeam":"Detroit Lions","strAwayTeam":"Tampa Bay Buccaneers","dateEvent":"2026-09-14","strTime":"17:00:00","strStatus":""}]}`)
	})
	defer srv.Close()

	events, err := client.GetEvents(context.Background(), "nfl", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "scheduled", events[0].Status)
	assert.Equal(t, 17, events[0].StartTime.Hour())
}

func TestTSDBClient_ReactiveBackoffOn429(t *testing.T) {
	attempts := 0
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"events":[]}`)
	})
	defer srv.Close()
	// Shrink the backoff window so the test doesn't sleep real seconds.
	client.backoffBase = time.Millisecond
	client.backoffMax = 5 * time.Millisecond

	events, err := client.GetEvents(context.Background(), "nfl", time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, attempts)
}

func TestTSDBClient_UnsupportedLeagueErrors(t *testing.T) {
	client := NewTSDBClient("", &fakeLeagueMappings{byLeague: map[string]LeagueMapping{}})
	_, err := client.GetEvents(context.Background(), "xfl", time.Now())
	require.Error(t, err)
	assert.IsType(t, ErrNoProviderForLeague{}, err)
}

func TestRateLimitStats_IsRateLimited(t *testing.T) {
	s := RateLimitStats{}
	assert.False(t, s.IsRateLimited())
	s.PreemptiveWaits = 1
	assert.True(t, s.IsRateLimited())
	assert.Equal(t, int64(1), s.TotalWaits())
}
