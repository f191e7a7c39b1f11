package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/generation"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

func TestCreateChannel_PostsAndDecodesResponse(t *testing.T) {
	var gotBody generation.CreateChannelRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/channels/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(generation.CreatedChannel{ID: "42", UUID: "abc-123"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.CreateChannel(context.Background(), generation.CreateChannelRequest{Name: "Lakers vs Celtics", Number: 100})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.ID)
	assert.Equal(t, "abc-123", resp.UUID)
	assert.Equal(t, "Lakers vs Celtics", gotBody.Name)
}

func TestListChannels_DecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]generation.ChannelState{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	channels, err := c.ListChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "B", channels[1].Name)
}

func TestBuildEPGLookup_KeysByTVGID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epg/src1/data/", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]generation.EPGData{
			{ID: "1", TVGID: "nfl.chi", Title: "Bears"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	lookup, err := c.BuildEPGLookup(context.Background(), "src1")
	require.NoError(t, err)
	require.Contains(t, lookup, "nfl.chi")
	assert.Equal(t, "Bears", lookup["nfl.chi"].Title)
}

func TestStreamsForGroup_FiltersByGroupQueryAndMapsDeadFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "group1", r.URL.Query().Get("group"))
		_ = json.NewEncoder(w).Encode([]streamEntry{
			{Name: "Stream A", StreamID: "s1", IsDead: false},
			{Name: "Stream B", StreamID: "s2", IsDead: true},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	streams, err := c.StreamsForGroup(context.Background(), model.EventEPGGroup{ID: "group1"})
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Equal(t, "group1", streams[0].GroupID)
	assert.False(t, streams[0].Stale)
	assert.True(t, streams[1].Stale)
}

func TestDeleteChannel_PropagatesHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.DeleteChannel(context.Background(), "missing")
	assert.Error(t, err)
}
