// Package gateway is the one concrete implementation of the abstract
// aggregator collaborator the generation/group packages only ever see
// through an interface (generation.ChannelGateway, groups.StreamSource):
// a Dispatcharr-compatible REST client. Nothing in internal/generation or
// internal/groups imports this package — cmd/teamarr wires a *Client into
// both interface slots, the same way cmd/teamarr wires *provider.TSDBClient
// into the Provider interface.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/generation"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// Client is a minimal JSON/REST client against a Dispatcharr-compatible
// channel aggregator: the handful of endpoints generation.ChannelGateway
// and groups.StreamSource need, nothing from Dispatcharr's own UI-facing
// surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New builds a Client against baseURL (e.g. "http://dispatcharr:9191/api").
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, dst interface{}) error {
	var reader bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode request: %w", err)
		}
		reader = *bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: HTTP %d for %s %s", resp.StatusCode, method, path)
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// CreateChannel implements generation.ChannelGateway.
func (c *Client) CreateChannel(ctx context.Context, req generation.CreateChannelRequest) (generation.CreatedChannel, error) {
	var resp generation.CreatedChannel
	err := c.do(ctx, http.MethodPost, "/channels/", req, &resp)
	return resp, err
}

// UpdateChannel implements generation.ChannelGateway.
func (c *Client) UpdateChannel(ctx context.Context, channelID string, patch generation.ChannelPatch) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/", patch, nil)
}

// DeleteChannel implements generation.ChannelGateway.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/", nil, nil)
}

// GetChannel implements generation.ChannelGateway.
func (c *Client) GetChannel(ctx context.Context, channelID string) (generation.ChannelState, error) {
	var resp generation.ChannelState
	err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/", nil, &resp)
	return resp, err
}

// ListChannels implements generation.ChannelGateway.
func (c *Client) ListChannels(ctx context.Context) ([]generation.ChannelState, error) {
	var resp []generation.ChannelState
	err := c.do(ctx, http.MethodGet, "/channels/", nil, &resp)
	return resp, err
}

// AddToProfile implements generation.ChannelGateway.
func (c *Client) AddToProfile(ctx context.Context, profileID, channelID string) error {
	return c.do(ctx, http.MethodPost, "/profiles/"+profileID+"/channels/", map[string]string{"channel_id": channelID}, nil)
}

// SetChannelEPG implements generation.ChannelGateway.
func (c *Client) SetChannelEPG(ctx context.Context, channelID, epgDataID string) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/", map[string]string{"epg_data_id": epgDataID}, nil)
}

// BuildEPGLookup implements generation.ChannelGateway, fetching every
// EPGData row for one EPG source keyed by tvg_id.
func (c *Client) BuildEPGLookup(ctx context.Context, sourceID string) (map[string]generation.EPGData, error) {
	var rows []generation.EPGData
	if err := c.do(ctx, http.MethodGet, "/epg/"+sourceID+"/data/", nil, &rows); err != nil {
		return nil, err
	}
	lookup := make(map[string]generation.EPGData, len(rows))
	for _, row := range rows {
		lookup[row.TVGID] = row
	}
	return lookup, nil
}

type streamEntry struct {
	Name     string `json:"name"`
	StreamID string `json:"stream_id"`
	IsDead   bool   `json:"is_dead"`
}

// StreamsForGroup implements groups.StreamSource: every stream tagged with
// this group's Dispatcharr m3u group name, i.e. group.ID.
func (c *Client) StreamsForGroup(ctx context.Context, group model.EventEPGGroup) ([]model.RawStream, error) {
	var entries []streamEntry
	path := "/streams/?group=" + url.QueryEscape(group.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	out := make([]model.RawStream, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.RawStream{
			Name:     e.Name,
			StreamID: e.StreamID,
			GroupID:  group.ID,
			Stale:    e.IsDead,
		})
	}
	return out, nil
}
