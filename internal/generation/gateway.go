// Package generation is the unified entry point that stitches per-group
// processing, cross-run enforcement, and the external channel aggregator
// together into one full run — the same entry point used by a scheduled
// fire and by an on-demand "regenerate now" request.
package generation

import "context"

// CreateChannelRequest is the payload for ChannelGateway.CreateChannel.
// GroupID, LogoID, and StreamProfileID are optional per spec.md §6 and may
// be left zero-valued.
type CreateChannelRequest struct {
	Name            string
	Number          int
	StreamIDs       []string
	TVGID           string
	GroupID         string
	LogoID          string
	StreamProfileID string
}

// CreatedChannel is what the aggregator hands back after creating a channel.
type CreatedChannel struct {
	ID   string
	UUID string
}

// ChannelPatch carries the subset of channel fields UpdateChannel should
// change; a zero-value field means "leave unchanged".
type ChannelPatch struct {
	Name      string
	Number    int
	StreamIDs []string
	LogoID    string
}

// ChannelState is the aggregator's current view of one channel, returned by
// GetChannel/ListChannels.
type ChannelState struct {
	ID        string
	UUID      string
	Name      string
	Number    int
	TVGID     string
	StreamIDs []string
}

// EPGData is one upstream EPG record keyed by tvg_id, as returned by
// BuildEPGLookup.
type EPGData struct {
	ID      string
	TVGID   string
	Title   string
	IconURL string
}

// ChannelGateway is the abstract aggregator collaborator spec.md §6 names:
// this package calls it, but never talks HTTP directly to any particular
// aggregator implementation.
type ChannelGateway interface {
	CreateChannel(ctx context.Context, req CreateChannelRequest) (CreatedChannel, error)
	UpdateChannel(ctx context.Context, channelID string, patch ChannelPatch) error
	DeleteChannel(ctx context.Context, channelID string) error
	GetChannel(ctx context.Context, channelID string) (ChannelState, error)
	ListChannels(ctx context.Context) ([]ChannelState, error)
	AddToProfile(ctx context.Context, profileID, channelID string) error
	SetChannelEPG(ctx context.Context, channelID, epgDataID string) error
	BuildEPGLookup(ctx context.Context, sourceID string) (map[string]EPGData, error)
}
