package enforcement

import (
	"context"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// KeywordStore is the persistence seam keyword enforcement needs. No
// original implementation module exists for this pass; it is grounded on
// the matching lifecycle.CheckExceptionKeyword routing logic used at
// channel-creation time, extended into a repair sweep for channels that
// have since drifted (an exception keyword added after creation, or a
// cross-group consolidation that ignored keyword routing).
type KeywordStore interface {
	EnabledGroups(ctx context.Context) ([]model.EventEPGGroup, error)
	ChannelsForGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error)
	ExceptionKeywords(ctx context.Context, groupID string) ([]lifecycle.ExceptionKeyword, error)
	StreamsForChannel(ctx context.Context, channelID string) ([]ChannelStream, error)
	StreamExistsOnChannel(ctx context.Context, channelID, streamID string) (bool, error)
	NextStreamPriority(ctx context.Context, channelID string) (int, error)
	AddStreamToChannel(ctx context.Context, channelID string, stream ChannelStream) error
	RemoveStreamFromChannel(ctx context.Context, channelID, streamID string) error
	FindOrCreateKeywordChannel(ctx context.Context, main model.ManagedChannel, keyword string) (model.ManagedChannel, error)
	LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error
}

// RelocatedStream records one stream moved off a main event channel onto
// its keyword sibling.
type RelocatedStream struct {
	Stream      string
	Keyword     string
	FromChannel string
	ToChannel   string
}

// KeywordResult is the outcome of one keyword-enforcement pass.
type KeywordResult struct {
	Relocated []RelocatedStream
	Errors    []string
}

// KeywordEnforcer ensures every stream whose name matches a configured
// exception keyword lives on that keyword's channel rather than the main
// event channel. Only main channels (ExceptionKeyword == "") are scanned;
// a keyword channel's own streams are left alone even if they'd also match
// a different keyword, since routing is first-match-wins at creation time
// and this pass only repairs main-channel drift.
type KeywordEnforcer struct {
	Store KeywordStore
}

// Enforce runs one keyword-routing repair pass across every enabled
// group's main channels.
func (k *KeywordEnforcer) Enforce(ctx context.Context) (KeywordResult, error) {
	result := KeywordResult{}

	groups, err := k.Store.EnabledGroups(ctx)
	if err != nil {
		return result, fmt.Errorf("keyword enforcement: loading groups: %w", err)
	}

	for _, group := range groups {
		keywords, err := k.Store.ExceptionKeywords(ctx, group.ID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if len(keywords) == 0 {
			continue
		}

		channels, err := k.Store.ChannelsForGroup(ctx, group.ID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		for _, channel := range channels {
			if channel.ExceptionKeyword != "" || channel.EventID == "" {
				continue
			}
			if err := k.repairChannel(ctx, channel, keywords, &result); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
		}
	}

	return result, nil
}

func (k *KeywordEnforcer) repairChannel(ctx context.Context, channel model.ManagedChannel, keywords []lifecycle.ExceptionKeyword, result *KeywordResult) error {
	streams, err := k.Store.StreamsForChannel(ctx, channel.ID)
	if err != nil {
		return err
	}

	for _, stream := range streams {
		matched, _, ok := lifecycle.CheckExceptionKeyword(stream.StreamName, keywords)
		if !ok {
			continue
		}

		target, err := k.Store.FindOrCreateKeywordChannel(ctx, channel, matched)
		if err != nil {
			return err
		}

		exists, err := k.Store.StreamExistsOnChannel(ctx, target.ID, stream.StreamID)
		if err != nil {
			return err
		}
		if !exists {
			priority, err := k.Store.NextStreamPriority(ctx, target.ID)
			if err != nil {
				return err
			}
			stream.Priority = priority
			if err := k.Store.AddStreamToChannel(ctx, target.ID, stream); err != nil {
				return err
			}
		}

		if err := k.Store.RemoveStreamFromChannel(ctx, channel.ID, stream.StreamID); err != nil {
			return err
		}

		_ = k.Store.LogChannelHistory(ctx, channel.ID, "stream_removed", "keyword_enforcement",
			fmt.Sprintf("moved %q to keyword channel %q (%q)", stream.StreamName, target.Name, matched))
		_ = k.Store.LogChannelHistory(ctx, target.ID, "stream_added", "keyword_enforcement",
			fmt.Sprintf("received %q from main channel %q", stream.StreamName, channel.Name))

		result.Relocated = append(result.Relocated, RelocatedStream{
			Stream:      stream.StreamName,
			Keyword:     matched,
			FromChannel: channel.Name,
			ToChannel:   target.Name,
		})
	}

	return nil
}
