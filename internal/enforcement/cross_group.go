// Package enforcement consolidates duplicate channels that multiple
// groups independently created for the same event.
package enforcement

import (
	"context"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// ChannelStream is one stream attached to a managed channel.
type ChannelStream struct {
	ID              string
	ChannelID       string
	StreamID        string
	StreamName      string
	Priority        int
	SourceGroupID   string
	SourceGroupType string
	ExceptionKeyword string
}

// Store is the persistence seam cross-group enforcement needs.
type Store interface {
	EnabledGroups(ctx context.Context) ([]model.EventEPGGroup, error)
	ChannelsForGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error)
	FindChannelForEvent(ctx context.Context, eventID, eventProvider, excludeGroupID string) (model.ManagedChannel, bool, error)
	StreamsForChannel(ctx context.Context, channelID string) ([]ChannelStream, error)
	StreamExistsOnChannel(ctx context.Context, channelID, streamID string) (bool, error)
	NextStreamPriority(ctx context.Context, channelID string) (int, error)
	AddStreamToChannel(ctx context.Context, channelID string, stream ChannelStream) error
	MarkChannelDeleted(ctx context.Context, channelID, reason string) error
	LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error
}

// MovedStream records one stream relocated from a consolidated channel to
// the channel it was folded into.
type MovedStream struct {
	Stream      string
	FromChannel string
	ToChannel   string
}

// DeletedChannel records one channel removed by consolidation.
type DeletedChannel struct {
	Channel           string
	EventID           string
	StreamsMoved      int
	ConsolidatedInto  string
	OverlapHandling   string
}

// SkippedChannel records a channel that had a cross-group duplicate but
// was left alone because the duplicate wasn't from a single-league group.
type SkippedChannel struct {
	Channel string
	Reason  string
}

// Result is the outcome of one enforcement pass.
type Result struct {
	StreamsMoved    []MovedStream
	ChannelsDeleted []DeletedChannel
	ChannelsSkipped []SkippedChannel
	Errors          []string
}

// MovedCount returns how many streams were relocated.
func (r Result) MovedCount() int { return len(r.StreamsMoved) }

// DeletedCount returns how many channels were consolidated away.
func (r Result) DeletedCount() int { return len(r.ChannelsDeleted) }

// Enforcer consolidates duplicate channels across groups. Priority order:
// a single-league group's channel always wins over a multi-league group's
// channel for the same event; only multi-league channels are ever deleted
// by this pass.
type Enforcer struct {
	Store Store
}

// Enforce runs one consolidation pass. When groupIDs is non-empty, only
// those multi-league groups are examined; otherwise every enabled
// multi-league group is checked.
func (e *Enforcer) Enforce(ctx context.Context, groupIDs []string) (Result, error) {
	result := Result{}

	groups, err := e.Store.EnabledGroups(ctx)
	if err != nil {
		return result, fmt.Errorf("enforcement: loading groups: %w", err)
	}

	singleLeagueIDs := map[string]bool{}
	var multiLeague []model.EventEPGGroup
	wanted := toSet(groupIDs)
	for _, g := range groups {
		if len(g.Leagues) > 1 {
			if wanted == nil || wanted[g.ID] {
				multiLeague = append(multiLeague, g)
			}
			continue
		}
		singleLeagueIDs[g.ID] = true
	}

	if len(multiLeague) == 0 {
		return result, nil
	}

	for _, group := range multiLeague {
		if group.OverlapHandling == "create_all" {
			continue
		}

		channels, err := e.Store.ChannelsForGroup(ctx, group.ID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		for _, channel := range channels {
			if channel.EventID == "" {
				continue
			}

			target, ok, err := e.Store.FindChannelForEvent(ctx, channel.EventID, channel.EventProvider, group.ID)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			if !ok {
				continue
			}

			if !singleLeagueIDs[target.GroupID] {
				result.ChannelsSkipped = append(result.ChannelsSkipped, SkippedChannel{
					Channel: channel.Name,
					Reason:  "target is not single-league",
				})
				continue
			}

			movedCount, err := e.consolidate(ctx, group, channel, target, &result)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}

			reason := "cross-group consolidation"
			if err := e.Store.MarkChannelDeleted(ctx, channel.ID, reason); err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}

			action := "Consolidated into"
			if group.OverlapHandling == "skip" {
				action = "Skipped (deleted)"
			}
			_ = e.Store.LogChannelHistory(ctx, channel.ID, "deleted", "cross_group_enforcement",
				fmt.Sprintf("%s %q", action, target.Name))
			if movedCount > 0 {
				_ = e.Store.LogChannelHistory(ctx, target.ID, "stream_added", "cross_group_enforcement",
					fmt.Sprintf("received %d streams from cross-group", movedCount))
			}

			result.ChannelsDeleted = append(result.ChannelsDeleted, DeletedChannel{
				Channel:          channel.Name,
				EventID:          channel.EventID,
				StreamsMoved:     movedCount,
				ConsolidatedInto: target.Name,
				OverlapHandling:  group.OverlapHandling,
			})
		}
	}

	return result, nil
}

// consolidate moves streams from channel to target according to the
// group's overlap_handling mode. "skip" deletes without moving; "add_stream"
// and "add_only" move every stream not already present on the target first.
func (e *Enforcer) consolidate(ctx context.Context, group model.EventEPGGroup, channel, target model.ManagedChannel, result *Result) (int, error) {
	if group.OverlapHandling != "add_stream" && group.OverlapHandling != "add_only" {
		return 0, nil
	}

	streams, err := e.Store.StreamsForChannel(ctx, channel.ID)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, stream := range streams {
		exists, err := e.Store.StreamExistsOnChannel(ctx, target.ID, stream.StreamID)
		if err != nil {
			return moved, err
		}
		if exists {
			continue
		}

		priority, err := e.Store.NextStreamPriority(ctx, target.ID)
		if err != nil {
			return moved, err
		}

		if err := e.Store.AddStreamToChannel(ctx, target.ID, ChannelStream{
			StreamID:         stream.StreamID,
			StreamName:       stream.StreamName,
			Priority:         priority,
			SourceGroupID:    group.ID,
			SourceGroupType:  "cross_group",
			ExceptionKeyword: stream.ExceptionKeyword,
		}); err != nil {
			return moved, err
		}

		moved++
		result.StreamsMoved = append(result.StreamsMoved, MovedStream{
			Stream:      stream.StreamName,
			FromChannel: channel.Name,
			ToChannel:   target.Name,
		})
	}

	return moved, nil
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
