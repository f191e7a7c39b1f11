package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// FindExistingChannel implements lifecycle.Store: it locates the active
// channel already owning a (group, event, exception-keyword) tuple — the
// same tuple the idx_channels_active_tuple unique index enforces.
func (s *Store) FindExistingChannel(ctx context.Context, groupID, eventID, eventProvider, exceptionKeyword string) (model.ManagedChannel, bool, error) {
	row := s.db.QueryRowContext(ctx, channelColumns+`
		FROM managed_channels
		WHERE group_id = ? AND event_id = ? AND event_provider = ? AND exception_keyword = ?
		  AND deleted_at IS NULL`,
		groupID, eventID, eventProvider, exceptionKeyword)
	chans, err := scanChannels(&singleRowRows{row: row})
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ManagedChannel{}, false, nil
		}
		return model.ManagedChannel{}, false, err
	}
	if len(chans) == 0 {
		return model.ManagedChannel{}, false, nil
	}
	return chans[0], true, nil
}

// ChannelsForPrimaryStream implements lifecycle.Store for "separate" mode:
// it finds the channel this specific stream is already attached to within
// a group/event, independent of any other stream sharing the same event.
func (s *Store) ChannelsForPrimaryStream(ctx context.Context, groupID, eventID, eventProvider, streamID string) (model.ManagedChannel, bool, error) {
	row := s.db.QueryRowContext(ctx, channelColumns+`
		FROM managed_channels
		WHERE id IN (
			SELECT channel_id FROM channel_streams WHERE stream_id = ?
		) AND group_id = ? AND event_id = ? AND event_provider = ? AND deleted_at IS NULL`,
		streamID, groupID, eventID, eventProvider)
	chans, err := scanChannels(&singleRowRows{row: row})
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ManagedChannel{}, false, nil
		}
		return model.ManagedChannel{}, false, err
	}
	if len(chans) == 0 {
		return model.ManagedChannel{}, false, nil
	}
	return chans[0], true, nil
}

// NextStreamPriority aliases GetNextStreamPriority so *Store satisfies
// lifecycle.Store and enforcement.Store, whose method is named without the
// "Get" prefix that channels.go's original caller used.
func (s *Store) NextStreamPriority(ctx context.Context, channelID string) (int, error) {
	return s.GetNextStreamPriority(ctx, channelID)
}

// CreateManagedChannel persists a brand new channel and its first attached
// stream as one unit, generating the channel's primary key.
func (s *Store) CreateManagedChannel(ctx context.Context, channel model.ManagedChannel, streamID, streamName string) (model.ManagedChannel, error) {
	channel.ID = uuid.NewString()
	if err := s.InsertChannel(ctx, channel); err != nil {
		return model.ManagedChannel{}, err
	}
	if err := s.AddStreamToChannel(ctx, channel.ID, streamID, streamName, 0); err != nil {
		return model.ManagedChannel{}, err
	}
	if err := s.LogChannelHistory(ctx, channel.ID, "created", "generation", "Channel created"); err != nil {
		return model.ManagedChannel{}, err
	}
	return channel, nil
}

// ChannelsPendingDeletion implements lifecycle.Store: every active channel
// whose scheduled_delete_at has passed now.
func (s *Store) ChannelsPendingDeletion(ctx context.Context, now time.Time) ([]model.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx, channelColumns+`
		FROM managed_channels
		WHERE deleted_at IS NULL AND scheduled_delete_at IS NOT NULL AND scheduled_delete_at <= ?
		ORDER BY scheduled_delete_at ASC`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

// ExceptionKeywords implements lifecycle.Store, loading a group's
// keyword-to-behavior overrides.
func (s *Store) ExceptionKeywords(ctx context.Context, groupID string) ([]lifecycle.ExceptionKeyword, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, behavior FROM exception_keywords WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []lifecycle.ExceptionKeyword
	for rows.Next() {
		var k lifecycle.ExceptionKeyword
		var behavior string
		if err := rows.Scan(&k.Keyword, &behavior); err != nil {
			return out, err
		}
		k.Behavior = lifecycle.DuplicateMode(behavior)
		out = append(out, k)
	}
	return out, nil
}
