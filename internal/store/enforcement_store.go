package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/titooo7/teamarr-sub000/internal/enforcement"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

var enforcementTitleCaser = cases.Title(language.English)

// EnforcementStore adapts *Store to enforcement.Store. It exists as a
// separate type only because enforcement.Store's AddStreamToChannel takes a
// ChannelStream payload while lifecycle.Store's (also implemented directly
// on *Store) takes individual stream fields — the two can't share one
// method name on the same receiver.
type EnforcementStore struct {
	*Store
}

// AsEnforcementStore returns s wrapped for use as an enforcement.Store.
func (s *Store) AsEnforcementStore() enforcement.Store {
	return EnforcementStore{s}
}

// EnabledGroups implements enforcement.Store.
func (e EnforcementStore) EnabledGroups(ctx context.Context) ([]model.EventEPGGroup, error) {
	return e.GetEnabledEventGroups(ctx)
}

// ChannelsForGroup implements enforcement.Store.
func (e EnforcementStore) ChannelsForGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error) {
	return e.GetManagedChannelsForGroup(ctx, groupID)
}

// FindChannelForEvent implements enforcement.Store: the active channel
// carrying (eventID, eventProvider) outside excludeGroupID, i.e. the
// candidate another group's channel might be consolidated into.
func (e EnforcementStore) FindChannelForEvent(ctx context.Context, eventID, eventProvider, excludeGroupID string) (model.ManagedChannel, bool, error) {
	row := e.db.QueryRowContext(ctx, channelColumns+`
		FROM managed_channels
		WHERE event_id = ? AND event_provider = ? AND group_id != ? AND deleted_at IS NULL
		ORDER BY created_at ASC LIMIT 1`, eventID, eventProvider, excludeGroupID)
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

// StreamsForChannel implements enforcement.Store, loading every stream
// attached to a channel with its source-group provenance.
func (e EnforcementStore) StreamsForChannel(ctx context.Context, channelID string) ([]enforcement.ChannelStream, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT cs.id, cs.channel_id, cs.stream_id, cs.stream_name, cs.priority,
		       mc.group_id, mc.source_group_type, mc.exception_keyword
		FROM channel_streams cs
		JOIN managed_channels mc ON mc.id = cs.channel_id
		WHERE cs.channel_id = ?
		ORDER BY cs.priority`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []enforcement.ChannelStream
	for rows.Next() {
		var cs enforcement.ChannelStream
		var id int64
		if err := rows.Scan(&id, &cs.ChannelID, &cs.StreamID, &cs.StreamName, &cs.Priority,
			&cs.SourceGroupID, &cs.SourceGroupType, &cs.ExceptionKeyword); err != nil {
			return out, err
		}
		cs.ID = itoa(int(id))
		out = append(out, cs)
	}
	return out, nil
}

// AddStreamToChannel implements enforcement.Store's stream-relocation call,
// adapting its ChannelStream payload onto the shared channel_streams insert.
func (e EnforcementStore) AddStreamToChannel(ctx context.Context, channelID string, stream enforcement.ChannelStream) error {
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO channel_streams (channel_id, stream_id, stream_name, priority, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, stream_id) DO UPDATE SET priority = excluded.priority`,
		channelID, stream.StreamID, stream.StreamName, stream.Priority, nowString())
	return err
}

// AsKeywordStore returns s wrapped for use as an enforcement.KeywordStore.
func (s *Store) AsKeywordStore() enforcement.KeywordStore {
	return EnforcementStore{s}
}

// AsOrderingStore returns s wrapped for use as an enforcement.OrderingStore.
// EnforcementStore already carries every method the interface needs:
// EnabledGroups and ChannelsForGroup from this file, SetChannelNumber and
// LogChannelHistory promoted straight through from the embedded *Store.
func (s *Store) AsOrderingStore() enforcement.OrderingStore {
	return EnforcementStore{s}
}

// FindOrCreateKeywordChannel implements enforcement.KeywordStore: it locates
// the active keyword-channel sibling of main for the given keyword, or
// creates one if none exists yet — the case where an exception keyword was
// configured after main's event was first classified.
func (e EnforcementStore) FindOrCreateKeywordChannel(ctx context.Context, main model.ManagedChannel, keyword string) (model.ManagedChannel, error) {
	existing, ok, err := e.FindExistingChannel(ctx, main.GroupID, main.EventID, main.EventProvider, keyword)
	if err != nil {
		return model.ManagedChannel{}, err
	}
	if ok {
		return existing, nil
	}

	used, err := e.AllUsedChannelNumbers(ctx)
	if err != nil {
		return model.ManagedChannel{}, err
	}
	number := main.ChannelNumber + 1
	for used[number] {
		number++
	}

	channel := model.ManagedChannel{
		ID:               uuid.NewString(),
		GroupID:          main.GroupID,
		ChannelNumber:    number,
		Name:             fmt.Sprintf("%s (%s)", main.Name, enforcementTitleCaser.String(keyword)),
		TVGID:            main.TVGID,
		LogoURL:          main.LogoURL,
		EventID:          main.EventID,
		EventProvider:    main.EventProvider,
		League:           main.League,
		ExceptionKeyword: keyword,
		SourceGroupType:  main.SourceGroupType,
	}
	if err := e.InsertChannel(ctx, channel); err != nil {
		return model.ManagedChannel{}, err
	}
	_ = e.LogChannelHistory(ctx, channel.ID, "created", "keyword_enforcement",
		fmt.Sprintf("keyword channel for %q created to host %q streams", main.Name, keyword))
	return channel, nil
}
