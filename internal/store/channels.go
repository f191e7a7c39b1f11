package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// InsertChannel persists a newly created managed channel.
func (s *Store) InsertChannel(ctx context.Context, c model.ManagedChannel) error {
	var scheduledDelete sql.NullString
	if c.ScheduledDeleteAt != nil {
		scheduledDelete = sql.NullString{String: c.ScheduledDeleteAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO managed_channels
		  (id, group_id, channel_number, name, tvg_id, logo_url, event_id,
		   event_provider, league, segment, exception_keyword, source_group_type,
		   numbering_mode, created_at, scheduled_delete_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GroupID, c.ChannelNumber, c.Name, c.TVGID, nullable(c.LogoURL),
		nullable(c.EventID), nullable(c.EventProvider), nullable(c.League),
		nullable(c.Segment), c.ExceptionKeyword, orDefault(c.SourceGroupType, "own"), nullable(c.Numbering),
		nowString(), scheduledDelete,
	)
	return err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// GetManagedChannelsForGroup returns all non-deleted channels for a group,
// ordered by channel number.
func (s *Store) GetManagedChannelsForGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx, channelColumns+`
		FROM managed_channels
		WHERE group_id = ? AND deleted_at IS NULL
		ORDER BY channel_number`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

// FindAnyChannelForEvent locates an active channel anywhere in the system
// carrying the given (event_id, event_provider) pair — the lookup that
// backs cross-group consolidation: a second group matching the same event
// should reuse the first group's channel rather than creating a duplicate.
func (s *Store) FindAnyChannelForEvent(ctx context.Context, eventID, eventProvider string) (model.ManagedChannel, bool, error) {
	row := s.db.QueryRowContext(ctx, channelColumns+`
		FROM managed_channels
		WHERE event_id = ? AND event_provider = ? AND deleted_at IS NULL
		ORDER BY created_at ASC LIMIT 1`, eventID, eventProvider)
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

// AllUsedChannelNumbers returns every channel number currently occupied by
// a non-deleted channel, across all groups — used to pick a free number
// for a keyword channel.
func (s *Store) AllUsedChannelNumbers(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_number FROM managed_channels WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	used := make(map[int]bool)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			continue
		}
		used[n] = true
	}
	return used, nil
}

// AllActiveChannels returns every non-deleted channel across every group —
// the orphan-cleanup pass's reconciliation set against the aggregator's own
// channel list.
func (s *Store) AllActiveChannels(ctx context.Context) ([]model.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx, channelColumns+`
		FROM managed_channels WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

// MinChannelNumberForOtherAutoGroups returns the lowest channel number used
// by an AUTO-mode group other than excludeGroupID, bounding how far a
// block's growth may run before colliding with the next reserved block.
func (s *Store) MinChannelNumberForOtherAutoGroups(ctx context.Context, excludeGroupID string, autoGroupIDs []string) (int, bool, error) {
	if len(autoGroupIDs) == 0 {
		return 0, false, nil
	}
	args := make([]interface{}, 0, len(autoGroupIDs)+1)
	args = append(args, excludeGroupID)
	placeholders := ""
	for i, id := range autoGroupIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}
	query := `SELECT MIN(channel_number) FROM managed_channels
	          WHERE deleted_at IS NULL AND group_id != ? AND group_id IN (` + placeholders + `)`
	var min sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&min); err != nil {
		return 0, false, err
	}
	if !min.Valid {
		return 0, false, nil
	}
	return int(min.Int64), true, nil
}

// SetChannelNumber updates a channel's assigned number, used by keyword
// ordering enforcement to swap a main/keyword-sibling pair back into order.
func (s *Store) SetChannelNumber(ctx context.Context, channelID string, number int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE managed_channels SET channel_number = ? WHERE id = ?`, number, channelID)
	return err
}

// MarkChannelDeleted soft-deletes a channel, preserving the row for audit.
func (s *Store) MarkChannelDeleted(ctx context.Context, channelID, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE managed_channels SET deleted_at = ?, delete_reason = ? WHERE id = ?`,
		nowString(), reason, channelID)
	return err
}

// LogChannelHistory appends an audit row for a channel lifecycle event.
func (s *Store) LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_history (channel_id, change_type, change_source, notes, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		channelID, changeType, changeSource, notes, nowString())
	return err
}

// CleanupOldHistory deletes channel_history rows older than retentionDays.
func (s *Store) CleanupOldHistory(ctx context.Context, retentionDays int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_history WHERE occurred_at < datetime('now', ?)`,
		formatDaysAgo(retentionDays))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func formatDaysAgo(days int) string {
	return "-" + itoa(days) + " days"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ─── stream membership ────────────────────────────────────────────────────────

// AddStreamToChannel attaches a stream to a channel at the given priority.
func (s *Store) AddStreamToChannel(ctx context.Context, channelID, streamID, streamName string, priority int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_streams (channel_id, stream_id, stream_name, priority, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, stream_id) DO UPDATE SET priority = excluded.priority`,
		channelID, streamID, streamName, priority, nowString())
	return err
}

// StreamExistsOnChannel reports whether a stream is already attached to a channel.
func (s *Store) StreamExistsOnChannel(ctx context.Context, channelID, streamID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channel_streams WHERE channel_id = ? AND stream_id = ?`,
		channelID, streamID).Scan(&n)
	return n > 0, err
}

// GetChannelStreams returns stream IDs attached to a channel, ordered by priority.
func (s *Store) GetChannelStreams(ctx context.Context, channelID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stream_id FROM channel_streams WHERE channel_id = ? ORDER BY priority`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetNextStreamPriority returns the next unused priority slot for a channel.
func (s *Store) GetNextStreamPriority(ctx context.Context, channelID string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(priority) FROM channel_streams WHERE channel_id = ?`, channelID).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// RemoveStreamFromChannel detaches a stream from a channel (used when a
// stream is moved during cross-group consolidation).
func (s *Store) RemoveStreamFromChannel(ctx context.Context, channelID, streamID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_streams WHERE channel_id = ? AND stream_id = ?`, channelID, streamID)
	return err
}

// ─── scan helpers ──────────────────────────────────────────────────────────────

// rowsLike abstracts over *sql.Rows and a single *sql.Row wrapper so
// scanChannels can serve both list and single-row callers.
type rowsLike interface {
	Next() bool
	Scan(dest ...interface{}) error
}

// singleRowRows adapts a *sql.Row to the rowsLike interface for a single
// iteration, letting scanChannels share logic between list and lookup queries.
type singleRowRows struct {
	row     *sql.Row
	scanned bool
}

func (r *singleRowRows) Next() bool {
	if r.scanned {
		return false
	}
	r.scanned = true
	return true
}

func (r *singleRowRows) Scan(dest ...interface{}) error {
	return r.row.Scan(dest...)
}

// channelColumns is shared by every query that scans full managed_channels
// rows via scanChannels, so the column list and the Scan destinations below
// can never drift apart silently.
const channelColumns = `
	SELECT id, group_id, channel_number, name, tvg_id, logo_url, event_id,
	       event_provider, league, segment, exception_keyword, source_group_type,
	       numbering_mode, created_at, scheduled_delete_at, deleted_at, delete_reason
`

func scanChannels(rows rowsLike) ([]model.ManagedChannel, error) {
	var out []model.ManagedChannel
	for rows.Next() {
		var c model.ManagedChannel
		var logo, eventID, provider, league, segment, exceptionKeyword, numbering sql.NullString
		var createdAt string
		var scheduledDelete, deletedAt, deleteReason sql.NullString
		if err := rows.Scan(&c.ID, &c.GroupID, &c.ChannelNumber, &c.Name, &c.TVGID,
			&logo, &eventID, &provider, &league, &segment, &exceptionKeyword, &c.SourceGroupType,
			&numbering, &createdAt, &scheduledDelete, &deletedAt, &deleteReason); err != nil {
			return out, err
		}
		c.LogoURL, c.EventID, c.EventProvider = logo.String, eventID.String, provider.String
		c.League, c.Segment, c.Numbering = league.String, segment.String, numbering.String
		c.ExceptionKeyword, c.DeleteReason = exceptionKeyword.String, deleteReason.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			c.CreatedAt = t
		}
		if scheduledDelete.Valid {
			if t, err := time.Parse(time.RFC3339, scheduledDelete.String); err == nil {
				c.ScheduledDeleteAt = &t
			}
		}
		if deletedAt.Valid {
			if t, err := time.Parse(time.RFC3339, deletedAt.String); err == nil {
				c.DeletedAt = &t
			}
		}
		out = append(out, c)
	}
	return out, nil
}
