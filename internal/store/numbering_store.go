package store

import (
	"context"
	"database/sql"

	"github.com/titooo7/teamarr-sub000/internal/numbering"
)

// AutoGroups implements numbering.Store: every enabled, non-child,
// AUTO-assignment group, ordered by sort_order.
func (s *Store) AutoGroups(ctx context.Context) ([]numbering.GroupInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sort_order, channel_start_num, total_stream_count, parent_group_id
		FROM event_groups
		WHERE enabled = 1 AND assignment_mode = 'auto'
		  AND (parent_group_id IS NULL OR parent_group_id = '')
		ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []numbering.GroupInfo
	for rows.Next() {
		var g numbering.GroupInfo
		var startNum sql.NullInt64
		var parentGroupID sql.NullString
		if err := rows.Scan(&g.ID, &g.SortOrder, &startNum, &g.TotalStreamCount, &parentGroupID); err != nil {
			return out, err
		}
		if startNum.Valid {
			g.ChannelStartNumber = int(startNum.Int64)
		}
		g.AssignmentMode = numbering.AssignmentAuto
		g.IsChild = parentGroupID.Valid && parentGroupID.String != ""
		out = append(out, g)
	}
	return out, nil
}

// ActualChannelCount implements numbering.Store.
func (s *Store) ActualChannelCount(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM managed_channels WHERE group_id = ? AND deleted_at IS NULL`, groupID).Scan(&n)
	return n, err
}

// MinChannelNumber implements numbering.Store.
func (s *Store) MinChannelNumber(ctx context.Context, groupID string) (int, bool, error) {
	var min sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(channel_number) FROM managed_channels WHERE group_id = ? AND deleted_at IS NULL`, groupID).Scan(&min)
	if err != nil {
		return 0, false, err
	}
	if !min.Valid {
		return 0, false, nil
	}
	return int(min.Int64), true, nil
}

// UsedChannelNumbers implements numbering.Store.
func (s *Store) UsedChannelNumbers(ctx context.Context, groupID string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_number FROM managed_channels WHERE group_id = ? AND deleted_at IS NULL`, groupID)
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

// AllAutoUsedChannelNumbers implements numbering.Store for strict_compact:
// numbers used by channels belonging to any enabled AUTO-assignment group.
func (s *Store) AllAutoUsedChannelNumbers(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mc.channel_number
		FROM managed_channels mc
		JOIN event_groups eg ON eg.id = mc.group_id
		WHERE mc.deleted_at IS NULL AND eg.enabled = 1 AND eg.assignment_mode = 'auto'`)
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

// ReservedManualRanges implements numbering.Store: the [start, start+count-1]
// span every enabled group with a channel_start_num reserves, count coming
// from its own block sizing (ceil(total_stream_count/10), minimum 1).
func (s *Store) ReservedManualRanges(ctx context.Context) ([]numbering.Range, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_start_num, total_stream_count
		FROM event_groups
		WHERE enabled = 1 AND channel_start_num IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []numbering.Range
	for rows.Next() {
		var start, count int
		if err := rows.Scan(&start, &count); err != nil {
			return out, err
		}
		blocks := (count + 9) / 10
		if blocks < 1 {
			blocks = 1
		}
		out = append(out, numbering.Range{Start: start, End: start + blocks*10 - 1})
	}
	return out, nil
}
