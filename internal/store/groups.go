package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// GetEventGroups returns every configured group, enabled or not, ordered
// for a three-phase topo sort: single-league parents first (by sort_order),
// then child groups, then multi-league groups.
func (s *Store) GetEventGroups(ctx context.Context) ([]model.EventEPGGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, leagues, include_leagues, multi_league, overlap_handling,
		       duplicate_handling, numbering_mode, assignment_mode, channel_start_num,
		       include_final, days_ahead, enabled, exception_keywords, sort_order,
		       parent_group_id, total_stream_count, create_timing, delete_timing,
		       channel_sort_order, include_pattern, exclude_pattern, name_template, logo_template
		FROM event_groups
		ORDER BY multi_league ASC, (parent_group_id IS NOT NULL) ASC, sort_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventEPGGroup
	for rows.Next() {
		var g model.EventEPGGroup
		var leagues, includeLeagues string
		var multiLeague, includeFinal, enabled int
		var startNum, daysAhead sql.NullInt64
		var exceptionKeywords, parentGroupID, includePattern, excludePattern, nameTemplate, logoTemplate sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &leagues, &includeLeagues, &multiLeague,
			&g.OverlapHandling, &g.DuplicateHandling, &g.NumberingMode, &g.AssignmentMode, &startNum,
			&includeFinal, &daysAhead, &enabled, &exceptionKeywords, &g.SortOrder,
			&parentGroupID, &g.TotalStreamCount, &g.CreateTiming, &g.DeleteTiming,
			&g.ChannelSortOrder, &includePattern, &excludePattern, &nameTemplate, &logoTemplate); err != nil {
			return out, err
		}
		g.IncludePattern, g.ExcludePattern = includePattern.String, excludePattern.String
		g.NameTemplate, g.LogoTemplate = nameTemplate.String, logoTemplate.String
		g.Leagues = splitCSV(leagues)
		g.IncludeLeagues = splitCSV(includeLeagues)
		g.MultiLeague = multiLeague != 0
		g.IncludeFinal = includeFinal != 0
		g.Enabled = enabled != 0
		if startNum.Valid {
			g.ChannelStartNum = int(startNum.Int64)
		}
		if daysAhead.Valid {
			g.DaysAhead = int(daysAhead.Int64)
		}
		g.ExceptionKeywords = splitCSV(exceptionKeywords.String)
		g.ParentGroupID = parentGroupID.String
		out = append(out, g)
	}
	return out, nil
}

// GetEnabledEventGroups returns only enabled groups.
func (s *Store) GetEnabledEventGroups(ctx context.Context) ([]model.EventEPGGroup, error) {
	all, err := s.GetEventGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, g := range all {
		if g.Enabled {
			out = append(out, g)
		}
	}
	return out, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetSetting fetches a string value from the settings table.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// PutSetting upserts a string value in the settings table.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
