package store

import (
	"context"
	"database/sql"
)

// SaveEventXMLTV persists one group's rendered XMLTV document, overwriting
// whatever that group last produced — each run's document fully replaces
// the prior one rather than accumulating history.
func (s *Store) SaveEventXMLTV(ctx context.Context, groupID string, document []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_epg_xmltv (group_id, document, generated_at) VALUES (?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET document = excluded.document, generated_at = excluded.generated_at`,
		groupID, document, nowString())
	return err
}

// GetEventXMLTV returns the most recently saved document for a group, for
// an HTTP surface that serves one group's EPG independently of the merged
// all-groups feed.
func (s *Store) GetEventXMLTV(ctx context.Context, groupID string) ([]byte, bool, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM event_epg_xmltv WHERE group_id = ?`, groupID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}
