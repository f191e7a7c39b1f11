package store

import (
	"context"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// RecordMatchedStream implements groups.Store, appending one matched_streams
// audit row for a processing run.
func (s *Store) RecordMatchedStream(ctx context.Context, rec model.MatchedStreamRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matched_streams
		  (run_id, group_id, stream_id, stream_name, event_id, league, match_method,
		   confidence, included, exclusion_reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.GroupID, rec.StreamID, rec.StreamName, nullable(rec.EventID),
		nullable(rec.League), nullable(rec.MatchMethod), rec.Confidence, boolToInt(rec.Included),
		nullable(rec.ExclusionReason), nowString(),
	)
	return err
}

// RecordFailedMatch implements groups.Store, appending one failed_matches
// audit row for a processing run.
func (s *Store) RecordFailedMatch(ctx context.Context, rec model.FailedMatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_matches (run_id, group_id, stream_id, stream_name, reason, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.GroupID, rec.StreamID, rec.StreamName, rec.Reason, nullable(rec.Detail), nowString(),
	)
	return err
}
