package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
)

// CacheEntry mirrors one row of match_cache: the persisted verdict for one
// (group, stream name) pair as of some generation.
type CacheEntry struct {
	Fingerprint   string
	GroupID       string
	StreamName    string
	EventID       string
	League        string
	MatchMethod   string
	Confidence    float64
	Category      string
	CardSegment   string
	Failed        bool
	UserCorrected bool
	Generation    int64
	EventDate     string
}

// Fingerprint derives the cache key for a (group, stream) pair: the first
// 16 hex characters of SHA-256(group_id + stream_id + stream_name). Using a
// prefix keeps the key compact while remaining effectively collision-free
// for the cardinality of one household's stream catalog. stream_id is
// included so the same display name reused across two distinct stream
// entries (common with duplicate feeds) still gets independent cache rows.
func Fingerprint(groupID, streamID, streamName string) string {
	sum := sha256.Sum256([]byte(groupID + ":" + streamID + ":" + streamName))
	return fmt.Sprintf("%x", sum[:8])
}

// GenerationCounter returns the current global generation counter value.
func (s *Store) GenerationCounter(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM generation_counter WHERE id = 1`).Scan(&v)
	return v, err
}

// IncrementGeneration atomically bumps the generation counter and returns
// the new value. Called once per match_all pass, never once per stream.
func (s *Store) IncrementGeneration(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE generation_counter SET value = value + 1 WHERE id = 1`); err != nil {
		return 0, err
	}
	var v int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM generation_counter WHERE id = 1`).Scan(&v); err != nil {
		return 0, err
	}
	return v, tx.Commit()
}

// GetCacheEntry fetches a cache row by fingerprint. Returns sql.ErrNoRows if absent.
func (s *Store) GetCacheEntry(ctx context.Context, fingerprint string) (CacheEntry, error) {
	var e CacheEntry
	var failed, corrected int
	var eventID, league, method, category, segment, eventDate sql.NullString
	var confidence sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, group_id, stream_name, event_id, league, match_method,
		       confidence, category, card_segment, failed, user_corrected, generation, event_date
		FROM match_cache WHERE fingerprint = ?`, fingerprint,
	).Scan(&e.Fingerprint, &e.GroupID, &e.StreamName, &eventID, &league, &method,
		&confidence, &category, &segment, &failed, &corrected, &e.Generation, &eventDate)
	if err != nil {
		return CacheEntry{}, err
	}
	e.EventID, e.League, e.MatchMethod = eventID.String, league.String, method.String
	e.Category, e.CardSegment, e.EventDate = category.String, segment.String, eventDate.String
	e.Confidence = confidence.Float64
	e.Failed = failed != 0
	e.UserCorrected = corrected != 0
	return e, nil
}

// PutCacheEntry upserts a cache row, stamping the current time.
func (s *Store) PutCacheEntry(ctx context.Context, e CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_cache
		  (fingerprint, group_id, stream_name, event_id, league, match_method,
		   confidence, category, card_segment, failed, user_corrected, generation, cached_at, event_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
		  event_id       = excluded.event_id,
		  league         = excluded.league,
		  match_method   = excluded.match_method,
		  confidence     = excluded.confidence,
		  category       = excluded.category,
		  card_segment   = excluded.card_segment,
		  failed         = excluded.failed,
		  user_corrected = CASE WHEN match_cache.user_corrected = 1 THEN 1 ELSE excluded.user_corrected END,
		  generation     = excluded.generation,
		  cached_at      = excluded.cached_at,
		  event_date     = excluded.event_date`,
		e.Fingerprint, e.GroupID, e.StreamName, nullable(e.EventID), nullable(e.League),
		nullable(e.MatchMethod), e.Confidence, nullable(e.Category), nullable(e.CardSegment),
		boolToInt(e.Failed), boolToInt(e.UserCorrected), e.Generation, nowString(), nullable(e.EventDate),
	)
	return err
}

// MarkUserCorrected pins a cache entry so staleness purges never evict it
// until the user explicitly re-matches the stream.
func (s *Store) MarkUserCorrected(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE match_cache SET user_corrected = 1 WHERE fingerprint = ?`, fingerprint)
	return err
}

// PurgeStaleParams controls the two-tier staleness horizon: confirmed
// matches survive longer than failed-match sentinels, so a stream that
// temporarily failed to match gets retried sooner than one that matched
// successfully gets re-verified.
type PurgeStaleParams struct {
	CurrentGeneration  int64
	MatchedHorizon     int64 // generations a successful match stays valid
	FailedHorizon      int64 // generations a FAILED sentinel stays valid
}

// DefaultPurgeParams mirrors the reference horizon of 5 generations for
// confirmed matches and 2 for failed sentinels, so streams that failed to
// match are retried roughly twice as often as ones already resolved.
func DefaultPurgeParams(currentGeneration int64) PurgeStaleParams {
	return PurgeStaleParams{
		CurrentGeneration: currentGeneration,
		MatchedHorizon:    5,
		FailedHorizon:     2,
	}
}

// PurgeStale deletes cache rows whose generation has fallen behind their
// horizon, skipping any row pinned by MarkUserCorrected.
func (s *Store) PurgeStale(ctx context.Context, p PurgeStaleParams) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM match_cache
		WHERE user_corrected = 0
		  AND (
		    (failed = 0 AND generation < ? - ?)
		    OR
		    (failed = 1 AND generation < ? - ?)
		  )`,
		p.CurrentGeneration, p.MatchedHorizon,
		p.CurrentGeneration, p.FailedHorizon,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CacheStats summarizes the cache for observability.
type CacheStats struct {
	Size          int64
	FailedCount   int64
	CorrectedCount int64
}

// CacheStatsFor returns aggregate counts over the whole cache table.
func (s *Store) CacheStatsFor(ctx context.Context) (CacheStats, error) {
	var st CacheStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN failed = 1 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN user_corrected = 1 THEN 1 ELSE 0 END)
		FROM match_cache`,
	).Scan(&st.Size, &st.FailedCount, &st.CorrectedCount)
	return st, err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
