// Package store is the sole owner of persisted state: the match cache,
// managed channels, group configuration, processing-run stats, and channel
// history. It is backed by SQLite in WAL mode via the pure-Go
// modernc.org/sqlite driver — no cgo toolchain is required to build or run
// this service.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB opened against a single SQLite file with WAL
// journaling and a busy timeout, so the scheduler's background writers and
// the admin HTTP surface's readers never deadlock each other.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, applies
// pragmas, and runs the schema migration.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows only one writer at a time; a single shared connection
	// avoids SQLITE_BUSY churn under WAL more predictably than a pool.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for packages that need raw SQL access
// (the generation driver's read-heavy group queries, for example).
func (s *Store) DB() *sql.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS match_cache (
	fingerprint    TEXT PRIMARY KEY,
	group_id       TEXT NOT NULL,
	stream_name    TEXT NOT NULL,
	event_id       TEXT,
	league         TEXT,
	match_method   TEXT,
	confidence     REAL,
	category       TEXT,
	card_segment   TEXT,
	failed         INTEGER NOT NULL DEFAULT 0,
	user_corrected INTEGER NOT NULL DEFAULT 0,
	generation     INTEGER NOT NULL,
	cached_at      TEXT NOT NULL,
	event_date     TEXT
);
CREATE INDEX IF NOT EXISTS idx_match_cache_group ON match_cache(group_id);
CREATE INDEX IF NOT EXISTS idx_match_cache_generation ON match_cache(generation);

CREATE TABLE IF NOT EXISTS generation_counter (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	value      INTEGER NOT NULL
);
INSERT OR IGNORE INTO generation_counter (id, value) VALUES (1, 0);

CREATE TABLE IF NOT EXISTS managed_channels (
	id                  TEXT PRIMARY KEY,
	group_id            TEXT NOT NULL,
	channel_number      INTEGER NOT NULL,
	name                TEXT NOT NULL,
	tvg_id              TEXT NOT NULL,
	logo_url            TEXT,
	event_id            TEXT,
	event_provider      TEXT,
	league              TEXT,
	segment             TEXT,
	exception_keyword   TEXT NOT NULL DEFAULT '',
	source_group_type   TEXT NOT NULL DEFAULT 'own',
	numbering_mode      TEXT,
	created_at          TEXT NOT NULL,
	scheduled_delete_at TEXT,
	deleted_at          TEXT,
	delete_reason       TEXT
);
CREATE INDEX IF NOT EXISTS idx_channels_group ON managed_channels(group_id);
CREATE INDEX IF NOT EXISTS idx_channels_event ON managed_channels(event_id, event_provider);
CREATE INDEX IF NOT EXISTS idx_channels_number ON managed_channels(channel_number);
CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_active_tuple
  ON managed_channels(group_id, event_id, event_provider, exception_keyword)
  WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_channels_pending_delete ON managed_channels(scheduled_delete_at)
  WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS channel_streams (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id   TEXT NOT NULL REFERENCES managed_channels(id),
	stream_id    TEXT NOT NULL,
	stream_name  TEXT NOT NULL,
	priority     INTEGER NOT NULL DEFAULT 0,
	added_at     TEXT NOT NULL,
	UNIQUE(channel_id, stream_id)
);

CREATE TABLE IF NOT EXISTS channel_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id    TEXT NOT NULL,
	change_type   TEXT NOT NULL,
	change_source TEXT NOT NULL DEFAULT '',
	notes         TEXT,
	occurred_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_occurred ON channel_history(occurred_at);

CREATE TABLE IF NOT EXISTS event_groups (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	leagues             TEXT NOT NULL,
	include_leagues     TEXT NOT NULL,
	multi_league        INTEGER NOT NULL DEFAULT 0,
	overlap_handling    TEXT NOT NULL DEFAULT 'create_all',
	duplicate_handling  TEXT NOT NULL DEFAULT 'consolidate',
	numbering_mode      TEXT NOT NULL DEFAULT 'strict_block',
	assignment_mode     TEXT NOT NULL DEFAULT 'auto',
	channel_start_num   INTEGER,
	include_final       INTEGER NOT NULL DEFAULT 0,
	days_ahead          INTEGER,
	enabled             INTEGER NOT NULL DEFAULT 1,
	exception_keywords  TEXT,
	sort_order          INTEGER NOT NULL DEFAULT 0,
	parent_group_id     TEXT,
	total_stream_count  INTEGER NOT NULL DEFAULT 0,
	create_timing       TEXT NOT NULL DEFAULT 'same_day',
	delete_timing       TEXT NOT NULL DEFAULT 'day_after',
	channel_sort_order  TEXT NOT NULL DEFAULT 'time',
	include_pattern     TEXT,
	exclude_pattern     TEXT,
	name_template       TEXT,
	logo_template       TEXT
);
CREATE INDEX IF NOT EXISTS idx_groups_parent ON event_groups(parent_group_id);

CREATE TABLE IF NOT EXISTS exception_keywords (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id  TEXT NOT NULL REFERENCES event_groups(id),
	keyword   TEXT NOT NULL,
	behavior  TEXT NOT NULL DEFAULT 'consolidate'
);
CREATE INDEX IF NOT EXISTS idx_exception_keywords_group ON exception_keywords(group_id);

CREATE TABLE IF NOT EXISTS matched_streams (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL,
	group_id        TEXT NOT NULL,
	stream_id       TEXT NOT NULL,
	stream_name     TEXT NOT NULL,
	event_id        TEXT,
	league          TEXT,
	match_method    TEXT,
	confidence      REAL,
	included        INTEGER NOT NULL DEFAULT 0,
	exclusion_reason TEXT,
	recorded_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matched_streams_run ON matched_streams(run_id);

CREATE TABLE IF NOT EXISTS failed_matches (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	group_id      TEXT NOT NULL,
	stream_id     TEXT NOT NULL,
	stream_name   TEXT NOT NULL,
	reason        TEXT NOT NULL,
	detail        TEXT,
	recorded_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failed_matches_run ON failed_matches(run_id);

CREATE TABLE IF NOT EXISTS stats_runs (
	run_id            TEXT PRIMARY KEY,
	started_at        TEXT NOT NULL,
	completed_at      TEXT,
	status            TEXT NOT NULL DEFAULT 'running',
	error             TEXT,
	teams_processed   INTEGER NOT NULL DEFAULT 0,
	teams_programmes  INTEGER NOT NULL DEFAULT 0,
	groups_processed  INTEGER NOT NULL DEFAULT 0,
	groups_programmes INTEGER NOT NULL DEFAULT 0,
	programmes_total  INTEGER NOT NULL DEFAULT 0,
	file_written       INTEGER NOT NULL DEFAULT 0,
	file_path          TEXT,
	file_size          INTEGER NOT NULL DEFAULT 0,
	duration_seconds   REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_epg_xmltv (
	group_id     TEXT PRIMARY KEY,
	document     BLOB NOT NULL,
	generated_at TEXT NOT NULL
);

-- Reserved for a per-team schedule EPG document, mirroring event_epg_xmltv
-- for team-level (rather than event-group-level) generation; no writer
-- exists yet since nothing in this run builds a standalone team schedule.
CREATE TABLE IF NOT EXISTS team_epg_xmltv (
	team_id      TEXT PRIMARY KEY,
	league       TEXT NOT NULL,
	document     BLOB NOT NULL,
	generated_at TEXT NOT NULL
);
`

// schemaVersion is recorded in settings.schema_version on first init.
// Migrations are forward-only: a future version bump would branch here on
// the stored value rather than rewrite the schema constant above.
const schemaVersion = "1"

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// nowString is the canonical timestamp format stored for all *_at columns —
// RFC3339 in UTC, sortable and unambiguous across timezones.
func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}
