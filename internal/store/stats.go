package store

import (
	"context"
	"database/sql"
)

// RunStats mirrors one stats_runs row — the persisted record of a full
// generation run, created at the start and updated as the run progresses.
type RunStats struct {
	RunID            string
	StartedAt        string
	CompletedAt      string
	Status           string // "running", "completed", "failed"
	Error            string
	TeamsProcessed   int
	TeamsProgrammes  int
	GroupsProcessed  int
	GroupsProgrammes int
	ProgrammesTotal  int
	FileWritten      bool
	FilePath         string
	FileSize         int64
	DurationSeconds  float64
}

// StartRun creates a new stats_runs row with status "running".
func (s *Store) StartRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats_runs (run_id, started_at, status) VALUES (?, ?, 'running')`,
		runID, nowString())
	return err
}

// SaveRun updates a stats_runs row with the final or in-progress metrics.
func (s *Store) SaveRun(ctx context.Context, r RunStats) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE stats_runs SET
		  completed_at      = ?,
		  status             = ?,
		  error              = ?,
		  teams_processed    = ?,
		  teams_programmes   = ?,
		  groups_processed   = ?,
		  groups_programmes  = ?,
		  programmes_total   = ?,
		  file_written       = ?,
		  file_path          = ?,
		  file_size          = ?,
		  duration_seconds   = ?
		WHERE run_id = ?`,
		nullable(r.CompletedAt), r.Status, nullable(r.Error),
		r.TeamsProcessed, r.TeamsProgrammes, r.GroupsProcessed, r.GroupsProgrammes,
		r.ProgrammesTotal, boolToInt(r.FileWritten), nullable(r.FilePath), r.FileSize,
		r.DurationSeconds, r.RunID,
	)
	return err
}

// FinishRun closes out a run started by StartRun with its terminal status.
// It is the narrow completion call the generation driver uses in place of
// SaveRun's full per-group/per-team breakdown, which nothing upstream of
// the driver tracks yet.
func (s *Store) FinishRun(ctx context.Context, runID, status, errMsg string, groupsProcessed int, durationSeconds float64) error {
	return s.SaveRun(ctx, RunStats{
		RunID:           runID,
		CompletedAt:     nowString(),
		Status:          status,
		Error:           errMsg,
		GroupsProcessed: groupsProcessed,
		DurationSeconds: durationSeconds,
	})
}

// LatestRun returns the most recently started run, if any.
func (s *Store) LatestRun(ctx context.Context) (RunStats, bool, error) {
	var r RunStats
	var completedAt, errStr, filePath sql.NullString
	var fileWritten int
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, completed_at, status, error, teams_processed,
		       teams_programmes, groups_processed, groups_programmes, programmes_total,
		       file_written, file_path, file_size, duration_seconds
		FROM stats_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&r.RunID, &r.StartedAt, &completedAt, &r.Status, &errStr, &r.TeamsProcessed,
		&r.TeamsProgrammes, &r.GroupsProcessed, &r.GroupsProgrammes, &r.ProgrammesTotal,
		&fileWritten, &filePath, &r.FileSize, &r.DurationSeconds)
	if err == sql.ErrNoRows {
		return RunStats{}, false, nil
	}
	if err != nil {
		return RunStats{}, false, err
	}
	r.CompletedAt, r.Error, r.FilePath = completedAt.String, errStr.String, filePath.String
	r.FileWritten = fileWritten != 0
	return r, true, nil
}
