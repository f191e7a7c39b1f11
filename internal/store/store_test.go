package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGenerationCounter_IncrementsMonotonically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v0, err := s.GenerationCounter(ctx)
	require.NoError(t, err)
	require.Zero(t, v0)

	v1, err := s.IncrementGeneration(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), v1)

	v2, err := s.IncrementGeneration(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), v2)
}

func TestCacheEntry_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fp := Fingerprint("group-1", "stream-1", "ESPN: Lakers vs Celtics")
	require.NotEmpty(t, fp)

	entry := CacheEntry{
		Fingerprint: fp,
		GroupID:     "group-1",
		StreamName:  "ESPN: Lakers vs Celtics",
		EventID:     "evt-1",
		League:      "nba",
		MatchMethod: "alias",
		Confidence:  0.95,
		Generation:  1,
	}
	require.NoError(t, s.PutCacheEntry(ctx, entry))

	got, err := s.GetCacheEntry(ctx, fp)
	require.NoError(t, err)
	require.Equal(t, "evt-1", got.EventID)
	require.False(t, got.UserCorrected)

	require.NoError(t, s.MarkUserCorrected(ctx, fp))
	got, err = s.GetCacheEntry(ctx, fp)
	require.NoError(t, err)
	require.True(t, got.UserCorrected)
}

func TestPurgeStale_RespectsUserCorrectedPin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stale := CacheEntry{Fingerprint: "stale", GroupID: "g", StreamName: "A", Generation: 1}
	pinned := CacheEntry{Fingerprint: "pinned", GroupID: "g", StreamName: "B", Generation: 1}
	require.NoError(t, s.PutCacheEntry(ctx, stale))
	require.NoError(t, s.PutCacheEntry(ctx, pinned))
	require.NoError(t, s.MarkUserCorrected(ctx, "pinned"))

	n, err := s.PurgeStale(ctx, DefaultPurgeParams(10))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.GetCacheEntry(ctx, "stale")
	require.Error(t, err)
	_, err = s.GetCacheEntry(ctx, "pinned")
	require.NoError(t, err)
}

func TestPurgeStale_SurvivesThroughExactHorizonGap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// matched horizon 5: a match from generation 5 (gap == horizon at
	// current generation 10) must survive; generation 4 (gap == horizon+1)
	// must not.
	require.NoError(t, s.PutCacheEntry(ctx, CacheEntry{Fingerprint: "survives-matched", GroupID: "g", StreamName: "A", Generation: 5}))
	require.NoError(t, s.PutCacheEntry(ctx, CacheEntry{Fingerprint: "purged-matched", GroupID: "g", StreamName: "B", Generation: 4}))

	// failed horizon 2: generation 8 (gap == horizon) survives, generation 7
	// (gap == horizon+1) does not.
	require.NoError(t, s.PutCacheEntry(ctx, CacheEntry{Fingerprint: "survives-failed", GroupID: "g", StreamName: "C", Generation: 8, Failed: true}))
	require.NoError(t, s.PutCacheEntry(ctx, CacheEntry{Fingerprint: "purged-failed", GroupID: "g", StreamName: "D", Generation: 7, Failed: true}))

	n, err := s.PurgeStale(ctx, DefaultPurgeParams(10))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = s.GetCacheEntry(ctx, "survives-matched")
	require.NoError(t, err)
	_, err = s.GetCacheEntry(ctx, "purged-matched")
	require.Error(t, err)
	_, err = s.GetCacheEntry(ctx, "survives-failed")
	require.NoError(t, err)
	_, err = s.GetCacheEntry(ctx, "purged-failed")
	require.Error(t, err)
}

func TestSettings_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetSetting(ctx, "days_ahead")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.PutSetting(ctx, "days_ahead", "5"))
	v, ok, err := s.GetSetting(ctx, "days_ahead")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "5", v)
}
