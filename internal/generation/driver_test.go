package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

type fakeDriverStore struct {
	fakeCleanupStore
	startCalled  bool
	finishCalled bool
	finishStatus string
	finishErrMsg string
}

func (f *fakeDriverStore) StartRun(ctx context.Context, runID string) error {
	f.startCalled = true
	return nil
}

func (f *fakeDriverStore) FinishRun(ctx context.Context, runID, status, errMsg string, groupsProcessed int, durationSeconds float64) error {
	f.finishCalled = true
	f.finishStatus = status
	f.finishErrMsg = errMsg
	return nil
}

func TestRun_NoGroupsCompletesAndRecordsRun(t *testing.T) {
	st := &fakeDriverStore{}
	d := &Driver{Store: st, Now: func() time.Time { return time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC) }}

	var phases []string
	result, err := d.Run(context.Background(), time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), func(phase string, percent int, message string, current, total int, item string) {
		phases = append(phases, phase)
	})

	require.NoError(t, err)
	assert.True(t, st.startCalled)
	assert.True(t, st.finishCalled)
	assert.Equal(t, "completed", st.finishStatus)
	assert.Empty(t, st.finishErrMsg)
	assert.Equal(t, 0, result.GroupsProcessed)
	assert.Contains(t, phases, "groups")
	assert.Contains(t, phases, "enforcement")
	assert.Contains(t, phases, "done")
}

func TestRun_StartRunFailureAbortsWithoutEnforcement(t *testing.T) {
	st := &failingStartStore{}
	d := &Driver{Store: st}

	_, err := d.Run(context.Background(), time.Now(), nil)
	require.Error(t, err)
}

type failingStartStore struct {
	fakeCleanupStore
}

func (f *failingStartStore) StartRun(ctx context.Context, runID string) error {
	return assertErr{}
}
func (f *failingStartStore) FinishRun(ctx context.Context, runID, status, errMsg string, groupsProcessed int, durationSeconds float64) error {
	return nil
}

type assertErr struct{}

func (assertErr) Error() string { return "start run failed" }

func TestRun_DisabledGroupIsSkippedByMainLoopButCleanedUp(t *testing.T) {
	st := &fakeDriverStore{fakeCleanupStore: fakeCleanupStore{
		groups: []model.EventEPGGroup{
			{ID: "g1", Name: "Retired", Enabled: false},
		},
		channels: map[string][]model.ManagedChannel{
			"g1": {{ID: "ch-1"}},
		},
	}}
	d := &Driver{Store: st}

	result, err := d.Run(context.Background(), time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.GroupsProcessed)
	assert.Equal(t, 1, result.DisabledDeleted)
}
