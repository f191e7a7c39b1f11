package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowWithinBudget(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, retry := l.CheckProvider(ctx, "tsdb", 3, time.Minute)
		require.True(t, ok)
		assert.Zero(t, retry)
	}

	ok, retry := l.CheckProvider(ctx, "tsdb", 3, time.Minute)
	assert.False(t, ok)
	assert.Greater(t, retry, 0)
}

func TestLimiter_NilStoreAlwaysAllows(t *testing.T) {
	l := New(nil)
	ok, retry := l.Allow(context.Background(), "anything", 1, time.Second)
	assert.True(t, ok)
	assert.Zero(t, retry)
}

func TestLimiter_SeparateKeysIndependent(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	ok, _ := l.CheckProvider(ctx, "espn", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = l.CheckProvider(ctx, "tsdb", 1, time.Minute)
	assert.True(t, ok)

	ok, _ = l.CheckProvider(ctx, "espn", 1, time.Minute)
	assert.False(t, ok)
}

func TestLimiter_WaitUnblocksAfterWindow(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	ok, _ := l.CheckProvider(ctx, "slow", 1, 50*time.Millisecond)
	require.True(t, ok)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err := l.Wait(waitCtx, "slow", 1, 50*time.Millisecond)
	assert.NoError(t, err)
}
