package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/ops"
)

func newTestBase(t *testing.T) *Base {
	t.Helper()
	logger := ops.NewLogger(&config.Logging{Level: "error", Format: "text"})
	return New(t.Name(), logger)
}

func TestRunOnceSuccess(t *testing.T) {
	b := newTestBase(t)
	calls := 0
	err := b.RunOnce(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunOnceFailurePropagates(t *testing.T) {
	b := newTestBase(t)
	boom := errors.New("boom")
	err := b.RunOnce(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunForeverStopsAfterMaxConsecutiveFailures(t *testing.T) {
	b := newTestBase(t)
	calls := 0
	boom := errors.New("boom")

	err := b.RunForever(context.Background(), 60, 3, func(ctx context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunForeverStopsImmediatelyWhenShuttingDown(t *testing.T) {
	b := newTestBase(t)
	b.shuttingDown.Store(true)
	calls := 0

	err := b.RunForever(context.Background(), 60, 0, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestShuttingDownReflectsFlag(t *testing.T) {
	b := newTestBase(t)
	assert.False(t, b.ShuttingDown())
	b.shuttingDown.Store(true)
	assert.True(t, b.ShuttingDown())
}
