package dbpool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwichfarm/nostr-observatory/internal/apperrors"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
)

func TestWithBackoffSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := withBackoff(context.Background(), config.Retry{MaxAttempts: 3, InitialDelaySeconds: 0.001, MaxDelaySeconds: 0.01, ExponentialBackoff: true}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithBackoffRetriesUpToMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := withBackoff(context.Background(), config.Retry{MaxAttempts: 3, InitialDelaySeconds: 0.001, MaxDelaySeconds: 0.01, ExponentialBackoff: true}, func(ctx context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withBackoff(ctx, config.Retry{MaxAttempts: 5, InitialDelaySeconds: 0.001, MaxDelaySeconds: 0.01}, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestClassifyQueryErrWrapsDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := classifyQueryErr(ctx, "SELECT 1", errors.New("timeout"))
	require.Error(t, err)
	var qe *apperrors.QueryTimeoutError
	assert.ErrorAs(t, err, &qe)
}

func TestWithOptionalTimeoutZeroMeansNoDeadline(t *testing.T) {
	ctx, cancel := withOptionalTimeout(context.Background(), 0)
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
}
