package synchronizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

func TestEventBatchAppendUntilFull(t *testing.T) {
	b := NewEventBatch(2)
	require.NoError(t, b.Append(model.Event{CreatedAt: 10}))
	assert.False(t, b.Full())
	require.NoError(t, b.Append(model.Event{CreatedAt: 20}))
	assert.True(t, b.Full())
}

func TestEventBatchAppendToFullBatchErrors(t *testing.T) {
	b := NewEventBatch(1)
	require.NoError(t, b.Append(model.Event{CreatedAt: 10}))
	err := b.Append(model.Event{CreatedAt: 20})
	assert.Error(t, err)
}

func TestEventBatchOldestCreatedAt(t *testing.T) {
	b := NewEventBatch(0)
	require.NoError(t, b.Append(model.Event{CreatedAt: 50}))
	require.NoError(t, b.Append(model.Event{CreatedAt: 20}))
	require.NoError(t, b.Append(model.Event{CreatedAt: 80}))

	oldest, ok := b.OldestCreatedAt()
	assert.True(t, ok)
	assert.Equal(t, int64(20), oldest)
}

func TestEventBatchOldestCreatedAtEmptyReturnsFalse(t *testing.T) {
	b := NewEventBatch(10)
	_, ok := b.OldestCreatedAt()
	assert.False(t, ok)
}

func TestEventBatchResetClears(t *testing.T) {
	b := NewEventBatch(5)
	require.NoError(t, b.Append(model.Event{CreatedAt: 10}))
	b.Reset()
	assert.True(t, b.Empty())
}

func TestEventBatchUnboundedLimitNeverFull(t *testing.T) {
	b := NewEventBatch(0)
	require.NoError(t, b.Append(model.Event{CreatedAt: 10}))
	assert.False(t, b.Full())
}
