package synchronizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

func TestComputeWindowNoCursorUsesDefaultStart(t *testing.T) {
	since, until := computeWindow(model.SynchronizerCursor{}, false, true, 300, 1000, 5000)
	assert.Equal(t, int64(1000), since)
	assert.Equal(t, int64(5000), until)
}

func TestComputeWindowWithCursorAppliesLookback(t *testing.T) {
	cursor := model.SynchronizerCursor{Since: 2000, Until: 4000}
	since, until := computeWindow(cursor, true, true, 300, 1000, 5000)
	assert.Equal(t, int64(3700), since)
	assert.Equal(t, int64(5000), until)
}

func TestComputeWindowClampsToDefaultStart(t *testing.T) {
	cursor := model.SynchronizerCursor{Since: 900, Until: 1100}
	since, until := computeWindow(cursor, true, true, 300, 1000, 5000)
	assert.Equal(t, int64(1000), since)
	assert.Equal(t, int64(5000), until)
}

func TestComputeWindowIgnoresCursorWhenUseRelayStateFalse(t *testing.T) {
	cursor := model.SynchronizerCursor{Since: 2000, Until: 4000}
	since, until := computeWindow(cursor, true, false, 300, 1000, 5000)
	assert.Equal(t, int64(1000), since)
	assert.Equal(t, int64(5000), until)
}
