package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceStateCandidateRoundTrip(t *testing.T) {
	s, err := NewServiceState("validator", StateTypeCandidate, "wss://relay.example.com",
		ValidatorCandidate{Network: "clearnet", FailedAttempts: 2}, 1700000000)
	require.NoError(t, err)

	c, err := s.Candidate()
	require.NoError(t, err)
	assert.Equal(t, "clearnet", c.Network)
	assert.Equal(t, 2, c.FailedAttempts)
}

func TestServiceStateEventCursorRoundTrip(t *testing.T) {
	s, err := NewServiceState("finder", StateTypeCursor, "events",
		FinderEventCursor{LastTimestamp: 123, LastIDHex: "abcd"}, 1700000000)
	require.NoError(t, err)

	c, err := s.EventCursor()
	require.NoError(t, err)
	assert.Equal(t, int64(123), c.LastTimestamp)
	assert.Equal(t, "abcd", c.LastIDHex)
}

func TestServiceStateSyncCursorRoundTrip(t *testing.T) {
	s, err := NewServiceState("synchronizer", StateTypeCursor, "wss://relay.example.com",
		SynchronizerCursor{Since: 100, Until: 200}, 1700000000)
	require.NoError(t, err)

	c, err := s.SyncCursor()
	require.NoError(t, err)
	assert.Equal(t, int64(100), c.Since)
	assert.Equal(t, int64(200), c.Until)
}
