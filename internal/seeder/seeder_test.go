package seeder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/ops"
)

func testLogger() *ops.Logger {
	return ops.NewLogger(&config.Logging{Level: "error", Format: "text"})
}

func TestParseSeedFileSkipsBlankAndCommentLines(t *testing.T) {
	input := "wss://relay.example.com\n# a comment\n\nwss://relay2.example.com\n"
	relays, states, err := parseSeedFile(strings.NewReader(input), true, 1000, testLogger())
	require.NoError(t, err)
	assert.Empty(t, relays)
	require.Len(t, states, 2)
	assert.Equal(t, "wss://relay.example.com", states[0].StateKey)
	assert.Equal(t, "wss://relay2.example.com", states[1].StateKey)
}

func TestParseSeedFileSkipsInvalidURLs(t *testing.T) {
	input := "not a url\nwss://relay.example.com\n"
	relays, states, err := parseSeedFile(strings.NewReader(input), true, 1000, testLogger())
	require.NoError(t, err)
	assert.Empty(t, relays)
	require.Len(t, states, 1)
}

func TestParseSeedFileToValidateFalseWritesRelaysDirectly(t *testing.T) {
	input := "wss://relay.example.com\n"
	relays, states, err := parseSeedFile(strings.NewReader(input), false, 1000, testLogger())
	require.NoError(t, err)
	assert.Empty(t, states)
	require.Len(t, relays, 1)
	assert.Equal(t, "wss://relay.example.com", relays[0].URL)
	assert.Equal(t, "clearnet", relays[0].Network)
}

func TestParseSeedFileCandidateStateShape(t *testing.T) {
	input := "wss://relay.example.com\n"
	_, states, err := parseSeedFile(strings.NewReader(input), true, 1000, testLogger())
	require.NoError(t, err)
	require.Len(t, states, 1)

	candidate, err := states[0].Candidate()
	require.NoError(t, err)
	assert.Equal(t, "clearnet", candidate.Network)
	assert.Equal(t, 0, candidate.FailedAttempts)
}
