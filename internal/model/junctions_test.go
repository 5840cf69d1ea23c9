package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetadataHashesCanonicalValue(t *testing.T) {
	m1, err := NewMetadata(MetadataNIP66RTT, map[string]interface{}{"open_ms": 10, "read_ms": 20})
	require.NoError(t, err)
	m2, err := NewMetadata(MetadataNIP66RTT, map[string]interface{}{"read_ms": 20, "open_ms": 10})
	require.NoError(t, err)

	assert.Equal(t, m1.ID, m2.ID, "identical documents regardless of key order must collapse to the same id")
}

func TestNewMetadataRejectsNothingButDiffersOnType(t *testing.T) {
	val := map[string]interface{}{"a": 1}
	m1, err := NewMetadata(MetadataNIP11Info, val)
	require.NoError(t, err)
	m2, err := NewMetadata(MetadataNIP66SSL, val)
	require.NoError(t, err)

	assert.Equal(t, m1.ID, m2.ID)
	assert.NotEqual(t, m1.Type, m2.Type)
}

func TestNewEventRelayValidatesEventIDLength(t *testing.T) {
	_, err := NewEventRelay([]byte("short"), "wss://relay.example.com", 1700000000)
	require.Error(t, err)
}

func TestNewRelayMetadataFromMetadata(t *testing.T) {
	md, err := NewMetadata(MetadataNIP66Net, map[string]interface{}{"asn": 64512})
	require.NoError(t, err)

	rm, err := NewRelayMetadata("wss://relay.example.com", 1700000000, md)
	require.NoError(t, err)
	assert.Equal(t, md.ID, rm.MetadataID)
	assert.Equal(t, MetadataNIP66Net, rm.MetadataType)
}
