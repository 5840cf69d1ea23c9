package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRelayURLStripsDefaultPortAndLowercasesHost(t *testing.T) {
	normalized, network, err := NormalizeRelayURL("WSS://Relay.Example.COM:443/")
	require.NoError(t, err)
	assert.Equal(t, NetworkClearnet, network)
	assert.Equal(t, "wss://relay.example.com/", normalized)
}

func TestNormalizeRelayURLKeepsNonDefaultPort(t *testing.T) {
	normalized, _, err := NormalizeRelayURL("ws://relay.example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://relay.example.com:8080", normalized)
}

func TestNormalizeRelayURLRejectsBadScheme(t *testing.T) {
	_, _, err := NormalizeRelayURL("http://relay.example.com")
	require.Error(t, err)
}

func TestNormalizeRelayURLClassifiesOverlayNetworks(t *testing.T) {
	cases := map[string]string{
		"wss://abcdefghijklmnopqrstuvwxyz234567abcdefghijklmnopqrstuvwx.onion": NetworkTor,
		"ws://relay.i2p":   NetworkI2P,
		"ws://relay.loki":  NetworkLoki,
		"wss://relay.com":  NetworkClearnet,
	}
	for u, want := range cases {
		_, got, err := NormalizeRelayURL(u)
		require.NoError(t, err, u)
		assert.Equal(t, want, got, u)
	}
}

func TestNormalizeRelayURLRejectsLoopbackClearnet(t *testing.T) {
	_, _, err := NormalizeRelayURL("ws://127.0.0.1:80")
	require.Error(t, err)
}

func TestNewRelayRoundTrip(t *testing.T) {
	r, err := NewRelay("wss://Relay.Example.com:443", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.example.com", r.URL)
	assert.Equal(t, NetworkClearnet, r.Network)
	assert.Equal(t, int64(1700000000), r.DiscoveredAt)
}
