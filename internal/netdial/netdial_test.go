package netdial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
)

func TestForNetworkWithoutProxyReturnsDirectDialer(t *testing.T) {
	dial, err := ForNetwork(config.Network{Enabled: true, TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.NotNil(t, dial)
}

func TestForNetworkWithProxyBuildsSocks5Dialer(t *testing.T) {
	dial, err := ForNetwork(config.Network{
		Enabled:        true,
		ProxyURL:       "socks5://127.0.0.1:9050",
		TimeoutSeconds: 30,
	})
	require.NoError(t, err)
	assert.NotNil(t, dial)
}

func TestForNetworkRejectsMalformedProxyURL(t *testing.T) {
	_, err := ForNetwork(config.Network{
		Enabled:  true,
		ProxyURL: "://not-a-url",
	})
	require.Error(t, err)
}
