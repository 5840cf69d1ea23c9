package model

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/sandwichfarm/nostr-observatory/internal/apperrors"
)

// Network identifiers, shared with config.Names().
const (
	NetworkClearnet = "clearnet"
	NetworkTor      = "tor"
	NetworkI2P      = "i2p"
	NetworkLoki     = "loki"
)

// Relay is a validated Nostr endpoint (spec §3). Immutable once
// constructed; created by the Validator on successful probe.
type Relay struct {
	URL          string
	Network      string
	DiscoveredAt int64
}

// NewRelay normalizes u, classifies its network, and validates it against
// the invariants of spec §3: well-formed per RFC 3986, scheme ws/wss, host
// resolves to a non-loopback/non-private address unless the network is an
// overlay network (whose hosts are never globally resolvable).
func NewRelay(rawURL string, discoveredAt int64) (Relay, error) {
	normalized, network, err := NormalizeRelayURL(rawURL)
	if err != nil {
		return Relay{}, apperrors.NewValidationError("relay.url", err)
	}
	return Relay{URL: normalized, Network: network, DiscoveredAt: discoveredAt}, nil
}

// NormalizeRelayURL lowercases the host and strips default ports (the
// round-trip law of spec §8), and classifies the URL's network. The
// returned URL retains its scheme — relay.url is the full URL, not the
// bare host, resolving the ambiguity flagged in spec §9.
func NormalizeRelayURL(rawURL string) (normalized string, network string, err error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", fmt.Errorf("empty relay url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing url: %w", err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", "", fmt.Errorf("unsupported scheme %q, want ws or wss", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("missing host")
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()

	network = classifyNetwork(host)

	if port != "" && isDefaultPort(u.Scheme, port) {
		port = ""
	}

	if network == NetworkClearnet {
		if err := validateClearnetHost(host); err != nil {
			return "", "", err
		}
	}

	hostport := host
	if port != "" {
		hostport = net.JoinHostPort(host, port)
		if !strings.Contains(host, ":") {
			hostport = host + ":" + port
		}
	}

	u.Host = hostport
	u.Scheme = strings.ToLower(u.Scheme)
	return u.String(), network, nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "ws" && port == "80") || (scheme == "wss" && port == "443")
}

func classifyNetwork(host string) string {
	switch {
	case strings.HasSuffix(host, ".onion"):
		return NetworkTor
	case strings.HasSuffix(host, ".i2p"):
		return NetworkI2P
	case strings.HasSuffix(host, ".loki"):
		return NetworkLoki
	default:
		return NetworkClearnet
	}
}

func validateClearnetHost(host string) error {
	ip := net.ParseIP(host)
	if ip == nil {
		// A DNS name; resolution (and the loopback/private check) happens
		// at dial time in internal/netdial, not here — a clearnet host
		// name can't be judged private without a live lookup.
		return nil
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return fmt.Errorf("clearnet relay host %s resolves to a non-routable address", host)
	}
	return nil
}
