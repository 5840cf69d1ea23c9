// Package netdial builds per-network dialers: direct for clearnet, SOCKS5
// for the overlay networks (Tor, I2P, Lokinet), per spec §4.6/§5.
package netdial

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
)

// DialContextFunc matches the signature gorilla/websocket.Dialer and
// net/http.Transport both accept for NetDialContext/DialContext.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ForNetwork returns a dial function for the given network name. Clearnet
// dials directly; overlay networks route every connection through the
// configured SOCKS5 proxy_url, grounded on bassosimone-nop's per-purpose
// dialer-wrapping style.
func ForNetwork(netCfg config.Network) (DialContextFunc, error) {
	if netCfg.ProxyURL == "" {
		d := &net.Dialer{Timeout: time.Duration(netCfg.TimeoutSeconds) * time.Second}
		return d.DialContext, nil
	}

	proxyURL, err := url.Parse(netCfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy_url %q: %w", netCfg.ProxyURL, err)
	}

	baseDialer := &net.Dialer{Timeout: time.Duration(netCfg.TimeoutSeconds) * time.Second}
	socksDialer, err := proxy.FromURL(proxyURL, baseDialer)
	if err != nil {
		return nil, fmt.Errorf("building socks5 dialer for %q: %w", netCfg.ProxyURL, err)
	}

	// proxy.Dialer predates context.Context; if the underlying dialer also
	// implements the context-aware variant (as golang.org/x/net/proxy's
	// SOCKS5 implementation does), prefer it so cancellation propagates.
	if ctxDialer, ok := socksDialer.(proxy.ContextDialer); ok {
		return ctxDialer.DialContext, nil
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return socksDialer.Dial(network, addr)
	}, nil
}
