package probe

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// InspectSSL dials the relay's host:443 directly (TLS introspection is
// meaningless through an opaque SOCKS5 tunnel, so the Monitor runs this
// probe for clearnet relays only) and reports the leaf certificate's
// validity window and issuer. A failed dial yields SSLNone.
func InspectSSL(ctx context.Context, host string, timeout time.Duration) (*SSLResult, error) {
	dialer := &net.Dialer{Timeout: timeout}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, "443"), &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // we classify validity ourselves below
	})
	if err != nil {
		return &SSLResult{State: SSLNone}, nil
	}
	defer conn.Close()
	_ = ctx

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return &SSLResult{State: SSLNone}, nil
	}

	leaf := state.PeerCertificates[0]
	result := &SSLResult{
		ExpiresAt: leaf.NotAfter.Unix(),
		Issuer:    leaf.Issuer.CommonName,
	}

	now := time.Now()
	if err := leaf.VerifyHostname(host); err != nil || now.After(leaf.NotAfter) || now.Before(leaf.NotBefore) {
		result.State = SSLInvalid
	} else {
		result.State = SSLValid
	}

	return result, nil
}
