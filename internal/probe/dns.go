package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// MeasureDNS issues a manual A-record query against server (host:port)
// and times the round trip, grounded on the pack's dnsexchange.go manual
// miekg/dns query-plus-timing pattern.
func MeasureDNS(ctx context.Context, host string, server string, timeout time.Duration) (*DNSResult, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: timeout}

	start := time.Now()
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("dns exchange: %w", err)
	}
	elapsed := time.Since(start)

	result := &DNSResult{ResolveMS: elapsed.Milliseconds()}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			result.Addresses = append(result.Addresses, a.A.String())
		}
	}

	return result, nil
}
