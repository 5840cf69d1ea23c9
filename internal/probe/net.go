package probe

import (
	"context"
	"net"
)

// ASNLookup resolves an IP address to its announcing autonomous system.
// The implementation in this module, CymruASNLookup, queries Team
// Cymru's DNS-based WHOIS mirror via miekg/dns.
type ASNLookup interface {
	LookupASN(ctx context.Context, ip string) (asn int, org string, err error)
}

// LookupNet resolves host to its IPv4/IPv6 addresses and, when asn is
// non-nil, attributes the IPv4 address to an autonomous system.
func LookupNet(ctx context.Context, host string, resolver *net.Resolver, asn ASNLookup) (*NetResult, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	result := &NetResult{}
	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil && result.IPv4 == "" {
			result.IPv4 = ip4.String()
		} else if result.IPv6 == "" {
			result.IPv6 = addr.IP.String()
		}
	}

	if asn != nil && result.IPv4 != "" {
		if num, org, err := asn.LookupASN(ctx, result.IPv4); err == nil {
			result.ASN = num
			result.ASNOrg = org
		}
	}

	return result, nil
}
