package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// CymruASNLookup resolves an IPv4 address to its announcing AS number
// via Team Cymru's DNS-based WHOIS mirror (the organization it returns
// is always empty), the
// standard zero-infrastructure way to do ASN attribution without a
// local routing table or commercial database.
type CymruASNLookup struct {
	Server  string
	Timeout time.Duration
}

// NewCymruASNLookup builds a lookup that queries Cymru's zone through the
// public resolver at 8.8.8.8.
func NewCymruASNLookup() *CymruASNLookup {
	return &CymruASNLookup{Server: "8.8.8.8:53", Timeout: 5 * time.Second}
}

// LookupASN implements ASNLookup.
func (c *CymruASNLookup) LookupASN(ctx context.Context, ip string) (int, string, error) {
	parsed := net.ParseIP(ip).To4()
	if parsed == nil {
		return 0, "", fmt.Errorf("not an IPv4 address: %s", ip)
	}

	query := fmt.Sprintf("%d.%d.%d.%d.origin.asn.cymru.com.", parsed[3], parsed[2], parsed[1], parsed[0])

	msg := new(dns.Msg)
	msg.SetQuestion(query, dns.TypeTXT)

	client := &dns.Client{Timeout: c.Timeout}
	resp, _, err := client.ExchangeContext(ctx, msg, c.Server)
	if err != nil {
		return 0, "", fmt.Errorf("cymru asn lookup: %w", err)
	}
	if len(resp.Answer) == 0 {
		return 0, "", fmt.Errorf("no asn record found for %s", ip)
	}

	txt, ok := resp.Answer[0].(*dns.TXT)
	if !ok || len(txt.Txt) == 0 {
		return 0, "", fmt.Errorf("unexpected asn record type for %s", ip)
	}

	return parseCymruTXT(txt.Txt[0])
}

// parseCymruTXT parses a record of the form
// "15169 | 8.8.8.0/24 | US | arin | 2014-03-14" into (asn, org).
// Cymru's origin records carry no organization name field, so org is
// left blank here; a future peer-lookup against asn.cymru.com's
// AS-name mirror would fill it in.
func parseCymruTXT(record string) (int, string, error) {
	fields := strings.Split(record, "|")
	if len(fields) < 1 {
		return 0, "", fmt.Errorf("malformed cymru txt record: %q", record)
	}
	asn, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, "", fmt.Errorf("parsing asn from %q: %w", record, err)
	}
	return asn, "", nil
}
