// Package probe implements the seven NIP-11/NIP-66 relay checks the
// Monitor service runs each cycle (spec §4.7). Every probe returns either
// a typed result or an error; a nil result with no error never happens.
package probe

// NIP11Result is the relay information document (NIP-11).
type NIP11Result struct {
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Pubkey        string   `json:"pubkey,omitempty"`
	Contact       string   `json:"contact,omitempty"`
	SupportedNIPs []int    `json:"supported_nips,omitempty"`
	Software      string   `json:"software,omitempty"`
	Version       string   `json:"version,omitempty"`
	Language      []string `json:"language_tags,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Requirements  []string `json:"requirements,omitempty"`
}

// RTTResult holds the three round-trip-time measurements NIP-66 names.
type RTTResult struct {
	OpenMS  int64 `json:"open_ms"`
	ReadMS  int64 `json:"read_ms"`
	WriteMS int64 `json:"write_ms,omitempty"`
}

// SSLState classifies the TLS certificate presented by a relay.
type SSLState string

const (
	SSLValid   SSLState = "valid"
	SSLInvalid SSLState = "invalid"
	SSLNone    SSLState = "none"
)

// SSLResult describes the relay's TLS posture.
type SSLResult struct {
	State      SSLState `json:"state"`
	ExpiresAt  int64    `json:"expires_at,omitempty"`
	Issuer     string   `json:"issuer,omitempty"`
}

// NetResult holds IP and ASN attribution for the relay's resolved host.
type NetResult struct {
	IPv4    string `json:"ipv4,omitempty"`
	IPv6    string `json:"ipv6,omitempty"`
	ASN     int    `json:"asn,omitempty"`
	ASNOrg  string `json:"asn_org,omitempty"`
}

// GeoResult holds the geolocation of the relay's resolved IP.
type GeoResult struct {
	Geohash string  `json:"geohash,omitempty"`
	Country string  `json:"country,omitempty"`
	City    string  `json:"city,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	TZ      string  `json:"tz,omitempty"`
}

// DNSResult holds DNS resolution timing for the relay's host.
type DNSResult struct {
	ResolveMS int64    `json:"resolve_ms"`
	Addresses []string `json:"addresses,omitempty"`
}

// HTTPResult holds selected response headers from the relay's HTTP(S)
// upgrade endpoint.
type HTTPResult struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// CheckResult is the up-to-7-field outcome of probing one relay once,
// per spec §4.7. Every field is nil unless its probe both ran and
// succeeded.
type CheckResult struct {
	NIP11 *NIP11Result
	RTT   *RTTResult
	SSL   *SSLResult
	Net   *NetResult
	Geo   *GeoResult
	DNS   *DNSResult
	HTTP  *HTTPResult
}
