package probe

import "strconv"

// ComposeTags builds the kind-30166 NIP-66 tag set summarizing a
// CheckResult, per spec §4.7's tag composition table. Probes that did
// not run or did not succeed contribute no tags.
func ComposeTags(result CheckResult) [][]string {
	tags := make([][]string, 0, 16)

	if result.RTT != nil {
		tags = append(tags, []string{"rtt-open", strconv.FormatInt(result.RTT.OpenMS, 10)})
		tags = append(tags, []string{"rtt-read", strconv.FormatInt(result.RTT.ReadMS, 10)})
		if result.RTT.WriteMS > 0 {
			tags = append(tags, []string{"rtt-write", strconv.FormatInt(result.RTT.WriteMS, 10)})
		}
	}

	if result.SSL != nil {
		tags = append(tags, []string{"ssl", string(result.SSL.State)})
		if result.SSL.ExpiresAt > 0 {
			tags = append(tags, []string{"ssl-expires", strconv.FormatInt(result.SSL.ExpiresAt, 10)})
		}
		if result.SSL.Issuer != "" {
			tags = append(tags, []string{"ssl-issuer", result.SSL.Issuer})
		}
	}

	if result.Net != nil {
		if result.Net.IPv4 != "" {
			tags = append(tags, []string{"net-ip", result.Net.IPv4})
		}
		if result.Net.IPv6 != "" {
			tags = append(tags, []string{"net-ipv6", result.Net.IPv6})
		}
		if result.Net.ASN != 0 {
			tags = append(tags, []string{"net-asn", strconv.Itoa(result.Net.ASN)})
		}
		if result.Net.ASNOrg != "" {
			tags = append(tags, []string{"net-asn-org", result.Net.ASNOrg})
		}
	}

	if result.Geo != nil {
		if result.Geo.Geohash != "" {
			tags = append(tags, []string{"g", result.Geo.Geohash})
		}
		if result.Geo.Country != "" {
			tags = append(tags, []string{"geo-country", result.Geo.Country})
		}
		if result.Geo.City != "" {
			tags = append(tags, []string{"geo-city", result.Geo.City})
		}
		if result.Geo.Lat != 0 {
			tags = append(tags, []string{"geo-lat", strconv.FormatFloat(result.Geo.Lat, 'f', -1, 64)})
		}
		if result.Geo.Lon != 0 {
			tags = append(tags, []string{"geo-lon", strconv.FormatFloat(result.Geo.Lon, 'f', -1, 64)})
		}
		if result.Geo.TZ != "" {
			tags = append(tags, []string{"geo-tz", result.Geo.TZ})
		}
	}

	if result.NIP11 != nil {
		for _, nip := range result.NIP11.SupportedNIPs {
			tags = append(tags, []string{"N", strconv.Itoa(nip)})
		}
		for _, topic := range result.NIP11.Tags {
			tags = append(tags, []string{"t", topic})
		}
		for _, lang := range result.NIP11.Language {
			tags = append(tags, []string{"l", lang})
		}
		for _, req := range result.NIP11.Requirements {
			tags = append(tags, []string{"R", req})
		}
		if result.NIP11.Software != "" {
			tags = append(tags, []string{"T", result.NIP11.Software})
		}
	}

	return tags
}
