package probe

import (
	"context"
	"fmt"
)

// GeoIPLookup resolves an IP address to a coordinate and locality. The
// only implementation in this module is NullGeoIPLookup below; the
// geohash encoding below is hand-rolled.
type GeoIPLookup interface {
	LookupGeoIP(ctx context.Context, ip string) (lat, lon float64, country, city, tz string, err error)
}

// NullGeoIPLookup is the no-database fallback: it always fails, so Geo
// probes are skipped wherever no real GeoIPLookup (e.g. a MaxMind
// reader) has been wired in.
type NullGeoIPLookup struct{}

// LookupGeoIP implements GeoIPLookup.
func (NullGeoIPLookup) LookupGeoIP(ctx context.Context, ip string) (lat, lon float64, country, city, tz string, err error) {
	return 0, 0, "", "", "", fmt.Errorf("no geoip database configured")
}

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// LookupGeo resolves ip's location and encodes it as a geohash at the
// given precision (1-12 characters), per spec §4.7's `g` tag.
func LookupGeo(ctx context.Context, ip string, lookup GeoIPLookup, precision int) (*GeoResult, error) {
	lat, lon, country, city, tz, err := lookup.LookupGeoIP(ctx, ip)
	if err != nil {
		return nil, err
	}

	return &GeoResult{
		Geohash: encodeGeohash(lat, lon, precision),
		Country: country,
		City:    city,
		Lat:     lat,
		Lon:     lon,
		TZ:      tz,
	}, nil
}

// encodeGeohash implements the standard interleaved-bisection geohash
// algorithm at the requested character precision.
func encodeGeohash(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := [2]float64{-90, 90}
	lonRange := [2]float64{-180, 180}

	geohash := make([]byte, 0, precision)
	bit, ch := 0, 0
	evenBit := true

	for len(geohash) < precision {
		if evenBit {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		evenBit = !evenBit

		if bit < 4 {
			bit++
		} else {
			geohash = append(geohash, geohashAlphabet[ch])
			bit, ch = 0, 0
		}
	}

	return string(geohash)
}
