package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeGeohashKnownCoordinate(t *testing.T) {
	// Clock Tower, Mountain View, CA: well-known geohash test vector.
	hash := encodeGeohash(37.386019, -122.083756, 9)
	assert.Equal(t, "9q9htvvm6", hash)
}

func TestEncodeGeohashClampsPrecision(t *testing.T) {
	assert.Len(t, encodeGeohash(0, 0, 0), 1)
	assert.Len(t, encodeGeohash(0, 0, 99), 12)
}

func TestEncodeGeohashShorterPrefixIsCoarser(t *testing.T) {
	full := encodeGeohash(37.386019, -122.083756, 9)
	short := encodeGeohash(37.386019, -122.083756, 3)
	assert.Equal(t, short, full[:3])
}
