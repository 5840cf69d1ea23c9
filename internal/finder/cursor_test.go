package finder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

func TestAfterIDBytesEmptyCursorYieldsEmptySlice(t *testing.T) {
	got := afterIDBytes(model.FinderEventCursor{})
	assert.Empty(t, got)
}

func TestAfterIDBytesDecodesHex(t *testing.T) {
	got := afterIDBytes(model.FinderEventCursor{LastIDHex: "abcd"})
	assert.Equal(t, []byte{0xab, 0xcd}, got)
}

func TestAfterIDBytesMalformedHexYieldsEmptySlice(t *testing.T) {
	got := afterIDBytes(model.FinderEventCursor{LastIDHex: "not-hex"})
	assert.Empty(t, got)
}
