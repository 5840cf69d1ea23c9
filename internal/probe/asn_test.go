package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCymruTXTExtractsASN(t *testing.T) {
	asn, org, err := parseCymruTXT("15169 | 8.8.8.0/24 | US | arin | 2014-03-14")
	require.NoError(t, err)
	assert.Equal(t, 15169, asn)
	assert.Empty(t, org)
}

func TestParseCymruTXTRejectsMalformedRecord(t *testing.T) {
	_, _, err := parseCymruTXT("not-a-number | foo")
	assert.Error(t, err)
}
