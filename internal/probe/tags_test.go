package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeTagsEmptyResultYieldsNoTags(t *testing.T) {
	assert.Empty(t, ComposeTags(CheckResult{}))
}

func TestComposeTagsRTTOnly(t *testing.T) {
	tags := ComposeTags(CheckResult{RTT: &RTTResult{OpenMS: 120, ReadMS: 45}})
	assert.Contains(t, tags, []string{"rtt-open", "120"})
	assert.Contains(t, tags, []string{"rtt-read", "45"})
	for _, tag := range tags {
		assert.NotEqual(t, "rtt-write", tag[0])
	}
}

func TestComposeTagsSSLAndGeo(t *testing.T) {
	tags := ComposeTags(CheckResult{
		SSL: &SSLResult{State: SSLValid, ExpiresAt: 1893456000, Issuer: "Let's Encrypt"},
		Geo: &GeoResult{Geohash: "9q9p1", Country: "US"},
	})
	assert.Contains(t, tags, []string{"ssl", "valid"})
	assert.Contains(t, tags, []string{"ssl-issuer", "Let's Encrypt"})
	assert.Contains(t, tags, []string{"g", "9q9p1"})
	assert.Contains(t, tags, []string{"geo-country", "US"})
}

func TestComposeTagsNIP11SupportedNIPs(t *testing.T) {
	tags := ComposeTags(CheckResult{NIP11: &NIP11Result{SupportedNIPs: []int{1, 11, 42, 66}}})
	assert.Contains(t, tags, []string{"N", "1"})
	assert.Contains(t, tags, []string{"N", "66"})
}
