package monitor

import (
	"testing"

	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/probe"
)

func TestBuildMetadataRecordsOnlyStoresEnabledProbes(t *testing.T) {
	relay := model.Relay{URL: "wss://relay.example.com", Network: "clearnet", DiscoveredAt: 1000}
	result := probe.CheckResult{
		RTT: &probe.RTTResult{OpenMS: 10, ReadMS: 5},
		SSL: &probe.SSLResult{State: probe.SSLValid},
	}
	store := config.ProbeToggles{RTT: true, SSL: false}

	records, err := buildMetadataRecords(relay, result, store, 2000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.MetadataNIP66RTT, records[0].Metadata.Type)
	assert.Equal(t, int64(2000), records[0].GeneratedAt)
}

func TestBuildMetadataRecordsSkipsNilProbes(t *testing.T) {
	relay := model.Relay{URL: "wss://relay.example.com", Network: "clearnet"}
	store := config.ProbeToggles{NIP11: true, RTT: true, SSL: true, Geo: true, Net: true, DNS: true, HTTP: true}

	records, err := buildMetadataRecords(relay, probe.CheckResult{}, store, 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBuildMetadataRecordsDeterministicHashing(t *testing.T) {
	relay := model.Relay{URL: "wss://relay.example.com", Network: "clearnet"}
	result := probe.CheckResult{RTT: &probe.RTTResult{OpenMS: 42}}
	store := config.ProbeToggles{RTT: true}

	a, err := buildMetadataRecords(relay, result, store, 100)
	require.NoError(t, err)
	b, err := buildMetadataRecords(relay, result, store, 200)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].Metadata.ID, b[0].Metadata.ID)
}

func TestTagsToNostrConvertsStringSlices(t *testing.T) {
	tags := tagsToNostr([][]string{{"rtt-open", "12"}, {"g", "9q9p1"}})
	require.Len(t, tags, 2)
	assert.Equal(t, nostr.Tag{"rtt-open", "12"}, tags[0])
}

func TestRelayURLsExtractsURLField(t *testing.T) {
	relays := []model.Relay{{URL: "wss://a.example.com"}, {URL: "wss://b.example.com"}}
	assert.Equal(t, []string{"wss://a.example.com", "wss://b.example.com"}, relayURLs(relays))
}
