// Package monitor implements the relay-health service of spec §4.7: up
// to 7 NIP-11/NIP-66 probes per relay per cycle, content-addressed
// metadata persistence, and optional NIP-66 event publishing.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	nostr "github.com/nbd-wtf/go-nostr"
	"golang.org/x/sync/semaphore"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
	"github.com/sandwichfarm/nostr-observatory/internal/nostrclient"
	"github.com/sandwichfarm/nostr-observatory/internal/probe"
	"github.com/sandwichfarm/nostr-observatory/internal/service"
)

const announcementCheckpointKey = "announcement"

// Monitor runs the 7-probe check against every known relay each cycle.
type Monitor struct {
	base     *service.Base
	db       *brotr.Brotr
	cfg      config.Monitor
	networks config.Networks

	client *nostrclient.Client
	signer *nostrclient.Signer

	semaphores map[string]*semaphore.Weighted
	dialers    map[string]netdial.DialContextFunc

	asnLookup probe.ASNLookup
	geoLookup probe.GeoIPLookup
}

// New builds a Monitor. signer is nil when no Nostr signing key is
// configured, which disables publishing and write-RTT probes per spec
// §4.7's "Required keys" note.
func New(base *service.Base, db *brotr.Brotr, cfg config.Monitor, networks config.Networks, client *nostrclient.Client, signer *nostrclient.Signer) (*Monitor, error) {
	m := &Monitor{
		base:       base,
		db:         db,
		cfg:        cfg,
		networks:   networks,
		client:     client,
		signer:     signer,
		semaphores: make(map[string]*semaphore.Weighted),
		dialers:    make(map[string]netdial.DialContextFunc),
		asnLookup:  probe.NewCymruASNLookup(),
		geoLookup:  probe.NullGeoIPLookup{},
	}

	for _, name := range config.Names() {
		netCfg := networks.Get(name)
		if !netCfg.Enabled {
			continue
		}
		dial, err := netdial.ForNetwork(netCfg)
		if err != nil {
			return nil, fmt.Errorf("building dialer for network %s: %w", name, err)
		}
		m.dialers[name] = dial
		maxTasks := netCfg.MaxTasks
		if maxTasks <= 0 {
			maxTasks = 1
		}
		m.semaphores[name] = semaphore.NewWeighted(int64(maxTasks))
	}

	return m, nil
}

// Cycle runs one monitor pass: optional announcement, chunked probing
// of every relay, and persistence of every probe result, per spec §4.7.
func (m *Monitor) Cycle(ctx context.Context) error {
	now := time.Now().UTC().Unix()

	if m.cfg.Announcement.Enabled && m.signer != nil {
		if m.shouldAnnounce(ctx, now) {
			if err := m.publishAnnouncement(ctx, now); err != nil {
				m.base.Logger.Warn("monitor announcement publish failed", "error", err)
			} else if err := m.recordAnnouncement(ctx, now); err != nil {
				m.base.Logger.Warn("recording announcement checkpoint failed", "error", err)
			}
		}
	}

	relays, err := m.db.FetchRelays(ctx, m.cfg.MaxRelays)
	if err != nil {
		return fmt.Errorf("fetching relays: %w", err)
	}

	writeEnabled := m.signer != nil

	chunkSize := m.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(relays)
	}
	for start := 0; start < len(relays); start += chunkSize {
		end := start + chunkSize
		if end > len(relays) {
			end = len(relays)
		}
		if err := m.processChunk(ctx, relays[start:end], now, writeEnabled); err != nil {
			return err
		}
	}

	return nil
}

func (m *Monitor) processChunk(ctx context.Context, relays []model.Relay, now int64, writeEnabled bool) error {
	type outcome struct {
		relay  model.Relay
		result probe.CheckResult
	}
	outcomes := make(chan outcome, len(relays))

	var wg sync.WaitGroup
	for _, relay := range relays {
		sem := m.semaphores[relay.Network]
		if sem == nil {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			continue
		}
		wg.Add(1)
		go func(relay model.Relay) {
			defer wg.Done()
			defer sem.Release(1)
			result := m.checkRelay(ctx, relay, writeEnabled)
			outcomes <- outcome{relay: relay, result: result}
		}(relay)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var records []brotr.RelayMetadataRecord
	for o := range outcomes {
		recs, err := buildMetadataRecords(o.relay, o.result, m.cfg.Processing.Store, now)
		if err != nil {
			m.base.Logger.Warn("building metadata records failed", "relay", o.relay.URL, "error", err)
			continue
		}
		records = append(records, recs...)

		if m.cfg.Announcement.Publish30166 && m.signer != nil {
			if err := m.publishRelayDiscovery(ctx, o.relay, o.result); err != nil {
				m.base.Logger.Warn("publishing relay discovery event failed", "relay", o.relay.URL, "error", err)
			}
		}
	}

	if len(records) == 0 {
		return nil
	}
	n, err := m.db.InsertRelayMetadata(ctx, records, true)
	if err != nil {
		return fmt.Errorf("inserting relay metadata: %w", err)
	}
	m.base.Logger.Info("persisted relay metadata", "count", n)
	return nil
}

// buildMetadataRecords converts the non-nil, store-enabled fields of
// result into content-addressed RelayMetadataRecord rows, per spec
// §4.7 step 4.
func buildMetadataRecords(relay model.Relay, result probe.CheckResult, store config.ProbeToggles, now int64) ([]brotr.RelayMetadataRecord, error) {
	var records []brotr.RelayMetadataRecord

	add := func(enabled bool, mtype model.MetadataType, value interface{}) error {
		if !enabled || value == nil {
			return nil
		}
		md, err := model.NewMetadata(mtype, value)
		if err != nil {
			return err
		}
		records = append(records, brotr.RelayMetadataRecord{Relay: relay, Metadata: md, GeneratedAt: now})
		return nil
	}

	if result.NIP11 != nil {
		if err := add(store.NIP11, model.MetadataNIP11Info, result.NIP11); err != nil {
			return nil, err
		}
	}
	if result.RTT != nil {
		if err := add(store.RTT, model.MetadataNIP66RTT, result.RTT); err != nil {
			return nil, err
		}
	}
	if result.SSL != nil {
		if err := add(store.SSL, model.MetadataNIP66SSL, result.SSL); err != nil {
			return nil, err
		}
	}
	if result.Geo != nil {
		if err := add(store.Geo, model.MetadataNIP66Geo, result.Geo); err != nil {
			return nil, err
		}
	}
	if result.Net != nil {
		if err := add(store.Net, model.MetadataNIP66Net, result.Net); err != nil {
			return nil, err
		}
	}
	if result.DNS != nil {
		if err := add(store.DNS, model.MetadataNIP66DNS, result.DNS); err != nil {
			return nil, err
		}
	}
	if result.HTTP != nil {
		if err := add(store.HTTP, model.MetadataNIP66HTTP, result.HTTP); err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (m *Monitor) shouldAnnounce(ctx context.Context, now int64) bool {
	rows, err := m.db.GetServiceState(ctx, "monitor", model.StateTypeCheckpoint, strPtr(announcementCheckpointKey))
	if err != nil || len(rows) == 0 {
		return true
	}
	var last int64
	if err := json.Unmarshal(rows[0].RawValue, &last); err != nil {
		return true
	}
	return now-last >= int64(m.cfg.Announcement.IntervalSeconds)
}

func (m *Monitor) recordAnnouncement(ctx context.Context, now int64) error {
	state, err := model.NewServiceState("monitor", model.StateTypeCheckpoint, announcementCheckpointKey, now, now)
	if err != nil {
		return err
	}
	_, err = m.db.UpsertServiceState(ctx, []model.ServiceState{state})
	return err
}

func (m *Monitor) publishAnnouncement(ctx context.Context, now int64) error {
	ev := &nostr.Event{
		Kind:      10166,
		CreatedAt: nostr.Timestamp(now),
		Content:   "",
		Tags:      nostr.Tags{},
	}
	pub, err := m.signer.PublicKey()
	if err != nil {
		return fmt.Errorf("deriving monitor pubkey: %w", err)
	}
	ev.PubKey = pub
	if err := m.signer.Sign(ev); err != nil {
		return fmt.Errorf("signing announcement: %w", err)
	}

	relays, err := m.db.FetchRelays(ctx, 0)
	if err != nil {
		return fmt.Errorf("fetching relays for announcement: %w", err)
	}
	return m.client.PublishEvent(ctx, relayURLs(relays), ev)
}

func (m *Monitor) publishRelayDiscovery(ctx context.Context, relay model.Relay, result probe.CheckResult) error {
	tags := append(nostr.Tags{{"d", relay.URL}}, tagsToNostr(probe.ComposeTags(result))...)
	ev := &nostr.Event{
		Kind:      30166,
		CreatedAt: nostr.Timestamp(time.Now().UTC().Unix()),
		Content:   "",
		Tags:      tags,
	}
	pub, err := m.signer.PublicKey()
	if err != nil {
		return fmt.Errorf("deriving monitor pubkey: %w", err)
	}
	ev.PubKey = pub
	if err := m.signer.Sign(ev); err != nil {
		return fmt.Errorf("signing relay discovery event: %w", err)
	}
	return m.client.PublishEvent(ctx, []string{relay.URL}, ev)
}

func tagsToNostr(tags [][]string) nostr.Tags {
	out := make(nostr.Tags, len(tags))
	for i, t := range tags {
		out[i] = nostr.Tag(t)
	}
	return out
}

func relayURLs(relays []model.Relay) []string {
	urls := make([]string, len(relays))
	for i, r := range relays {
		urls[i] = r.URL
	}
	return urls
}

func strPtr(s string) *string { return &s }
