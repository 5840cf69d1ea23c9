// Package synchronizer implements the per-relay historical event sync of
// spec §4.8: a bounded-concurrency fan-out over every known relay, each
// task paging a REQ window backwards until exhausted, flushing events
// and its cursor together in one transaction.
package synchronizer

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	nostr "github.com/nbd-wtf/go-nostr"
	"golang.org/x/sync/semaphore"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
	"github.com/sandwichfarm/nostr-observatory/internal/nostrclient"
	"github.com/sandwichfarm/nostr-observatory/internal/service"
)

// Synchronizer pulls historical events from every known relay into the
// shared event store, one bounded window per cycle per relay.
type Synchronizer struct {
	base     *service.Base
	db       *brotr.Brotr
	cfg      config.Synchronizer
	networks config.Networks

	client *nostrclient.Client
	signer *nostrclient.Signer

	semaphores map[string]*semaphore.Weighted
	dialers    map[string]netdial.DialContextFunc
}

// New builds a Synchronizer. signer is nil when no signing key is
// configured, which skips NIP-42 AUTH for relays that challenge reads.
func New(base *service.Base, db *brotr.Brotr, cfg config.Synchronizer, networks config.Networks, client *nostrclient.Client, signer *nostrclient.Signer) (*Synchronizer, error) {
	s := &Synchronizer{
		base:       base,
		db:         db,
		cfg:        cfg,
		networks:   networks,
		client:     client,
		signer:     signer,
		semaphores: make(map[string]*semaphore.Weighted),
		dialers:    make(map[string]netdial.DialContextFunc),
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
		s.dialers[name] = dial
		maxTasks := netCfg.MaxTasks
		if maxTasks <= 0 {
			maxTasks = 1
		}
		s.semaphores[name] = semaphore.NewWeighted(int64(maxTasks))
	}

	return s, nil
}

// Cycle runs one synchronizer pass over every known relay, per spec
// §4.8's algorithm.
func (s *Synchronizer) Cycle(ctx context.Context) error {
	relays, err := s.db.FetchRelays(ctx, 0)
	if err != nil {
		return fmt.Errorf("fetching relays: %w", err)
	}
	if len(relays) == 0 {
		return nil
	}

	cursors, err := s.loadCursors(ctx)
	if err != nil {
		return fmt.Errorf("loading sync cursors: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	flushed := 0

	for _, relay := range relays {
		sem, ok := s.semaphores[relay.Network]
		dial, dialOK := s.dialers[relay.Network]
		if !ok || !dialOK {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			continue
		}

		wg.Add(1)
		go func(relay model.Relay) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.stagger(ctx); err != nil {
				return
			}

			err := s.syncRelay(ctx, relay, dial, cursors[relay.URL])

			mu.Lock()
			flushed++
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("syncing %s: %w", relay.URL, err)
			}
			mu.Unlock()
		}(relay)
	}

	wg.Wait()

	s.base.Logger.Info("synchronizer cycle complete", "relays", len(relays), "flushed", flushed)
	return firstErr
}

// stagger sleeps a uniform-random delay in [0, stagger_delay] seconds
// before a relay task begins, per spec §4.8 step 3, to avoid thundering
// herds against every relay at once.
func (s *Synchronizer) stagger(ctx context.Context) error {
	if s.cfg.StaggerDelaySeconds <= 0 {
		return nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(s.cfg.StaggerDelaySeconds)*1000))
	if err != nil {
		return nil
	}
	select {
	case <-time.After(time.Duration(n.Int64()) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadCursors bulk-loads every per-relay cursor under
// (synchronizer, cursor, <relay_url>) into a lookup keyed by relay URL.
func (s *Synchronizer) loadCursors(ctx context.Context) (map[string]model.SynchronizerCursor, error) {
	rows, err := s.db.GetServiceState(ctx, "synchronizer", model.StateTypeCursor, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.SynchronizerCursor, len(rows))
	for _, row := range rows {
		cursor, err := row.SyncCursor()
		if err != nil {
			s.base.Logger.Warn("ignoring malformed sync cursor", "relay", row.StateKey, "error", err)
			continue
		}
		out[row.StateKey] = cursor
	}
	return out, nil
}

// syncRelay drives one relay's paginated REQ window, per spec §4.8 steps
// 4-7: compute the window, open a subscription, accumulate into a
// bounded EventBatch, flush event + cursor together, then walk the
// window backwards (lowering until to one second below the oldest event
// seen) until a
// page returns fewer than the filter limit or the relay timeout fires.
func (s *Synchronizer) syncRelay(ctx context.Context, relay model.Relay, dial netdial.DialContextFunc, prior model.SynchronizerCursor) error {
	timeoutSeconds := s.cfg.SyncTimeouts.ForNetwork(relay.Network)
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	relayCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	now := time.Now().UTC().Unix()
	hasCursor := prior != (model.SynchronizerCursor{})
	since, until := computeWindow(prior, hasCursor, s.cfg.UseRelayState, s.cfg.LookbackSeconds, s.cfg.DefaultStart, now)

	if s.signer != nil {
		if err := s.client.Authenticate(relayCtx, relay.URL, s.signer); err != nil {
			s.base.Logger.Debug("nip-42 auth skipped or failed", "relay", relay.URL, "error", err)
		}
	}

	totalInserted := 0
	originalSince := since

	for {
		sinceTs := nostr.Timestamp(since)
		untilTs := nostr.Timestamp(until)
		filter := nostr.Filter{Since: &sinceTs, Until: &untilTs, Limit: s.cfg.Filter.Limit}
		if len(s.cfg.Filter.Kinds) > 0 {
			filter.Kinds = s.cfg.Filter.Kinds
		}
		if len(s.cfg.Filter.Authors) > 0 {
			filter.Authors = s.cfg.Filter.Authors
		}

		rawEvents, err := s.client.FetchEvents(relayCtx, []string{relay.URL}, filter)
		if err != nil {
			return fmt.Errorf("fetching events: %w", err)
		}
		if len(rawEvents) == 0 {
			break
		}

		batch := NewEventBatch(s.cfg.Filter.Limit)
		for _, raw := range rawEvents {
			ev, err := model.EventFromNostr(raw)
			if err != nil {
				s.base.Logger.Debug("discarding invalid event during sync", "relay", relay.URL, "error", err)
				continue
			}
			if batch.Full() {
				break
			}
			if err := batch.Append(ev); err != nil {
				break
			}
		}
		if batch.Empty() {
			break
		}

		oldest, _ := batch.OldestCreatedAt()
		newCursor := model.SynchronizerCursor{Since: originalSince, Until: until}
		cursorState, err := model.NewServiceState("synchronizer", model.StateTypeCursor, relay.URL, newCursor, time.Now().UTC().Unix())
		if err != nil {
			return fmt.Errorf("encoding sync cursor: %w", err)
		}

		records := make([]brotr.EventRelayRecord, 0, len(batch.Events()))
		for _, ev := range batch.Events() {
			records = append(records, brotr.EventRelayRecord{Relay: relay, Event: ev, SeenAt: now})
		}

		inserted, err := s.db.FlushSyncBatch(relayCtx, records, cursorState)
		if err != nil {
			return fmt.Errorf("flushing sync batch: %w", err)
		}
		totalInserted += inserted
		s.base.Logger.LogSyncProgress(relay.URL, 0, len(records), oldest)

		if len(rawEvents) < s.cfg.Filter.Limit {
			break
		}

		// Lower until strictly below the oldest event seen so a full page
		// tied at a single created_at (spec §8 scenario 5) can't make the
		// window repeat itself forever; events tied at that exact second
		// beyond the first page are accepted as lost to the tie, per the
		// ordering Open Question, rather than looping until the relay
		// timeout expires.
		nextUntil := oldest - 1
		if nextUntil <= since || nextUntil >= until {
			break
		}
		until = nextUntil
	}

	s.base.Logger.Debug("relay sync complete", "relay", relay.URL, "inserted", totalInserted)
	return nil
}
