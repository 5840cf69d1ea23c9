// Package finder implements the relay-URL discovery service of spec
// §4.5: an event-scan source over stored Nostr events, and an API-scan
// source over configured HTTP relay-list endpoints.
package finder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/service"
)

// Finder discovers new relay candidates from stored events and
// configured discovery APIs.
type Finder struct {
	base *service.Base
	db   *brotr.Brotr
	cfg  config.Finder

	httpClient *http.Client
}

// New builds a Finder.
func New(base *service.Base, db *brotr.Brotr, cfg config.Finder) *Finder {
	return &Finder{base: base, db: db, cfg: cfg, httpClient: &http.Client{}}
}

// Cycle runs one event-scan pass followed by one API-scan pass. Either
// source failing is logged, not fatal — matching spec §4.5's "network
// errors and bad responses are logged, not fatal" for the API scan, and
// extended the same way to the event scan so one misbehaving source
// never blocks the other.
func (f *Finder) Cycle(ctx context.Context) error {
	if f.cfg.Events.Enabled {
		if err := f.scanEvents(ctx); err != nil {
			f.base.Logger.Warn("event scan failed", "error", err)
		}
	}
	if f.cfg.Discovery.Enabled {
		f.scanAPIs(ctx)
	}
	return nil
}

func (f *Finder) scanEvents(ctx context.Context) error {
	cursor, err := loadCursor(ctx, f.db)
	if err != nil {
		return err
	}

	batchSize := f.cfg.Events.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	for {
		events, err := f.db.FetchEventsForScan(ctx, f.cfg.Events.Kinds, cursor.LastTimestamp, afterIDBytes(cursor), batchSize)
		if err != nil {
			return fmt.Errorf("fetching event batch: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		if err := f.processEventBatch(ctx, events); err != nil {
			return err
		}

		last := events[len(events)-1]
		cursor = model.FinderEventCursor{LastTimestamp: last.CreatedAt, LastIDHex: last.IDHex()}
		if err := saveCursor(ctx, f.db, cursor, time.Now().UTC().Unix()); err != nil {
			return err
		}

		if len(events) < batchSize {
			return nil
		}
	}
}

func (f *Finder) processEventBatch(ctx context.Context, events []model.Event) error {
	now := time.Now().UTC().Unix()

	seen := make(map[string]struct{})
	var candidates []string
	for _, ev := range events {
		for _, raw := range ExtractURLs(ev) {
			relay, err := model.NewRelay(raw, now)
			if err != nil {
				continue
			}
			if _, ok := seen[relay.URL]; ok {
				continue
			}
			seen[relay.URL] = struct{}{}
			candidates = append(candidates, relay.URL)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	return f.upsertCandidates(ctx, candidates, now)
}

// upsertCandidates filters out URLs that already exist as relays, then
// writes the rest as validator candidates.
func (f *Finder) upsertCandidates(ctx context.Context, urls []string, now int64) error {
	existing, err := f.db.ExistingRelayURLs(ctx, urls)
	if err != nil {
		return fmt.Errorf("filtering new relay urls: %w", err)
	}

	var states []model.ServiceState
	for _, url := range urls {
		if existing[url] {
			continue
		}
		relay, err := model.NewRelay(url, now)
		if err != nil {
			continue
		}
		state, err := model.NewServiceState("validator", model.StateTypeCandidate, relay.URL,
			model.ValidatorCandidate{Network: relay.Network, FailedAttempts: 0}, now)
		if err != nil {
			continue
		}
		states = append(states, state)
	}
	if len(states) == 0 {
		return nil
	}

	n, err := f.db.UpsertServiceState(ctx, states)
	if err != nil {
		return fmt.Errorf("upserting discovered candidates: %w", err)
	}
	f.base.Logger.Info("discovered relay candidates", "count", n)
	return nil
}

func (f *Finder) scanAPIs(ctx context.Context) {
	limiter := apiScanLimiter(f.cfg.Discovery.DelayBetweenRequestsMs)

	for _, api := range f.cfg.Discovery.APIs {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		urls, err := f.fetchAPI(ctx, api)
		if err != nil {
			f.base.Logger.Warn("discovery api scan failed", "api", api.Name, "error", err)
			continue
		}
		if len(urls) == 0 {
			continue
		}

		now := time.Now().UTC().Unix()
		if err := f.upsertCandidates(ctx, urls, now); err != nil {
			f.base.Logger.Warn("discovery api candidate upsert failed", "api", api.Name, "error", err)
		}
	}
}

// apiScanLimiter paces discovery-API requests at one per
// delayBetweenRequestsMs, per spec §4.5's "don't hammer discovery APIs"
// intent. A non-positive delay means unpaced (limiter allows bursts).
func apiScanLimiter(delayBetweenRequestsMs int) *rate.Limiter {
	if delayBetweenRequestsMs <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	interval := time.Duration(delayBetweenRequestsMs) * time.Millisecond
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (f *Finder) fetchAPI(ctx context.Context, api config.DiscoveryAPI) ([]string, error) {
	timeout := time.Duration(api.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", api.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, api.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var urls []string
	if err := json.Unmarshal(body, &urls); err != nil {
		return nil, fmt.Errorf("decoding JSON array from %s: %w", api.URL, err)
	}
	return urls, nil
}
