// Package validator implements the candidate-probing service of spec
// §4.6: it streams candidates in chunks, probes each for Nostr protocol
// compatibility over a per-network-bounded fan-out, and promotes or
// penalizes each one.
package validator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
	"github.com/sandwichfarm/nostr-observatory/internal/service"
)

// Validator probes pending candidates and promotes the reachable ones
// to relay rows.
type Validator struct {
	base     *service.Base
	db       *brotr.Brotr
	cfg      config.Validator
	networks config.Networks

	semaphores      map[string]*semaphore.Weighted
	dialers         map[string]netdial.DialContextFunc
	enabledNetworks []string
}

// New builds a Validator, constructing one dial function and one
// bounded semaphore per enabled network.
func New(base *service.Base, db *brotr.Brotr, cfg config.Validator, networks config.Networks) (*Validator, error) {
	v := &Validator{
		base:       base,
		db:         db,
		cfg:        cfg,
		networks:   networks,
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
		v.dialers[name] = dial
		v.enabledNetworks = append(v.enabledNetworks, name)
		maxTasks := netCfg.MaxTasks
		if maxTasks <= 0 {
			maxTasks = 1
		}
		v.semaphores[name] = semaphore.NewWeighted(int64(maxTasks))
	}

	return v, nil
}

// Cycle runs one validator pass: optional cleanup, then chunk-by-chunk
// probing until exhausted or max_candidates is reached, per spec §4.6.
func (v *Validator) Cycle(ctx context.Context) error {
	if v.cfg.Cleanup.Enabled {
		stale, err := v.db.DeleteStaleCandidates(ctx)
		if err != nil {
			return fmt.Errorf("cleaning up stale candidates: %w", err)
		}
		exhausted, err := v.db.DeleteExhaustedCandidates(ctx, v.cfg.MaxFailures)
		if err != nil {
			return fmt.Errorf("cleaning up exhausted candidates: %w", err)
		}
		if stale > 0 || exhausted > 0 {
			v.base.Logger.Info("validator cleanup", "stale", stale, "exhausted", exhausted)
		}
	}

	processed := 0
	for {
		if v.cfg.MaxCandidates > 0 && processed >= v.cfg.MaxCandidates {
			return nil
		}

		chunkSize := v.cfg.ChunkSize
		if v.cfg.MaxCandidates > 0 && chunkSize > v.cfg.MaxCandidates-processed {
			chunkSize = v.cfg.MaxCandidates - processed
		}

		candidates, err := v.db.FetchCandidates(ctx, chunkSize, v.enabledNetworks)
		if err != nil {
			return fmt.Errorf("fetching candidate chunk: %w", err)
		}
		if len(candidates) == 0 {
			return nil
		}

		if err := v.processChunk(ctx, candidates); err != nil {
			return err
		}

		processed += len(candidates)
		if len(candidates) < v.cfg.ChunkSize {
			return nil
		}
	}
}

// candidateOutcome is the per-candidate probe result stashed in the
// concurrent results map while the chunk's goroutines are in flight;
// exactly one of relay/state is set.
type candidateOutcome struct {
	relay *model.Relay
	state *model.ServiceState
}

func (v *Validator) processChunk(ctx context.Context, candidates []brotr.CandidateRow) error {
	var wg sync.WaitGroup
	results := xsync.NewMapOf[string, candidateOutcome]()
	now := time.Now().UTC().Unix()

	for _, candidate := range candidates {
		sem, ok := v.semaphores[candidate.Network]
		dial, dialOK := v.dialers[candidate.Network]
		if !ok || !dialOK {
			// Network not enabled; candidates for it are left untouched,
			// per spec §4.6's "left in place (not touched)".
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			continue
		}

		wg.Add(1)
		go func(candidate brotr.CandidateRow) {
			defer wg.Done()
			defer sem.Release(1)

			netCfg := v.networks.Get(candidate.Network)
			timeout := time.Duration(netCfg.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 10 * time.Second
			}

			err := probeRelay(ctx, candidate.URL, dial, timeout)

			if err == nil {
				v.base.Logger.LogCandidateOutcome(candidate.URL, candidate.Network, true, candidate.FailedAttempts, nil)
				relay := model.Relay{URL: candidate.URL, Network: candidate.Network, DiscoveredAt: now}
				results.Store(candidate.URL, candidateOutcome{relay: &relay})
				return
			}

			v.base.Logger.LogCandidateOutcome(candidate.URL, candidate.Network, false, candidate.FailedAttempts+1, err)
			state, stateErr := model.NewServiceState("validator", model.StateTypeCandidate, candidate.URL,
				model.ValidatorCandidate{Network: candidate.Network, FailedAttempts: candidate.FailedAttempts + 1}, now)
			if stateErr != nil {
				v.base.Logger.Warn("failed to encode candidate failure state", "url", candidate.URL, "error", stateErr)
				return
			}
			results.Store(candidate.URL, candidateOutcome{state: &state})
		}(candidate)
	}

	wg.Wait()

	var promoted []model.Relay
	var failed []model.ServiceState
	results.Range(func(_ string, o candidateOutcome) bool {
		if o.relay != nil {
			promoted = append(promoted, *o.relay)
		}
		if o.state != nil {
			failed = append(failed, *o.state)
		}
		return true
	})

	if len(promoted) == 0 && len(failed) == 0 {
		return nil
	}
	return v.db.ApplyValidatorResults(ctx, promoted, failed)
}
