// Package seeder implements the one-shot relay-seed-file ingester of
// spec §4.4.
package seeder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/ops"
	"github.com/sandwichfarm/nostr-observatory/internal/service"
)

// Seeder reads a seed file and writes relay candidates (or relays
// directly, if configured to skip validation).
type Seeder struct {
	base *service.Base
	db   *brotr.Brotr
	cfg  config.Seeder
}

// New builds a Seeder.
func New(base *service.Base, db *brotr.Brotr, cfg config.Seeder) *Seeder {
	return &Seeder{base: base, db: db, cfg: cfg}
}

// Run executes the one-shot seed cycle: parse the seed file, normalize
// each URL, and write either a candidate or a relay row.
func (s *Seeder) Run(ctx context.Context) error {
	file, err := os.Open(s.cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("opening seed file %q: %w", s.cfg.SeedFile, err)
	}
	defer file.Close()

	relays, states, err := parseSeedFile(file, s.cfg.ToValidate, time.Now().UTC().Unix(), s.base.Logger)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}

	if len(states) > 0 {
		n, err := s.db.UpsertServiceState(ctx, states)
		if err != nil {
			return fmt.Errorf("upserting seed candidates: %w", err)
		}
		s.base.Logger.Info("seeded validator candidates", "count", n)
	}
	if len(relays) > 0 {
		n, err := s.db.InsertRelay(ctx, relays)
		if err != nil {
			return fmt.Errorf("inserting seed relays: %w", err)
		}
		s.base.Logger.Info("seeded relays directly", "count", n)
	}

	return nil
}

// parseSeedFile reads one relay URL per line, skipping blank lines and
// `#` comments, and splits the result into either validator candidates
// (toValidate=true) or direct relay rows.
func parseSeedFile(r io.Reader, toValidate bool, now int64, logger *ops.Logger) ([]model.Relay, []model.ServiceState, error) {
	var relays []model.Relay
	var states []model.ServiceState

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		relay, err := model.NewRelay(line, now)
		if err != nil {
			logger.Warn("skipping invalid seed line", "line", lineNum, "value", line, "error", err)
			continue
		}

		if toValidate {
			state, err := model.NewServiceState(
				"validator",
				model.StateTypeCandidate,
				relay.URL,
				model.ValidatorCandidate{Network: relay.Network, FailedAttempts: 0},
				now,
			)
			if err != nil {
				logger.Warn("skipping seed line", "line", lineNum, "error", err)
				continue
			}
			states = append(states, state)
		} else {
			relays = append(relays, relay)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return relays, states, nil
}
