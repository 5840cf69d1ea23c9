// Package brotr is the database facade of spec §4.2: the bulk inserts and
// service-state writes each call a stored function taking array
// parameters, auto-chunked to the configured batch size, so bulk inserts
// stay idempotent and transactional regardless of how large the caller's
// batch is. The candidate cleanup deletes and the non-cascade event_relay
// insert are plain SQL statements.
package brotr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/dbpool"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

// Brotr wraps a *dbpool.Pool with the domain-specific bulk operations.
type Brotr struct {
	pool    *dbpool.Pool
	batch   config.Batch
	timeout time.Duration
}

// New connects the pool, applies embedded schema/function migrations, and
// returns a ready Brotr facade.
func New(ctx context.Context, cfg config.Pool) (*Brotr, error) {
	pool, err := dbpool.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := applyMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Brotr{
		pool:    pool,
		batch:   cfg.Batch,
		timeout: time.Duration(cfg.Timeouts.BatchSeconds) * time.Second,
	}, nil
}

// Pool exposes the underlying pool, e.g. for Metrics().
func (b *Brotr) Pool() *dbpool.Pool { return b.pool }

// Close releases the underlying connection pool.
func (b *Brotr) Close() error { return b.pool.Close() }

func (b *Brotr) chunkSize() int {
	if b.batch.MaxSize <= 0 {
		return 500
	}
	return b.batch.MaxSize
}

// InsertRelay bulk-inserts relays via relay_insert, chunked and idempotent.
func (b *Brotr) InsertRelay(ctx context.Context, relays []model.Relay) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(relays, b.chunkSize()) {
		urls := make([]string, len(chunk))
		networks := make([]string, len(chunk))
		discovered := make([]int64, len(chunk))
		for i, r := range chunk {
			urls[i], networks[i], discovered[i] = r.URL, r.Network, r.DiscoveredAt
		}

		var n int
		err := b.pool.FetchVal(ctx, b.timeout, &n,
			`SELECT relay_insert($1, $2, $3)`,
			pq.Array(urls), pq.Array(networks), pq.Array(discovered))
		if err != nil {
			return total, fmt.Errorf("relay_insert: %w", err)
		}
		total += n
	}
	return total, nil
}

// InsertEvent bulk-inserts events via event_insert, chunked and idempotent.
func (b *Brotr) InsertEvent(ctx context.Context, events []model.Event) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(events, b.chunkSize()) {
		ids, pubkeys, sigs, tagsJSON, err := eventColumns(chunk)
		if err != nil {
			return total, err
		}
		createdAts := make([]int64, len(chunk))
		kinds := make([]int64, len(chunk))
		contents := make([]string, len(chunk))
		for i, e := range chunk {
			createdAts[i] = e.CreatedAt
			kinds[i] = int64(e.Kind)
			contents[i] = e.Content
		}

		var n int
		err = b.pool.FetchVal(ctx, b.timeout, &n,
			`SELECT event_insert($1, $2, $3, $4, $5::text[]::jsonb[], $6, $7)`,
			pq.Array(ids), pq.Array(pubkeys), pq.Array(createdAts), pq.Array(kinds),
			pq.Array(tagsJSON), pq.Array(contents), pq.Array(sigs))
		if err != nil {
			return total, fmt.Errorf("event_insert: %w", err)
		}
		total += n
	}
	return total, nil
}

// InsertMetadata bulk-inserts pre-hashed metadata documents via
// metadata_insert; callers must have built each record via
// model.NewMetadata so the hash is always writer-computed.
func (b *Brotr) InsertMetadata(ctx context.Context, mds []model.Metadata) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(mds, b.chunkSize()) {
		ids := make([][]byte, len(chunk))
		types := make([]string, len(chunk))
		values := make([]string, len(chunk))
		for i, m := range chunk {
			ids[i] = m.ID
			types[i] = string(m.Type)
			canon, err := model.CanonicalJSON(m.Value)
			if err != nil {
				return total, fmt.Errorf("canonicalizing metadata value: %w", err)
			}
			values[i] = string(canon)
		}

		var n int
		err := b.pool.FetchVal(ctx, b.timeout, &n,
			`SELECT metadata_insert($1, $2, $3::text[]::jsonb[])`,
			pq.Array(ids), pq.Array(types), pq.Array(values))
		if err != nil {
			return total, fmt.Errorf("metadata_insert: %w", err)
		}
		total += n
	}
	return total, nil
}

// EventRelayRecord bundles one event with the relay that yielded it, the
// unit of work for InsertEventRelay's cascade.
type EventRelayRecord struct {
	Relay  model.Relay
	Event  model.Event
	SeenAt int64
}

// InsertEventRelay upserts relay + event + junction rows. With
// cascade=true it uses event_relay_insert_cascade (one atomic call per
// chunk); with cascade=false it assumes the relay and event already
// exist and only inserts the junction.
func (b *Brotr) InsertEventRelay(ctx context.Context, records []EventRelayRecord, cascade bool) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(records, b.chunkSize()) {
		n := len(chunk)
		urls := make([]string, n)
		networks := make([]string, n)
		discovered := make([]int64, n)
		ids := make([][]byte, n)
		pubkeys := make([][]byte, n)
		sigs := make([][]byte, n)
		createdAts := make([]int64, n)
		kinds := make([]int64, n)
		contents := make([]string, n)
		tagsJSON := make([]string, n)
		seenAts := make([]int64, n)

		for i, r := range chunk {
			urls[i] = r.Relay.URL
			networks[i] = r.Relay.Network
			discovered[i] = r.Relay.DiscoveredAt
			ids[i] = r.Event.ID
			pubkeys[i] = r.Event.Pubkey
			sigs[i] = r.Event.Sig
			createdAts[i] = r.Event.CreatedAt
			kinds[i] = int64(r.Event.Kind)
			contents[i] = r.Event.Content
			canon, err := tagsToJSON(r.Event.Tags)
			if err != nil {
				return total, err
			}
			tagsJSON[i] = canon
			seenAts[i] = r.SeenAt
		}

		if cascade {
			var inserted int
			err := b.pool.FetchVal(ctx, b.timeout, &inserted,
				`SELECT event_relay_insert_cascade($1,$2,$3,$4,$5,$6,$7,$8::text[]::jsonb[],$9,$10,$11)`,
				pq.Array(urls), pq.Array(networks), pq.Array(discovered),
				pq.Array(ids), pq.Array(pubkeys), pq.Array(createdAts), pq.Array(kinds),
				pq.Array(tagsJSON), pq.Array(contents), pq.Array(sigs), pq.Array(seenAts))
			if err != nil {
				return total, fmt.Errorf("event_relay_insert_cascade: %w", err)
			}
			total += inserted
			continue
		}

		affected, err := b.pool.Execute(ctx, b.timeout,
			`INSERT INTO event_relay (event_id, relay_url, seen_at)
			 SELECT * FROM unnest($1::bytea[], $2::text[], $3::bigint[])
			 ON CONFLICT (event_id, relay_url) DO NOTHING`,
			pq.Array(ids), pq.Array(urls), pq.Array(seenAts))
		if err != nil {
			return total, fmt.Errorf("event_relay insert: %w", err)
		}
		total += int(affected)
	}
	return total, nil
}

// RelayMetadataRecord bundles one probe result with the relay it describes
// and the cycle timestamp it was generated at.
type RelayMetadataRecord struct {
	Relay       model.Relay
	Metadata    model.Metadata
	GeneratedAt int64
}

// InsertRelayMetadata upserts relay + metadata + junction rows through
// relay_metadata_insert_cascade. Only cascade=true is supported: with
// cascade=false any non-empty batch returns an error.
func (b *Brotr) InsertRelayMetadata(ctx context.Context, records []RelayMetadataRecord, cascade bool) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(records, b.chunkSize()) {
		n := len(chunk)
		urls := make([]string, n)
		networks := make([]string, n)
		discovered := make([]int64, n)
		mdIDs := make([][]byte, n)
		mdTypes := make([]string, n)
		mdValues := make([]string, n)
		generatedAts := make([]int64, n)

		for i, r := range chunk {
			urls[i] = r.Relay.URL
			networks[i] = r.Relay.Network
			discovered[i] = r.Relay.DiscoveredAt
			mdIDs[i] = r.Metadata.ID
			mdTypes[i] = string(r.Metadata.Type)
			canon, err := model.CanonicalJSON(r.Metadata.Value)
			if err != nil {
				return total, fmt.Errorf("canonicalizing metadata value: %w", err)
			}
			mdValues[i] = string(canon)
			generatedAts[i] = r.GeneratedAt
		}

		if !cascade {
			return total, fmt.Errorf("insert_relay_metadata: non-cascade mode not supported, relay and metadata must pre-exist")
		}

		var inserted int
		err := b.pool.FetchVal(ctx, b.timeout, &inserted,
			`SELECT relay_metadata_insert_cascade($1,$2,$3,$4,$5,$6::text[]::jsonb[],$7)`,
			pq.Array(urls), pq.Array(networks), pq.Array(discovered),
			pq.Array(mdIDs), pq.Array(mdTypes), pq.Array(mdValues), pq.Array(generatedAts))
		if err != nil {
			return total, fmt.Errorf("relay_metadata_insert_cascade: %w", err)
		}
		total += inserted
	}
	return total, nil
}

// UpsertServiceState bulk-upserts service_state rows via
// service_state_upsert (ON CONFLICT DO UPDATE).
func (b *Brotr) UpsertServiceState(ctx context.Context, states []model.ServiceState) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(states, b.chunkSize()) {
		services := make([]string, len(chunk))
		types := make([]string, len(chunk))
		keys := make([]string, len(chunk))
		values := make([]string, len(chunk))
		updatedAts := make([]int64, len(chunk))
		for i, s := range chunk {
			services[i] = s.ServiceName
			types[i] = s.StateType
			keys[i] = s.StateKey
			values[i] = string(s.RawValue)
			updatedAts[i] = s.UpdatedAt
		}

		var n int
		err := b.pool.FetchVal(ctx, b.timeout, &n,
			`SELECT service_state_upsert($1,$2,$3,$4::text[]::jsonb[],$5)`,
			pq.Array(services), pq.Array(types), pq.Array(keys), pq.Array(values), pq.Array(updatedAts))
		if err != nil {
			return total, fmt.Errorf("service_state_upsert: %w", err)
		}
		total += n
	}
	return total, nil
}

type serviceStateRow struct {
	ServiceName string `db:"service_name"`
	StateType   string `db:"state_type"`
	StateKey    string `db:"state_key"`
	StateValue  []byte `db:"state_value"`
	UpdatedAt   int64  `db:"updated_at"`
}

// GetServiceState returns rows for (service, stateType), optionally
// filtered to one key; key==nil returns all rows ordered by updated_at
// ascending, per spec §4.2.
func (b *Brotr) GetServiceState(ctx context.Context, service, stateType string, key *string) ([]model.ServiceState, error) {
	var rows []serviceStateRow
	err := b.pool.Fetch(ctx, b.timeout, &rows,
		`SELECT service_name, state_type, state_key, state_value, updated_at
		 FROM service_state_get($1, $2, $3)`,
		service, stateType, key)
	if err != nil {
		return nil, fmt.Errorf("service_state_get: %w", err)
	}

	out := make([]model.ServiceState, len(rows))
	for i, r := range rows {
		out[i] = model.ServiceState{
			ServiceName: r.ServiceName,
			StateType:   r.StateType,
			StateKey:    r.StateKey,
			RawValue:    r.StateValue,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return out, nil
}

// StateKey identifies one service_state row by its primary key.
type StateKey struct {
	Service string
	Type    string
	Key     string
}

// DeleteServiceState bulk-deletes rows by (service, type, key) triples.
func (b *Brotr) DeleteServiceState(ctx context.Context, keys []StateKey) (int, error) {
	total := 0
	for _, chunk := range chunkSlice(keys, b.chunkSize()) {
		services := make([]string, len(chunk))
		types := make([]string, len(chunk))
		stateKeys := make([]string, len(chunk))
		for i, k := range chunk {
			services[i], types[i], stateKeys[i] = k.Service, k.Type, k.Key
		}

		var n int
		err := b.pool.FetchVal(ctx, b.timeout, &n,
			`SELECT service_state_delete($1, $2, $3)`,
			pq.Array(services), pq.Array(types), pq.Array(stateKeys))
		if err != nil {
			return total, fmt.Errorf("service_state_delete: %w", err)
		}
		total += n
	}
	return total, nil
}

// DeleteOrphanEvent loops orphan_event_delete in batches of batchSize
// until fewer than batchSize rows are removed, per spec §4.2.
func (b *Brotr) DeleteOrphanEvent(ctx context.Context, batchSize int) (int, error) {
	return b.loopDelete(ctx, batchSize, "SELECT orphan_event_delete($1)")
}

// DeleteOrphanMetadata loops orphan_metadata_delete the same way.
func (b *Brotr) DeleteOrphanMetadata(ctx context.Context, batchSize int) (int, error) {
	return b.loopDelete(ctx, batchSize, "SELECT orphan_metadata_delete($1)")
}

func (b *Brotr) loopDelete(ctx context.Context, batchSize int, query string) (int, error) {
	total := 0
	for {
		var n int
		if err := b.pool.FetchVal(ctx, b.timeout, &n, query, batchSize); err != nil {
			return total, fmt.Errorf("%s: %w", query, err)
		}
		total += n
		if n < batchSize {
			return total, nil
		}
	}
}

type eventScanRow struct {
	ID        []byte `db:"id"`
	Pubkey    []byte `db:"pubkey"`
	CreatedAt int64  `db:"created_at"`
	Kind      int    `db:"kind"`
	Tags      []byte `db:"tags"`
	Content   string `db:"content"`
	Sig       []byte `db:"sig"`
}

// FetchEventsForScan returns up to limit events of the given kinds, or
// carrying a single-letter r tag regardless of kind, whose (created_at,
// id) lexicographically follows (afterTS, afterID), ordered created_at
// ASC, id ASC — the Finder's event-scan pagination of spec §4.5. An
// empty kinds slice matches every kind.
func (b *Brotr) FetchEventsForScan(ctx context.Context, kinds []int, afterTS int64, afterID []byte, limit int) ([]model.Event, error) {
	query := `
		SELECT id, pubkey, created_at, kind, tags, content, sig
		FROM event
		WHERE (created_at > $1 OR (created_at = $1 AND id > $2))
		  AND (
		    ($3::int[] IS NULL OR kind = ANY($3))
		    OR EXISTS (
		        SELECT 1 FROM jsonb_array_elements(tags) AS rtag
		        WHERE jsonb_array_length(rtag) >= 2 AND rtag->>0 = 'r'
		    )
		  )
		ORDER BY created_at ASC, id ASC
		LIMIT $4`

	var kindsParam interface{}
	if len(kinds) > 0 {
		kindsParam = pq.Array(kinds)
	}

	var rows []eventScanRow
	if err := b.pool.Fetch(ctx, b.timeout, &rows, query, afterTS, afterID, kindsParam, limit); err != nil {
		return nil, fmt.Errorf("event scan query: %w", err)
	}

	events := make([]model.Event, len(rows))
	for i, r := range rows {
		var tags [][]string
		if err := json.Unmarshal(r.Tags, &tags); err != nil {
			return nil, fmt.Errorf("decoding event tags: %w", err)
		}
		events[i] = model.Event{
			ID:        r.ID,
			Pubkey:    r.Pubkey,
			CreatedAt: r.CreatedAt,
			Kind:      r.Kind,
			Tags:      tags,
			Content:   r.Content,
			Sig:       r.Sig,
		}
	}
	return events, nil
}

// ExistingRelayURLs returns the subset of urls already present in relay,
// backing the Finder's filter_new_relay_urls step.
func (b *Brotr) ExistingRelayURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}
	var found []string
	err := b.pool.Fetch(ctx, b.timeout, &found,
		`SELECT url FROM relay WHERE url = ANY($1)`, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("checking existing relay urls: %w", err)
	}
	out := make(map[string]bool, len(found))
	for _, u := range found {
		out[u] = true
	}
	return out, nil
}

// CandidateRow is one pending validator candidate, ordered
// cheapest-to-succeed-first per spec §4.6 step 2.
type CandidateRow struct {
	URL            string
	Network        string
	FailedAttempts int
	UpdatedAt      int64
}

type candidateScanRow struct {
	StateKey   string `db:"state_key"`
	StateValue []byte `db:"state_value"`
	UpdatedAt  int64  `db:"updated_at"`
}

// FetchCandidates returns up to limit validator candidates whose network
// is in enabledNetworks, ordered by (failed_attempts ASC, updated_at ASC).
// Restricting to enabled networks keeps candidates for a disabled
// network (e.g. tor turned off) from sorting first forever and refilling
// every chunk, per spec §4.6's "left in place (not touched)".
func (b *Brotr) FetchCandidates(ctx context.Context, limit int, enabledNetworks []string) ([]CandidateRow, error) {
	var rows []candidateScanRow
	err := b.pool.Fetch(ctx, b.timeout, &rows,
		`SELECT state_key, state_value, updated_at
		 FROM service_state
		 WHERE service_name = 'validator' AND state_type = 'candidate'
		   AND state_value->>'network' = ANY($2)
		 ORDER BY (state_value->>'failed_attempts')::int ASC, updated_at ASC
		 LIMIT $1`, limit, pq.Array(enabledNetworks))
	if err != nil {
		return nil, fmt.Errorf("fetching validator candidates: %w", err)
	}

	out := make([]CandidateRow, 0, len(rows))
	for _, r := range rows {
		var v model.ValidatorCandidate
		if err := json.Unmarshal(r.StateValue, &v); err != nil {
			return nil, fmt.Errorf("decoding candidate %s: %w", r.StateKey, err)
		}
		out = append(out, CandidateRow{URL: r.StateKey, Network: v.Network, FailedAttempts: v.FailedAttempts, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// DeleteStaleCandidates removes candidate rows whose URL already exists
// in relay, per spec §4.6 step 1.
func (b *Brotr) DeleteStaleCandidates(ctx context.Context) (int, error) {
	affected, err := b.pool.Execute(ctx, b.timeout,
		`DELETE FROM service_state sc
		 USING relay r
		 WHERE sc.service_name = 'validator' AND sc.state_type = 'candidate' AND sc.state_key = r.url`)
	if err != nil {
		return 0, fmt.Errorf("deleting stale candidates: %w", err)
	}
	return int(affected), nil
}

// DeleteExhaustedCandidates removes candidate rows whose failed_attempts
// has reached maxFailures, per spec §4.6 step 1.
func (b *Brotr) DeleteExhaustedCandidates(ctx context.Context, maxFailures int) (int, error) {
	affected, err := b.pool.Execute(ctx, b.timeout,
		`DELETE FROM service_state
		 WHERE service_name = 'validator' AND state_type = 'candidate'
		   AND (state_value->>'failed_attempts')::int >= $1`, maxFailures)
	if err != nil {
		return 0, fmt.Errorf("deleting exhausted candidates: %w", err)
	}
	return int(affected), nil
}

// ApplyValidatorResults commits one validator chunk's outcomes in a
// single transaction, per spec §4.6 step 5: promoted relays are
// inserted and their candidate rows deleted; failed candidates have
// failed_attempts incremented in place.
func (b *Brotr) ApplyValidatorResults(ctx context.Context, promoted []model.Relay, failed []model.ServiceState) error {
	return b.pool.Transaction(ctx, func(tx *sqlx.Tx) error {
		if len(promoted) > 0 {
			urls := make([]string, len(promoted))
			networks := make([]string, len(promoted))
			discovered := make([]int64, len(promoted))
			keys := make([]string, len(promoted))
			services := make([]string, len(promoted))
			types := make([]string, len(promoted))
			for i, r := range promoted {
				urls[i], networks[i], discovered[i] = r.URL, r.Network, r.DiscoveredAt
				keys[i], services[i], types[i] = r.URL, "validator", model.StateTypeCandidate
			}
			if _, err := tx.ExecContext(ctx, `SELECT relay_insert($1, $2, $3)`,
				pq.Array(urls), pq.Array(networks), pq.Array(discovered)); err != nil {
				return fmt.Errorf("relay_insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `SELECT service_state_delete($1, $2, $3)`,
				pq.Array(services), pq.Array(types), pq.Array(keys)); err != nil {
				return fmt.Errorf("service_state_delete for promoted candidates: %w", err)
			}
		}

		if len(failed) > 0 {
			services := make([]string, len(failed))
			types := make([]string, len(failed))
			keys := make([]string, len(failed))
			values := make([]string, len(failed))
			updatedAts := make([]int64, len(failed))
			for i, s := range failed {
				services[i], types[i], keys[i] = s.ServiceName, s.StateType, s.StateKey
				values[i] = string(s.RawValue)
				updatedAts[i] = s.UpdatedAt
			}
			if _, err := tx.ExecContext(ctx, `SELECT service_state_upsert($1,$2,$3,$4::text[]::jsonb[],$5)`,
				pq.Array(services), pq.Array(types), pq.Array(keys), pq.Array(values), pq.Array(updatedAts)); err != nil {
				return fmt.Errorf("service_state_upsert for failed candidates: %w", err)
			}
		}

		return nil
	})
}

type relayRow struct {
	URL          string `db:"url"`
	Network      string `db:"network"`
	DiscoveredAt int64  `db:"discovered_at"`
}

// FetchRelays returns up to limit relays (0 means unbounded), ordered by
// url for stable pagination across Monitor/Synchronizer cycles.
func (b *Brotr) FetchRelays(ctx context.Context, limit int) ([]model.Relay, error) {
	query := `SELECT url, network, discovered_at FROM relay ORDER BY url`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []relayRow
	if err := b.pool.Fetch(ctx, b.timeout, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fetching relays: %w", err)
	}

	relays := make([]model.Relay, len(rows))
	for i, r := range rows {
		relays[i] = model.Relay{URL: r.URL, Network: r.Network, DiscoveredAt: r.DiscoveredAt}
	}
	return relays, nil
}

// FlushSyncBatch commits one relay's event batch and its advanced
// cursor in a single transaction, per spec §4.8's "cursor is written in
// the same transaction as the event batch to guarantee no gaps".
func (b *Brotr) FlushSyncBatch(ctx context.Context, records []EventRelayRecord, cursorState model.ServiceState) (int, error) {
	var inserted int
	err := b.pool.Transaction(ctx, func(tx *sqlx.Tx) error {
		if len(records) > 0 {
			n := len(records)
			urls := make([]string, n)
			networks := make([]string, n)
			discovered := make([]int64, n)
			ids := make([][]byte, n)
			pubkeys := make([][]byte, n)
			sigs := make([][]byte, n)
			createdAts := make([]int64, n)
			kinds := make([]int64, n)
			contents := make([]string, n)
			tagsJSON := make([]string, n)
			seenAts := make([]int64, n)

			for i, r := range records {
				urls[i] = r.Relay.URL
				networks[i] = r.Relay.Network
				discovered[i] = r.Relay.DiscoveredAt
				ids[i] = r.Event.ID
				pubkeys[i] = r.Event.Pubkey
				sigs[i] = r.Event.Sig
				createdAts[i] = r.Event.CreatedAt
				kinds[i] = int64(r.Event.Kind)
				contents[i] = r.Event.Content
				canon, err := tagsToJSON(r.Event.Tags)
				if err != nil {
					return err
				}
				tagsJSON[i] = canon
				seenAts[i] = r.SeenAt
			}

			row := tx.QueryRowContext(ctx,
				`SELECT event_relay_insert_cascade($1,$2,$3,$4,$5,$6,$7,$8::text[]::jsonb[],$9,$10,$11)`,
				pq.Array(urls), pq.Array(networks), pq.Array(discovered),
				pq.Array(ids), pq.Array(pubkeys), pq.Array(createdAts), pq.Array(kinds),
				pq.Array(tagsJSON), pq.Array(contents), pq.Array(sigs), pq.Array(seenAts))
			if err := row.Scan(&inserted); err != nil {
				return fmt.Errorf("event_relay_insert_cascade: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `SELECT service_state_upsert($1,$2,$3,$4::text[]::jsonb[],$5)`,
			pq.Array([]string{cursorState.ServiceName}), pq.Array([]string{cursorState.StateType}),
			pq.Array([]string{cursorState.StateKey}), pq.Array([]string{string(cursorState.RawValue)}),
			pq.Array([]int64{cursorState.UpdatedAt}))
		if err != nil {
			return fmt.Errorf("service_state_upsert for sync cursor: %w", err)
		}
		return nil
	})
	return inserted, err
}

// RefreshMaterializedView issues REFRESH MATERIALIZED VIEW CONCURRENTLY.
func (b *Brotr) RefreshMaterializedView(ctx context.Context, name string) error {
	_, err := b.pool.Execute(ctx, b.timeout, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", pq.QuoteIdentifier(name)))
	if err != nil {
		return fmt.Errorf("refreshing view %s: %w", name, err)
	}
	return nil
}

func eventColumns(events []model.Event) (ids, pubkeys, sigs [][]byte, tagsJSON []string, err error) {
	ids = make([][]byte, len(events))
	pubkeys = make([][]byte, len(events))
	sigs = make([][]byte, len(events))
	tagsJSON = make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
		pubkeys[i] = e.Pubkey
		sigs[i] = e.Sig
		canon, tErr := tagsToJSON(e.Tags)
		if tErr != nil {
			return nil, nil, nil, nil, tErr
		}
		tagsJSON[i] = canon
	}
	return ids, pubkeys, sigs, tagsJSON, nil
}

func tagsToJSON(tags [][]string) (string, error) {
	canon, err := model.CanonicalJSON(tags)
	if err != nil {
		return "", fmt.Errorf("canonicalizing event tags: %w", err)
	}
	return string(canon), nil
}

func chunkSlice[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
