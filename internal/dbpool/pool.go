// Package dbpool wraps a sqlx.DB (over the lib/pq PostgreSQL driver) with
// health-checked acquisition, backoff-retried connect, and transaction
// helpers, per spec §4.1.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sandwichfarm/nostr-observatory/internal/apperrors"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
)

// Pool is the long-lived database connection pool.
type Pool struct {
	db  *sqlx.DB
	cfg config.Pool
}

// Metrics is a snapshot of pool size/idle/utilization, per spec §4.1.
type Metrics struct {
	Size        int
	Idle        int
	Utilization float64
}

// Connect establishes the pool, applying MinSize/MaxSize, and retries the
// first Ping with the configured backoff policy. Exhausting retries
// returns a ConnectionPoolError, fatal for the calling cycle.
func Connect(ctx context.Context, cfg config.Pool) (*Pool, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewConnectionPoolError("open", err)
	}

	db.SetMaxOpenConns(cfg.MaxSize)
	if cfg.MinSize > 0 {
		db.SetMaxIdleConns(cfg.MinSize)
	}

	p := &Pool{db: db, cfg: cfg}

	if err := withBackoff(ctx, cfg.Retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.HealthCheckTimeoutSeconds)*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}); err != nil {
		db.Close()
		return nil, apperrors.NewConnectionPoolError("connect", err)
	}

	return p, nil
}

// DB exposes the underlying sqlx.DB for packages (brotr) that need raw
// query building beyond Pool's thin primitives.
func (p *Pool) DB() *sqlx.DB { return p.db }

// Close closes the underlying connection pool.
func (p *Pool) Close() error { return p.db.Close() }

// Acquire returns a live connection, bounded by AcquisitionTimeout.
func (p *Pool) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.AcquisitionTimeoutSeconds)*time.Second)
	defer cancel()

	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, apperrors.NewConnectionPoolError("acquire", err)
	}
	return conn, nil
}

// AcquireHealthy acquires a connection and verifies it with SELECT 1 under
// HealthCheckTimeout, retrying the whole acquire+check with backoff up to
// Retry.MaxAttempts, per spec §4.1.
func (p *Pool) AcquireHealthy(ctx context.Context) (*sqlx.Conn, error) {
	var conn *sqlx.Conn

	err := withBackoff(ctx, p.cfg.Retry, func(ctx context.Context) error {
		c, err := p.Acquire(ctx)
		if err != nil {
			return err
		}

		checkCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.HealthCheckTimeoutSeconds)*time.Second)
		defer cancel()
		if _, err := c.ExecContext(checkCtx, "SELECT 1"); err != nil {
			c.Close()
			return err
		}

		conn = c
		return nil
	})
	if err != nil {
		return nil, apperrors.NewConnectionPoolError("acquire_healthy", err)
	}
	return conn, nil
}

// Transaction acquires a connection, begins a transaction, runs fn, and
// commits on nil error or rolls back otherwise — including on panic,
// which is recovered, rolled back, and re-raised, per spec §4.1.
func (p *Pool) Transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, beginErr := p.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return apperrors.NewConnectionPoolError("transaction.begin", beginErr)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Fetch runs query under an optional timeout and scans rows into dest
// (a pointer to a slice of structs or primitives).
func (p *Pool) Fetch(ctx context.Context, timeout time.Duration, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	if err := p.db.SelectContext(ctx, dest, query, args...); err != nil {
		return classifyQueryErr(ctx, query, err)
	}
	return nil
}

// FetchRow runs query and scans a single row into dest.
func (p *Pool) FetchRow(ctx context.Context, timeout time.Duration, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	if err := p.db.GetContext(ctx, dest, query, args...); err != nil {
		return classifyQueryErr(ctx, query, err)
	}
	return nil
}

// FetchVal runs query expecting a single scalar column/row.
func (p *Pool) FetchVal(ctx context.Context, timeout time.Duration, dest interface{}, query string, args ...interface{}) error {
	return p.FetchRow(ctx, timeout, dest, query, args...)
}

// Execute runs a single statement, returning rows affected.
func (p *Pool) Execute(ctx context.Context, timeout time.Duration, query string, args ...interface{}) (int64, error) {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyQueryErr(ctx, query, err)
	}
	return res.RowsAffected()
}

// ExecuteMany runs query once per argument set within a single connection,
// used by call sites that can't express their batch as array parameters.
func (p *Pool) ExecuteMany(ctx context.Context, timeout time.Duration, query string, argSets [][]interface{}) (int64, error) {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	var total int64
	for _, args := range argSets {
		res, err := p.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, classifyQueryErr(ctx, query, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Metrics returns a snapshot of pool size, idle count, and utilization.
func (p *Pool) Metrics() Metrics {
	stats := p.db.Stats()
	var util float64
	if stats.MaxOpenConnections > 0 {
		util = float64(stats.OpenConnections-stats.Idle) / float64(stats.MaxOpenConnections)
	}
	return Metrics{
		Size:        stats.OpenConnections,
		Idle:        stats.Idle,
		Utilization: util,
	}
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func classifyQueryErr(ctx context.Context, query string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return apperrors.NewQueryTimeoutError(query, err)
	}
	if err == sql.ErrNoRows {
		return err
	}
	return fmt.Errorf("query %q: %w", query, err)
}

// withBackoff retries fn up to retry.MaxAttempts, sleeping between
// attempts per the exponential-or-linear policy, with jitter, stopping
// early if ctx is cancelled.
func withBackoff(ctx context.Context, retry config.Retry, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := retry.InitialDelaySeconds

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == retry.MaxAttempts {
			break
		}

		sleep := time.Duration(delay * float64(time.Second))
		jitter := time.Duration(rand.Int63n(int64(time.Duration(0.25*float64(sleep)) + 1)))
		select {
		case <-time.After(sleep + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}

		if retry.ExponentialBackoff {
			delay = math.Min(delay*2, retry.MaxDelaySeconds)
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", retry.MaxAttempts, lastErr)
}
