// Command observatory runs one of the five Nostr Observatory Pipeline
// services: seeder, finder, validator, monitor, synchronizer. Every
// service shares one PostgreSQL pool and driver loop (internal/service)
// and is selected by subcommand, grounded on the teacher's
// cmd/nophr/main.go signal-handling and graceful-shutdown pattern.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/config"
	"github.com/sandwichfarm/nostr-observatory/internal/finder"
	"github.com/sandwichfarm/nostr-observatory/internal/monitor"
	"github.com/sandwichfarm/nostr-observatory/internal/nostrclient"
	"github.com/sandwichfarm/nostr-observatory/internal/ops"
	"github.com/sandwichfarm/nostr-observatory/internal/seeder"
	"github.com/sandwichfarm/nostr-observatory/internal/service"
	"github.com/sandwichfarm/nostr-observatory/internal/synchronizer"
	"github.com/sandwichfarm/nostr-observatory/internal/validator"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "observatory",
		Usage: "Nostr Observatory Pipeline — run one of seeder, finder, validator, monitor, synchronizer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "observatory.yaml", Usage: "path to config file"},
			&cli.BoolFlag{Name: "once", Usage: "run a single cycle and exit instead of looping forever"},
		},
		Commands: []*cli.Command{
			serviceCommand("seeder", runSeeder),
			serviceCommand("finder", runFinder),
			serviceCommand("validator", runValidator),
			serviceCommand("monitor", runMonitor),
			serviceCommand("synchronizer", runSynchronizer),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "observatory: %v\n", err)
		os.Exit(1)
	}
}

func serviceCommand(name string, run func(c *cli.Context, cfg *config.Config) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: fmt.Sprintf("run the %s service", name),
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return run(c, cfg)
		},
	}
}

// signingKey reads the shared observatory signing key used by the
// Monitor (NIP-66 publishing) and Synchronizer (NIP-42 auth), per spec
// §4.7's "Required keys" note. An empty/unset value disables signing,
// which is a valid deployment mode for read-only instances.
func signingKey() *nostrclient.Signer {
	raw := os.Getenv("OBSERVATORY_SIGNING_KEY")
	if raw == "" {
		return nil
	}
	signer, err := nostrclient.LoadSigner(raw)
	if err != nil {
		return nil
	}
	s, ok := signer.(*nostrclient.Signer)
	if !ok {
		return nil
	}
	return s
}

func runSeeder(c *cli.Context, cfg *config.Config) error {
	ctx := context.Background()
	logger := ops.NewLogger(&cfg.Logging)
	logger.LogStartup(version, commit, nil)

	db, err := brotr.New(ctx, cfg.Pool)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	base := service.New("seeder", logger)
	base.ServeMetrics(cfg.Metrics)
	defer base.CloseMetrics(ctx)

	s := seeder.New(base, db, cfg.Seeder)

	return base.RunOnce(ctx, func(ctx context.Context) error { return s.Run(ctx) })
}

func runFinder(c *cli.Context, cfg *config.Config) error {
	ctx := context.Background()
	logger := ops.NewLogger(&cfg.Logging)
	logger.LogStartup(version, commit, nil)

	db, err := brotr.New(ctx, cfg.Pool)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	base := service.New("finder", logger)
	base.ServeMetrics(cfg.Metrics)
	defer base.CloseMetrics(ctx)

	f := finder.New(base, db, cfg.Finder)

	if c.Bool("once") {
		return base.RunOnce(ctx, f.Cycle)
	}
	return base.RunForever(ctx, cfg.Finder.IntervalSeconds, cfg.Finder.MaxConsecutiveFailures, f.Cycle)
}

func runValidator(c *cli.Context, cfg *config.Config) error {
	ctx := context.Background()
	logger := ops.NewLogger(&cfg.Logging)
	logger.LogStartup(version, commit, nil)

	db, err := brotr.New(ctx, cfg.Pool)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	base := service.New("validator", logger)
	base.ServeMetrics(cfg.Metrics)
	defer base.CloseMetrics(ctx)

	v, err := validator.New(base, db, cfg.Validator, cfg.Networks)
	if err != nil {
		return fmt.Errorf("building validator: %w", err)
	}

	if c.Bool("once") {
		return base.RunOnce(ctx, v.Cycle)
	}
	return base.RunForever(ctx, cfg.Validator.IntervalSeconds, cfg.Validator.MaxConsecutiveFailures, v.Cycle)
}

func runMonitor(c *cli.Context, cfg *config.Config) error {
	ctx := context.Background()
	logger := ops.NewLogger(&cfg.Logging)
	logger.LogStartup(version, commit, nil)

	db, err := brotr.New(ctx, cfg.Pool)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	client := nostrclient.New(ctx, logger)
	defer client.Close()

	base := service.New("monitor", logger)
	base.ServeMetrics(cfg.Metrics)
	defer base.CloseMetrics(ctx)

	m, err := monitor.New(base, db, cfg.Monitor, cfg.Networks, client, signingKey())
	if err != nil {
		return fmt.Errorf("building monitor: %w", err)
	}

	if c.Bool("once") {
		return base.RunOnce(ctx, m.Cycle)
	}
	return base.RunForever(ctx, cfg.Monitor.IntervalSeconds, cfg.Monitor.MaxConsecutiveFailures, m.Cycle)
}

func runSynchronizer(c *cli.Context, cfg *config.Config) error {
	ctx := context.Background()
	logger := ops.NewLogger(&cfg.Logging)
	logger.LogStartup(version, commit, nil)

	db, err := brotr.New(ctx, cfg.Pool)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	client := nostrclient.New(ctx, logger)
	defer client.Close()

	base := service.New("synchronizer", logger)
	base.ServeMetrics(cfg.Metrics)
	defer base.CloseMetrics(ctx)

	sy, err := synchronizer.New(base, db, cfg.Synchronizer, cfg.Networks, client, signingKey())
	if err != nil {
		return fmt.Errorf("building synchronizer: %w", err)
	}

	if c.Bool("once") {
		return base.RunOnce(ctx, sy.Cycle)
	}
	return base.RunForever(ctx, cfg.Synchronizer.IntervalSeconds, cfg.Synchronizer.MaxConsecutiveFailures, sy.Cycle)
}
