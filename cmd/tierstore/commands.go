package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/config"
	"github.com/silverquant/tierstore/internal/migrate"
	"github.com/silverquant/tierstore/internal/scheduler"
	"github.com/silverquant/tierstore/internal/storage/clickstore"
	"github.com/silverquant/tierstore/internal/storage/factory"
	"github.com/silverquant/tierstore/internal/storage/filestore"
	"github.com/silverquant/tierstore/internal/storage/mysqlstore"
	"github.com/silverquant/tierstore/internal/storage/redisstore"
)

type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// sharedFlags registers the flags every subcommand understands. Flags
// default to the environment-derived configuration.
type sharedFlags struct {
	input     string
	output    string
	accountID string
	batchSize int
	dryRun    bool
	cachePath string
}

func (a *app) bind(fs *flag.FlagSet) *sharedFlags {
	f := &sharedFlags{}
	fs.StringVar(&f.input, "input", "", "input file or directory")
	fs.StringVar(&f.output, "output", "", "output directory")
	fs.StringVar(&f.accountID, "account-id", "55009728", "account id to operate on")
	fs.IntVar(&f.batchSize, "batch-size", 0, "batch size (0 means the class default)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "count and report without writing")
	fs.StringVar(&f.cachePath, "cache-path", a.cfg.CachePath, "file tier directory")
	return f
}

func (a *app) openRedis(ctx context.Context) (*redisstore.Store, error) {
	return redisstore.New(ctx, redisstore.Options{
		Addr:     a.cfg.Redis.Addr(),
		DB:       a.cfg.Redis.DB,
		Password: a.cfg.Redis.Password,
		PoolSize: a.cfg.Redis.PoolSize,
	}, a.log)
}

func (a *app) openMySQL(ctx context.Context) (*mysqlstore.Store, error) {
	store, err := mysqlstore.New(ctx, a.cfg.MySQL.DSN(), a.log)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) openClickHouse(ctx context.Context) (*clickstore.Store, error) {
	store, err := clickstore.New(ctx, clickstore.Options{
		Addr:     a.cfg.ClickHouse.Addr(),
		Database: a.cfg.ClickHouse.Database,
		User:     a.cfg.ClickHouse.User,
		Password: a.cfg.ClickHouse.Password,
	}, a.log)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) runMigrate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("migrate needs a record class: positions, trades, klines, accounts, strategies or users")
	}
	class := args[0]
	fs := flag.NewFlagSet("migrate "+class, flag.ExitOnError)
	f := a.bind(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	ctx := context.Background()

	var report migrate.Report
	switch class {
	case "positions":
		dst, err := a.openRedis(ctx)
		if err != nil {
			return err
		}
		defer dst.Close()
		report, err = migrate.Positions(ctx, dst, f.cachePath, f.accountID, f.batchSize, f.dryRun, a.log)
		if err != nil {
			return err
		}

	case "trades":
		input := f.input
		if input == "" {
			input = filepath.Join(f.cachePath, "trades.csv")
		}
		dst, err := a.openClickHouse(ctx)
		if err != nil {
			return err
		}
		defer dst.Close()
		report, err = migrate.Trades(ctx, dst, input, f.accountID, f.batchSize, f.dryRun, a.log)
		if err != nil {
			return err
		}

	case "klines":
		if f.input == "" {
			return fmt.Errorf("migrate klines needs --input <candle csv directory>")
		}
		dst, err := a.openClickHouse(ctx)
		if err != nil {
			return err
		}
		defer dst.Close()
		report, err = migrate.Klines(ctx, dst, f.input, "*.csv", f.batchSize, f.dryRun, a.log)
		if err != nil {
			return err
		}

	case "accounts":
		input := f.input
		if input == "" {
			input = filepath.Join(f.cachePath, "accounts.json")
		}
		dst, err := a.openMySQL(ctx)
		if err != nil {
			return err
		}
		defer dst.Close()
		report, err = migrate.Accounts(ctx, dst, input, f.dryRun, a.log)
		if err != nil {
			return err
		}

	case "strategies":
		input := f.input
		if input == "" {
			input = filepath.Join(f.cachePath, "strategies.json")
		}
		dst, err := a.openMySQL(ctx)
		if err != nil {
			return err
		}
		defer dst.Close()
		report, err = migrate.Strategies(ctx, dst, input, f.dryRun, a.log)
		if err != nil {
			return err
		}

	case "users":
		input := f.input
		if input == "" {
			input = filepath.Join(f.cachePath, "users.json")
		}
		dst, err := a.openMySQL(ctx)
		if err != nil {
			return err
		}
		defer dst.Close()
		report, err = migrate.Users(ctx, dst, input, f.dryRun, a.log)
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown migrate class %q", class)
	}

	fmt.Println(report.String())
	if report.Failed > 0 {
		return fmt.Errorf("%d records failed", report.Failed)
	}
	return nil
}

func (a *app) runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	f := a.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	// Unreachable tiers are skipped, not fatal; verification covers
	// whatever is up.
	hot, err := a.openRedis(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("redis unreachable, skipping position checks")
	} else {
		defer hot.Close()
	}
	warm, err := a.openMySQL(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("mysql unreachable, skipping account checks")
	} else {
		defer warm.Close()
	}
	cool, err := a.openClickHouse(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("clickhouse unreachable, skipping trade checks")
	} else {
		defer cool.Close()
	}

	report, err := migrate.Verify(ctx, f.cachePath, f.accountID, hot, warm, cool, a.log)
	if err != nil {
		return err
	}
	fmt.Printf("checked %d records in %s\n", report.Checked, report.Elapsed.Round(1e6))
	for _, m := range report.Mismatches {
		fmt.Println("  mismatch:", m)
	}
	if !report.Consistent() {
		return fmt.Errorf("%d mismatches", len(report.Mismatches))
	}
	fmt.Println("consistent")
	return nil
}

func (a *app) runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	f := a.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.output == "" {
		return fmt.Errorf("export needs --output <directory>")
	}
	ctx := context.Background()

	hot, err := a.openRedis(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("redis unreachable, skipping position export")
	} else {
		defer hot.Close()
	}
	warm, err := a.openMySQL(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("mysql unreachable, skipping account export")
	} else {
		defer warm.Close()
	}
	cool, err := a.openClickHouse(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("clickhouse unreachable, skipping trade export")
	} else {
		defer cool.Close()
	}

	report, err := migrate.Export(ctx, f.output, f.accountID, hot, warm, cool, a.log)
	if err != nil {
		return err
	}
	fmt.Println(report.String())
	return nil
}

// checkFileTier reports whether the cache directory can be created and
// written.
func checkFileTier(ctx context.Context, cachePath string, log zerolog.Logger) bool {
	file, err := filestore.New(cachePath, log)
	if err != nil {
		return false
	}
	defer file.Close()
	return file.HealthCheck(ctx)
}

// runHealth prints one status line per tier. The exit code follows the
// mandatory file tier only; database tiers down are informational, since
// the dispatcher serves their classes from file.
func (a *app) runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	f := a.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	check := func(name string, open func() (interface{ Close() error }, error)) {
		tier, err := open()
		if err != nil {
			fmt.Printf("  %-10s DOWN  (%v)\n", name, err)
			return
		}
		defer tier.Close()
		fmt.Printf("  %-10s OK\n", name)
	}

	fmt.Println("tier status:")
	fileOK := checkFileTier(ctx, f.cachePath, a.log)
	if fileOK {
		fmt.Printf("  %-10s OK\n", "file")
	} else {
		fmt.Printf("  %-10s DOWN  (cache dir %s not writable)\n", "file", f.cachePath)
	}
	check("redis", func() (interface{ Close() error }, error) { return a.openRedis(ctx) })
	check("mysql", func() (interface{ Close() error }, error) { return a.openMySQL(ctx) })
	check("clickhouse", func() (interface{ Close() error }, error) { return a.openClickHouse(ctx) })

	if !fileOK {
		return fmt.Errorf("file tier is down")
	}
	return nil
}

func (a *app) runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	a.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Println(a.cfg.Summary())
	return nil
}

// runTick starts the scheduler with the daily holding-day job and blocks
// until interrupted.
func (a *app) runTick(args []string) error {
	fs := flag.NewFlagSet("tick", flag.ExitOnError)
	f := a.bind(fs)
	schedule := fs.String("schedule", scheduler.DailyTickSchedule, "cron schedule for the daily tick")
	runNow := fs.Bool("run-now", false, "run the tick immediately before scheduling")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	cfg := *a.cfg
	cfg.CachePath = f.cachePath
	store, err := factory.New(ctx, &cfg, a.log)
	if err != nil {
		return err
	}
	defer store.Close()

	job := scheduler.NewDailyTickJob(store, f.accountID, a.log)
	sched := scheduler.New(a.log)
	if err := sched.AddJob(*schedule, job); err != nil {
		return err
	}
	if *runNow {
		if err := sched.RunNow(ctx, job); err != nil {
			a.log.Error().Err(err).Msg("immediate tick failed")
		}
	}
	sched.Start()
	defer sched.Stop()

	a.log.Info().Str("schedule", *schedule).Msg("daily tick scheduler running")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info().Msg("shutting down")
	return nil
}
