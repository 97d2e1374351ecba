// Command tierstore operates the tiered storage substrate: migrating
// file-tier data into the database tiers, verifying consistency between
// them, exporting back to files, checking tier health, and running the
// daily position tick.
package main

import (
	"fmt"
	"os"

	"github.com/silverquant/tierstore/internal/config"
	"github.com/silverquant/tierstore/pkg/logger"
)

const usage = `Usage: tierstore <command> [flags]

Commands:
  migrate positions    held_days/max_prices/min_prices JSON -> Redis
  migrate trades       trade CSV -> ClickHouse
  migrate klines       candle CSV directory -> ClickHouse
  migrate accounts     accounts.json -> MySQL
  migrate strategies   strategies.json -> MySQL
  migrate users        users.json -> MySQL access tables
  verify               compare file tier against database tiers
  export               database tiers -> file tier layout
  health               check every configured tier
  config               print the effective configuration (redacted)
  tick                 run the daily holding-day scheduler

Shared flags: --input --output --account-id --batch-size --dry-run --cache-path
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	app := &app{cfg: cfg, log: log}

	var runErr error
	switch os.Args[1] {
	case "migrate":
		runErr = app.runMigrate(os.Args[2:])
	case "verify":
		runErr = app.runVerify(os.Args[2:])
	case "export":
		runErr = app.runExport(os.Args[2:])
	case "health":
		runErr = app.runHealth(os.Args[2:])
	case "config":
		runErr = app.runConfig(os.Args[2:])
	case "tick":
		runErr = app.runTick(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("command failed")
		os.Exit(1)
	}
}
