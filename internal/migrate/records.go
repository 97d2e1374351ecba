package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
	"github.com/silverquant/tierstore/internal/storage/mysqlstore"
)

// accountEntry mirrors one accounts.json record.
type accountEntry struct {
	AccountName    string  `json:"account_name"`
	Broker         string  `json:"broker"`
	InitialCapital float64 `json:"initial_capital"`
	CurrentCapital float64 `json:"current_capital"`
	TotalAssets    float64 `json:"total_assets"`
	PositionValue  float64 `json:"position_value"`
	Status         string  `json:"status"`
}

// Accounts migrates accounts.json into the MySQL account table. Existing
// accounts are counted as skipped, not failures.
func Accounts(ctx context.Context, dst *mysqlstore.Store, jsonPath string, dryRun bool, log zerolog.Logger) (Report, error) {
	report := Report{Task: "accounts"}
	start := time.Now()

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", jsonPath, err)
	}
	entries := map[string]accountEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return report, fmt.Errorf("decoding %s: %w", jsonPath, err)
	}
	report.Total = len(entries)

	for accountID, e := range entries {
		if dryRun {
			report.Skipped++
			continue
		}
		created, err := dst.CreateAccount(ctx, storage.Account{
			AccountID:      accountID,
			AccountName:    e.AccountName,
			Broker:         storage.Broker(e.Broker),
			InitialCapital: e.InitialCapital,
			Status:         storage.AccountStatus(e.Status),
		})
		if err != nil {
			report.Failed++
			log.Error().Err(err).Str("account", accountID).Msg("account migration failed")
			continue
		}
		if !created {
			report.Skipped++
			log.Debug().Str("account", accountID).Msg("account already present")
			continue
		}
		if e.CurrentCapital > 0 {
			if _, err := dst.UpdateAccountCapital(ctx, accountID, e.CurrentCapital, e.TotalAssets, e.PositionValue); err != nil {
				log.Warn().Err(err).Str("account", accountID).Msg("capital backfill failed")
			}
		}
		report.Success++
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("account migration finished")
	return report, nil
}

// strategyEntry mirrors one strategies.json record.
type strategyEntry struct {
	StrategyName string                        `json:"strategy_name"`
	StrategyType string                        `json:"strategy_type"`
	Version      string                        `json:"version"`
	Status       string                        `json:"status"`
	Description  string                        `json:"description"`
	Params       map[string]storage.ParamValue `json:"params"`
}

// Strategies migrates strategies.json into the MySQL strategy tables,
// saving each strategy's parameter set as version 1.
func Strategies(ctx context.Context, dst *mysqlstore.Store, jsonPath string, dryRun bool, log zerolog.Logger) (Report, error) {
	report := Report{Task: "strategies"}
	start := time.Now()

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", jsonPath, err)
	}
	entries := map[string]strategyEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return report, fmt.Errorf("decoding %s: %w", jsonPath, err)
	}
	report.Total = len(entries)

	for code, e := range entries {
		if dryRun {
			report.Skipped++
			continue
		}
		created, err := dst.CreateStrategy(ctx, storage.Strategy{
			StrategyName: e.StrategyName,
			StrategyCode: code,
			StrategyType: storage.StrategyType(e.StrategyType),
			Version:      e.Version,
			Status:       storage.StrategyStatus(e.Status),
			Description:  e.Description,
		})
		if err != nil {
			report.Failed++
			log.Error().Err(err).Str("strategy", code).Msg("strategy migration failed")
			continue
		}
		if !created {
			report.Skipped++
			log.Debug().Str("strategy", code).Msg("strategy already present")
			continue
		}
		if len(e.Params) > 0 {
			if _, err := dst.SaveStrategyParams(ctx, code, e.Params); err != nil {
				log.Warn().Err(err).Str("strategy", code).Msg("parameter backfill failed")
			}
		}
		report.Success++
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("strategy migration finished")
	return report, nil
}
