package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
	"github.com/silverquant/tierstore/internal/storage/clickstore"
	"github.com/silverquant/tierstore/internal/storage/mysqlstore"
	"github.com/silverquant/tierstore/internal/storage/redisstore"
)

// VerifyReport lists every discrepancy between the file tier and the
// database tiers. An empty Mismatches slice means consistent.
type VerifyReport struct {
	Checked    int
	Mismatches []string
	Elapsed    time.Duration
}

// Consistent reports whether every checked record matched.
func (r VerifyReport) Consistent() bool { return len(r.Mismatches) == 0 }

func (r *VerifyReport) mismatch(format string, args ...any) {
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}

// Verify compares the file tier against whichever database tiers are
// provided: held days per code against Redis, trade counts against
// ClickHouse, and account presence against MySQL. Nil tiers are skipped.
func Verify(ctx context.Context, cachePath, accountID string,
	hot *redisstore.Store, warm *mysqlstore.Store, cool *clickstore.Store,
	log zerolog.Logger) (VerifyReport, error) {

	report := VerifyReport{}
	start := time.Now()

	if hot != nil {
		if err := verifyHeldDays(ctx, &report, cachePath, accountID, hot); err != nil {
			return report, err
		}
	}
	if cool != nil {
		if err := verifyTradeCount(ctx, &report, cachePath, accountID, cool, log); err != nil {
			return report, err
		}
	}
	if warm != nil {
		if err := verifyAccounts(ctx, &report, cachePath, warm); err != nil {
			return report, err
		}
	}

	report.Elapsed = time.Since(start)
	if report.Consistent() {
		log.Info().Int("checked", report.Checked).Dur("elapsed", report.Elapsed).Msg("verification passed")
	} else {
		log.Error().Int("checked", report.Checked).Int("mismatches", len(report.Mismatches)).
			Msg("verification found inconsistencies")
	}
	return report, nil
}

func verifyHeldDays(ctx context.Context, report *VerifyReport, cachePath, accountID string, hot *redisstore.Store) error {
	fileDays, err := loadNumberDoc(filepath.Join(cachePath, "held_days.json"))
	if err != nil {
		return err
	}
	for code, days := range fileDays {
		report.Checked++
		got, ok, err := hot.GetHeldDays(ctx, code, accountID)
		if err != nil {
			return fmt.Errorf("reading held days for %s: %w", code, err)
		}
		if !ok {
			report.mismatch("held_days %s: present in file, missing in redis", code)
			continue
		}
		if got != int(days) {
			report.mismatch("held_days %s: file=%d redis=%d", code, int(days), got)
		}
	}
	return nil
}

func verifyTradeCount(ctx context.Context, report *VerifyReport, cachePath, accountID string, cool *clickstore.Store, log zerolog.Logger) error {
	report.Checked++
	csvPath := filepath.Join(cachePath, "trades.csv")
	fileCount := 0
	if _, err := os.Stat(csvPath); err == nil {
		trades, _, err := ReadTradeCSV(csvPath, accountID, log)
		if err != nil {
			return err
		}
		fileCount = len(trades)
	}
	dbCount, err := cool.TradeCount(ctx, accountID)
	if err != nil {
		return err
	}
	if uint64(fileCount) != dbCount {
		report.mismatch("trade count: file=%d clickhouse=%d", fileCount, dbCount)
	}
	return nil
}

func verifyAccounts(ctx context.Context, report *VerifyReport, cachePath string, warm *mysqlstore.Store) error {
	data, err := os.ReadFile(filepath.Join(cachePath, "accounts.json"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading accounts.json: %w", err)
	}
	entries := map[string]accountEntry{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("decoding accounts.json: %w", err)
		}
	}
	for accountID, e := range entries {
		report.Checked++
		got, err := warm.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if got == nil {
			report.mismatch("account %s: present in file, missing in mysql", accountID)
			continue
		}
		if got.Broker != storage.Broker(e.Broker) {
			report.mismatch("account %s: broker file=%s mysql=%s", accountID, e.Broker, got.Broker)
		}
	}
	return nil
}
