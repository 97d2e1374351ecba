package migrate

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
	"github.com/silverquant/tierstore/internal/storage/clickstore"
	"github.com/silverquant/tierstore/internal/storage/mysqlstore"
	"github.com/silverquant/tierstore/internal/storage/redisstore"
)

// Export writes database-tier data back into file-tier layout under
// outputDir: Redis hashes to the position JSON documents, ClickHouse
// trades to trades.csv, MySQL accounts and strategies to their JSON
// documents. Nil tiers are skipped.
func Export(ctx context.Context, outputDir, accountID string,
	hot *redisstore.Store, warm *mysqlstore.Store, cool *clickstore.Store,
	log zerolog.Logger) (Report, error) {

	report := Report{Task: "export"}
	start := time.Now()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return report, fmt.Errorf("creating output dir: %w", err)
	}

	if hot != nil {
		n, err := exportPositions(ctx, outputDir, accountID, hot)
		if err != nil {
			return report, err
		}
		report.Total += n
		report.Success += n
	}
	if cool != nil {
		n, err := exportTrades(ctx, outputDir, accountID, cool)
		if err != nil {
			return report, err
		}
		report.Total += n
		report.Success += n
	}
	if warm != nil {
		n, err := exportRecords(ctx, outputDir, warm)
		if err != nil {
			return report, err
		}
		report.Total += n
		report.Success += n
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("export finished")
	return report, nil
}

func exportPositions(ctx context.Context, outputDir, accountID string, hot *redisstore.Store) (int, error) {
	client := hot.Client()
	total := 0
	exports := []struct {
		key  string
		file string
		ints bool
	}{
		{"held_days:" + accountID, "held_days.json", true},
		{"max_prices:" + accountID, "max_prices.json", false},
		{"min_prices:" + accountID, "min_prices.json", false},
	}
	for _, e := range exports {
		fields, err := client.HGetAll(ctx, e.key).Result()
		if err != nil {
			return total, fmt.Errorf("reading %s: %w", e.key, err)
		}
		doc := make(map[string]any, len(fields))
		for code, val := range fields {
			if e.ints {
				n, err := strconv.Atoi(val)
				if err != nil {
					continue
				}
				doc[code] = n
			} else {
				f, err := strconv.ParseFloat(val, 64)
				if err != nil {
					continue
				}
				doc[code] = f
			}
		}
		if err := writeJSON(filepath.Join(outputDir, e.file), doc); err != nil {
			return total, err
		}
		total += len(doc)
	}
	return total, nil
}

func exportTrades(ctx context.Context, outputDir, accountID string, cool *clickstore.Store) (int, error) {
	trades, err := cool.QueryTrades(ctx, storage.TradeQuery{AccountID: accountID})
	if err != nil {
		return 0, err
	}

	f, err := os.Create(filepath.Join(outputDir, "trades.csv"))
	if err != nil {
		return 0, fmt.Errorf("creating trades.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"timestamp", "stock_code", "stock_name", "order_type",
		"price", "volume", "strategy_name", "remark"}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("writing trades.csv header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.Timestamp,
			t.Code,
			t.Name,
			string(t.OrderType),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatInt(t.Volume, 10),
			t.StrategyName,
			t.Remark,
		}
		if err := w.Write(row); err != nil {
			return 0, fmt.Errorf("writing trade row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flushing trades.csv: %w", err)
	}
	return len(trades), nil
}

func exportRecords(ctx context.Context, outputDir string, warm *mysqlstore.Store) (int, error) {
	accounts, err := warm.ListAccounts(ctx)
	if err != nil {
		return 0, err
	}
	accountsDoc := make(map[string]accountEntry, len(accounts))
	for _, a := range accounts {
		accountsDoc[a.AccountID] = accountEntry{
			AccountName:    a.AccountName,
			Broker:         string(a.Broker),
			InitialCapital: a.InitialCapital,
			CurrentCapital: a.CurrentCapital,
			TotalAssets:    a.TotalAssets,
			PositionValue:  a.PositionValue,
			Status:         string(a.Status),
		}
	}
	if err := writeJSON(filepath.Join(outputDir, "accounts.json"), accountsDoc); err != nil {
		return 0, err
	}

	strategies, err := warm.ListStrategies(ctx)
	if err != nil {
		return 0, err
	}
	strategiesDoc := make(map[string]strategyEntry, len(strategies))
	for _, st := range strategies {
		params, _, err := warm.GetStrategyParams(ctx, st.StrategyCode)
		if err != nil {
			return 0, err
		}
		strategiesDoc[st.StrategyCode] = strategyEntry{
			StrategyName: st.StrategyName,
			StrategyType: string(st.StrategyType),
			Version:      st.Version,
			Status:       string(st.Status),
			Description:  st.Description,
			Params:       params,
		}
	}
	if err := writeJSON(filepath.Join(outputDir, "strategies.json"), strategiesDoc); err != nil {
		return 0, err
	}

	return len(accounts) + len(strategies), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
