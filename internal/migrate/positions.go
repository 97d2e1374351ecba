package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage/redisstore"
)

// loadNumberDoc reads a JSON document of code -> number, skipping the
// reserved "_"-prefixed marker keys. A missing file is an empty document.
func loadNumberDoc(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]float64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	raw := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	doc := make(map[string]float64, len(raw))
	for code, v := range raw {
		if strings.HasPrefix(code, "_") {
			continue
		}
		if f, ok := v.(float64); ok {
			doc[code] = f
		}
	}
	return doc, nil
}

// Positions migrates held_days.json, max_prices.json and min_prices.json
// into the account's Redis hashes, pipelined in batches.
func Positions(ctx context.Context, dst *redisstore.Store, cachePath, accountID string, batchSize int, dryRun bool, log zerolog.Logger) (Report, error) {
	if batchSize <= 0 {
		batchSize = PositionBatchSize
	}
	report := Report{Task: "positions"}
	start := time.Now()

	heldDays, err := loadNumberDoc(filepath.Join(cachePath, "held_days.json"))
	if err != nil {
		return report, err
	}
	maxPrices, err := loadNumberDoc(filepath.Join(cachePath, "max_prices.json"))
	if err != nil {
		return report, err
	}
	minPrices, err := loadNumberDoc(filepath.Join(cachePath, "min_prices.json"))
	if err != nil {
		return report, err
	}

	type op struct {
		key   string
		code  string
		value any
	}
	var ops []op
	for code, days := range heldDays {
		ops = append(ops, op{"held_days:" + accountID, code, int(days)})
	}
	for code, price := range maxPrices {
		ops = append(ops, op{"max_prices:" + accountID, code, price})
	}
	for code, price := range minPrices {
		ops = append(ops, op{"min_prices:" + accountID, code, price})
	}
	report.Total = len(ops)

	if dryRun {
		report.Skipped = len(ops)
		report.Elapsed = time.Since(start)
		log.Info().Int("records", len(ops)).Msg("dry run, nothing written")
		return report, nil
	}

	client := dst.Client()
	for i := 0; i < len(ops); i += batchSize {
		end := i + batchSize
		if end > len(ops) {
			end = len(ops)
		}
		pipe := client.Pipeline()
		for _, o := range ops[i:end] {
			pipe.HSet(ctx, o.key, o.code, o.value)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			report.Failed += end - i
			log.Error().Err(err).Int("from", i).Int("to", end).Msg("position batch failed")
			continue
		}
		report.Success += end - i
		log.Debug().Int("done", end).Int("total", len(ops)).Msg("position batch written")
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("position migration finished")
	return report, nil
}
