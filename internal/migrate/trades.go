package migrate

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
	"github.com/silverquant/tierstore/internal/storage/clickstore"
)

// tradeAliases accepts both the English export headers and the Chinese
// trade-log headers.
var tradeAliases = map[string][]string{
	"timestamp":     {"timestamp", "时间", "成交时间"},
	"date":          {"date", "日期"},
	"stock_code":    {"stock_code", "code", "代码", "股票代码"},
	"stock_name":    {"stock_name", "name", "名称", "股票名称"},
	"order_type":    {"order_type", "type", "类型", "订单类型"},
	"price":         {"price", "价格", "成交价"},
	"volume":        {"volume", "数量", "成交量"},
	"strategy_name": {"strategy_name", "策略", "策略名称"},
	"remark":        {"remark", "注释", "备注"},
}

// ReadTradeCSV parses a trade CSV into records, skipping rows that are
// missing the timestamp, code, price or volume. A date-only or split
// date+time layout is normalized to the full timestamp.
func ReadTradeCSV(path, accountID string, log zerolog.Logger) ([]storage.Trade, int, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, 0, err
	}
	cols := columnIndex(header, tradeAliases)

	var trades []storage.Trade
	skipped := 0
	for i, row := range rows {
		ts := field(row, cols, "timestamp")
		if date := field(row, cols, "date"); date != "" && len(ts) == 8 {
			// Split "日期","时间" columns carry date and clock separately.
			ts = date + " " + ts
		}
		if len(ts) == len(storage.DateLayout) {
			ts += " 00:00:00"
		}
		code := field(row, cols, "stock_code")
		price, priceErr := strconv.ParseFloat(field(row, cols, "price"), 64)
		volume, volumeErr := strconv.ParseInt(field(row, cols, "volume"), 10, 64)
		if ts == "" || code == "" || priceErr != nil || volumeErr != nil {
			skipped++
			log.Warn().Int("row", i+2).Msg("skipping trade row with missing fields")
			continue
		}
		if _, err := time.Parse(storage.TimestampLayout, ts); err != nil {
			skipped++
			log.Warn().Int("row", i+2).Str("timestamp", ts).Msg("skipping trade row with bad timestamp")
			continue
		}
		trades = append(trades, storage.Trade{
			AccountID:    accountID,
			Timestamp:    ts,
			Code:         code,
			Name:         field(row, cols, "stock_name"),
			OrderType:    storage.OrderType(field(row, cols, "order_type")),
			Remark:       field(row, cols, "remark"),
			Price:        price,
			Volume:       volume,
			StrategyName: field(row, cols, "strategy_name"),
		})
	}
	return trades, skipped, nil
}

// Trades migrates a trade CSV into the ClickHouse trade table in batches.
func Trades(ctx context.Context, dst *clickstore.Store, csvPath, accountID string, batchSize int, dryRun bool, log zerolog.Logger) (Report, error) {
	if batchSize <= 0 {
		batchSize = TradeBatchSize
	}
	report := Report{Task: "trades"}
	start := time.Now()

	trades, skipped, err := ReadTradeCSV(csvPath, accountID, log)
	if err != nil {
		return report, err
	}
	report.Total = len(trades) + skipped
	report.Skipped = skipped

	if dryRun {
		report.Skipped += len(trades)
		report.Elapsed = time.Since(start)
		log.Info().Int("records", len(trades)).Msg("dry run, nothing written")
		return report, nil
	}

	for i := 0; i < len(trades); i += batchSize {
		end := i + batchSize
		if end > len(trades) {
			end = len(trades)
		}
		if err := dst.InsertTrades(ctx, trades[i:end]); err != nil {
			report.Failed += end - i
			log.Error().Err(err).Int("from", i).Int("to", end).Msg("trade batch failed")
			continue
		}
		report.Success += end - i
		log.Debug().Int("done", end).Int("total", len(trades)).Msg("trade batch written")
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("trade migration finished")
	return report, nil
}
