package migrate

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/silverquant/tierstore/internal/storage"
	"github.com/silverquant/tierstore/internal/storage/clickstore"
)

var (
	prefixedCodeRe = regexp.MustCompile(`^(SH|SZ)\d{6}`)
	bareCodeRe     = regexp.MustCompile(`^\d{6}`)
)

// CodeFromFilename derives the exchange-prefixed stock code from a candle
// CSV filename. Bare 6-digit codes get their market inferred: 6xxxxx is
// Shanghai, 0xxxxx and 3xxxxx are Shenzhen.
func CodeFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := prefixedCodeRe.FindString(name); m != "" {
		return m
	}
	if m := bareCodeRe.FindString(name); m != "" {
		switch m[0] {
		case '6':
			return "SH" + m
		case '0', '3':
			return "SZ" + m
		}
		return m
	}
	return name
}

// klineAliases accepts English and Chinese candle CSV headers.
var klineAliases = map[string][]string{
	"date":   {"date", "日期", "交易日期"},
	"open":   {"open", "开盘", "开盘价"},
	"high":   {"high", "最高", "最高价"},
	"low":    {"low", "最低", "最低价"},
	"close":  {"close", "收盘", "收盘价"},
	"volume": {"volume", "成交量", "量"},
	"amount": {"amount", "成交额", "额"},
}

// ReadKlineCSV parses one candle CSV. Rows without a date or with a zero
// close are skipped.
func ReadKlineCSV(path, code string) ([]storage.Candle, int, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, 0, err
	}
	cols := columnIndex(header, klineAliases)

	var candles []storage.Candle
	skipped := 0
	for _, row := range rows {
		date := field(row, cols, "date")
		closePrice, _ := strconv.ParseFloat(field(row, cols, "close"), 64)
		if date == "" || closePrice == 0 {
			skipped++
			continue
		}
		open, _ := strconv.ParseFloat(field(row, cols, "open"), 64)
		high, _ := strconv.ParseFloat(field(row, cols, "high"), 64)
		low, _ := strconv.ParseFloat(field(row, cols, "low"), 64)
		volume, _ := strconv.ParseFloat(field(row, cols, "volume"), 64)
		amount, _ := strconv.ParseFloat(field(row, cols, "amount"), 64)
		candles = append(candles, storage.Candle{
			Code:   code,
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
			Amount: amount,
		})
	}
	return candles, skipped, nil
}

// Klines migrates every candle CSV matching pattern under dir into the
// ClickHouse daily_kline table, reading files concurrently.
func Klines(ctx context.Context, dst *clickstore.Store, dir, pattern string, batchSize int, dryRun bool, log zerolog.Logger) (Report, error) {
	if batchSize <= 0 {
		batchSize = KlineBatchSize
	}
	if pattern == "" {
		pattern = "*.csv"
	}
	report := Report{Task: "klines"}
	start := time.Now()

	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return report, err
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Warn().Str("dir", dir).Str("pattern", pattern).Msg("no candle files found")
		report.Elapsed = time.Since(start)
		return report, nil
	}
	log.Info().Int("files", len(files)).Msg("candle files found")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, file := range files {
		file := file
		g.Go(func() error {
			code := CodeFromFilename(file)
			candles, skipped, err := ReadKlineCSV(file, code)
			if err != nil {
				log.Error().Err(err).Str("file", file).Msg("candle file unreadable")
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}

			written := 0
			failed := 0
			if !dryRun {
				for i := 0; i < len(candles); i += batchSize {
					end := i + batchSize
					if end > len(candles) {
						end = len(candles)
					}
					if err := dst.InsertCandles(gctx, candles[i:end]); err != nil {
						log.Error().Err(err).Str("code", code).Msg("candle batch failed")
						failed += end - i
						continue
					}
					written += end - i
				}
			}

			mu.Lock()
			report.Total += len(candles) + skipped
			report.Skipped += skipped
			if dryRun {
				report.Skipped += len(candles)
			} else {
				report.Success += written
				report.Failed += failed
			}
			mu.Unlock()
			log.Debug().Str("code", code).Int("bars", written).Msg("candle file migrated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("candle migration finished")
	return report, nil
}
