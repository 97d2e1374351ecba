package clickstore

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silverquant/tierstore/internal/storage"
)

const insertKlineSQL = `INSERT INTO daily_kline
	(stock_code, date, datetime, open, high, low, close, volume, amount)`

// GetKline returns the daily bars for one code in [startDate, endDate],
// oldest first. Only the daily frequency is stored.
func (s *Store) GetKline(ctx context.Context, code, startDate, endDate, frequency string) ([]storage.Candle, error) {
	if frequency != storage.FreqDaily {
		return nil, storage.Invalidf("frequency %q", frequency)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT date, open, high, low, close, volume, amount
		FROM daily_kline
		WHERE stock_code = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`, code, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("querying candles for %s: %w", code, err)
	}
	defer rows.Close()

	var candles []storage.Candle
	for rows.Next() {
		c, err := scanCandle(rows, code)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candle rows: %w", err)
	}
	return candles, nil
}

// BatchGetKline returns candles for multiple codes in one query, keyed by
// code and oldest first within each code.
func (s *Store) BatchGetKline(ctx context.Context, codes []string, startDate, endDate, frequency string) (map[string][]storage.Candle, error) {
	if frequency != storage.FreqDaily {
		return nil, storage.Invalidf("frequency %q", frequency)
	}
	out := make(map[string][]storage.Candle, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	if len(codes) > 100 {
		return nil, storage.Invalidf("batch of %d codes exceeds 100", len(codes))
	}

	rows, err := s.conn.Query(ctx, `
		SELECT stock_code, date, open, high, low, close, volume, amount
		FROM daily_kline
		WHERE stock_code IN (?) AND date >= ? AND date <= ?
		ORDER BY stock_code, date ASC`, codes, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("querying candles for %d codes: %w", len(codes), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code                    string
			date                    time.Time
			open, high, low, close_ decimal.Decimal
			volume                  uint64
			amount                  decimal.Decimal
		)
		if err := rows.Scan(&code, &date, &open, &high, &low, &close_, &volume, &amount); err != nil {
			return nil, fmt.Errorf("scanning candle row: %w", err)
		}
		c := storage.Candle{
			Code:   code,
			Date:   date.Format(storage.DateLayout),
			Volume: int64(volume),
		}
		c.Open, _ = open.Float64()
		c.High, _ = high.Float64()
		c.Low, _ = low.Float64()
		c.Close, _ = close_.Float64()
		c.Amount, _ = amount.Float64()
		out[code] = append(out[code], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candle rows: %w", err)
	}
	return out, nil
}

// InsertCandles inserts a batch of daily bars in one block; used by
// migration.
func (s *Store) InsertCandles(ctx context.Context, candles []storage.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, insertKlineSQL)
	if err != nil {
		return fmt.Errorf("preparing candle batch: %w", err)
	}
	for _, c := range candles {
		date, err := time.Parse(storage.DateLayout, c.Date)
		if err != nil {
			return storage.Invalidf("candle date %q", c.Date)
		}
		// datetime carries the YYYYMMDD ordinal used by legacy CSV exports.
		ordinal := uint32(date.Year()*10000 + int(date.Month())*100 + date.Day())
		err = batch.Append(
			c.Code,
			date,
			ordinal,
			decimal.NewFromFloat(c.Open),
			decimal.NewFromFloat(c.High),
			decimal.NewFromFloat(c.Low),
			decimal.NewFromFloat(c.Close),
			uint64(c.Volume),
			decimal.NewFromFloat(c.Amount),
		)
		if err != nil {
			return fmt.Errorf("appending candle row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending %d candles: %w", len(candles), err)
	}
	return nil
}

// CandleCount returns the number of bars stored for one code; used by
// migration verification.
func (s *Store) CandleCount(ctx context.Context, code string) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM daily_kline WHERE stock_code = ?", code).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting candles for %s: %w", code, err)
	}
	return count, nil
}

func scanCandle(rows interface {
	Scan(dest ...any) error
}, code string) (storage.Candle, error) {
	var (
		date                    time.Time
		open, high, low, close_ decimal.Decimal
		volume                  uint64
		amount                  decimal.Decimal
	)
	if err := rows.Scan(&date, &open, &high, &low, &close_, &volume, &amount); err != nil {
		return storage.Candle{}, fmt.Errorf("scanning candle row: %w", err)
	}
	c := storage.Candle{
		Code:   code,
		Date:   date.Format(storage.DateLayout),
		Volume: int64(volume),
	}
	c.Open, _ = open.Float64()
	c.High, _ = high.Float64()
	c.Low, _ = low.Float64()
	c.Close, _ = close_.Float64()
	c.Amount, _ = amount.Float64()
	return c, nil
}
