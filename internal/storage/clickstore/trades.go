package clickstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/silverquant/tierstore/internal/storage"
)

const insertTradeSQL = `INSERT INTO trade
	(timestamp, date, account_id, stock_code, stock_name,
	 order_type, strategy_name, price, volume, amount, remark)`

// RecordTrade inserts one trade row. Date and amount are recomputed from
// the timestamp and price*volume.
func (s *Store) RecordTrade(ctx context.Context, t storage.Trade) error {
	if !t.OrderType.Valid() {
		return storage.Invalidf("order type %q", t.OrderType)
	}
	if t.Price <= 0 {
		return storage.Invalidf("price %v must be > 0", t.Price)
	}
	// Cancel records legitimately carry a zero volume.
	if t.Volume < 0 {
		return storage.Invalidf("volume %d must be >= 0", t.Volume)
	}
	ts, err := t.Time()
	if err != nil {
		return storage.Invalidf("timestamp %q", t.Timestamp)
	}

	batch, err := s.conn.PrepareBatch(ctx, insertTradeSQL)
	if err != nil {
		return fmt.Errorf("preparing trade insert: %w", err)
	}
	if err := appendTrade(batch, t, ts); err != nil {
		return err
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("inserting trade: %w", err)
	}
	return nil
}

// InsertTrades inserts a batch of trades in one block; used by migration.
func (s *Store) InsertTrades(ctx context.Context, trades []storage.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, insertTradeSQL)
	if err != nil {
		return fmt.Errorf("preparing trade batch: %w", err)
	}
	for _, t := range trades {
		ts, err := t.Time()
		if err != nil {
			return storage.Invalidf("timestamp %q", t.Timestamp)
		}
		if err := appendTrade(batch, t, ts); err != nil {
			return err
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending %d trades: %w", len(trades), err)
	}
	return nil
}

func appendTrade(batch driver.Batch, t storage.Trade, ts time.Time) error {
	price := decimal.NewFromFloat(storage.RoundPrice(t.Price))
	amount := decimal.NewFromFloat(storage.TradeAmount(t.Price, t.Volume))
	err := batch.Append(
		ts,
		ts,
		t.AccountID,
		t.Code,
		t.Name,
		string(t.OrderType),
		t.StrategyName,
		price,
		uint32(t.Volume),
		amount,
		t.Remark,
	)
	if err != nil {
		return fmt.Errorf("appending trade row: %w", err)
	}
	return nil
}

// TradeCount returns the number of trade rows for an account; used by
// migration verification.
func (s *Store) TradeCount(ctx context.Context, accountID string) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM trade WHERE account_id = ?", accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting trades for %s: %w", accountID, err)
	}
	return count, nil
}

// QueryTrades returns the trades matching every set filter, newest first.
func (s *Store) QueryTrades(ctx context.Context, q storage.TradeQuery) ([]storage.Trade, error) {
	if q.AccountID == "" {
		return nil, storage.Invalidf("account id is required")
	}

	query := `
		SELECT timestamp, date, stock_code, stock_name, order_type,
		       strategy_name, price, volume, amount, remark
		FROM trade
		WHERE account_id = ?`
	args := []any{q.AccountID}
	if q.StartDate != "" {
		query += " AND date >= ?"
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		query += " AND date <= ?"
		args = append(args, q.EndDate)
	}
	if q.Code != "" {
		query += " AND stock_code = ?"
		args = append(args, q.Code)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []storage.Trade
	for rows.Next() {
		var (
			ts, date      time.Time
			orderType     string
			price, amount decimal.Decimal
			volume        uint32
			t             storage.Trade
		)
		if err := rows.Scan(&ts, &date, &t.Code, &t.Name, &orderType,
			&t.StrategyName, &price, &volume, &amount, &t.Remark); err != nil {
			return nil, fmt.Errorf("scanning trade row: %w", err)
		}
		t.AccountID = q.AccountID
		t.Timestamp = ts.Format(storage.TimestampLayout)
		t.Date = date.Format(storage.DateLayout)
		t.OrderType = storage.OrderType(orderType)
		t.Price, _ = price.Float64()
		t.Volume = int64(volume)
		t.Amount, _ = amount.Float64()
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trade rows: %w", err)
	}
	return trades, nil
}

// AggregateTrades groups the account's trades server-side, ordered by
// total amount descending.
func (s *Store) AggregateTrades(ctx context.Context, accountID, startDate, endDate string, groupBy storage.GroupBy) ([]storage.TradeAggregate, error) {
	if !groupBy.Valid() {
		return nil, storage.Invalidf("group by %q", groupBy)
	}

	var keyExpr, nameExpr string
	switch groupBy {
	case storage.GroupByStock:
		keyExpr, nameExpr = "stock_code", "any(stock_name)"
	case storage.GroupByDate:
		keyExpr, nameExpr = "toString(date)", "''"
	case storage.GroupByMonth:
		keyExpr, nameExpr = "toString(toYYYYMM(date))", "''"
	case storage.GroupByType:
		keyExpr, nameExpr = "order_type", "''"
	}

	query := fmt.Sprintf(`
		SELECT %s AS group_key, %s AS group_name,
		       COUNT(*) AS trade_count,
		       SUM(volume) AS total_volume,
		       SUM(amount) AS total_amount
		FROM trade
		WHERE account_id = ? AND date >= ? AND date <= ?
		GROUP BY group_key
		ORDER BY total_amount DESC`, keyExpr, nameExpr)

	rows, err := s.conn.Query(ctx, query, accountID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("aggregating trades: %w", err)
	}
	defer rows.Close()

	var aggs []storage.TradeAggregate
	for rows.Next() {
		var (
			agg    storage.TradeAggregate
			count  uint64
			volume uint64
			amount decimal.Decimal
		)
		if err := rows.Scan(&agg.Key, &agg.Name, &count, &volume, &amount); err != nil {
			return nil, fmt.Errorf("scanning aggregate row: %w", err)
		}
		agg.Count = int64(count)
		agg.TotalVolume = int64(volume)
		agg.TotalAmount, _ = amount.Float64()
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating aggregate rows: %w", err)
	}
	return aggs, nil
}
