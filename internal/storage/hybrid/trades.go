package hybrid

import (
	"context"
	"time"

	"github.com/silverquant/tierstore/internal/storage"
)

// Trade and candle history is served by the COOL tier; the file tier backs
// it up. Reads degrade to file on tier failure and on empty results, so a
// partially-migrated deployment still sees its file-era records.

func (s *Store) RecordTrade(ctx context.Context, t storage.Trade) error {
	return s.dualWriteErr("RecordTrade", backendClickHouse, s.cool,
		func(tier storage.Store) error { return tier.RecordTrade(ctx, t) },
		func(tier storage.Store) error { return tier.RecordTrade(ctx, t) })
}

func (s *Store) QueryTrades(ctx context.Context, q storage.TradeQuery) ([]storage.Trade, error) {
	defer s.trace("QueryTrades", historyReadBudget, time.Now())
	if s.cool != nil {
		trades, err := s.cool.QueryTrades(ctx, q)
		if err == nil && len(trades) > 0 {
			return trades, nil
		}
		if err != nil && !s.fallbackErr("QueryTrades", backendClickHouse, err) {
			return nil, err
		}
	}
	return s.file.QueryTrades(ctx, q)
}

func (s *Store) AggregateTrades(ctx context.Context, accountID, startDate, endDate string, groupBy storage.GroupBy) ([]storage.TradeAggregate, error) {
	defer s.trace("AggregateTrades", historyReadBudget, time.Now())
	if s.cool != nil {
		aggs, err := s.cool.AggregateTrades(ctx, accountID, startDate, endDate, groupBy)
		if err == nil && len(aggs) > 0 {
			return aggs, nil
		}
		if err != nil && !s.fallbackErr("AggregateTrades", backendClickHouse, err) {
			return nil, err
		}
	}
	return s.file.AggregateTrades(ctx, accountID, startDate, endDate, groupBy)
}

func (s *Store) GetKline(ctx context.Context, code, startDate, endDate, frequency string) ([]storage.Candle, error) {
	defer s.trace("GetKline", historyReadBudget, time.Now())
	if s.cool != nil {
		candles, err := s.cool.GetKline(ctx, code, startDate, endDate, frequency)
		if err == nil && len(candles) > 0 {
			return candles, nil
		}
		if err != nil && !s.fallbackErr("GetKline", backendClickHouse, err) {
			return nil, err
		}
	}
	return s.file.GetKline(ctx, code, startDate, endDate, frequency)
}

func (s *Store) BatchGetKline(ctx context.Context, codes []string, startDate, endDate, frequency string) (map[string][]storage.Candle, error) {
	defer s.trace("BatchGetKline", historyReadBudget, time.Now())
	if s.cool != nil {
		out, err := s.cool.BatchGetKline(ctx, codes, startDate, endDate, frequency)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil && !s.fallbackErr("BatchGetKline", backendClickHouse, err) {
			return nil, err
		}
	}
	return s.file.BatchGetKline(ctx, codes, startDate, endDate, frequency)
}
