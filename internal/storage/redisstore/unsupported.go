package redisstore

import (
	"context"

	"github.com/silverquant/tierstore/internal/storage"
)

// Trade, candle, account and strategy operations live in other tiers.

func (s *Store) RecordTrade(context.Context, storage.Trade) error {
	return storage.Unsupported(backend, "RecordTrade")
}

func (s *Store) QueryTrades(context.Context, storage.TradeQuery) ([]storage.Trade, error) {
	return nil, storage.Unsupported(backend, "QueryTrades")
}

func (s *Store) AggregateTrades(_ context.Context, _, _, _ string, _ storage.GroupBy) ([]storage.TradeAggregate, error) {
	return nil, storage.Unsupported(backend, "AggregateTrades")
}

func (s *Store) GetKline(_ context.Context, _, _, _, _ string) ([]storage.Candle, error) {
	return nil, storage.Unsupported(backend, "GetKline")
}

func (s *Store) BatchGetKline(_ context.Context, _ []string, _, _, _ string) (map[string][]storage.Candle, error) {
	return nil, storage.Unsupported(backend, "BatchGetKline")
}

func (s *Store) CreateAccount(context.Context, storage.Account) (bool, error) {
	return false, storage.Unsupported(backend, "CreateAccount")
}

func (s *Store) GetAccount(context.Context, string) (*storage.Account, error) {
	return nil, storage.Unsupported(backend, "GetAccount")
}

func (s *Store) UpdateAccountCapital(_ context.Context, _ string, _, _, _ float64) (bool, error) {
	return false, storage.Unsupported(backend, "UpdateAccountCapital")
}

func (s *Store) CreateStrategy(context.Context, storage.Strategy) (bool, error) {
	return false, storage.Unsupported(backend, "CreateStrategy")
}

func (s *Store) GetStrategyParams(context.Context, string) (map[string]storage.ParamValue, bool, error) {
	return nil, false, storage.Unsupported(backend, "GetStrategyParams")
}

func (s *Store) SaveStrategyParams(context.Context, string, map[string]storage.ParamValue) (bool, error) {
	return false, storage.Unsupported(backend, "SaveStrategyParams")
}

func (s *Store) CompareStrategyParams(context.Context, string, map[string]storage.ParamValue) (storage.ParamDiff, error) {
	return storage.ParamDiff{}, storage.Unsupported(backend, "CompareStrategyParams")
}
