package mysqlstore

import (
	"context"

	"github.com/silverquant/tierstore/internal/storage"
)

// Position state lives in the HOT tier; trade and candle history in the
// COOL tier.

func (s *Store) GetHeldDays(context.Context, string, string) (int, bool, error) {
	return 0, false, storage.Unsupported(backend, "GetHeldDays")
}

func (s *Store) UpdateHeldDays(context.Context, string, string, int) error {
	return storage.Unsupported(backend, "UpdateHeldDays")
}

func (s *Store) DeleteHeldDays(context.Context, string, string) error {
	return storage.Unsupported(backend, "DeleteHeldDays")
}

func (s *Store) BatchNewHeld(context.Context, string, []string) error {
	return storage.Unsupported(backend, "BatchNewHeld")
}

func (s *Store) AllHeldInc(context.Context, string) (bool, error) {
	return false, storage.Unsupported(backend, "AllHeldInc")
}

func (s *Store) GetMaxPrice(context.Context, string, string) (float64, bool, error) {
	return 0, false, storage.Unsupported(backend, "GetMaxPrice")
}

func (s *Store) UpdateMaxPrice(context.Context, string, string, float64) error {
	return storage.Unsupported(backend, "UpdateMaxPrice")
}

func (s *Store) GetMinPrice(context.Context, string, string) (float64, bool, error) {
	return 0, false, storage.Unsupported(backend, "GetMinPrice")
}

func (s *Store) UpdateMinPrice(context.Context, string, string, float64) error {
	return storage.Unsupported(backend, "UpdateMinPrice")
}

func (s *Store) RecordTrade(context.Context, storage.Trade) error {
	return storage.Unsupported(backend, "RecordTrade")
}

func (s *Store) QueryTrades(context.Context, storage.TradeQuery) ([]storage.Trade, error) {
	return nil, storage.Unsupported(backend, "QueryTrades")
}

func (s *Store) AggregateTrades(context.Context, string, string, string, storage.GroupBy) ([]storage.TradeAggregate, error) {
	return nil, storage.Unsupported(backend, "AggregateTrades")
}

func (s *Store) GetKline(context.Context, string, string, string, string) ([]storage.Candle, error) {
	return nil, storage.Unsupported(backend, "GetKline")
}

func (s *Store) BatchGetKline(context.Context, []string, string, string, string) (map[string][]storage.Candle, error) {
	return nil, storage.Unsupported(backend, "BatchGetKline")
}
