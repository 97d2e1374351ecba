package filestore

import (
	"context"

	"github.com/silverquant/tierstore/internal/storage"
)

// The file tier does not persist candle history; callers fetch bars from a
// live market-data source instead. Both operations succeed with empty
// results so dispatchers can treat "no data" uniformly across tiers.

// GetKline returns no candles.
func (s *Store) GetKline(_ context.Context, code, startDate, endDate, frequency string) ([]storage.Candle, error) {
	if frequency != storage.FreqDaily {
		return nil, storage.Invalidf("frequency %q", frequency)
	}
	s.log.Debug().Str("code", code).Msg("candle history is not file-backed")
	return []storage.Candle{}, nil
}

// BatchGetKline returns an empty result set.
func (s *Store) BatchGetKline(_ context.Context, codes []string, startDate, endDate, frequency string) (map[string][]storage.Candle, error) {
	if frequency != storage.FreqDaily {
		return nil, storage.Invalidf("frequency %q", frequency)
	}
	s.log.Debug().Int("codes", len(codes)).Msg("candle history is not file-backed")
	return map[string][]storage.Candle{}, nil
}
