package hybrid

import (
	"context"
	"time"

	"github.com/silverquant/tierstore/internal/storage"
)

// Position reads are served by the HOT tier and are final when it is
// healthy: an absent key means no position. Only a tier failure degrades
// the read to file.

func (s *Store) GetHeldDays(ctx context.Context, code, accountID string) (int, bool, error) {
	defer s.trace("GetHeldDays", positionReadBudget, time.Now())
	if s.hot != nil {
		days, ok, err := s.hot.GetHeldDays(ctx, code, accountID)
		if err == nil {
			return days, ok, nil
		}
		if !s.fallbackErr("GetHeldDays", backendRedis, err) {
			return 0, false, err
		}
	}
	return s.file.GetHeldDays(ctx, code, accountID)
}

func (s *Store) UpdateHeldDays(ctx context.Context, code, accountID string, days int) error {
	return s.dualWriteErr("UpdateHeldDays", backendRedis, s.hot,
		func(t storage.Store) error { return t.UpdateHeldDays(ctx, code, accountID, days) },
		func(t storage.Store) error { return t.UpdateHeldDays(ctx, code, accountID, days) })
}

func (s *Store) DeleteHeldDays(ctx context.Context, code, accountID string) error {
	return s.dualWriteErr("DeleteHeldDays", backendRedis, s.hot,
		func(t storage.Store) error { return t.DeleteHeldDays(ctx, code, accountID) },
		func(t storage.Store) error { return t.DeleteHeldDays(ctx, code, accountID) })
}

func (s *Store) BatchNewHeld(ctx context.Context, accountID string, codes []string) error {
	return s.dualWriteErr("BatchNewHeld", backendRedis, s.hot,
		func(t storage.Store) error { return t.BatchNewHeld(ctx, accountID, codes) },
		func(t storage.Store) error { return t.BatchNewHeld(ctx, accountID, codes) })
}

// AllHeldInc runs on both sides so the file tier's date marker stays in
// step with the HOT tier. The primary's answer wins when it is healthy.
func (s *Store) AllHeldInc(ctx context.Context, accountID string) (bool, error) {
	if s.hot == nil {
		return s.file.AllHeldInc(ctx, accountID)
	}

	incremented, err := s.hot.AllHeldInc(ctx, accountID)
	if err != nil {
		if !s.fallbackErr("AllHeldInc", backendRedis, err) {
			return false, err
		}
		return s.file.AllHeldInc(ctx, accountID)
	}

	if s.dualWrite {
		if _, fileErr := s.file.AllHeldInc(ctx, accountID); fileErr != nil {
			s.log.Error().Err(fileErr).Str("op", "AllHeldInc").Str("backend", backendFile).Msg("file tier write failed")
		}
	}
	return incremented, nil
}

func (s *Store) GetMaxPrice(ctx context.Context, code, accountID string) (float64, bool, error) {
	defer s.trace("GetMaxPrice", positionReadBudget, time.Now())
	if s.hot != nil {
		price, ok, err := s.hot.GetMaxPrice(ctx, code, accountID)
		if err == nil {
			return price, ok, nil
		}
		if !s.fallbackErr("GetMaxPrice", backendRedis, err) {
			return 0, false, err
		}
	}
	return s.file.GetMaxPrice(ctx, code, accountID)
}

func (s *Store) UpdateMaxPrice(ctx context.Context, code, accountID string, price float64) error {
	return s.dualWriteErr("UpdateMaxPrice", backendRedis, s.hot,
		func(t storage.Store) error { return t.UpdateMaxPrice(ctx, code, accountID, price) },
		func(t storage.Store) error { return t.UpdateMaxPrice(ctx, code, accountID, price) })
}

func (s *Store) GetMinPrice(ctx context.Context, code, accountID string) (float64, bool, error) {
	defer s.trace("GetMinPrice", positionReadBudget, time.Now())
	if s.hot != nil {
		price, ok, err := s.hot.GetMinPrice(ctx, code, accountID)
		if err == nil {
			return price, ok, nil
		}
		if !s.fallbackErr("GetMinPrice", backendRedis, err) {
			return 0, false, err
		}
	}
	return s.file.GetMinPrice(ctx, code, accountID)
}

func (s *Store) UpdateMinPrice(ctx context.Context, code, accountID string, price float64) error {
	return s.dualWriteErr("UpdateMinPrice", backendRedis, s.hot,
		func(t storage.Store) error { return t.UpdateMinPrice(ctx, code, accountID, price) },
		func(t storage.Store) error { return t.UpdateMinPrice(ctx, code, accountID, price) })
}
