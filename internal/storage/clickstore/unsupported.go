package clickstore

import (
	"context"

	"github.com/silverquant/tierstore/internal/storage"
)

// Position state lives in the HOT tier; accounts and strategies in the
// WARM tier.

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

func (s *Store) CreateAccount(context.Context, storage.Account) (bool, error) {
	return false, storage.Unsupported(backend, "CreateAccount")
}

func (s *Store) GetAccount(context.Context, string) (*storage.Account, error) {
	return nil, storage.Unsupported(backend, "GetAccount")
}

func (s *Store) UpdateAccountCapital(context.Context, string, float64, float64, float64) (bool, error) {
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
