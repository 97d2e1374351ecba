package hybrid

import (
	"context"
	"errors"

	"github.com/silverquant/tierstore/internal/storage"
)

// Accounts and strategies are served by the WARM tier with file backup.
// Create and save operations report success when either side accepted the
// write; a duplicate on both sides reports (false, nil).

// dualWriteBool runs a (bool, error) write on the primary and, in
// dual-write mode or after a primary failure, on file.
func (s *Store) dualWriteBool(op, backend string, primary storage.Store, write func(storage.Store) (bool, error)) (bool, error) {
	var primaryErr error
	primaryDone := false
	primaryOK := false
	if primary != nil {
		primaryOK, primaryErr = write(primary)
		if primaryErr != nil {
			if errors.Is(primaryErr, storage.ErrInvalidArgument) {
				return false, primaryErr
			}
			s.log.Error().Err(primaryErr).Str("op", op).Str("backend", backend).Msg("primary tier write failed")
		} else {
			primaryDone = true
		}
	}

	if primaryDone && !s.dualWrite {
		return primaryOK, nil
	}

	fileOK, fileErr := write(s.file)
	if fileErr != nil {
		if errors.Is(fileErr, storage.ErrInvalidArgument) {
			return false, fileErr
		}
		s.log.Error().Err(fileErr).Str("op", op).Str("backend", backendFile).Msg("file tier write failed")
	}

	switch {
	case primaryDone && fileErr == nil:
		return primaryOK || fileOK, nil
	case primaryDone:
		return primaryOK, nil
	case fileErr == nil:
		return fileOK, nil
	case primaryErr != nil:
		return false, primaryErr
	default:
		return false, fileErr
	}
}

func (s *Store) CreateAccount(ctx context.Context, a storage.Account) (bool, error) {
	return s.dualWriteBool("CreateAccount", backendMySQL, s.warm, func(t storage.Store) (bool, error) {
		return t.CreateAccount(ctx, a)
	})
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*storage.Account, error) {
	if s.warm != nil {
		a, err := s.warm.GetAccount(ctx, accountID)
		if err == nil && a != nil {
			return a, nil
		}
		if err != nil && !s.fallbackErr("GetAccount", backendMySQL, err) {
			return nil, err
		}
	}
	return s.file.GetAccount(ctx, accountID)
}

func (s *Store) UpdateAccountCapital(ctx context.Context, accountID string, currentCapital, totalAssets, positionValue float64) (bool, error) {
	return s.dualWriteBool("UpdateAccountCapital", backendMySQL, s.warm, func(t storage.Store) (bool, error) {
		return t.UpdateAccountCapital(ctx, accountID, currentCapital, totalAssets, positionValue)
	})
}

func (s *Store) CreateStrategy(ctx context.Context, st storage.Strategy) (bool, error) {
	return s.dualWriteBool("CreateStrategy", backendMySQL, s.warm, func(t storage.Store) (bool, error) {
		return t.CreateStrategy(ctx, st)
	})
}

func (s *Store) GetStrategyParams(ctx context.Context, strategyCode string) (map[string]storage.ParamValue, bool, error) {
	if s.warm != nil {
		params, ok, err := s.warm.GetStrategyParams(ctx, strategyCode)
		if err == nil && ok && len(params) > 0 {
			return params, true, nil
		}
		if err != nil && !s.fallbackErr("GetStrategyParams", backendMySQL, err) {
			return nil, false, err
		}
	}
	return s.file.GetStrategyParams(ctx, strategyCode)
}

func (s *Store) SaveStrategyParams(ctx context.Context, strategyCode string, params map[string]storage.ParamValue) (bool, error) {
	return s.dualWriteBool("SaveStrategyParams", backendMySQL, s.warm, func(t storage.Store) (bool, error) {
		return t.SaveStrategyParams(ctx, strategyCode, params)
	})
}

// CompareStrategyParams diffs against the active set as the dispatcher
// sees it, so the comparison follows the same fallback path as reads.
func (s *Store) CompareStrategyParams(ctx context.Context, strategyCode string, newParams map[string]storage.ParamValue) (storage.ParamDiff, error) {
	current, ok, err := s.GetStrategyParams(ctx, strategyCode)
	if err != nil {
		return storage.ParamDiff{}, err
	}
	if !ok {
		current = map[string]storage.ParamValue{}
	}
	return storage.DiffParams(current, newParams), nil
}
