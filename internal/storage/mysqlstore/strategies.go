package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/silverquant/tierstore/internal/storage"
)

// The param_type column spells the string tag out as "string"; the tagged
// variant uses "str". Convert at the row boundary.
func columnType(t storage.ParamType) string {
	if t == storage.ParamStr {
		return "string"
	}
	return string(t)
}

func tagOfColumn(col string) storage.ParamType {
	if col == "string" {
		return storage.ParamStr
	}
	return storage.ParamType(col)
}

// CreateStrategy inserts a new strategy row. Returns (false, nil) when the
// strategy code is already taken.
func (s *Store) CreateStrategy(ctx context.Context, st storage.Strategy) (bool, error) {
	if st.StrategyCode == "" {
		return false, storage.Invalidf("strategy code is required")
	}
	if !st.StrategyType.Valid() {
		return false, storage.Invalidf("strategy type %q", st.StrategyType)
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM strategy WHERE strategy_code = ?", st.StrategyCode).Scan(&exists)
	if err == nil {
		s.log.Warn().Str("strategy", st.StrategyCode).Msg("strategy already exists")
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking strategy %s: %w", st.StrategyCode, err)
	}

	status := st.Status
	if status == "" {
		status = storage.StrategyActive
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategy (strategy_name, strategy_code, strategy_type, version, status, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.StrategyName, st.StrategyCode, string(st.StrategyType),
		st.Version, string(status), st.Description)
	if err != nil {
		return false, fmt.Errorf("inserting strategy %s: %w", st.StrategyCode, err)
	}
	return true, nil
}

// ListStrategies returns every strategy row; used by the export tooling.
func (s *Store) ListStrategies(ctx context.Context) ([]storage.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy_name, strategy_code, strategy_type, version,
		       status, COALESCE(description, ''), created_at, updated_at
		FROM strategy ORDER BY strategy_code`)
	if err != nil {
		return nil, fmt.Errorf("listing strategies: %w", err)
	}
	defer rows.Close()

	var strategies []storage.Strategy
	for rows.Next() {
		var st storage.Strategy
		var typ, status string
		if err := rows.Scan(&st.ID, &st.StrategyName, &st.StrategyCode, &typ,
			&st.Version, &status, &st.Description, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning strategy row: %w", err)
		}
		st.StrategyType = storage.StrategyType(typ)
		st.Status = storage.StrategyStatus(status)
		strategies = append(strategies, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating strategy rows: %w", err)
	}
	return strategies, nil
}

// strategyID resolves a strategy code to its row id. ok=false when unknown.
func (s *Store) strategyID(ctx context.Context, strategyCode string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM strategy WHERE strategy_code = ?", strategyCode).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolving strategy %s: %w", strategyCode, err)
	}
	return id, true, nil
}

// GetStrategyParams returns the active parameter version decoded by type
// tag. ok=false means the strategy is unknown.
func (s *Store) GetStrategyParams(ctx context.Context, strategyCode string) (map[string]storage.ParamValue, bool, error) {
	id, ok, err := s.strategyID(ctx, strategyCode)
	if err != nil || !ok {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT param_key, param_value, param_type
		FROM strategy_param
		WHERE strategy_id = ? AND is_active = TRUE`, id)
	if err != nil {
		return nil, false, fmt.Errorf("reading params for %s: %w", strategyCode, err)
	}
	defer rows.Close()

	params := make(map[string]storage.ParamValue)
	for rows.Next() {
		var key, value, typ string
		if err := rows.Scan(&key, &value, &typ); err != nil {
			return nil, false, fmt.Errorf("scanning param row: %w", err)
		}
		params[key] = storage.DecodeParam(value, tagOfColumn(typ))
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating param rows: %w", err)
	}
	return params, true, nil
}

// SaveStrategyParams stores params as a new version in one transaction:
// read max version, deactivate the active rows, insert the new set with
// is_active=true. Returns (false, nil) when the strategy is unknown.
func (s *Store) SaveStrategyParams(ctx context.Context, strategyCode string, params map[string]storage.ParamValue) (bool, error) {
	id, ok, err := s.strategyID(ctx, strategyCode)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Warn().Str("strategy", strategyCode).Msg("strategy not found")
		return false, nil
	}

	err = s.withTransaction(ctx, func(tx *sql.Tx) error {
		var maxVersion sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(version) FROM strategy_param WHERE strategy_id = ?", id).Scan(&maxVersion); err != nil {
			return fmt.Errorf("reading max version: %w", err)
		}
		newVersion := maxVersion.Int64 + 1

		if _, err := tx.ExecContext(ctx,
			"UPDATE strategy_param SET is_active = FALSE WHERE strategy_id = ? AND is_active = TRUE", id); err != nil {
			return fmt.Errorf("deactivating params: %w", err)
		}

		for key, p := range params {
			value, typ := p.Encode()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO strategy_param (strategy_id, param_key, param_value, param_type, version, is_active)
				VALUES (?, ?, ?, ?, ?, TRUE)`,
				id, key, value, columnType(typ), newVersion); err != nil {
				return fmt.Errorf("inserting param %s: %w", key, err)
			}
		}

		s.log.Info().Str("strategy", strategyCode).Int64("version", newVersion).
			Int("params", len(params)).Msg("parameter version saved")
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompareStrategyParams diffs newParams against the active set. An unknown
// strategy compares against the empty set.
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
