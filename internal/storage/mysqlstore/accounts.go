package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/silverquant/tierstore/internal/storage"
)

// CreateAccount inserts a new account row. Returns (false, nil) when the
// account id is already taken.
func (s *Store) CreateAccount(ctx context.Context, a storage.Account) (bool, error) {
	if a.AccountID == "" {
		return false, storage.Invalidf("account id is required")
	}
	if !a.Broker.Valid() {
		return false, storage.Invalidf("broker %q", a.Broker)
	}
	if a.InitialCapital <= 0 {
		return false, storage.Invalidf("initial capital %v must be > 0", a.InitialCapital)
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM account WHERE account_id = ?", a.AccountID).Scan(&exists)
	if err == nil {
		s.log.Warn().Str("account", a.AccountID).Msg("account already exists")
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking account %s: %w", a.AccountID, err)
	}

	status := a.Status
	if status == "" {
		status = storage.AccountActive
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO account
			(account_id, account_name, broker, initial_capital, current_capital, total_assets, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.AccountID, a.AccountName, string(a.Broker),
		a.InitialCapital, a.InitialCapital, a.InitialCapital, string(status))
	if err != nil {
		return false, fmt.Errorf("inserting account %s: %w", a.AccountID, err)
	}
	return true, nil
}

// GetAccount returns the account row or nil when unknown.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*storage.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, account_name, broker, initial_capital,
		       COALESCE(current_capital, 0), COALESCE(total_assets, 0),
		       COALESCE(position_value, 0), status, created_at, updated_at
		FROM account WHERE account_id = ?`, accountID)

	var a storage.Account
	var broker, status string
	err := row.Scan(&a.ID, &a.AccountID, &a.AccountName, &broker,
		&a.InitialCapital, &a.CurrentCapital, &a.TotalAssets, &a.PositionValue,
		&status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading account %s: %w", accountID, err)
	}
	a.Broker = storage.Broker(broker)
	a.Status = storage.AccountStatus(status)
	return &a, nil
}

// ListAccounts returns every account row; used by the export tooling.
func (s *Store) ListAccounts(ctx context.Context) ([]storage.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, account_name, broker, initial_capital,
		       COALESCE(current_capital, 0), COALESCE(total_assets, 0),
		       COALESCE(position_value, 0), status, created_at, updated_at
		FROM account ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []storage.Account
	for rows.Next() {
		var a storage.Account
		var broker, status string
		if err := rows.Scan(&a.ID, &a.AccountID, &a.AccountName, &broker,
			&a.InitialCapital, &a.CurrentCapital, &a.TotalAssets, &a.PositionValue,
			&status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		a.Broker = storage.Broker(broker)
		a.Status = storage.AccountStatus(status)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}
	return accounts, nil
}

// UpdateAccountCapital refreshes the capital columns and updated_at.
// Returns (false, nil) when the account is unknown.
func (s *Store) UpdateAccountCapital(ctx context.Context, accountID string, currentCapital, totalAssets, positionValue float64) (bool, error) {
	if currentCapital < 0 {
		return false, storage.Invalidf("current capital %v must be >= 0", currentCapital)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE account
		SET current_capital = ?, total_assets = ?, position_value = ?, updated_at = NOW()
		WHERE account_id = ?`,
		currentCapital, totalAssets, positionValue, accountID)
	if err != nil {
		return false, fmt.Errorf("updating capital for %s: %w", accountID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading update result for %s: %w", accountID, err)
	}
	if affected == 0 {
		// The row may exist with identical values; distinguish from unknown.
		var exists int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM account WHERE account_id = ?", accountID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Str("account", accountID).Msg("account not found")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("checking account %s: %w", accountID, err)
		}
	}
	return true, nil
}
