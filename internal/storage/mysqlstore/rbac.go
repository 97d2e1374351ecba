package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/silverquant/tierstore/internal/storage"
)

// User, role and permission management. The migrate toolkit provisions
// these from users.json alongside the trading tables.

// CreateUser inserts a user row. Returns (false, nil) when the username is
// taken. passwordHash is stored as-is; hashing happens upstream.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, email string) (bool, error) {
	if username == "" || passwordHash == "" {
		return false, storage.Invalidf("username and password hash are required")
	}
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM user WHERE username = ?", username).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking user %s: %w", username, err)
	}

	var emailVal any
	if email != "" {
		emailVal = email
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO user (username, password_hash, email) VALUES (?, ?, ?)",
		username, passwordHash, emailVal)
	if err != nil {
		return false, fmt.Errorf("inserting user %s: %w", username, err)
	}
	return true, nil
}

// CreateRole inserts a role row. Returns (false, nil) when the name is taken.
func (s *Store) CreateRole(ctx context.Context, roleName, description string) (bool, error) {
	if roleName == "" {
		return false, storage.Invalidf("role name is required")
	}
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM role WHERE role_name = ?", roleName).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking role %s: %w", roleName, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO role (role_name, description) VALUES (?, ?)", roleName, description)
	if err != nil {
		return false, fmt.Errorf("inserting role %s: %w", roleName, err)
	}
	return true, nil
}

// CreatePermission inserts a permission row. Returns (false, nil) when the
// name is taken.
func (s *Store) CreatePermission(ctx context.Context, name, resource, action, description string) (bool, error) {
	if name == "" || resource == "" || action == "" {
		return false, storage.Invalidf("permission name, resource and action are required")
	}
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM permission WHERE permission_name = ?", name).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking permission %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO permission (permission_name, resource, action, description) VALUES (?, ?, ?, ?)",
		name, resource, action, description)
	if err != nil {
		return false, fmt.Errorf("inserting permission %s: %w", name, err)
	}
	return true, nil
}

// AssignRole links a user to a role. Returns (false, nil) when either side
// is unknown or the link already exists.
func (s *Store) AssignRole(ctx context.Context, username, roleName string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO user_role (user_id, role_id)
		SELECT u.id, r.id FROM user u, role r
		WHERE u.username = ? AND r.role_name = ?`, username, roleName)
	if err != nil {
		return false, fmt.Errorf("assigning role %s to %s: %w", roleName, username, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading assign result: %w", err)
	}
	return affected > 0, nil
}

// GrantPermission links a role to a permission. Returns (false, nil) when
// either side is unknown or the link already exists.
func (s *Store) GrantPermission(ctx context.Context, roleName, permissionName string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO role_permission (role_id, permission_id)
		SELECT r.id, p.id FROM role r, permission p
		WHERE r.role_name = ? AND p.permission_name = ?`, roleName, permissionName)
	if err != nil {
		return false, fmt.Errorf("granting %s to %s: %w", permissionName, roleName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading grant result: %w", err)
	}
	return affected > 0, nil
}

// UserPermissions lists the distinct permission names reachable through
// the user's roles.
func (s *Store) UserPermissions(ctx context.Context, username string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.permission_name
		FROM user u
		JOIN user_role ur ON ur.user_id = u.id
		JOIN role_permission rp ON rp.role_id = ur.role_id
		JOIN permission p ON p.id = rp.permission_id
		WHERE u.username = ?
		ORDER BY p.permission_name`, username)
	if err != nil {
		return nil, fmt.Errorf("reading permissions for %s: %w", username, err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning permission row: %w", err)
		}
		perms = append(perms, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permission rows: %w", err)
	}
	return perms, nil
}
