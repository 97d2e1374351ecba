package mysqlstore

import (
	"context"
	"fmt"
)

// schemaDDL creates every WARM tier table. Statements are idempotent so
// InitSchema can run on every startup.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS account (
		id INT AUTO_INCREMENT PRIMARY KEY,
		account_id VARCHAR(50) NOT NULL,
		account_name VARCHAR(100) NOT NULL,
		broker ENUM('QMT','GM','TDX') NOT NULL,
		initial_capital DECIMAL(20,2) NOT NULL,
		current_capital DECIMAL(20,2) NULL,
		total_assets DECIMAL(20,2) NULL,
		position_value DECIMAL(20,2) NULL,
		status ENUM('active','inactive','suspended') NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_account_id (account_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS strategy (
		id INT AUTO_INCREMENT PRIMARY KEY,
		strategy_name VARCHAR(100) NOT NULL,
		strategy_code VARCHAR(50) NOT NULL,
		strategy_type ENUM('wencai','remote','technical') NOT NULL,
		version VARCHAR(20) NOT NULL,
		status ENUM('active','testing','inactive') NOT NULL DEFAULT 'active',
		description TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_strategy_name (strategy_name),
		UNIQUE KEY uq_strategy_code (strategy_code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS account_strategy (
		id INT AUTO_INCREMENT PRIMARY KEY,
		account_id INT NOT NULL,
		strategy_id INT NOT NULL,
		allocated_capital DECIMAL(20,2) NOT NULL,
		risk_limit DECIMAL(5,2) NOT NULL,
		status ENUM('active','paused') NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_account_strategy (account_id, strategy_id),
		FOREIGN KEY (account_id) REFERENCES account(id),
		FOREIGN KEY (strategy_id) REFERENCES strategy(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS strategy_param (
		id INT AUTO_INCREMENT PRIMARY KEY,
		strategy_id INT NOT NULL,
		param_key VARCHAR(100) NOT NULL,
		param_value TEXT NOT NULL,
		param_type ENUM('int','float','string','json') NOT NULL,
		version INT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		remark VARCHAR(200) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_strategy_param_version (strategy_id, param_key, version),
		KEY idx_strategy_active (strategy_id, param_key, is_active),
		FOREIGN KEY (strategy_id) REFERENCES strategy(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL,
		password_hash VARCHAR(128) NOT NULL,
		email VARCHAR(100) NULL,
		status ENUM('active','inactive','locked') NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_username (username),
		UNIQUE KEY uq_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS role (
		id INT AUTO_INCREMENT PRIMARY KEY,
		role_name VARCHAR(50) NOT NULL,
		description VARCHAR(200) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_role_name (role_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS permission (
		id INT AUTO_INCREMENT PRIMARY KEY,
		permission_name VARCHAR(50) NOT NULL,
		resource VARCHAR(50) NOT NULL,
		action VARCHAR(50) NOT NULL,
		description VARCHAR(200) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_permission_name (permission_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_role (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		role_id INT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_user_role (user_id, role_id),
		FOREIGN KEY (user_id) REFERENCES user(id),
		FOREIGN KEY (role_id) REFERENCES role(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS role_permission (
		id INT AUTO_INCREMENT PRIMARY KEY,
		role_id INT NOT NULL,
		permission_id INT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_role_permission (role_id, permission_id),
		FOREIGN KEY (role_id) REFERENCES role(id),
		FOREIGN KEY (permission_id) REFERENCES permission(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// InitSchema creates every table if missing.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	s.log.Info().Int("tables", len(schemaDDL)).Msg("schema ready")
	return nil
}
