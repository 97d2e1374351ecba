// Package mysqlstore is the relational WARM tier: accounts, strategies,
// versioned strategy parameters, and the user/role/permission tables.
// Position, trade and candle operations are out of this tier's class.
package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/rs/zerolog"
)

const backend = "mysql"

// Store implements the account and strategy operation classes on MySQL.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New opens the connection pool and verifies connectivity.
func New(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With().Str("component", "mysqlstore").Logger(),
	}, nil
}

// NewFromDB wraps an existing pool; used by migration tooling and tests.
func NewFromDB(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "mysqlstore").Logger(),
	}
}

// DB exposes the underlying pool for batch tooling.
func (s *Store) DB() *sql.DB { return s.db }

// withTransaction runs fn inside a transaction, rolling back on error or
// panic and committing otherwise.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// HealthCheck runs SELECT 1.
func (s *Store) HealthCheck(ctx context.Context) bool {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		return false
	}
	return true
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }
