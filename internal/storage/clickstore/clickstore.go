// Package clickstore is the columnar COOL tier: the append-only trade log
// and daily candle history in ClickHouse MergeTree tables partitioned by
// month. Position, account and strategy operations are out of this tier's
// class.
package clickstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"
)

const backend = "clickhouse"

// Options configures the native-protocol connection.
type Options struct {
	Addr     string
	Database string
	User     string
	Password string
}

// Store implements the trade and candle operation classes on ClickHouse.
type Store struct {
	conn driver.Conn
	log  zerolog.Logger
}

// New opens a native-protocol connection and verifies it with a ping.
func New(ctx context.Context, opts Options, log zerolog.Logger) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging clickhouse %s: %w", opts.Addr, err)
	}
	return &Store{
		conn: conn,
		log:  log.With().Str("component", "clickstore").Logger(),
	}, nil
}

// NewFromConn wraps an existing connection; used by migration tooling and
// tests.
func NewFromConn(conn driver.Conn, log zerolog.Logger) *Store {
	return &Store{
		conn: conn,
		log:  log.With().Str("component", "clickstore").Logger(),
	}
}

// Conn exposes the underlying connection for batch tooling.
func (s *Store) Conn() driver.Conn { return s.conn }

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS trade (
		id UInt64,
		timestamp DateTime,
		date Date,
		account_id String,
		stock_code String,
		stock_name String,
		order_type String,
		remark String,
		price Decimal(10, 3),
		volume UInt32,
		amount Decimal(20, 2),
		strategy_name String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(date)
	ORDER BY (account_id, stock_code, timestamp)
	SETTINGS index_granularity = 8192`,

	`CREATE TABLE IF NOT EXISTS daily_kline (
		id UInt64,
		stock_code String,
		date Date,
		datetime UInt32,
		open Decimal(10, 3),
		high Decimal(10, 3),
		low Decimal(10, 3),
		close Decimal(10, 3),
		volume UInt64,
		amount Decimal(20, 2)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(date)
	ORDER BY (stock_code, date)
	SETTINGS index_granularity = 8192`,
}

// InitSchema creates the trade and daily_kline tables if missing.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	s.log.Info().Msg("schema ready")
	return nil
}

// HealthCheck runs SELECT 1.
func (s *Store) HealthCheck(ctx context.Context) bool {
	var one uint8
	if err := s.conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		return false
	}
	return true
}

// Close releases the connection.
func (s *Store) Close() error { return s.conn.Close() }
