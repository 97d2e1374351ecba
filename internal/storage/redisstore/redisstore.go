// Package redisstore is the in-memory HOT tier: per-account position state
// in Redis hashes, with the once-per-day holding increment done atomically
// in a Lua script. Trade, candle, account and strategy operations are out
// of this tier's class and return ErrUnsupported.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
)

const backend = "redis"

// allHeldIncScript checks the per-account date marker, increments every
// hash field, and sets the marker, all inside one atomic script call. It
// returns the number of incremented positions; 0 means already run today
// or no positions held.
var allHeldIncScript = redis.NewScript(`
local held_key = KEYS[1]
local date_key = KEYS[2]
local today = ARGV[1]

local last_date = redis.call('GET', date_key)
if last_date == today then
    return 0
end

local held_data = redis.call('HGETALL', held_key)
if #held_data == 0 then
    return 0
end

local count = 0
for i = 1, #held_data, 2 do
    local code = held_data[i]
    local days = tonumber(held_data[i + 1])
    redis.call('HSET', held_key, code, days + 1)
    count = count + 1
end

redis.call('SET', date_key, today)

return count
`)

// Options configures the connection pool.
type Options struct {
	Addr     string
	DB       int
	Password string
	PoolSize int
}

// Store implements the position operation class on Redis.
type Store struct {
	client *redis.Client
	log    zerolog.Logger
}

// New builds the client with the tier's standard pool and timeouts and
// verifies connectivity with a ping.
func New(ctx context.Context, opts Options, log zerolog.Logger) (*Store, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 50
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		DB:           opts.DB,
		Password:     opts.Password,
		PoolSize:     poolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", opts.Addr, err)
	}
	return &Store{
		client: client,
		log:    log.With().Str("component", "redisstore").Logger(),
	}, nil
}

// NewFromClient wraps an existing client; used by migration tooling and
// tests that manage the connection themselves.
func NewFromClient(client *redis.Client, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		log:    log.With().Str("component", "redisstore").Logger(),
	}
}

// Client exposes the underlying connection for batch tooling.
func (s *Store) Client() *redis.Client { return s.client }

func heldKey(accountID string) string { return "held_days:" + accountID }
func maxKey(accountID string) string  { return "max_prices:" + accountID }
func minKey(accountID string) string  { return "min_prices:" + accountID }
func dateKey(accountID string) string { return "_inc_date:" + accountID }

// GetHeldDays returns the holding days, or ok=false when the hash has no
// field for the code.
func (s *Store) GetHeldDays(ctx context.Context, code, accountID string) (int, bool, error) {
	val, err := s.client.HGet(ctx, heldKey(accountID), code).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading held days for %s: %w", code, err)
	}
	days, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("held days for %s is not an integer: %w", code, err)
	}
	return days, true, nil
}

// UpdateHeldDays overwrites the holding days for a position.
func (s *Store) UpdateHeldDays(ctx context.Context, code, accountID string, days int) error {
	if days < 0 {
		return storage.Invalidf("held days %d must be >= 0", days)
	}
	if err := s.client.HSet(ctx, heldKey(accountID), code, days).Err(); err != nil {
		return fmt.Errorf("updating held days for %s: %w", code, err)
	}
	return nil
}

// DeleteHeldDays removes a position field. Absent fields are not an error.
func (s *Store) DeleteHeldDays(ctx context.Context, code, accountID string) error {
	if err := s.client.HDel(ctx, heldKey(accountID), code).Err(); err != nil {
		return fmt.Errorf("deleting held days for %s: %w", code, err)
	}
	return nil
}

// BatchNewHeld sets every code to zero days in one HSET round trip.
func (s *Store) BatchNewHeld(ctx context.Context, accountID string, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	fields := make([]any, 0, len(codes)*2)
	for _, code := range codes {
		fields = append(fields, code, 0)
	}
	if err := s.client.HSet(ctx, heldKey(accountID), fields...).Err(); err != nil {
		return fmt.Errorf("initializing %d positions: %w", len(codes), err)
	}
	return nil
}

// AllHeldInc runs the atomic increment script. True means the increment
// was performed in this call.
func (s *Store) AllHeldInc(ctx context.Context, accountID string) (bool, error) {
	today := time.Now().Format(storage.DateLayout)
	n, err := allHeldIncScript.Run(ctx, s.client,
		[]string{heldKey(accountID), dateKey(accountID)}, today).Int()
	if err != nil {
		return false, fmt.Errorf("running held-days increment: %w", err)
	}
	if n > 0 {
		s.log.Debug().Str("account", accountID).Int("positions", n).Msg("held days incremented")
	}
	return n > 0, nil
}

// GetMaxPrice returns the high mark, or ok=false when untracked.
func (s *Store) GetMaxPrice(ctx context.Context, code, accountID string) (float64, bool, error) {
	return s.getPrice(ctx, maxKey(accountID), code)
}

// UpdateMaxPrice overwrites the high mark, stored as a 3dp string.
func (s *Store) UpdateMaxPrice(ctx context.Context, code, accountID string, price float64) error {
	return s.updatePrice(ctx, maxKey(accountID), code, price)
}

// GetMinPrice returns the low mark, or ok=false when untracked.
func (s *Store) GetMinPrice(ctx context.Context, code, accountID string) (float64, bool, error) {
	return s.getPrice(ctx, minKey(accountID), code)
}

// UpdateMinPrice overwrites the low mark, stored as a 3dp string.
func (s *Store) UpdateMinPrice(ctx context.Context, code, accountID string, price float64) error {
	return s.updatePrice(ctx, minKey(accountID), code, price)
}

func (s *Store) getPrice(ctx context.Context, key, code string) (float64, bool, error) {
	val, err := s.client.HGet(ctx, key, code).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading price mark for %s: %w", code, err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("price mark for %s is not numeric: %w", code, err)
	}
	return price, true, nil
}

func (s *Store) updatePrice(ctx context.Context, key, code string, price float64) error {
	if price <= 0 {
		return storage.Invalidf("price %v must be > 0", price)
	}
	val := strconv.FormatFloat(storage.RoundPrice(price), 'f', 3, 64)
	if err := s.client.HSet(ctx, key, code, val).Err(); err != nil {
		return fmt.Errorf("updating price mark for %s: %w", code, err)
	}
	return nil
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) bool {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.Warn().Err(err).Msg("ping failed")
		return false
	}
	return true
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.client.Close() }
