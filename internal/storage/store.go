// Package storage defines the uniform operation set shared by every storage
// tier of the trading platform: the in-memory HOT tier (Redis), the
// relational WARM tier (MySQL), the columnar COOL tier (ClickHouse), the
// on-disk file tier, and the hybrid dispatcher that composes them.
//
// Each backend implements the full Store interface but only supports the
// operation classes natural to its tier; everything else returns an error
// wrapping ErrUnsupported. The hybrid dispatcher is the only implementation
// that supports every operation.
package storage

import "context"

// PositionStore covers the per-account holding-day counters and running
// high/low price marks queried on every tick.
type PositionStore interface {
	// GetHeldDays returns the holding days for a position, or ok=false if
	// there is no record for (code, account).
	GetHeldDays(ctx context.Context, code, accountID string) (days int, ok bool, err error)

	// UpdateHeldDays overwrites the holding days for a position.
	// days must be >= 0.
	UpdateHeldDays(ctx context.Context, code, accountID string, days int) error

	// DeleteHeldDays removes a position record. Deleting an absent record
	// is not an error.
	DeleteHeldDays(ctx context.Context, code, accountID string) error

	// BatchNewHeld initializes every code to zero holding days. Existing
	// entries are overwritten to zero.
	BatchNewHeld(ctx context.Context, accountID string, codes []string) error

	// AllHeldInc increments every holding-day entry of the account by one,
	// at most once per calendar day. It returns true only when it performed
	// the increment; repeated calls on the same day return false and leave
	// state untouched. The increment and the date-marker update are atomic
	// with respect to concurrent callers.
	AllHeldInc(ctx context.Context, accountID string) (bool, error)

	// GetMaxPrice returns the highest price seen since the position opened,
	// or ok=false if untracked.
	GetMaxPrice(ctx context.Context, code, accountID string) (price float64, ok bool, err error)

	// UpdateMaxPrice overwrites the high mark. price must be > 0 and is
	// stored rounded to 3 decimal places.
	UpdateMaxPrice(ctx context.Context, code, accountID string, price float64) error

	// GetMinPrice returns the lowest price seen since the position opened,
	// or ok=false if untracked.
	GetMinPrice(ctx context.Context, code, accountID string) (price float64, ok bool, err error)

	// UpdateMinPrice overwrites the low mark. price must be > 0 and is
	// stored rounded to 3 decimal places.
	UpdateMinPrice(ctx context.Context, code, accountID string, price float64) error
}

// TradeStore covers the append-only trade record log.
type TradeStore interface {
	// RecordTrade appends one trade. Date and Amount are derived from the
	// timestamp and price*volume; any values supplied on the input are
	// recomputed.
	RecordTrade(ctx context.Context, t Trade) error

	// QueryTrades returns trades matching the AND of all set filters,
	// ordered by timestamp descending.
	QueryTrades(ctx context.Context, q TradeQuery) ([]Trade, error)

	// AggregateTrades groups the account's trades in [startDate, endDate]
	// by the given dimension and returns per-group count, total volume and
	// total amount, ordered by total amount descending.
	AggregateTrades(ctx context.Context, accountID, startDate, endDate string, groupBy GroupBy) ([]TradeAggregate, error)
}

// KlineStore covers daily candle (OHLCV) history.
type KlineStore interface {
	// GetKline returns the daily candles for one code in [startDate,
	// endDate], ordered by date ascending. Only FreqDaily is supported.
	GetKline(ctx context.Context, code, startDate, endDate, frequency string) ([]Candle, error)

	// BatchGetKline returns candles for multiple codes keyed by code.
	// Callers should keep len(codes) <= 100.
	BatchGetKline(ctx context.Context, codes []string, startDate, endDate, frequency string) (map[string][]Candle, error)
}

// AccountStore covers trading-account records.
type AccountStore interface {
	// CreateAccount inserts a new account. It returns (false, nil) when the
	// AccountID already exists, and an InvalidArgument error when the
	// broker is unknown or the initial capital is not positive.
	CreateAccount(ctx context.Context, a Account) (bool, error)

	// GetAccount returns the account or nil when unknown.
	GetAccount(ctx context.Context, accountID string) (*Account, error)

	// UpdateAccountCapital refreshes the capital columns. It returns
	// (false, nil) when the account is unknown.
	UpdateAccountCapital(ctx context.Context, accountID string, currentCapital, totalAssets, positionValue float64) (bool, error)
}

// StrategyStore covers strategies and their versioned parameter sets.
type StrategyStore interface {
	// CreateStrategy inserts a new strategy. It returns (false, nil) when
	// the StrategyCode already exists, and an InvalidArgument error when
	// the strategy type is unknown.
	CreateStrategy(ctx context.Context, s Strategy) (bool, error)

	// GetStrategyParams returns the active parameter version deserialized
	// by type tag. ok=false means the strategy is unknown; an existing
	// strategy with no parameters yields an empty, non-nil map.
	GetStrategyParams(ctx context.Context, strategyCode string) (params map[string]ParamValue, ok bool, err error)

	// SaveStrategyParams stores params as a new version: all
	// currently-active rows are deactivated and the new set is inserted at
	// version max+1 with is_active=true, atomically. It returns
	// (false, nil) when the strategy is unknown.
	SaveStrategyParams(ctx context.Context, strategyCode string, params map[string]ParamValue) (bool, error)

	// CompareStrategyParams diffs newParams against the active set.
	CompareStrategyParams(ctx context.Context, strategyCode string, newParams map[string]ParamValue) (ParamDiff, error)
}

// Store is the full operation set. Single-tier implementations return
// ErrUnsupported for classes outside their tier.
type Store interface {
	PositionStore
	TradeStore
	KlineStore
	AccountStore
	StrategyStore

	// HealthCheck reports whether the backend is reachable and usable.
	HealthCheck(ctx context.Context) bool

	// Close releases all owned connections and resources. Idempotent.
	Close() error
}

// FreqDaily is the only candle frequency the store serves.
const FreqDaily = "daily"
