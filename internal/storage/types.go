package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Layout constants for the string dates and timestamps that travel through
// the store. Trade timestamps have seconds resolution; dates are plain
// calendar days.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// OrderType enumerates the trade record types.
type OrderType string

const (
	OrderTypeBuyOrder  OrderType = "buy_order"
	OrderTypeSellOrder OrderType = "sell_order"
	OrderTypeBuyTrade  OrderType = "buy_trade"
	OrderTypeSellTrade OrderType = "sell_trade"
	OrderTypeCancel    OrderType = "cancel"
)

// Valid reports whether the order type is one of the enumerated values.
func (o OrderType) Valid() bool {
	switch o {
	case OrderTypeBuyOrder, OrderTypeSellOrder, OrderTypeBuyTrade, OrderTypeSellTrade, OrderTypeCancel:
		return true
	}
	return false
}

// Broker enumerates the supported broker gateways.
type Broker string

const (
	BrokerQMT Broker = "QMT"
	BrokerGM  Broker = "GM"
	BrokerTDX Broker = "TDX"
)

// Valid reports whether the broker is one of the enumerated values.
func (b Broker) Valid() bool {
	return b == BrokerQMT || b == BrokerGM || b == BrokerTDX
}

// AccountStatus enumerates account lifecycle states.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountInactive  AccountStatus = "inactive"
	AccountSuspended AccountStatus = "suspended"
)

// Valid reports whether the status is one of the enumerated values.
func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountInactive || s == AccountSuspended
}

// StrategyType enumerates the strategy families.
type StrategyType string

const (
	StrategyWencai    StrategyType = "wencai"
	StrategyRemote    StrategyType = "remote"
	StrategyTechnical StrategyType = "technical"
)

// Valid reports whether the type is one of the enumerated values.
func (s StrategyType) Valid() bool {
	return s == StrategyWencai || s == StrategyRemote || s == StrategyTechnical
}

// StrategyStatus enumerates strategy lifecycle states.
type StrategyStatus string

const (
	StrategyActive   StrategyStatus = "active"
	StrategyTesting  StrategyStatus = "testing"
	StrategyInactive StrategyStatus = "inactive"
)

// Valid reports whether the status is one of the enumerated values.
func (s StrategyStatus) Valid() bool {
	return s == StrategyActive || s == StrategyTesting || s == StrategyInactive
}

// GroupBy selects the aggregation dimension for AggregateTrades.
type GroupBy string

const (
	GroupByStock GroupBy = "stock"
	GroupByDate  GroupBy = "date"
	GroupByMonth GroupBy = "month"
	GroupByType  GroupBy = "type"
)

// Valid reports whether the dimension is one of the enumerated values.
func (g GroupBy) Valid() bool {
	return g == GroupByStock || g == GroupByDate || g == GroupByMonth || g == GroupByType
}

// Trade is one immutable row of the trade record log.
type Trade struct {
	AccountID    string
	Timestamp    string // TimestampLayout
	Date         string // DateLayout, derived from Timestamp
	Code         string
	Name         string
	OrderType    OrderType
	Remark       string
	Price        float64 // 3dp
	Volume       int64
	Amount       float64 // Price*Volume rounded to 2dp
	StrategyName string
}

// Time parses the trade timestamp.
func (t Trade) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, t.Timestamp)
}

// TradeQuery filters QueryTrades. Empty fields are no filter; AccountID is
// mandatory.
type TradeQuery struct {
	AccountID string
	StartDate string // inclusive, DateLayout
	EndDate   string // inclusive, DateLayout
	Code      string
}

// TradeAggregate is one group row of AggregateTrades. Key holds the group
// value (code, date, YYYYMM month, or order type); Name is only set for
// stock grouping.
type TradeAggregate struct {
	Key         string
	Name        string
	Count       int64
	TotalVolume int64
	TotalAmount float64
}

// Candle is one daily OHLCV bar.
type Candle struct {
	Code   string
	Date   string // DateLayout
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Amount float64
}

// Account is a trading account record.
type Account struct {
	ID             int64
	AccountID      string
	AccountName    string
	Broker         Broker
	InitialCapital float64
	CurrentCapital float64
	TotalAssets    float64
	PositionValue  float64
	Status         AccountStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Strategy is a trading strategy record.
type Strategy struct {
	ID           int64
	StrategyName string
	StrategyCode string
	StrategyType StrategyType
	Version      string
	Status       StrategyStatus
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValueChange is an old/new pair for a modified parameter.
type ValueChange struct {
	Old ParamValue
	New ParamValue
}

// ParamDiff is the result of CompareStrategyParams: set algebra over the
// current active parameter set and a candidate set.
type ParamDiff struct {
	Added    map[string]ParamValue
	Modified map[string]ValueChange
	Deleted  map[string]ParamValue
}

// Empty reports whether the diff carries no changes.
func (d ParamDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// DiffParams computes the ParamDiff between the current set and a candidate
// set. Shared by every tier so the diff semantics cannot drift.
func DiffParams(current, candidate map[string]ParamValue) ParamDiff {
	d := ParamDiff{
		Added:    make(map[string]ParamValue),
		Modified: make(map[string]ValueChange),
		Deleted:  make(map[string]ParamValue),
	}
	for k, v := range candidate {
		old, exists := current[k]
		switch {
		case !exists:
			d.Added[k] = v
		case !old.Equal(v):
			d.Modified[k] = ValueChange{Old: old, New: v}
		}
	}
	for k, v := range current {
		if _, exists := candidate[k]; !exists {
			d.Deleted[k] = v
		}
	}
	return d
}

// RoundPrice rounds a price to the 3 decimal places every tier stores.
func RoundPrice(p float64) float64 {
	f, _ := decimal.NewFromFloat(p).Round(3).Float64()
	return f
}

// TradeAmount computes price*volume rounded to 2 decimal places.
func TradeAmount(price float64, volume int64) float64 {
	f, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(volume)).Round(2).Float64()
	return f
}

// DateOf derives the calendar date from a trade timestamp.
func DateOf(timestamp string) (string, error) {
	ts, err := time.Parse(TimestampLayout, timestamp)
	if err != nil {
		return "", Invalidf("timestamp %q is not %q", timestamp, TimestampLayout)
	}
	return ts.Format(DateLayout), nil
}
