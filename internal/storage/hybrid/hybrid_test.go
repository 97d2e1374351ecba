package hybrid

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverquant/tierstore/internal/storage"
)

// fakeTier is an in-memory storage.Store. Setting err makes every
// operation fail with it, modeling an unreachable tier.
type fakeTier struct {
	err     error
	healthy bool
	closed  bool

	held      map[string]int
	maxPrices map[string]float64
	minPrices map[string]float64
	incDate   string
	trades    []storage.Trade
	candles   map[string][]storage.Candle
	accounts  map[string]storage.Account
	params    map[string]map[string]storage.ParamValue
	calls     map[string]int
}

func newFakeTier() *fakeTier {
	return &fakeTier{
		healthy:   true,
		held:      map[string]int{},
		maxPrices: map[string]float64{},
		minPrices: map[string]float64{},
		candles:   map[string][]storage.Candle{},
		accounts:  map[string]storage.Account{},
		params:    map[string]map[string]storage.ParamValue{},
		calls:     map[string]int{},
	}
}

func (f *fakeTier) touch(op string) error {
	f.calls[op]++
	return f.err
}

func (f *fakeTier) GetHeldDays(_ context.Context, code, _ string) (int, bool, error) {
	if err := f.touch("GetHeldDays"); err != nil {
		return 0, false, err
	}
	days, ok := f.held[code]
	return days, ok, nil
}

func (f *fakeTier) UpdateHeldDays(_ context.Context, code, _ string, days int) error {
	if err := f.touch("UpdateHeldDays"); err != nil {
		return err
	}
	f.held[code] = days
	return nil
}

func (f *fakeTier) DeleteHeldDays(_ context.Context, code, _ string) error {
	if err := f.touch("DeleteHeldDays"); err != nil {
		return err
	}
	delete(f.held, code)
	return nil
}

func (f *fakeTier) BatchNewHeld(_ context.Context, _ string, codes []string) error {
	if err := f.touch("BatchNewHeld"); err != nil {
		return err
	}
	for _, code := range codes {
		f.held[code] = 0
	}
	return nil
}

func (f *fakeTier) AllHeldInc(_ context.Context, _ string) (bool, error) {
	if err := f.touch("AllHeldInc"); err != nil {
		return false, err
	}
	today := time.Now().Format(storage.DateLayout)
	if f.incDate == today || len(f.held) == 0 {
		return false, nil
	}
	for code := range f.held {
		f.held[code]++
	}
	f.incDate = today
	return true, nil
}

func (f *fakeTier) GetMaxPrice(_ context.Context, code, _ string) (float64, bool, error) {
	if err := f.touch("GetMaxPrice"); err != nil {
		return 0, false, err
	}
	p, ok := f.maxPrices[code]
	return p, ok, nil
}

func (f *fakeTier) UpdateMaxPrice(_ context.Context, code, _ string, price float64) error {
	if err := f.touch("UpdateMaxPrice"); err != nil {
		return err
	}
	f.maxPrices[code] = price
	return nil
}

func (f *fakeTier) GetMinPrice(_ context.Context, code, _ string) (float64, bool, error) {
	if err := f.touch("GetMinPrice"); err != nil {
		return 0, false, err
	}
	p, ok := f.minPrices[code]
	return p, ok, nil
}

func (f *fakeTier) UpdateMinPrice(_ context.Context, code, _ string, price float64) error {
	if err := f.touch("UpdateMinPrice"); err != nil {
		return err
	}
	f.minPrices[code] = price
	return nil
}

func (f *fakeTier) RecordTrade(_ context.Context, t storage.Trade) error {
	if err := f.touch("RecordTrade"); err != nil {
		return err
	}
	f.trades = append(f.trades, t)
	return nil
}

func (f *fakeTier) QueryTrades(_ context.Context, q storage.TradeQuery) ([]storage.Trade, error) {
	if err := f.touch("QueryTrades"); err != nil {
		return nil, err
	}
	var out []storage.Trade
	for _, t := range f.trades {
		if q.Code != "" && t.Code != q.Code {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTier) AggregateTrades(_ context.Context, _, _, _ string, _ storage.GroupBy) ([]storage.TradeAggregate, error) {
	if err := f.touch("AggregateTrades"); err != nil {
		return nil, err
	}
	if len(f.trades) == 0 {
		return nil, nil
	}
	return []storage.TradeAggregate{{Key: f.trades[0].Code, Count: int64(len(f.trades))}}, nil
}

func (f *fakeTier) GetKline(_ context.Context, code, _, _, _ string) ([]storage.Candle, error) {
	if err := f.touch("GetKline"); err != nil {
		return nil, err
	}
	return f.candles[code], nil
}

func (f *fakeTier) BatchGetKline(_ context.Context, codes []string, _, _, _ string) (map[string][]storage.Candle, error) {
	if err := f.touch("BatchGetKline"); err != nil {
		return nil, err
	}
	out := map[string][]storage.Candle{}
	for _, code := range codes {
		if cs, ok := f.candles[code]; ok {
			out[code] = cs
		}
	}
	return out, nil
}

func (f *fakeTier) CreateAccount(_ context.Context, a storage.Account) (bool, error) {
	if err := f.touch("CreateAccount"); err != nil {
		return false, err
	}
	if _, ok := f.accounts[a.AccountID]; ok {
		return false, nil
	}
	f.accounts[a.AccountID] = a
	return true, nil
}

func (f *fakeTier) GetAccount(_ context.Context, accountID string) (*storage.Account, error) {
	if err := f.touch("GetAccount"); err != nil {
		return nil, err
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeTier) UpdateAccountCapital(_ context.Context, accountID string, currentCapital, totalAssets, positionValue float64) (bool, error) {
	if err := f.touch("UpdateAccountCapital"); err != nil {
		return false, err
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return false, nil
	}
	a.CurrentCapital = currentCapital
	a.TotalAssets = totalAssets
	a.PositionValue = positionValue
	f.accounts[accountID] = a
	return true, nil
}

func (f *fakeTier) CreateStrategy(_ context.Context, st storage.Strategy) (bool, error) {
	if err := f.touch("CreateStrategy"); err != nil {
		return false, err
	}
	if _, ok := f.params[st.StrategyCode]; ok {
		return false, nil
	}
	f.params[st.StrategyCode] = map[string]storage.ParamValue{}
	return true, nil
}

func (f *fakeTier) GetStrategyParams(_ context.Context, strategyCode string) (map[string]storage.ParamValue, bool, error) {
	if err := f.touch("GetStrategyParams"); err != nil {
		return nil, false, err
	}
	params, ok := f.params[strategyCode]
	return params, ok, nil
}

func (f *fakeTier) SaveStrategyParams(_ context.Context, strategyCode string, params map[string]storage.ParamValue) (bool, error) {
	if err := f.touch("SaveStrategyParams"); err != nil {
		return false, err
	}
	if _, ok := f.params[strategyCode]; !ok {
		return false, nil
	}
	f.params[strategyCode] = params
	return true, nil
}

func (f *fakeTier) CompareStrategyParams(ctx context.Context, strategyCode string, newParams map[string]storage.ParamValue) (storage.ParamDiff, error) {
	current, ok, err := f.GetStrategyParams(ctx, strategyCode)
	if err != nil {
		return storage.ParamDiff{}, err
	}
	if !ok {
		current = map[string]storage.ParamValue{}
	}
	return storage.DiffParams(current, newParams), nil
}

func (f *fakeTier) HealthCheck(_ context.Context) bool { return f.healthy }

func (f *fakeTier) Close() error {
	f.closed = true
	return nil
}

var errTierDown = errors.New("tier down")

type tiers struct {
	file, hot, warm, cool *fakeTier
}

func newDispatcher(t *testing.T, opts Options) (*Store, tiers) {
	t.Helper()
	tr := tiers{newFakeTier(), newFakeTier(), newFakeTier(), newFakeTier()}
	s, err := New(tr.file, tr.hot, tr.warm, tr.cool, opts, zerolog.Nop())
	require.NoError(t, err)
	return s, tr
}

func TestDefaultOptionsMirrorWrites(t *testing.T) {
	assert.True(t, DefaultOptions.DualWrite)
	assert.True(t, DefaultOptions.AutoFallback)
}

func TestDegradationLogsCarryBackend(t *testing.T) {
	var buf bytes.Buffer
	tr := tiers{newFakeTier(), newFakeTier(), newFakeTier(), newFakeTier()}
	s, err := New(tr.file, tr.hot, tr.warm, tr.cool,
		Options{DualWrite: true, AutoFallback: true}, zerolog.New(&buf))
	require.NoError(t, err)
	ctx := context.Background()

	tr.hot.err = errTierDown
	tr.file.held["SH600000"] = 4
	_, _, err = s.GetHeldDays(ctx, "SH600000", "acct")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"backend":"redis"`)
	assert.Contains(t, buf.String(), `"op":"GetHeldDays"`)

	buf.Reset()
	tr.warm.err = errTierDown
	_, err = s.CreateAccount(ctx, storage.Account{AccountID: "acct"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"backend":"mysql"`)
	assert.Contains(t, buf.String(), `"op":"CreateAccount"`)

	buf.Reset()
	tr.cool.err = errTierDown
	require.NoError(t, s.RecordTrade(ctx, storage.Trade{AccountID: "acct", Code: "SH600000"}))
	assert.Contains(t, buf.String(), `"backend":"clickhouse"`)
	assert.Contains(t, buf.String(), `"op":"RecordTrade"`)
}

func TestNewRequiresFileTier(t *testing.T) {
	_, err := New(nil, newFakeTier(), nil, nil, Options{}, zerolog.Nop())
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestPositionReadIsFinalOnHealthyHot(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	// The file tier has stale state; a healthy HOT tier's answer wins even
	// when the key is absent there.
	tr.file.held["SH600000"] = 9

	_, ok, err := s.GetHeldDays(ctx, "SH600000", "acct")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, tr.file.calls["GetHeldDays"])

	tr.hot.held["SH600000"] = 3
	days, ok, err := s.GetHeldDays(ctx, "SH600000", "acct")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, days)
}

func TestPositionReadFallsBackOnHotFailure(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	tr.hot.err = errTierDown
	tr.file.held["SH600000"] = 9

	days, ok, err := s.GetHeldDays(ctx, "SH600000", "acct")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, days)
}

func TestPositionReadNoFallbackWhenDisabled(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: false})
	tr.hot.err = errTierDown
	tr.file.held["SH600000"] = 9

	_, _, err := s.GetHeldDays(context.Background(), "SH600000", "acct")
	assert.ErrorIs(t, err, errTierDown)
	assert.Zero(t, tr.file.calls["GetHeldDays"])
}

func TestInvalidArgumentNeverFallsBack(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	tr.cool.err = storage.Invalidf("bad query")

	_, err := s.QueryTrades(context.Background(), storage.TradeQuery{AccountID: "acct"})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	assert.Zero(t, tr.file.calls["QueryTrades"])
}

func TestWriteGoesToPrimaryOnly(t *testing.T) {
	s, tr := newDispatcher(t, Options{})
	ctx := context.Background()

	require.NoError(t, s.UpdateHeldDays(ctx, "SH600000", "acct", 5))
	assert.Equal(t, 5, tr.hot.held["SH600000"])
	assert.Zero(t, tr.file.calls["UpdateHeldDays"])
}

func TestDualWriteHitsBothSides(t *testing.T) {
	s, tr := newDispatcher(t, Options{DualWrite: true})
	ctx := context.Background()

	require.NoError(t, s.UpdateHeldDays(ctx, "SH600000", "acct", 5))
	assert.Equal(t, 5, tr.hot.held["SH600000"])
	assert.Equal(t, 5, tr.file.held["SH600000"])
}

func TestWriteSurvivesPrimaryFailure(t *testing.T) {
	s, tr := newDispatcher(t, Options{})
	ctx := context.Background()

	tr.hot.err = errTierDown
	require.NoError(t, s.UpdateHeldDays(ctx, "SH600000", "acct", 5))
	assert.Equal(t, 5, tr.file.held["SH600000"])
}

func TestWriteFailsWhenBothSidesFail(t *testing.T) {
	s, tr := newDispatcher(t, Options{})
	tr.hot.err = errTierDown
	tr.file.err = errors.New("disk full")

	err := s.UpdateHeldDays(context.Background(), "SH600000", "acct", 5)
	assert.ErrorIs(t, err, errTierDown, "primary error is reported")
}

func TestAllHeldIncPrimaryAnswerWins(t *testing.T) {
	s, tr := newDispatcher(t, Options{DualWrite: true})
	ctx := context.Background()

	tr.hot.held["SH600000"] = 1
	tr.file.held["SH600000"] = 1

	done, err := s.AllHeldInc(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 2, tr.hot.held["SH600000"])
	assert.Equal(t, 2, tr.file.held["SH600000"], "dual write keeps the file marker in step")

	done, err = s.AllHeldInc(ctx, "acct")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestAllHeldIncFallsBackToFile(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	tr.hot.err = errTierDown
	tr.file.held["SH600000"] = 1

	done, err := s.AllHeldInc(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 2, tr.file.held["SH600000"])
}

func TestQueryTradesEmptyResultFallsBack(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	tr.file.trades = []storage.Trade{{Code: "SH600000", AccountID: "acct"}}

	trades, err := s.QueryTrades(ctx, storage.TradeQuery{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "SH600000", trades[0].Code)

	// Once the primary has data it serves the read.
	tr.cool.trades = []storage.Trade{{Code: "SZ000001", AccountID: "acct"}}
	trades, err = s.QueryTrades(ctx, storage.TradeQuery{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "SZ000001", trades[0].Code)
}

func TestGetKlineFallsBackOnErrorAndEmpty(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	tr.file.candles["SH600000"] = []storage.Candle{{Code: "SH600000", Date: "2024-03-15"}}

	candles, err := s.GetKline(ctx, "SH600000", "2024-01-01", "2024-12-31", storage.FreqDaily)
	require.NoError(t, err)
	assert.Len(t, candles, 1, "empty primary result degrades to file")

	tr.cool.err = errTierDown
	candles, err = s.GetKline(ctx, "SH600000", "2024-01-01", "2024-12-31", storage.FreqDaily)
	require.NoError(t, err)
	assert.Len(t, candles, 1, "primary failure degrades to file")
}

func TestGetAccountFallsBackWhenUnknownToPrimary(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	tr.file.accounts["acct"] = storage.Account{AccountID: "acct", AccountName: "file copy"}

	a, err := s.GetAccount(ctx, "acct")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "file copy", a.AccountName)

	tr.warm.accounts["acct"] = storage.Account{AccountID: "acct", AccountName: "warm copy"}
	a, err = s.GetAccount(ctx, "acct")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "warm copy", a.AccountName)
}

func TestGetStrategyParamsEmptySetFallsBack(t *testing.T) {
	s, tr := newDispatcher(t, Options{AutoFallback: true})
	ctx := context.Background()

	// Known on the primary but with no parameters; the file tier carries
	// the set.
	tr.warm.params["wencai_v1"] = map[string]storage.ParamValue{}
	tr.file.params["wencai_v1"] = map[string]storage.ParamValue{
		"hold_days": storage.IntParam(30),
	}

	params, ok, err := s.GetStrategyParams(ctx, "wencai_v1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, params, 1)
	assert.True(t, params["hold_days"].Equal(storage.IntParam(30)))
}

func TestCreateAccountDuplicateOnBothSides(t *testing.T) {
	s, tr := newDispatcher(t, Options{DualWrite: true})
	ctx := context.Background()

	acct := storage.Account{AccountID: "acct", Broker: storage.BrokerQMT, InitialCapital: 1000}
	created, err := s.CreateAccount(ctx, acct)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, tr.warm.accounts, "acct")
	assert.Contains(t, tr.file.accounts, "acct")

	created, err = s.CreateAccount(ctx, acct)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestNilTiersDegradeToFileOnly(t *testing.T) {
	file := newFakeTier()
	s, err := New(file, nil, nil, nil, Options{}, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.UpdateHeldDays(ctx, "SH600000", "acct", 5))
	days, ok, err := s.GetHeldDays(ctx, "SH600000", "acct")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, days)
}

func TestStatusAndClose(t *testing.T) {
	s, tr := newDispatcher(t, Options{})
	tr.warm.healthy = false

	st := s.Status(context.Background())
	assert.True(t, st.File)
	assert.True(t, st.Redis)
	assert.False(t, st.MySQL)
	assert.True(t, st.ClickHouse)
	assert.True(t, s.HealthCheck(context.Background()))

	require.NoError(t, s.Close())
	assert.True(t, tr.file.closed)
	assert.True(t, tr.hot.closed)
	assert.True(t, tr.warm.closed)
	assert.True(t, tr.cool.closed)
}
