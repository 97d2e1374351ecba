package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/silverquant/tierstore/internal/storage"
)

func sampleTrade(ts, code string, price float64, volume int64) storage.Trade {
	return storage.Trade{
		AccountID: testAccount,
		Timestamp: ts,
		Code:      code,
		Name:      "浦发银行",
		OrderType: storage.OrderTypeBuyTrade,
		Remark:    "open",
		Price:     price,
		Volume:    volume,
	}
}

func TestRecordTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-15 09:31:05", "SH600000", 12.345, 100)))
	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-16 10:02:00", "SZ000001", 8.5, 200)))

	trades, err := s.QueryTrades(ctx, storage.TradeQuery{AccountID: testAccount})
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Newest first.
	assert.Equal(t, "SZ000001", trades[0].Code)
	assert.Equal(t, "SH600000", trades[1].Code)

	got := trades[1]
	assert.Equal(t, "2024-03-15 09:31:05", got.Timestamp)
	assert.Equal(t, "2024-03-15", got.Date)
	assert.Equal(t, "浦发银行", got.Name)
	assert.Equal(t, storage.OrderTypeBuyTrade, got.OrderType)
	assert.Equal(t, 12.345, got.Price)
	assert.Equal(t, int64(100), got.Volume)
	assert.Equal(t, 1234.5, got.Amount, "amount recomputes from price*volume")
}

func TestRecordTradeWritesBOMAndHeader(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RecordTrade(context.Background(), sampleTrade("2024-03-15 09:31:05", "SH600000", 12.3, 100)))

	data, err := os.ReadFile(filepath.Join(s.root, "trades.csv"))
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, data[:3])
	assert.Contains(t, string(data), "日期,时间,代码,名称,类型,注释,成交价,成交量")
}

func TestRecordTradeValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := sampleTrade("2024-03-15 09:31:05", "SH600000", 12.3, 100)
	bad.OrderType = "short"
	assert.ErrorIs(t, s.RecordTrade(ctx, bad), storage.ErrInvalidArgument)

	bad = sampleTrade("2024-03-15 09:31:05", "SH600000", 0, 100)
	assert.ErrorIs(t, s.RecordTrade(ctx, bad), storage.ErrInvalidArgument)

	bad = sampleTrade("2024-03-15 09:31:05", "SH600000", 12.3, -100)
	assert.ErrorIs(t, s.RecordTrade(ctx, bad), storage.ErrInvalidArgument)

	bad = sampleTrade("2024-03-15", "SH600000", 12.3, 100)
	assert.ErrorIs(t, s.RecordTrade(ctx, bad), storage.ErrInvalidArgument)
}

func TestRecordTradeAcceptsZeroVolumeCancel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cancel := sampleTrade("2024-03-15 09:31:05", "SH600000", 12.3, 0)
	cancel.OrderType = storage.OrderTypeCancel
	require.NoError(t, s.RecordTrade(ctx, cancel))

	trades, err := s.QueryTrades(ctx, storage.TradeQuery{AccountID: testAccount})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(0), trades[0].Volume)
	assert.Equal(t, 0.0, trades[0].Amount)
}

func TestQueryTradesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-14 09:31:00", "SH600000", 12.0, 100)))
	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-15 09:31:00", "SH600000", 12.5, 100)))
	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-15 10:00:00", "SZ000001", 8.5, 200)))
	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-16 09:31:00", "SZ000001", 8.6, 200)))

	trades, err := s.QueryTrades(ctx, storage.TradeQuery{AccountID: testAccount, StartDate: "2024-03-15", EndDate: "2024-03-15"})
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	trades, err = s.QueryTrades(ctx, storage.TradeQuery{AccountID: testAccount, Code: "SZ000001"})
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	trades, err = s.QueryTrades(ctx, storage.TradeQuery{AccountID: testAccount, StartDate: "2024-03-15", Code: "SH600000"})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2024-03-15", trades[0].Date)

	_, err = s.QueryTrades(ctx, storage.TradeQuery{})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestQueryTradesMissingFile(t *testing.T) {
	s := newTestStore(t)
	trades, err := s.QueryTrades(context.Background(), storage.TradeQuery{AccountID: testAccount})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestAggregateTrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-15 09:31:00", "SH600000", 10, 100))) // 1000
	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-03-15 10:00:00", "SH600000", 10, 50)))  // 500
	require.NoError(t, s.RecordTrade(ctx, sampleTrade("2024-04-01 09:31:00", "SZ000001", 20, 100))) // 2000

	byStock, err := s.AggregateTrades(ctx, testAccount, "", "", storage.GroupByStock)
	require.NoError(t, err)
	require.Len(t, byStock, 2)
	assert.Equal(t, "SZ000001", byStock[0].Key, "ordered by total amount descending")
	assert.Equal(t, 2000.0, byStock[0].TotalAmount)
	assert.Equal(t, "SH600000", byStock[1].Key)
	assert.Equal(t, int64(2), byStock[1].Count)
	assert.Equal(t, int64(150), byStock[1].TotalVolume)
	assert.Equal(t, 1500.0, byStock[1].TotalAmount)
	assert.Equal(t, "浦发银行", byStock[1].Name, "stock grouping carries a name")

	byMonth, err := s.AggregateTrades(ctx, testAccount, "", "", storage.GroupByMonth)
	require.NoError(t, err)
	require.Len(t, byMonth, 2)
	assert.Equal(t, "202404", byMonth[0].Key)
	assert.Equal(t, "202403", byMonth[1].Key)

	byType, err := s.AggregateTrades(ctx, testAccount, "", "", storage.GroupByType)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "buy_trade", byType[0].Key)

	_, err = s.AggregateTrades(ctx, testAccount, "", "", "week")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestReadTradesEnglishHeaderAliases(t *testing.T) {
	s := newTestStore(t)
	csvData := "date,time,code,name,type,remark,price,volume\n" +
		"2024-03-15,09:31:05,SH600000,PuFa,buy_trade,open,12.345,100\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "trades.csv"), []byte(csvData), 0o644))

	trades, err := s.QueryTrades(context.Background(), storage.TradeQuery{AccountID: testAccount})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "SH600000", trades[0].Code)
	assert.Equal(t, 1234.5, trades[0].Amount)
}

func TestReadTradesGBKEncoded(t *testing.T) {
	s := newTestStore(t)
	csvData := "日期,时间,代码,名称,类型,注释,成交价,成交量\n" +
		"2024-03-15,09:31:05,SH600000,浦发银行,buy_trade,建仓,12.3,100\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "trades.csv"), encoded, 0o644))

	trades, err := s.QueryTrades(context.Background(), storage.TradeQuery{AccountID: testAccount})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "浦发银行", trades[0].Name)
	assert.Equal(t, "建仓", trades[0].Remark)
}

func TestReadTradesSkipsMalformedRows(t *testing.T) {
	s := newTestStore(t)
	csvData := "date,time,code,name,type,remark,price,volume\n" +
		"2024-03-15,09:31:05,SH600000,PuFa,buy_trade,,not-a-price,100\n" +
		"2024-03-15,09:32:00,SZ000001,PingAn,buy_trade,,8.5,200\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "trades.csv"), []byte(csvData), 0o644))

	trades, err := s.QueryTrades(context.Background(), storage.TradeQuery{AccountID: testAccount})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "SZ000001", trades[0].Code)
}

func TestKlinesAreEmptyNotUnsupported(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	candles, err := s.GetKline(ctx, "SH600000", "2024-01-01", "2024-12-31", storage.FreqDaily)
	require.NoError(t, err)
	assert.Empty(t, candles)

	batch, err := s.BatchGetKline(ctx, []string{"SH600000", "SZ000001"}, "2024-01-01", "2024-12-31", storage.FreqDaily)
	require.NoError(t, err)
	assert.Empty(t, batch)

	_, err = s.GetKline(ctx, "SH600000", "2024-01-01", "2024-12-31", "minute")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}
