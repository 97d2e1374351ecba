package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/silverquant/tierstore/internal/storage"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReportThroughputAndString(t *testing.T) {
	r := Report{Task: "trades", Total: 10, Success: 8, Failed: 1, Skipped: 1, Elapsed: 2 * time.Second}
	assert.Equal(t, 4.0, r.Throughput())
	assert.Contains(t, r.String(), "trades: total=10 success=8 failed=1 skipped=1")

	assert.Zero(t, Report{Success: 5}.Throughput(), "zero elapsed yields zero throughput")
}

func TestCodeFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"SH600000.csv", "SH600000"},
		{"SZ000001.csv", "SZ000001"},
		{"/data/candles/SH601318_daily.csv", "SH601318"},
		{"600000.csv", "SH600000"},
		{"000001.csv", "SZ000001"},
		{"300750.csv", "SZ300750"},
		{"159915.csv", "159915"},
		{"notacode.csv", "notacode"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFromFilename(tt.path))
		})
	}
}

func TestReadTradeCSVEnglishHeader(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"timestamp,stock_code,stock_name,order_type,price,volume,strategy_name,remark\n"+
			"2024-03-15 09:31:05,SH600000,PuFa,buy_trade,12.345,100,wencai_v1,open\n")

	trades, skipped, err := ReadTradeCSV(path, "55009728", zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, trades, 1)
	got := trades[0]
	assert.Equal(t, "55009728", got.AccountID)
	assert.Equal(t, "2024-03-15 09:31:05", got.Timestamp)
	assert.Equal(t, "SH600000", got.Code)
	assert.Equal(t, storage.OrderTypeBuyTrade, got.OrderType)
	assert.Equal(t, 12.345, got.Price)
	assert.Equal(t, int64(100), got.Volume)
	assert.Equal(t, "wencai_v1", got.StrategyName)
}

func TestReadTradeCSVSplitDateAndTime(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"日期,时间,代码,名称,类型,注释,成交价,成交量\n"+
			"2024-03-15,09:31:05,SH600000,浦发银行,buy_trade,建仓,12.3,100\n")

	trades, skipped, err := ReadTradeCSV(path, "55009728", zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, trades, 1)
	assert.Equal(t, "2024-03-15 09:31:05", trades[0].Timestamp)
	assert.Equal(t, "浦发银行", trades[0].Name)
}

func TestReadTradeCSVDateOnlyTimestamp(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"timestamp,stock_code,price,volume\n"+
			"2024-03-15,SH600000,12.3,100\n")

	trades, _, err := ReadTradeCSV(path, "55009728", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2024-03-15 00:00:00", trades[0].Timestamp)
}

func TestReadTradeCSVSkipsBadRows(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"timestamp,stock_code,price,volume\n"+
			"2024-03-15 09:31:05,SH600000,12.3,100\n"+
			",SH600000,12.3,100\n"+
			"2024-03-15 09:31:05,,12.3,100\n"+
			"2024-03-15 09:31:05,SH600000,not-a-price,100\n"+
			"2024-99-99 09:31:05,SH600000,12.3,100\n")

	trades, skipped, err := ReadTradeCSV(path, "55009728", zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, 4, skipped)
}

func TestReadTradeCSVGBKWithBOMlessEncoding(t *testing.T) {
	raw := "日期,时间,代码,名称,类型,注释,成交价,成交量\n" +
		"2024-03-15,09:31:05,SH600000,浦发银行,buy_trade,建仓,12.3,100\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(raw))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, encoded, 0o644))

	trades, _, err := ReadTradeCSV(path, "55009728", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "浦发银行", trades[0].Name)
}

func TestReadKlineCSV(t *testing.T) {
	path := writeFile(t, "SH600000.csv",
		"\xEF\xBB\xBFdate,open,high,low,close,volume,amount\n"+
			"2024-03-15,12.0,12.5,11.9,12.3,1000000,12300000\n"+
			"2024-03-16,12.3,12.4,12.1,0,1000,0\n"+
			",12.3,12.4,12.1,12.2,1000,12200\n")

	candles, skipped, err := ReadKlineCSV(path, "SH600000")
	require.NoError(t, err)
	assert.Equal(t, 2, skipped, "zero close and empty date rows are skipped")
	require.Len(t, candles, 1)
	got := candles[0]
	assert.Equal(t, "SH600000", got.Code)
	assert.Equal(t, "2024-03-15", got.Date)
	assert.Equal(t, 12.0, got.Open)
	assert.Equal(t, 12.5, got.High)
	assert.Equal(t, 11.9, got.Low)
	assert.Equal(t, 12.3, got.Close)
	assert.Equal(t, int64(1000000), got.Volume)
	assert.Equal(t, 12300000.0, got.Amount)
}

func TestReadKlineCSVChineseHeader(t *testing.T) {
	path := writeFile(t, "600000.csv",
		"日期,开盘,最高,最低,收盘,成交量,成交额\n"+
			"2024-03-15,12.0,12.5,11.9,12.3,1000000,12300000\n")

	candles, skipped, err := ReadKlineCSV(path, "SH600000")
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, candles, 1)
	assert.Equal(t, 12.3, candles[0].Close)
}

func TestColumnIndexPrefersFirstAlias(t *testing.T) {
	header := []string{"code", "stock_code", "price"}
	cols := columnIndex(header, map[string][]string{
		"stock_code": {"stock_code", "code"},
		"price":      {"price"},
	})
	assert.Equal(t, 1, cols["stock_code"], "canonical alias wins over fallback")
	assert.Equal(t, 2, cols["price"])

	row := []string{"a", "b"}
	assert.Equal(t, "b", field(row, cols, "stock_code"))
	assert.Equal(t, "", field(row, cols, "price"), "short rows read as empty fields")
	assert.Equal(t, "", field(row, cols, "missing"))
}
