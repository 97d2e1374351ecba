package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/silverquant/tierstore/internal/storage"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// tradeHeader is the Chinese column header written on file creation:
// date, time, code, name, type, remark, price, volume.
var tradeHeader = []string{"日期", "时间", "代码", "名称", "类型", "注释", "成交价", "成交量"}

// headerAliases maps accepted column names (legacy English exports included)
// onto the canonical Chinese names.
var headerAliases = map[string]string{
	"日期": "日期", "date": "日期",
	"时间": "时间", "time": "时间",
	"代码": "代码", "code": "代码", "stock_code": "代码",
	"名称": "名称", "name": "名称", "stock_name": "名称",
	"类型": "类型", "type": "类型", "order_type": "类型",
	"注释": "注释", "remark": "注释",
	"成交价": "成交价", "price": "成交价",
	"成交量": "成交量", "volume": "成交量",
}

// RecordTrade appends one trade to the CSV log, creating the file with a
// BOM-prefixed header on first write. Date and Amount are recomputed from
// the timestamp and price*volume.
func (s *Store) RecordTrade(_ context.Context, t storage.Trade) error {
	if !t.OrderType.Valid() {
		return storage.Invalidf("order type %q", t.OrderType)
	}
	if t.Price <= 0 {
		return storage.Invalidf("price %v must be > 0", t.Price)
	}
	// Cancel records legitimately carry a zero volume.
	if t.Volume < 0 {
		return storage.Invalidf("volume %d must be >= 0", t.Volume)
	}
	ts, err := t.Time()
	if err != nil {
		return storage.Invalidf("timestamp %q", t.Timestamp)
	}

	path := s.path(fileTrades)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trade log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if _, err := f.Write(utf8BOM); err != nil {
			return fmt.Errorf("writing trade log BOM: %w", err)
		}
		if err := w.Write(tradeHeader); err != nil {
			return fmt.Errorf("writing trade log header: %w", err)
		}
	}
	row := []string{
		ts.Format(storage.DateLayout),
		ts.Format("15:04:05"),
		t.Code,
		t.Name,
		string(t.OrderType),
		t.Remark,
		strconv.FormatFloat(storage.RoundPrice(t.Price), 'f', -1, 64),
		strconv.FormatInt(t.Volume, 10),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("appending trade: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing trade log: %w", err)
	}
	return nil
}

// QueryTrades reads the full log and returns the trades matching every set
// filter, newest first.
func (s *Store) QueryTrades(_ context.Context, q storage.TradeQuery) ([]storage.Trade, error) {
	if q.AccountID == "" {
		return nil, storage.Invalidf("account id is required")
	}

	path := s.path(fileTrades)
	lock := s.lockFor(path)
	lock.Lock()
	trades, err := s.readTrades(path, q.AccountID)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	filtered := trades[:0]
	for _, t := range trades {
		if q.StartDate != "" && t.Date < q.StartDate {
			continue
		}
		if q.EndDate != "" && t.Date > q.EndDate {
			continue
		}
		if q.Code != "" && t.Code != q.Code {
			continue
		}
		filtered = append(filtered, t)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})
	return filtered, nil
}

// AggregateTrades groups the matching trades in memory and orders the
// groups by total amount descending, matching the columnar tier's ordering.
func (s *Store) AggregateTrades(ctx context.Context, accountID, startDate, endDate string, groupBy storage.GroupBy) ([]storage.TradeAggregate, error) {
	if !groupBy.Valid() {
		return nil, storage.Invalidf("group by %q", groupBy)
	}
	trades, err := s.QueryTrades(ctx, storage.TradeQuery{
		AccountID: accountID,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*storage.TradeAggregate)
	for _, t := range trades {
		var key string
		switch groupBy {
		case storage.GroupByStock:
			key = t.Code
		case storage.GroupByDate:
			key = t.Date
		case storage.GroupByMonth:
			if len(t.Date) < 7 {
				continue
			}
			key = t.Date[:4] + t.Date[5:7] // YYYYMM
		case storage.GroupByType:
			key = string(t.OrderType)
		}
		agg, ok := groups[key]
		if !ok {
			agg = &storage.TradeAggregate{Key: key}
			if groupBy == storage.GroupByStock {
				agg.Name = t.Name
			}
			groups[key] = agg
		}
		agg.Count++
		agg.TotalVolume += t.Volume
		agg.TotalAmount += t.Amount
	}

	out := make([]storage.TradeAggregate, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// readTrades loads and parses the whole CSV log. Legacy files written with
// the system codepage are decoded as GBK when the bytes are not valid UTF-8.
func (s *Store) readTrades(path, accountID string) ([]storage.Trade, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading trade log: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, decErr := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if decErr != nil {
			return nil, fmt.Errorf("decoding trade log: %w", decErr)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing trade log: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		if canon, ok := headerAliases[name]; ok {
			cols[canon] = i
		}
	}
	for _, required := range tradeHeader {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("trade log missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	trades := make([]storage.Trade, 0, len(rows)-1)
	for _, row := range rows[1:] {
		price, err := strconv.ParseFloat(field(row, "成交价"), 64)
		if err != nil {
			s.log.Warn().Strs("row", row).Msg("skipping trade row with bad price")
			continue
		}
		volume, err := strconv.ParseInt(field(row, "成交量"), 10, 64)
		if err != nil {
			s.log.Warn().Strs("row", row).Msg("skipping trade row with bad volume")
			continue
		}
		date := field(row, "日期")
		t := storage.Trade{
			AccountID: accountID,
			Timestamp: date + " " + field(row, "时间"),
			Date:      date,
			Code:      field(row, "代码"),
			Name:      field(row, "名称"),
			OrderType: storage.OrderType(field(row, "类型")),
			Remark:    field(row, "注释"),
			Price:     price,
			Volume:    volume,
			Amount:    storage.TradeAmount(price, volume),
		}
		trades = append(trades, t)
	}
	return trades, nil
}
