// Package migrate moves file-tier data into the database tiers and checks
// consistency between them: position JSON documents into Redis, trade and
// candle CSV files into ClickHouse, account and strategy documents into
// MySQL, plus the reverse export path.
package migrate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Default batch sizes per record class.
const (
	PositionBatchSize = 100
	TradeBatchSize    = 1000
	KlineBatchSize    = 10000
)

// Report summarizes one migration task.
type Report struct {
	Task    string
	Total   int
	Success int
	Failed  int
	Skipped int
	Elapsed time.Duration
}

// Throughput returns successful records per second.
func (r Report) Throughput() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Success) / secs
}

// String renders the one-line operator summary.
func (r Report) String() string {
	return fmt.Sprintf("%s: total=%d success=%d failed=%d skipped=%d elapsed=%s throughput=%.0f/s",
		r.Task, r.Total, r.Success, r.Failed, r.Skipped, r.Elapsed.Round(time.Millisecond), r.Throughput())
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV loads a CSV file into header-keyed rows. Files written with the
// system codepage are decoded as GBK when not valid UTF-8.
func readCSV(path string) (header []string, rows [][]string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, decErr := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if decErr != nil {
			return nil, nil, fmt.Errorf("decoding %s: %w", path, decErr)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// columnIndex maps alias groups onto header positions. Each canonical name
// resolves to the first alias present in the header.
func columnIndex(header []string, aliases map[string][]string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}
	cols := make(map[string]int)
	for canonical, names := range aliases {
		for _, name := range names {
			if i, ok := pos[name]; ok {
				cols[canonical] = i
				break
			}
		}
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
