package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"SignalFoundry/internal/model"
)

var ErrMissingColumn = errors.New("required column missing")

var requiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

var columnAliases = map[string]string{
	"date":     "timestamp",
	"datetime": "timestamp",
	"time":     "timestamp",
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// NormalizeColumn maps loosely named headers onto the canonical schema:
// "Close", " close ", "Close_AAPL", "Close (AAPL)" and "CLOSE" all become
// "close". Unknown headers are returned lowercased.
func NormalizeColumn(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if i := strings.Index(s, " ("); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	if canonical, ok := canonicalColumn(s); ok {
		return canonical
	}
	if i := strings.Index(s, "_"); i > 0 {
		if canonical, ok := canonicalColumn(s[:i]); ok {
			return canonical
		}
	}
	return s
}

func canonicalColumn(s string) (string, bool) {
	if alias, ok := columnAliases[s]; ok {
		return alias, true
	}
	for _, c := range requiredColumns {
		if s == c {
			return c, true
		}
	}
	return "", false
}

// ParseCSV reads a price table. Rows with an empty required field are
// dropped; unparsable values are errors. Bars are returned in time order.
func ParseCSV(r io.Reader) ([]model.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(requiredColumns))
	for i, h := range header {
		name := NormalizeColumn(h)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(missing, ", "), ErrMissingColumn)
	}

	var bars []model.OHLCV
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if hasEmpty(rec, idx) {
			continue
		}

		ts, err := parseTime(rec[idx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var vals [5]float64
		for j, c := range requiredColumns[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[c]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, c, err)
			}
			vals[j] = v
		}
		bars = append(bars, model.OHLCV{
			Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func hasEmpty(rec []string, idx map[string]int) bool {
	for _, c := range requiredColumns {
		i := idx[c]
		if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return true
		}
	}
	return false
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CSVFetcher implements Fetcher over local files. Path may be a single file
// or a directory holding <SYMBOL>.csv files.
type CSVFetcher struct {
	Path string
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	path := f.Path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, symbol+".csv")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	bars, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
