// Package csvfile loads daily bars from a user-supplied CSV file and
// writes bars in the same layout for the download cache.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/macross/internal/collector"
	"github.com/newthinker/macross/internal/core"
	"go.uber.org/zap"
)

var header = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04:05-07:00"}

// CSVFile implements collector.Collector over a local file
type CSVFile struct {
	path   string
	logger *zap.Logger
}

// New creates a collector reading path
func New(path string, logger *zap.Logger) *CSVFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVFile{path: path, logger: logger.Named("csv")}
}

func (c *CSVFile) Name() string {
	return "csv"
}

func (c *CSVFile) Init(cfg collector.Config) error {
	if file, ok := cfg.Extra["file"].(string); ok && file != "" {
		c.path = file
	}
	if c.path == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("csv file path"))
	}
	return nil
}

// FetchHistory reads the file and keeps bars in [start, end). A zero start
// or end leaves that side unbounded.
func (c *CSVFile) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("opening %s: %w", c.path, err))
	}
	defer f.Close()

	bars, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}

	kept := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && !b.Time.Before(end) {
			continue
		}
		b.Symbol = symbol
		b.Interval = "1d"
		kept = append(kept, b)
	}

	c.logger.Debug("loaded csv",
		zap.String("path", c.path),
		zap.Int("rows", len(bars)),
		zap.Int("in_range", len(kept)),
	)
	return kept, nil
}

// columns records where each field lives in a row
type columns struct {
	date, open, high, low, close, volume int
}

// Decode parses bars from CSV. A date column and a close column (or
// "Adj Close") are required. Rows with an empty or NaN close are skipped.
// The three-line header written by yfinance (Price/Ticker/Date) is accepted.
func Decode(r io.Reader) ([]core.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.WrapError(core.ErrMissingColumn, fmt.Errorf("empty file"))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrMalformedInput, err)
	}

	cols, err := locateColumns(head)
	if err != nil {
		return nil, err
	}

	var bars []core.OHLCV
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, core.WrapError(core.ErrMalformedInput, fmt.Errorf("line %d: %w", line, err))
		}
		if isHeaderContinuation(record) {
			continue
		}

		bar, ok, err := parseRow(record, cols)
		if err != nil {
			return nil, core.WrapError(core.ErrMalformedInput, fmt.Errorf("line %d: %w", line, err))
		}
		if ok {
			bars = append(bars, bar)
		}
	}

	return bars, nil
}

// Encode writes bars with a Date,Open,High,Low,Close,Volume header
func Encode(w io.Writer, bars []core.OHLCV) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			b.Time.Format("2006-01-02"),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func locateColumns(head []string) (columns, error) {
	cols := columns{date: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	adjClose := -1

	for i, name := range head {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "datetime", "timestamp":
			cols.date = i
		case "price":
			// yfinance multi-index header: the index column is labelled Price
			if i == 0 {
				cols.date = i
			}
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "adj close", "adj_close", "adjclose":
			adjClose = i
		case "volume":
			cols.volume = i
		}
	}

	if cols.close < 0 {
		cols.close = adjClose
	}
	if cols.date < 0 {
		return cols, core.WrapError(core.ErrMissingColumn, fmt.Errorf("date"))
	}
	if cols.close < 0 {
		return cols, core.WrapError(core.ErrMissingColumn, fmt.Errorf("close"))
	}
	return cols, nil
}

func isHeaderContinuation(record []string) bool {
	if len(record) == 0 {
		return true
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "ticker" || first == "date" || first == ""
}

func parseRow(record []string, cols columns) (core.OHLCV, bool, error) {
	closeStr := field(record, cols.close)
	if closeStr == "" || strings.EqualFold(closeStr, "nan") {
		return core.OHLCV{}, false, nil
	}
	closePrice, err := strconv.ParseFloat(closeStr, 64)
	if err != nil {
		return core.OHLCV{}, false, fmt.Errorf("close %q: %w", closeStr, err)
	}
	if math.IsNaN(closePrice) {
		return core.OHLCV{}, false, nil
	}

	date, err := parseDate(field(record, cols.date))
	if err != nil {
		return core.OHLCV{}, false, err
	}

	bar := core.OHLCV{
		Close: closePrice,
		Time:  date,
	}
	bar.Open = optionalFloat(record, cols.open)
	bar.High = optionalFloat(record, cols.high)
	bar.Low = optionalFloat(record, cols.low)
	bar.Volume = int64(optionalFloat(record, cols.volume))

	return bar, true, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// optionalFloat returns 0 for absent or unparsable ancillary fields
func optionalFloat(record []string, i int) float64 {
	v, err := strconv.ParseFloat(field(record, i), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
