package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/macross/internal/collector"
	"github.com/newthinker/macross/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2015-01-02,206.38,206.88,204.18,205.43,177.45,121465900
2015-01-05,204.17,204.37,201.35,201.72,174.25,169632600
2015-01-06,202.09,202.72,198.86,199.82,172.61,209151400
2015-01-07,201.42,202.72,200.88,,,0
2015-01-08,204.01,206.16,203.99,206.05,177.99,147217800
`

const yfinanceCSV = `Price,Close,High,Low,Open,Volume
Ticker,SPY,SPY,SPY,SPY,SPY
Date,,,,,
2015-01-02,172.59,173.81,171.54,173.38,121465900
2015-01-05,169.47,171.70,169.16,171.60,169632600
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVFile_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*CSVFile)(nil)
}

func TestDecode_Plain(t *testing.T) {
	bars, err := Decode(strings.NewReader(plainCSV))
	require.NoError(t, err)

	// Row with empty close is excluded
	require.Len(t, bars, 4)
	assert.Equal(t, 205.43, bars[0].Close)
	assert.Equal(t, 206.38, bars[0].Open)
	assert.Equal(t, int64(121465900), bars[0].Volume)
	assert.Equal(t, time.Date(2015, 1, 8, 0, 0, 0, 0, time.UTC), bars[3].Time)
}

func TestDecode_YFinanceHeader(t *testing.T) {
	bars, err := Decode(strings.NewReader(yfinanceCSV))
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, 172.59, bars[0].Close)
	assert.Equal(t, 173.38, bars[0].Open)
	assert.Equal(t, time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC), bars[1].Time)
}

func TestDecode_AdjCloseFallback(t *testing.T) {
	bars, err := Decode(strings.NewReader("date,adj close\n2020-03-02,10.5\n2020-03-03,NaN\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 10.5, bars[0].Close)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr *core.Error
	}{
		{"empty", "", core.ErrMissingColumn},
		{"no close", "Date,Open\n2020-01-01,1\n", core.ErrMissingColumn},
		{"no date", "Close\n1\n", core.ErrMissingColumn},
		{"bad close", "Date,Close\n2020-01-01,abc\n", core.ErrMalformedInput},
		{"bad date", "Date,Close\n01/02/2020,1\n", core.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %s", err, tt.wantErr.Code)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	bars, err := Decode(strings.NewReader(plainCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, bars))
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Open,High,Low,Close,Volume\n2015-01-02,206.38,"))

	again, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, bars, again)
}

func TestCSVFile_FetchHistory_Range(t *testing.T) {
	c := New(writeFile(t, plainCSV), nil)

	start := time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2015, 1, 8, 0, 0, 0, 0, time.UTC)
	bars, err := c.FetchHistory(context.Background(), "SPY", start, end, "1d")
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, 201.72, bars[0].Close)
	assert.Equal(t, "SPY", bars[0].Symbol)
	assert.Equal(t, "1d", bars[0].Interval)
}

func TestCSVFile_FetchHistory_Unbounded(t *testing.T) {
	c := New(writeFile(t, plainCSV), nil)

	bars, err := c.FetchHistory(context.Background(), "SPY", time.Time{}, time.Time{}, "1d")
	require.NoError(t, err)
	assert.Len(t, bars, 4)
}

func TestCSVFile_FetchHistory_MissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.csv"), nil)

	_, err := c.FetchHistory(context.Background(), "SPY", time.Time{}, time.Time{}, "1d")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestCSVFile_Init(t *testing.T) {
	c := New("", nil)
	assert.Error(t, c.Init(collector.Config{}))
	assert.NoError(t, c.Init(collector.Config{Extra: map[string]any{"file": "prices.csv"}}))
	assert.Equal(t, "prices.csv", c.path)
}
