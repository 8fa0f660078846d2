package yahoo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/macross/internal/collector"
	"github.com/newthinker/macross/internal/core"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {
        "quote": [{
          "open":   [472.16, 470.43, null],
          "high":   [473.67, 471.19, null],
          "low":    [470.49, 468.17, null],
          "close":  [472.65, 468.79, null],
          "volume": [123623700, 103585900, null]
        }]
      }
    }],
    "error": null
  }
}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	y := New(nil)
	if err := y.Init(collector.Config{BaseURL: srv.URL, Timeout: time.Second}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return y
}

func TestYahoo_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New(nil)
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SPY", "SPY"},
		{"spx", "^GSPC"},
		{"SP500", "^GSPC"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
	}

	y := New(nil)
	for _, tc := range tests {
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"SPY", "BRK-B", "^GSPC", "EURUSD=X", "0700.HK"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "SPY;DROP", "A B", strings.Repeat("X", 25)}
	for _, s := range invalid {
		err := validateSymbol(s)
		if !errors.Is(err, core.ErrInvalidSymbol) {
			t.Errorf("validateSymbol(%q) = %v, want INVALID_SYMBOL", s, err)
		}
	}
}

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotUA = r.URL.Path, r.URL.RawQuery, r.UserAgent()
		w.Write([]byte(chartFixture))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	bars, err := y.FetchHistory(context.Background(), "SPY", start, end, "1d")
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}

	if gotPath != "/SPY" {
		t.Errorf("path = %s, want /SPY", gotPath)
	}
	if !strings.Contains(gotQuery, "period1=1704067200") || !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if gotUA == "" {
		t.Error("expected a User-Agent header")
	}

	// Third row has a null close and is skipped
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 472.65 || bars[0].Volume != 123623700 {
		t.Errorf("unexpected first bar: %+v", bars[0])
	}
	if got := bars[1].Time.Format("2006-01-02"); got != "2024-01-03" {
		t.Errorf("second bar date = %s, want 2024-01-03", got)
	}
	if bars[1].Time.Location() != time.UTC {
		t.Error("bar times should be UTC")
	}
}

const adjustedFixture = `{
  "chart": {
    "result": [{
      "timestamp": [1704205800, 1704292200],
      "indicators": {
        "quote": [{
          "open":   [100, 110],
          "high":   [104, 112],
          "low":    [98, 108],
          "close":  [102, 110],
          "volume": [1000, 2000]
        }],
        "adjclose": [{
          "adjclose": [51, null]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahoo_FetchHistory_AdjustedClose(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(adjustedFixture))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := y.FetchHistory(context.Background(), "SPY", start, start.AddDate(0, 0, 5), "1d")
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"adjusted close", bars[0].Close, 51},
		{"scaled open", bars[0].Open, 50},
		{"scaled high", bars[0].High, 52},
		{"scaled low", bars[0].Low, 49},
		{"raw close without adjustment", bars[1].Close, 110},
		{"raw open without adjustment", bars[1].Open, 110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	if bars[0].Volume != 1000 {
		t.Errorf("volume = %d, want 1000", bars[0].Volume)
	}
}

func TestYahoo_FetchHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr *core.Error
	}{
		{"not found", http.StatusNotFound, ``, core.ErrSymbolNotFound},
		{"server error", http.StatusInternalServerError, ``, core.ErrCollectorFailed},
		{"bad json", http.StatusOK, `{`, core.ErrCollectorFailed},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, core.ErrCollectorFailed},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, core.ErrNoData},
		{"all null closes", http.StatusOK, `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"close":[null]}]}}]}}`, core.ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := y.FetchHistory(context.Background(), "SPY", time.Now().AddDate(0, -1, 0), time.Now(), "1d")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %s", err, tt.wantErr.Code)
			}
		})
	}
}

func TestYahoo_FetchHistory_InvalidSymbol(t *testing.T) {
	y := New(nil)
	_, err := y.FetchHistory(context.Background(), "", time.Now(), time.Now(), "1d")
	if !errors.Is(err, core.ErrInvalidSymbol) {
		t.Errorf("expected INVALID_SYMBOL, got %v", err)
	}
}

func TestYahoo_InitProxy(t *testing.T) {
	y := New(nil)
	if err := y.Init(collector.Config{Proxy: "http://127.0.0.1:3128"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := y.Init(collector.Config{Proxy: "://bad"}); err == nil {
		t.Error("expected error for malformed proxy url")
	}
}
