package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yahooFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "1321.T", "currency": "JPY", "gmtoffset": 32400},
      "timestamp": [1706655600, 1706742000, 1706828400],
      "indicators": {"quote": [{
        "open":   [100.0, null, 101.0],
        "high":   [101.0, null, 103.0],
        "low":    [99.0, null, 100.0],
        "close":  [100.5, null, 102.25],
        "volume": [1000, null, 2000]
      }]}
    }],
    "error": null
  }
}`

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"period1":  r.URL.Query().Get("period1"),
			"period2":  r.URL.Query().Get("period2"),
			"interval": r.URL.Query().Get("interval"),
		}
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL

	start := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	bars, err := f.FetchDailyBars(context.Background(), "1321.T", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/1321.T", gotPath)
	assert.Equal(t, "1706572800", gotQuery["period1"])
	assert.Equal(t, "1706918400", gotQuery["period2"])
	assert.Equal(t, "1d", gotQuery["interval"])

	require.Len(t, bars, 2, "null bar should be skipped")
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), bars[0].Date, "date must be exchange-local")
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, 102.25, bars[1].Close)
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`},
		{"bad json", http.StatusOK, `{"chart":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewYahooFetcher("", time.Second)
			f.BaseURL = srv.URL
			_, err := f.FetchDailyBars(context.Background(), "NOPE", testStart, testEnd)
			assert.Error(t, err)
		})
	}
}
