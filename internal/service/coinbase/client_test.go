package coinbase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	"BTCWatch/internal/service/ratelimit"
	xlogger "BTCWatch/pkg/logger"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	c := New(Config{BaseURL: srv.URL, ProductID: "BTC-USD"}, nil, l, drepo.NopMetrics{})
	return c, srv
}

func TestSpotPrice(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prices/BTC-USD/spot", r.URL.Path)
		w.Write([]byte(`{"amount":"65123.45","currency":"USD"}`))
	}))

	price, err := c.SpotPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, 65123.45, price.Amount)
	require.Equal(t, "USD", price.Currency)
	require.WithinDuration(t, time.Now(), price.AsOf, time.Minute)
}

func TestSpotPriceMalformedAmount(t *testing.T) {
	tests := []string{
		`{"amount":"not-a-number","currency":"USD"}`,
		`{"amount":"-5","currency":"USD"}`,
		`{"amount":"65123.45","currency":""}`,
	}
	for _, body := range tests {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		_, err := c.SpotPrice(context.Background())
		require.ErrorIs(t, err, models.ErrMalformedResponse, body)
	}
}

func TestSpotPriceNonJSONBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))

	_, err := c.SpotPrice(context.Background())
	require.ErrorIs(t, err, models.ErrMalformedResponse)
}

func TestSpotPriceUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.SpotPrice(context.Background())
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestCandles(t *testing.T) {
	var gotQuery map[string]string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/BTC-USD/candles", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"granularity": q.Get("granularity"),
			"start":       q.Get("start"),
			"end":         q.Get("end"),
		}
		// newest-first, as the upstream serves them
		w.Write([]byte(`[
			[1700003600, 99.0, 111.0, 100.0, 110.0, 5.5],
			[1700000000, 95.0, 105.0, 96.0, 100.0, 3.25]
		]`))
	}))

	start := time.Unix(1700000000, 0)
	end := time.Unix(1700007200, 0)
	candles, err := c.Candles(context.Background(), 3600, start, end)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	require.Equal(t, "3600", gotQuery["granularity"])
	require.Equal(t, "1700000000", gotQuery["start"])
	require.Equal(t, "1700007200", gotQuery["end"])

	require.Equal(t, int64(1700003600), candles[0].Time)
	require.Equal(t, 99.0, candles[0].Low)
	require.Equal(t, 111.0, candles[0].High)
	require.Equal(t, 100.0, candles[0].Open)
	require.Equal(t, 110.0, candles[0].Close)
	require.Equal(t, 5.5, candles[0].Volume)
}

func TestCandlesDropsMalformedTuples(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1700003600, 99.0, 111.0, 100.0, 110.0, 5.5],
			[1700000300, 95.0, 105.0],
			["oops", 95.0, 105.0, 96.0, 100.0, 3.25],
			[1700000200, -1.0, 105.0, 96.0, 100.0, 3.25],
			[1700000100, 95.0, 105.0, 96.0, 100.0, -3.25],
			[1700000050, 100.0, 105.0, 90.0, 102.0, 1.0],
			[1700000025, 95.0, 99.0, 96.0, 100.0, 1.0],
			[1700000000, 95.0, 105.0, 96.0, 100.0, 3.25]
		]`))
	}))

	candles, err := c.Candles(context.Background(), 3600, time.Unix(0, 0), time.Unix(1, 0))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.Equal(t, int64(1700003600), candles[0].Time)
	require.Equal(t, int64(1700000000), candles[1].Time)
}

func TestParseTupleRejectsInvertedOHLC(t *testing.T) {
	tests := []struct {
		name  string
		tuple string
	}{
		{"low above open", `[1700000000, 100.0, 105.0, 90.0, 102.0, 1.0]`},
		{"low above close", `[1700000000, 100.0, 105.0, 101.0, 99.0, 1.0]`},
		{"high below open", `[1700000000, 90.0, 95.0, 96.0, 94.0, 1.0]`},
		{"high below close", `[1700000000, 95.0, 99.0, 96.0, 100.0, 1.0]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseTuple(json.RawMessage(tt.tuple))
			require.False(t, ok)
		})
	}

	// the boundary cases are valid: low == open, high == close
	_, ok := parseTuple(json.RawMessage(`[1700000000, 96.0, 100.0, 96.0, 100.0, 1.0]`))
	require.True(t, ok)
}

func TestCandlesEmptyResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	candles, err := c.Candles(context.Background(), 3600, time.Unix(0, 0), time.Unix(1, 0))
	require.NoError(t, err)
	require.Empty(t, candles)
}

func TestCurrencies(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/currencies", r.URL.Path)
		w.Write([]byte(`[
			{"id":"USD","name":"United States Dollar"},
			{"id":"","name":"bogus"},
			{"id":"EUR","name":"Euro"}
		]`))
	}))

	currencies, err := c.Currencies(context.Background())
	require.NoError(t, err)
	require.Len(t, currencies, 2)
	require.Equal(t, "USD", currencies[0].ID)
	require.Equal(t, "Euro", currencies[1].Name)
}

func TestRateLimitedRequestFailsFast(t *testing.T) {
	served := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
		w.Write([]byte(`{"amount":"65000","currency":"USD"}`))
	}))
	c.limiter = ratelimit.New()
	c.capacity = 1
	c.refill = 0

	_, err := c.SpotPrice(context.Background())
	require.NoError(t, err)

	_, err = c.SpotPrice(context.Background())
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	require.Equal(t, 1, served)
}
