package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BTCWatch/internal/domain/models"
	pcache "BTCWatch/pkg/cache"
	xlogger "BTCWatch/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type stubMarketService struct {
	spotCalls    int
	candlesCalls int
	spot         models.SpotPrice
	spotErr      error
	candles      *models.CandlesResponse
	candlesErr   error
	currencies   []models.CurrencyInfo
}

func (s *stubMarketService) Spot(_ context.Context, currency string) (models.SpotPrice, error) {
	s.spotCalls++
	if s.spotErr != nil {
		return models.SpotPrice{}, s.spotErr
	}
	out := s.spot
	out.Currency = currency
	return out, nil
}

func (s *stubMarketService) Candles(context.Context, string, string) (*models.CandlesResponse, error) {
	s.candlesCalls++
	return s.candles, s.candlesErr
}

func (s *stubMarketService) Currencies(context.Context, bool) ([]models.CurrencyInfo, error) {
	return s.currencies, nil
}

func newTestHandler(t *testing.T, svc MarketService, respCache pcache.Service) *echo.Echo {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	h := NewMarketEchoHandler(l, svc, respCache, CacheTTLs{Spot: 15 * time.Second, Candles: time.Minute})
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doGET(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSpotEndpoint(t *testing.T) {
	svc := &stubMarketService{spot: models.SpotPrice{Amount: 65000, AsOf: time.Now()}}
	e := newTestHandler(t, svc, nil)

	rec := doGET(e, "/api/spot?currency=eur")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"EUR"`)
	require.Contains(t, rec.Body.String(), "65000")
}

func TestSpotEndpointDefaultsToUSD(t *testing.T) {
	svc := &stubMarketService{spot: models.SpotPrice{Amount: 65000}}
	e := newTestHandler(t, svc, nil)

	rec := doGET(e, "/api/spot")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"USD"`)
}

func TestSpotEndpointRejectsBadCurrency(t *testing.T) {
	svc := &stubMarketService{spot: models.SpotPrice{Amount: 65000}}
	e := newTestHandler(t, svc, nil)

	for _, bad := range []string{"EURO", "E1"} {
		rec := doGET(e, "/api/spot?currency="+bad)
		require.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
	require.Zero(t, svc.spotCalls)
}

func TestSpotEndpointResponseCache(t *testing.T) {
	svc := &stubMarketService{spot: models.SpotPrice{Amount: 65000}}
	mem := pcache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	e := newTestHandler(t, svc, mem)

	rec := doGET(e, "/api/spot?currency=USD")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doGET(e, "/api/spot?currency=USD")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "65000")
	require.Equal(t, 1, svc.spotCalls)

	// different currency is a different cache entry
	doGET(e, "/api/spot?currency=EUR")
	require.Equal(t, 2, svc.spotCalls)
}

func TestCandlesEndpoint(t *testing.T) {
	svc := &stubMarketService{candles: &models.CandlesResponse{
		Window:   "24h",
		Currency: "USD",
		Count:    1,
		Candles: []models.Candle{{
			Time: time.Unix(1700000000, 0).UTC(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10,
		}},
	}}
	e := newTestHandler(t, svc, nil)

	rec := doGET(e, "/api/candles?window=24h&currency=USD")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"window":"24h"`)
}

func TestCandlesEndpointRejectsUnknownWindow(t *testing.T) {
	svc := &stubMarketService{}
	e := newTestHandler(t, svc, nil)

	rec := doGET(e, "/api/candles?window=2h")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.candlesCalls)
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.ErrConversionUnavailable, http.StatusServiceUnavailable},
		{models.ErrNoData, http.StatusServiceUnavailable},
		{models.ErrUpstreamUnavailable, http.StatusBadGateway},
		{models.ErrMalformedResponse, http.StatusBadGateway},
	}
	for _, tt := range tests {
		svc := &stubMarketService{spotErr: tt.err}
		e := newTestHandler(t, svc, nil)

		rec := doGET(e, "/api/spot?currency=EUR")
		require.Equal(t, tt.status, rec.Code, tt.err)
	}
}

func TestCurrenciesEndpoint(t *testing.T) {
	svc := &stubMarketService{currencies: []models.CurrencyInfo{
		{ID: "USD", Name: "United States Dollar"},
		{ID: "EUR", Name: "Euro"},
	}}
	e := newTestHandler(t, svc, nil)

	rec := doGET(e, "/api/currencies")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":2`)
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestHandler(t, &stubMarketService{}, nil)

	rec := doGET(e, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
}
