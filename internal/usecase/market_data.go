package usecase

import (
	"context"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	scache "BTCWatch/internal/service/cache"
)

const currenciesCacheKey = "coinbase:currencies"

// MarketData is the facade the presentation layer talks to. It composes the
// spot and candle resolvers with stale-served currency metadata.
type MarketData struct {
	spot        *SpotPriceResolver
	candles     *CandleWindowBuilder
	currencies  drepo.CurrencySource
	meta        *scache.StaleCache[[]models.CurrencyInfo]
	metadataTTL time.Duration
}

// NewMarketData creates the facade.
func NewMarketData(
	spot *SpotPriceResolver,
	candles *CandleWindowBuilder,
	currencies drepo.CurrencySource,
	meta *scache.StaleCache[[]models.CurrencyInfo],
	metadataTTL time.Duration,
) *MarketData {
	if metadataTTL == 0 {
		metadataTTL = 24 * time.Hour
	}
	return &MarketData{
		spot:        spot,
		candles:     candles,
		currencies:  currencies,
		meta:        meta,
		metadataTTL: metadataTTL,
	}
}

// Spot resolves the current price in currency.
func (m *MarketData) Spot(ctx context.Context, currency string) (models.SpotPrice, error) {
	return m.spot.GetSpotPrice(ctx, currency)
}

// Candles resolves the converted series for a raw window code.
func (m *MarketData) Candles(ctx context.Context, window, currency string) (*models.CandlesResponse, error) {
	w, err := drepo.ParseWindow(window)
	if err != nil {
		return nil, err
	}

	candles, err := m.candles.GetCandles(ctx, w, currency)
	if err != nil {
		return nil, err
	}

	return &models.CandlesResponse{
		Window:   string(w),
		Currency: currency,
		Count:    len(candles),
		Candles:  candles,
	}, nil
}

// Currencies returns cached currency metadata, serving a stale copy when the
// upstream is down.
func (m *MarketData) Currencies(ctx context.Context, forceRefresh bool) ([]models.CurrencyInfo, error) {
	return m.meta.Get(ctx, currenciesCacheKey, m.metadataTTL, forceRefresh, m.currencies.Currencies)
}
