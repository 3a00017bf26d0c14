package usecase

import (
	"context"
	"testing"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"

	"github.com/stretchr/testify/require"
)

type fakeSpotSource struct {
	calls int
	price models.SpotPrice
	err   error
}

func (f *fakeSpotSource) SpotPrice(context.Context) (models.SpotPrice, error) {
	f.calls++
	return f.price, f.err
}

func newSpotResolver(t *testing.T, src drepo.SpotSource, rates drepo.RateSource) *SpotPriceResolver {
	t.Helper()
	return NewSpotPriceResolver(src, newRatesResolver(t, rates), newTestLogger(t), drepo.NopMetrics{})
}

func TestGetSpotPriceUSDPassthrough(t *testing.T) {
	src := &fakeSpotSource{price: models.SpotPrice{Currency: "USD", Amount: 65000, AsOf: time.Now()}}
	rates := &fakeRateSource{pivot: "EUR", respond: fixedRates(nil)}
	r := newSpotResolver(t, src, rates)

	price, err := r.GetSpotPrice(context.Background(), "USD")
	require.NoError(t, err)
	require.Equal(t, 65000.0, price.Amount)
	require.Equal(t, "USD", price.Currency)
	require.Equal(t, 1, src.calls)
	require.Empty(t, rates.calls)
}

func TestGetSpotPriceConverted(t *testing.T) {
	src := &fakeSpotSource{price: models.SpotPrice{Currency: "USD", Amount: 65000}}
	// pivot EUR: USD quoted at 1/0.93 per EUR makes the USD->EUR scalar 0.93
	rates := &fakeRateSource{pivot: "EUR", respond: fixedRates(map[string]float64{"USD": 1 / 0.93})}
	r := newSpotResolver(t, src, rates)

	price, err := r.GetSpotPrice(context.Background(), "EUR")
	require.NoError(t, err)
	require.InDelta(t, 60450.0, price.Amount, 1e-6)
	require.Equal(t, "EUR", price.Currency)
	require.Equal(t, 1, src.calls)
}

func TestGetSpotPriceConversionUnavailable(t *testing.T) {
	src := &fakeSpotSource{price: models.SpotPrice{Currency: "USD", Amount: 65000}}
	rates := &fakeRateSource{pivot: "EUR", respond: fixedRates(nil)}
	r := newSpotResolver(t, src, rates)

	_, err := r.GetSpotPrice(context.Background(), "JPY")
	require.ErrorIs(t, err, models.ErrConversionUnavailable)
}

func TestGetSpotPriceUpstreamFailure(t *testing.T) {
	src := &fakeSpotSource{err: models.ErrUpstreamUnavailable}
	rates := &fakeRateSource{pivot: "EUR", respond: fixedRates(nil)}
	r := newSpotResolver(t, src, rates)

	_, err := r.GetSpotPrice(context.Background(), "USD")
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}
