package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	xlogger "BTCWatch/pkg/logger"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

type rateCall struct {
	currency string
	rng      models.DateRange
}

type fakeRateSource struct {
	pivot   string
	calls   []rateCall
	respond func(currency string, rng models.DateRange) ([]models.RateObservation, error)
}

func (f *fakeRateSource) Pivot() string { return f.pivot }

func (f *fakeRateSource) PivotRates(_ context.Context, currency string, rng models.DateRange) ([]models.RateObservation, error) {
	f.calls = append(f.calls, rateCall{currency: currency, rng: rng})
	return f.respond(currency, rng)
}

func fixedRates(values map[string]float64) func(string, models.DateRange) ([]models.RateObservation, error) {
	return func(currency string, _ models.DateRange) ([]models.RateObservation, error) {
		v, ok := values[currency]
		if !ok {
			return nil, nil
		}
		return []models.RateObservation{{Period: "2024-10-10", Value: v}}, nil
	}
}

func newRatesResolver(t *testing.T, src drepo.RateSource) *CrossRateResolver {
	t.Helper()
	return NewCrossRateResolver(src, newTestLogger(t), drepo.NopMetrics{})
}

func TestGetRateIdentityNoNetworkCall(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(nil)}
	r := newRatesResolver(t, src)

	for _, ccy := range []string{"USD", "JPY", "EUR"} {
		rate, err := r.GetRate(context.Background(), ccy, ccy, models.DateRange{})
		require.NoError(t, err)
		require.Equal(t, 1.0, rate.Rate)
	}
	require.Empty(t, src.calls)
}

func TestGetRateBaseIsPivot(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(map[string]float64{"JPY": 160.0})}
	r := newRatesResolver(t, src)

	rate, err := r.GetRate(context.Background(), "EUR", "JPY", models.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 160.0, rate.Rate)
	require.Len(t, src.calls, 1)
	require.Equal(t, "JPY", src.calls[0].currency)
}

func TestGetRateTargetIsPivot(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(map[string]float64{"USD": 1.08})}
	r := newRatesResolver(t, src)

	rate, err := r.GetRate(context.Background(), "USD", "EUR", models.DateRange{})
	require.NoError(t, err)
	require.InDelta(t, 1/1.08, rate.Rate, 1e-9)
	require.Len(t, src.calls, 1)
	require.Equal(t, "USD", src.calls[0].currency)
}

func TestGetRateTriangulation(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(map[string]float64{
		"USD": 1.08,
		"JPY": 160.0,
	})}
	r := newRatesResolver(t, src)

	rate, err := r.GetRate(context.Background(), "USD", "JPY", models.DateRange{})
	require.NoError(t, err)
	require.InDelta(t, 148.148148, rate.Rate, 1e-4)
	require.Len(t, src.calls, 2)
}

func TestGetRateTriangulationSymmetry(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(map[string]float64{
		"USD": 1.08,
		"JPY": 160.0,
	})}
	r := newRatesResolver(t, src)

	forward, err := r.GetRate(context.Background(), "USD", "JPY", models.DateRange{})
	require.NoError(t, err)
	back, err := r.GetRate(context.Background(), "JPY", "USD", models.DateRange{})
	require.NoError(t, err)
	require.InDelta(t, 1.0, forward.Rate*back.Rate, 1e-9)
}

func TestGetRateSelectsMostRecentObservation(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR"}
	src.respond = func(string, models.DateRange) ([]models.RateObservation, error) {
		return []models.RateObservation{
			{Period: "2024-10-08", Value: 1.05},
			{Period: "2024-10-09", Value: 1.06},
			{Period: "2024-10-10", Value: 1.07},
		}, nil
	}
	r := newRatesResolver(t, src)

	rate, err := r.GetRate(context.Background(), "EUR", "USD", models.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 1.07, rate.Rate)
	require.Equal(t, "2024-10-10", rate.AsOf)
}

func TestGetRateWidenedRetryRecoversEmptyRange(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR"}
	src.respond = func(currency string, rng models.DateRange) ([]models.RateObservation, error) {
		// first call (short range) is empty: FX publishes business days only
		if len(src.calls) == 1 {
			return nil, nil
		}
		return []models.RateObservation{{Period: "2024-10-10", Value: 1.08}}, nil
	}
	r := newRatesResolver(t, src)

	now := time.Now().UTC()
	short := models.DateRange{Start: now.AddDate(0, 0, -7), End: now}
	rate, err := r.GetRate(context.Background(), "EUR", "USD", short)
	require.NoError(t, err)
	require.Equal(t, 1.08, rate.Rate)

	require.Len(t, src.calls, 2)
	widened := src.calls[1].rng
	require.InDelta(t, float64(90*24*time.Hour), float64(widened.End.Sub(widened.Start)), float64(time.Hour))
}

func TestGetRateNoDataAfterWidenedRetry(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(nil)}
	r := newRatesResolver(t, src)

	_, err := r.GetRate(context.Background(), "EUR", "USD", models.DateRange{})
	require.ErrorIs(t, err, models.ErrNoData)
	require.Len(t, src.calls, 2)
}

func TestGetRateRejectsZeroPivotRate(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR", respond: fixedRates(map[string]float64{"USD": 0})}
	r := newRatesResolver(t, src)

	// zero must fail as no-data before ever becoming a divisor
	_, err := r.GetRate(context.Background(), "USD", "EUR", models.DateRange{})
	require.ErrorIs(t, err, models.ErrNoData)
}

func TestGetRateTransportFailureNotRetried(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR"}
	src.respond = func(string, models.DateRange) ([]models.RateObservation, error) {
		return nil, models.ErrUpstreamUnavailable
	}
	r := newRatesResolver(t, src)

	_, err := r.GetRate(context.Background(), "EUR", "USD", models.DateRange{})
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	require.Len(t, src.calls, 1)
}

func TestGetRateTriangulationPropagatesBaseFailure(t *testing.T) {
	src := &fakeRateSource{pivot: "EUR"}
	src.respond = func(currency string, _ models.DateRange) ([]models.RateObservation, error) {
		if currency == "JPY" {
			return []models.RateObservation{{Period: "2024-10-10", Value: 160.0}}, nil
		}
		return nil, errors.New("boom")
	}
	r := newRatesResolver(t, src)

	_, err := r.GetRate(context.Background(), "USD", "JPY", models.DateRange{})
	require.Error(t, err)
}
