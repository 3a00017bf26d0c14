package repository

import (
	"context"
	"time"

	"BTCWatch/internal/domain/models"
)

// SpotSource resolves the current BTC spot price in USD.
type SpotSource interface {
	SpotPrice(ctx context.Context) (models.SpotPrice, error)
}

// CandleSource fetches raw USD candles. Results come back newest-first and
// each call is capped at roughly 300 rows by the upstream.
type CandleSource interface {
	Candles(ctx context.Context, granularity int, start, end time.Time) ([]models.RawCandle, error)
}

// RateSource returns pivot-relative FX observations for one currency over a
// range, ordered oldest to newest by the series' own period key. An empty
// slice means "no data for range", not a transport failure.
type RateSource interface {
	PivotRates(ctx context.Context, currency string, rng models.DateRange) ([]models.RateObservation, error)
	Pivot() string
}

// CurrencySource lists slow-changing currency metadata.
type CurrencySource interface {
	Currencies(ctx context.Context) ([]models.CurrencyInfo, error)
}

type Metrics interface {
	RecordFetch(source, outcome string)
	RecordFallback(kind string)
	RecordSpotPrice(currency string, price float64)
	RecordLatency(source string, seconds float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordFetch(string, string)      {}
func (NopMetrics) RecordFallback(string)           {}
func (NopMetrics) RecordSpotPrice(string, float64) {}
func (NopMetrics) RecordLatency(string, float64)   {}
