package models

import "time"

// Candle is one display bucket of OHLCV data. Time is the bucket-start
// instant. A series is ordered oldest to newest with strictly increasing Time.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// RawCandle is one upstream tuple before aggregation and conversion.
// Upstream delivers these newest-first.
type RawCandle struct {
	Time   int64
	Low    float64
	High   float64
	Open   float64
	Close  float64
	Volume float64
}

// SpotPrice is a single resolved price in a target currency.
type SpotPrice struct {
	Currency string    `json:"currency"`
	Amount   float64   `json:"amount"`
	AsOf     time.Time `json:"as_of"`
}

// ExchangeRate is a base->target FX rate. Recomputed per request, never
// cached across calls.
type ExchangeRate struct {
	Base   string
	Target string
	Rate   float64
	AsOf   string // YYYY-MM-DD period the rate was observed on
}

// RateObservation is one pivot-relative FX observation: Value units of the
// observed currency per one pivot unit, published on Period.
type RateObservation struct {
	Period string
	Value  float64
}

// DateRange bounds an FX series query. The zero value means "latest": no
// period constraint at all.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range carries no date constraint.
func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// CurrencyInfo is slow-changing upstream currency metadata.
type CurrencyInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
