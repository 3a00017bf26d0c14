package models

import "errors"

// Failure taxonomy for the aggregation engine. Callers classify with
// errors.Is; wrapping preserves upstream detail.
var (
	// ErrUpstreamUnavailable covers transport, HTTP and timeout failures on
	// the price or candle source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse means a payload violated the expected contract.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrNoData means the FX source had no observations even after the
	// widened-range fallback.
	ErrNoData = errors.New("no fx data")

	// ErrConversionUnavailable is ErrNoData surfaced during conversion of a
	// price or candle series.
	ErrConversionUnavailable = errors.New("currency conversion unavailable")

	// ErrInvalidWindow means an unrecognized display window code.
	ErrInvalidWindow = errors.New("invalid time window")
)
