package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	xlogger "BTCWatch/pkg/logger"
	"BTCWatch/pkg/util"
)

// widenedLookbackDays is the fixed fallback lookback used when a requested
// range comes back with zero observations. FX rates publish only on business
// days, so a short range over a weekend or holiday is legitimately empty.
const widenedLookbackDays = 90

// CrossRateResolver triangulates base->target FX rates through the source's
// single pivot currency.
type CrossRateResolver struct {
	source  drepo.RateSource
	logger  *xlogger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

// NewCrossRateResolver creates a resolver over one pivot-relative FX source.
func NewCrossRateResolver(source drepo.RateSource, logger *xlogger.Logger, metrics drepo.Metrics) *CrossRateResolver {
	return &CrossRateResolver{
		source:  source,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// GetRate resolves the base->target rate over rng. base == target returns
// exactly 1.0 with no network call, which also covers pivot == pivot.
func (r *CrossRateResolver) GetRate(ctx context.Context, base, target string, rng models.DateRange) (models.ExchangeRate, error) {
	rate := models.ExchangeRate{Base: base, Target: target}

	if base == target {
		rate.Rate = 1.0
		return rate, nil
	}

	pivot := r.source.Pivot()

	switch {
	case base == pivot:
		obs, err := r.queryPivotToCurrency(ctx, target, rng)
		if err != nil {
			return models.ExchangeRate{}, err
		}
		rate.Rate = obs.Value
		rate.AsOf = obs.Period

	case target == pivot:
		obs, err := r.queryPivotToCurrency(ctx, base, rng)
		if err != nil {
			return models.ExchangeRate{}, err
		}
		rate.Rate = 1 / obs.Value
		rate.AsOf = obs.Period

	default:
		// triangulation: (target per pivot) / (base per pivot)
		targetObs, err := r.queryPivotToCurrency(ctx, target, rng)
		if err != nil {
			return models.ExchangeRate{}, err
		}
		baseObs, err := r.queryPivotToCurrency(ctx, base, rng)
		if err != nil {
			return models.ExchangeRate{}, err
		}
		rate.Rate = targetObs.Value / baseObs.Value
		rate.AsOf = targetObs.Period
	}

	return rate, nil
}

// queryPivotToCurrency returns the most recent usable observation for ccy,
// selected by the series' own period key. An empty range is retried exactly
// once with the fixed widened lookback; transport failures are not retried.
// A zero or non-finite value is rejected before it can become a divisor.
func (r *CrossRateResolver) queryPivotToCurrency(ctx context.Context, ccy string, rng models.DateRange) (models.RateObservation, error) {
	obs, err := r.source.PivotRates(ctx, ccy, rng)
	if err != nil {
		return models.RateObservation{}, err
	}

	if len(obs) == 0 {
		now := r.now().UTC()
		widened := models.DateRange{Start: util.DaysAgo(now, widenedLookbackDays), End: now}
		r.logger.Warn("fx range empty, retrying with widened lookback",
			xlogger.String("currency", ccy),
			xlogger.Int("lookback_days", widenedLookbackDays),
		)
		r.metrics.RecordFallback("widened_fx_range")

		obs, err = r.source.PivotRates(ctx, ccy, widened)
		if err != nil {
			return models.RateObservation{}, err
		}
		if len(obs) == 0 {
			return models.RateObservation{}, fmt.Errorf("%w: no observations for %s", models.ErrNoData, ccy)
		}
	}

	latest := obs[len(obs)-1]
	if latest.Value == 0 || math.IsNaN(latest.Value) || math.IsInf(latest.Value, 0) {
		return models.RateObservation{}, fmt.Errorf("%w: unusable rate %v for %s", models.ErrNoData, latest.Value, ccy)
	}

	return latest, nil
}
