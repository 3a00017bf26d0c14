package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	xlogger "BTCWatch/pkg/logger"
	"BTCWatch/pkg/util"
)

// recentLookbackDays bounds the default FX range for spot conversion; wide
// enough to always straddle at least one business day.
const recentLookbackDays = 7

// SpotPriceResolver builds a single converted spot price.
type SpotPriceResolver struct {
	source  drepo.SpotSource
	rates   *CrossRateResolver
	logger  *xlogger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

// NewSpotPriceResolver creates a resolver over the USD spot source and a
// rate resolver.
func NewSpotPriceResolver(source drepo.SpotSource, rates *CrossRateResolver, logger *xlogger.Logger, metrics drepo.Metrics) *SpotPriceResolver {
	return &SpotPriceResolver{
		source:  source,
		rates:   rates,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// GetSpotPrice fetches the USD spot price once and converts it to currency.
func (r *SpotPriceResolver) GetSpotPrice(ctx context.Context, currency string) (models.SpotPrice, error) {
	currency = strings.ToUpper(currency)

	usd, err := r.source.SpotPrice(ctx)
	if err != nil {
		return models.SpotPrice{}, err
	}

	if currency == baseCurrency {
		r.metrics.RecordSpotPrice(currency, usd.Amount)
		return usd, nil
	}

	now := r.now().UTC()
	rng := models.DateRange{Start: util.DaysAgo(now, recentLookbackDays), End: now}
	rate, err := r.rates.GetRate(ctx, baseCurrency, currency, rng)
	if err != nil {
		return models.SpotPrice{}, fmt.Errorf("%w: %v", models.ErrConversionUnavailable, err)
	}

	converted := models.SpotPrice{
		Currency: currency,
		Amount:   usd.Amount * rate.Rate,
		AsOf:     usd.AsOf,
	}
	r.metrics.RecordSpotPrice(currency, converted.Amount)
	r.logger.Debug("spot price resolved",
		xlogger.String("currency", currency),
		xlogger.Float64("amount", converted.Amount),
	)
	return converted, nil
}
