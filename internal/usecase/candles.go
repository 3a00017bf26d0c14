package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	xlogger "BTCWatch/pkg/logger"
)

// baseCurrency is the only currency the candle and spot sources quote in.
const baseCurrency = "USD"

// CandleWindowBuilder builds a currency-converted candle series for a fixed
// display window.
type CandleWindowBuilder struct {
	source  drepo.CandleSource
	rates   *CrossRateResolver
	logger  *xlogger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

// NewCandleWindowBuilder creates a builder over a raw candle source and a
// rate resolver.
func NewCandleWindowBuilder(source drepo.CandleSource, rates *CrossRateResolver, logger *xlogger.Logger, metrics drepo.Metrics) *CandleWindowBuilder {
	return &CandleWindowBuilder{
		source:  source,
		rates:   rates,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// GetCandles returns the converted series for window, ordered oldest to
// newest. An empty upstream result is a valid empty series, not an error.
func (b *CandleWindowBuilder) GetCandles(ctx context.Context, window drepo.TimeWindow, targetCurrency string) ([]models.Candle, error) {
	plan, err := window.Plan()
	if err != nil {
		return nil, err
	}
	targetCurrency = strings.ToUpper(targetCurrency)

	now := b.now().UTC()
	var raw []models.RawCandle
	if plan.SplitFetch {
		raw, err = b.fetchStitched(ctx, plan, now)
	} else {
		raw, err = b.fetchSingle(ctx, plan, now)
	}
	if err != nil {
		return nil, err
	}

	candles := aggregate(raw, plan.AggregationFactor)
	if len(candles) == 0 {
		return []models.Candle{}, nil
	}

	if targetCurrency == baseCurrency {
		return candles, nil
	}

	windowRange := models.DateRange{Start: now.Add(-plan.Lookback), End: now}
	rate, err := b.windowRate(ctx, targetCurrency, windowRange)
	if err != nil {
		return nil, err
	}

	// One scalar for the whole window, a deliberate approximation: per-day
	// conversion would change historical volatility, which is a product
	// decision, not ours.
	for i := range candles {
		candles[i].Open *= rate
		candles[i].High *= rate
		candles[i].Low *= rate
		candles[i].Close *= rate
		candles[i].Volume *= rate
	}

	return candles, nil
}

func (b *CandleWindowBuilder) fetchSingle(ctx context.Context, plan drepo.WindowPlan, now time.Time) ([]models.RawCandle, error) {
	raw, err := b.source.Candles(ctx, plan.Granularity, now.Add(-plan.Lookback), now)
	if err != nil {
		return nil, err
	}
	return reversed(raw), nil
}

// fetchStitched issues the two sub-requests of a split window concurrently
// and concatenates them in call order (oldest block first), independent of
// which response arrives first.
func (b *CandleWindowBuilder) fetchStitched(ctx context.Context, plan drepo.WindowPlan, now time.Time) ([]models.RawCandle, error) {
	ranges := [2]models.DateRange{
		{Start: now.Add(-plan.Lookback), End: now.Add(-drepo.SplitNewest)},
		{Start: now.Add(-drepo.SplitNewest), End: now},
	}

	var (
		blocks [2][]models.RawCandle
		errs   [2]error
		wg     sync.WaitGroup
	)
	for i, rng := range ranges {
		wg.Add(1)
		go func(slot int, rng models.DateRange) {
			defer wg.Done()
			blocks[slot], errs[slot] = b.source.Candles(ctx, plan.Granularity, rng.Start, rng.End)
		}(i, rng)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := reversed(blocks[0])
	return append(out, reversed(blocks[1])...), nil
}

// windowRate fetches the single conversion scalar for the window's range,
// retrying once with no date constraint before giving up.
func (b *CandleWindowBuilder) windowRate(ctx context.Context, targetCurrency string, rng models.DateRange) (float64, error) {
	rate, err := b.rates.GetRate(ctx, baseCurrency, targetCurrency, rng)
	if err == nil {
		return rate.Rate, nil
	}

	b.logger.Warn("dated fx lookup failed, retrying with latest rate",
		xlogger.String("currency", targetCurrency),
		xlogger.Error(err),
	)
	b.metrics.RecordFallback("latest_fx_rate")

	rate, err = b.rates.GetRate(ctx, baseCurrency, targetCurrency, models.DateRange{})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrConversionUnavailable, err)
	}
	return rate.Rate, nil
}

// aggregate merges groups of k consecutive raw candles, oldest first. A
// trailing partial group still emits one candle.
func aggregate(raw []models.RawCandle, k int) []models.Candle {
	if len(raw) == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}

	out := make([]models.Candle, 0, (len(raw)+k-1)/k)
	for start := 0; start < len(raw); start += k {
		end := start + k
		if end > len(raw) {
			end = len(raw)
		}
		group := raw[start:end]

		candle := models.Candle{
			Time:  time.Unix(group[0].Time, 0).UTC(),
			Open:  group[0].Open,
			Close: group[len(group)-1].Close,
			High:  group[0].High,
			Low:   group[0].Low,
		}
		for _, c := range group {
			if c.High > candle.High {
				candle.High = c.High
			}
			if c.Low < candle.Low {
				candle.Low = c.Low
			}
			candle.Volume += c.Volume
		}
		out = append(out, candle)
	}
	return out
}

// reversed returns an oldest-first copy of a newest-first block. The source
// still owns the slice it returned, so it is never flipped in place.
func reversed(raw []models.RawCandle) []models.RawCandle {
	out := make([]models.RawCandle, len(raw))
	for i, c := range raw {
		out[len(raw)-1-i] = c
	}
	return out
}
