package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"BTCWatch/internal/domain/models"
	drepo "BTCWatch/internal/domain/repository"
	"BTCWatch/internal/service/ratelimit"
	xhttp "BTCWatch/pkg/http"
	xlogger "BTCWatch/pkg/logger"
)

// Metric source labels per endpoint.
const (
	sourceSpot       = "coinbase_spot"
	sourceCandles    = "coinbase_candles"
	sourceCurrencies = "coinbase_currencies"
)

// Config holds Coinbase client settings.
type Config struct {
	BaseURL      string
	ProductID    string
	Timeout      time.Duration
	RateCapacity float64
	RateRefill   float64
}

// Client is the USD-only market-data source: spot price, raw candles and
// currency metadata. Implements SpotSource, CandleSource and CurrencySource.
type Client struct {
	http      *xhttp.Client
	baseURL   string
	productID string
	limiter   *ratelimit.Limiter
	capacity  float64
	refill    float64
	logger    *xlogger.Logger
	metrics   drepo.Metrics
}

// New creates a new Coinbase client.
func New(cfg Config, limiter *ratelimit.Limiter, logger *xlogger.Logger, metrics drepo.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL:   cfg.BaseURL,
		productID: cfg.ProductID,
		limiter:   limiter,
		capacity:  cfg.RateCapacity,
		refill:    cfg.RateRefill,
		logger:    logger,
		metrics:   metrics,
	}
}

type spotResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// SpotPrice fetches the current USD spot price.
func (c *Client) SpotPrice(ctx context.Context) (models.SpotPrice, error) {
	var resp spotResponse
	url := fmt.Sprintf("%s/prices/%s/spot", c.baseURL, c.productID)
	if err := c.get(ctx, sourceSpot, url, nil, &resp); err != nil {
		return models.SpotPrice{}, err
	}

	amount, err := strconv.ParseFloat(resp.Amount, 64)
	if err != nil || amount <= 0 || resp.Currency == "" {
		c.metrics.RecordFetch(sourceSpot, "malformed")
		return models.SpotPrice{}, fmt.Errorf("%w: spot amount %q currency %q", models.ErrMalformedResponse, resp.Amount, resp.Currency)
	}

	return models.SpotPrice{
		Currency: resp.Currency,
		Amount:   amount,
		AsOf:     time.Now().UTC(),
	}, nil
}

// Candles fetches raw candles for one granularity and time range. The
// upstream returns newest-first 6-element tuples
// [epochSec, low, high, open, close, volume]; malformed tuples are dropped
// without failing the call.
func (c *Client) Candles(ctx context.Context, granularity int, start, end time.Time) ([]models.RawCandle, error) {
	var tuples []json.RawMessage
	url := fmt.Sprintf("%s/products/%s/candles", c.baseURL, c.productID)
	params := map[string][]string{
		"granularity": {strconv.Itoa(granularity)},
		"start":       {strconv.FormatInt(start.Unix(), 10)},
		"end":         {strconv.FormatInt(end.Unix(), 10)},
	}
	if err := c.get(ctx, sourceCandles, url, params, &tuples); err != nil {
		return nil, err
	}

	candles := make([]models.RawCandle, 0, len(tuples))
	dropped := 0
	for _, raw := range tuples {
		candle, ok := parseTuple(raw)
		if !ok {
			dropped++
			continue
		}
		candles = append(candles, candle)
	}
	if dropped > 0 {
		c.logger.Warn("dropped malformed candle tuples",
			xlogger.Int("dropped", dropped),
			xlogger.Int("kept", len(candles)),
		)
	}

	return candles, nil
}

func parseTuple(raw json.RawMessage) (models.RawCandle, bool) {
	var vals []float64
	if err := json.Unmarshal(raw, &vals); err != nil || len(vals) != 6 {
		return models.RawCandle{}, false
	}
	candle := models.RawCandle{
		Time:   int64(vals[0]),
		Low:    vals[1],
		High:   vals[2],
		Open:   vals[3],
		Close:  vals[4],
		Volume: vals[5],
	}
	if candle.Time <= 0 || candle.Volume < 0 {
		return models.RawCandle{}, false
	}
	if candle.Low <= 0 || candle.High <= 0 || candle.Open <= 0 || candle.Close <= 0 {
		return models.RawCandle{}, false
	}
	// low must bound open/close from below and high from above
	if candle.Low > candle.Open || candle.Low > candle.Close ||
		candle.High < candle.Open || candle.High < candle.Close {
		return models.RawCandle{}, false
	}
	return candle, true
}

type currencyEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Currencies fetches slow-changing currency metadata.
func (c *Client) Currencies(ctx context.Context) ([]models.CurrencyInfo, error) {
	var entries []currencyEntry
	url := fmt.Sprintf("%s/currencies", c.baseURL)
	if err := c.get(ctx, sourceCurrencies, url, nil, &entries); err != nil {
		return nil, err
	}

	out := make([]models.CurrencyInfo, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		out = append(out, models.CurrencyInfo{ID: e.ID, Name: e.Name})
	}
	return out, nil
}

// get performs one bounded upstream GET and classifies the failure modes.
func (c *Client) get(ctx context.Context, source, url string, params map[string][]string, dest interface{}) error {
	if c.limiter != nil && !c.limiter.Allow("coinbase", c.capacity, c.refill) {
		c.metrics.RecordFetch(source, "rate_limited")
		return fmt.Errorf("%w: request budget exhausted", models.ErrUpstreamUnavailable)
	}

	c.logger.Debug("upstream fetch", xlogger.String("source", source), xlogger.String("url", url))
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: params,
	}, dest)
	c.metrics.RecordLatency(source, time.Since(start).Seconds())

	if err != nil {
		var decodeErr *xhttp.DecodeError
		if errors.As(err, &decodeErr) {
			c.metrics.RecordFetch(source, "malformed")
			c.logger.Error("upstream response malformed", xlogger.String("source", source), xlogger.Error(err))
			return fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
		}

		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		c.metrics.RecordFetch(source, outcome)
		c.logger.Error("upstream fetch failed", xlogger.String("source", source), xlogger.Error(err))
		return fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}

	c.metrics.RecordFetch(source, "success")
	return nil
}
