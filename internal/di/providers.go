package di

import (
	"context"
	"fmt"

	"BTCWatch/internal/domain/models"
	"BTCWatch/internal/domain/repository"
	"BTCWatch/internal/handler/api"
	"BTCWatch/internal/scheduler"
	scache "BTCWatch/internal/service/cache"
	"BTCWatch/internal/service/coinbase"
	"BTCWatch/internal/service/ecb"
	"BTCWatch/internal/service/ratelimit"
	"BTCWatch/internal/usecase"
	pcache "BTCWatch/pkg/cache"
	"BTCWatch/pkg/config"
	"BTCWatch/pkg/logger"
	"BTCWatch/pkg/metrics"
	"BTCWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCoinbaseClient creates the USD market-data client.
func ProvideCoinbaseClient(cfg *config.Config, l *logger.Logger, m repository.Metrics) *coinbase.Client {
	return coinbase.New(coinbase.Config{
		BaseURL:      cfg.Coinbase.BaseURL,
		ProductID:    cfg.Coinbase.ProductID,
		Timeout:      cfg.Coinbase.Timeout,
		RateCapacity: cfg.Coinbase.RateLimit.Capacity,
		RateRefill:   cfg.Coinbase.RateLimit.RefillPerSec,
	}, ratelimit.New(), l, m)
}

// ProvideECBClient creates the pivot-relative FX client.
func ProvideECBClient(cfg *config.Config, l *logger.Logger, m repository.Metrics) *ecb.Client {
	return ecb.New(ecb.Config{
		BaseURL: cfg.ECB.BaseURL,
		Flow:    cfg.ECB.Flow,
		Pivot:   cfg.ECB.Pivot,
		Timeout: cfg.ECB.Timeout,
	}, l, m)
}

// ProvideResponseCache creates the API response cache: memory-only by
// default, layered over Redis when enabled.
func ProvideResponseCache(cfg *config.Config) (pcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return pcache.NewMemoryCache(), nil
	}

	redisCache, err := pcache.NewRedisCache(
		pcache.WithRedisHost(cfg.Cache.Redis.Host),
		pcache.WithRedisPort(cfg.Cache.Redis.Port),
		pcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pcache.NewLayeredCache(redisCache), nil
}

// ProvideMarketData wires the aggregation engine.
func ProvideMarketData(cfg *config.Config, cb *coinbase.Client, fx *ecb.Client, l *logger.Logger, m repository.Metrics) *usecase.MarketData {
	rates := usecase.NewCrossRateResolver(fx, l, m)
	candles := usecase.NewCandleWindowBuilder(cb, rates, l, m)
	spot := usecase.NewSpotPriceResolver(cb, rates, l, m)
	meta := scache.New[[]models.CurrencyInfo](l, m)
	return usecase.NewMarketData(spot, candles, cb, meta, cfg.Cache.MetadataTTL)
}

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	l, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	m := ProvideMetrics()
	cb := ProvideCoinbaseClient(cfg, l, m)
	fx := ProvideECBClient(cfg, l, m)
	market := ProvideMarketData(cfg, cb, fx, l, m)

	respCache, err := ProvideResponseCache(cfg)
	if err != nil {
		return nil, err
	}

	handler := api.NewMarketEchoHandler(l, market, respCache, api.CacheTTLs{
		Spot:    cfg.Cache.SpotResponseTTL,
		Candles: cfg.Cache.CandlesResponseTTL,
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(context.Background(), market, l)
		if err := sched.RegisterAll(cfg.Scheduler.MetadataRefresh, cfg.Scheduler.SpotPrewarm); err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
	}

	return server.New(cfg, l, handler, sched, respCache), nil
}
