package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"BTCWatch/internal/domain/models"
	pcache "BTCWatch/pkg/cache"
	xhttp "BTCWatch/pkg/http"
	xlogger "BTCWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketService is what the handler needs from the aggregation engine.
type MarketService interface {
	Spot(ctx context.Context, currency string) (models.SpotPrice, error)
	Candles(ctx context.Context, window, currency string) (*models.CandlesResponse, error)
	Currencies(ctx context.Context, forceRefresh bool) ([]models.CurrencyInfo, error)
}

// CacheTTLs holds per-endpoint response cache lifetimes, matched to the
// presentation layer's poll cadence.
type CacheTTLs struct {
	Spot    time.Duration
	Candles time.Duration
}

// MarketEchoHandler implements the Echo-based HTTP facade.
type MarketEchoHandler struct {
	logger    *xlogger.Logger
	svc       MarketService
	respCache pcache.Service
	ttls      CacheTTLs
}

// NewMarketEchoHandler creates the handler. respCache may be nil to disable
// response caching.
func NewMarketEchoHandler(logger *xlogger.Logger, svc MarketService, respCache pcache.Service, ttls CacheTTLs) *MarketEchoHandler {
	return &MarketEchoHandler{logger: logger, svc: svc, respCache: respCache, ttls: ttls}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/spot", h.Spot)
	g.GET("/candles", h.Candles)
	g.GET("/currencies", h.Currencies)
	e.GET("/healthz", h.Health)
}

func (h *MarketEchoHandler) Spot(c echo.Context) error {
	req := &models.SpotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	currency := strings.ToUpper(req.Currency)

	key := pcache.GenerateKeyWithParams("resp:spot", currency)
	if payload, ok := h.cached(c, key); ok {
		return xhttp.SuccessResponse(c, payload)
	}

	res, err := h.svc.Spot(c.Request().Context(), currency)
	if err != nil {
		h.logger.Error("spot resolve error", xlogger.String("currency", currency), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appErrorFromDomain(err))
	}

	h.store(c, key, res, h.ttls.Spot)
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	currency := strings.ToUpper(req.Currency)

	key := pcache.GenerateKeyWithParams("resp:candles", req.Window, currency)
	if payload, ok := h.cached(c, key); ok {
		return xhttp.SuccessResponse(c, payload)
	}

	res, err := h.svc.Candles(c.Request().Context(), req.Window, currency)
	if err != nil {
		h.logger.Error("candles resolve error",
			xlogger.String("window", req.Window),
			xlogger.String("currency", currency),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, appErrorFromDomain(err))
	}

	h.store(c, key, res, h.ttls.Candles)
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Currencies(c echo.Context) error {
	// metadata is TTL-cached with stale-serve below the facade, no response
	// cache needed on top
	list, err := h.svc.Currencies(c.Request().Context(), false)
	if err != nil {
		h.logger.Error("currencies resolve error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appErrorFromDomain(err))
	}
	return xhttp.SuccessResponse(c, &models.CurrenciesResponse{Count: len(list), Currencies: list})
}

func (h *MarketEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MarketEchoHandler) cached(c echo.Context, key string) (json.RawMessage, bool) {
	if h.respCache == nil {
		return nil, false
	}
	b, ok, err := h.respCache.Get(c.Request().Context(), key)
	if err != nil || !ok {
		return nil, false
	}
	return json.RawMessage(b), true
}

func (h *MarketEchoHandler) store(c echo.Context, key string, payload interface{}, ttl time.Duration) {
	if h.respCache == nil || ttl <= 0 {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.respCache.Set(c.Request().Context(), key, b, ttl); err != nil {
		h.logger.Warn("response cache set failed", xlogger.String("key", key), xlogger.Error(err))
	}
}

// appErrorFromDomain maps an engine failure onto an AppError with the right
// HTTP status. A stale cache serve is not an error and never reaches here.
func appErrorFromDomain(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrInvalidWindow):
		return xhttp.BadRequestError("unrecognized time window").WithError(err)
	case errors.Is(err, models.ErrConversionUnavailable), errors.Is(err, models.ErrNoData):
		return xhttp.UnavailableError("currency conversion unavailable").WithError(err)
	case errors.Is(err, models.ErrMalformedResponse):
		return xhttp.BadGatewayError("market data source returned malformed data").WithError(err)
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return xhttp.BadGatewayError("market data source unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
