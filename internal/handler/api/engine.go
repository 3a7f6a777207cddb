package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	icache "PricePulse/internal/service/cache"
	"PricePulse/internal/service/metrics"
	"PricePulse/internal/service/ratelimit"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	xlogger "PricePulse/pkg/logger"
)

// EngineHandler serves the prediction and analysis endpoints. Analysis
// responses are cached because the statistical battery re-reads and
// re-fits on every call; predictions are not, the model store already
// dedupes training.
type EngineHandler struct {
	engine  *usecase.Engine
	reports *usecase.Reports
	cache   icache.BytesCache
	ttl     time.Duration
	rl      *ratelimit.Limiter
	log     *xlogger.Logger
}

func NewEngineHandler(engine *usecase.Engine, reports *usecase.Reports, log *xlogger.Logger) *EngineHandler {
	metrics.Register()
	return &EngineHandler{
		engine:  engine,
		reports: reports,
		ttl:     60 * time.Second,
		rl:      ratelimit.New(),
		log:     log,
	}
}

// SetCache injects the analysis response cache.
func (h *EngineHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.ttl = ttl
	}
}

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/products/:id")
	g.GET("/predict", h.Predict)
	g.GET("/analysis", h.Analysis)
	g.GET("/alerts", h.Alerts)
	g.GET("/report", h.Report)
}

func (h *EngineHandler) Predict(c echo.Context) error {
	start := time.Now()
	endpoint := "predict"
	defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":predict", 5, 2) {
		h.log.Warn("predict rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.engine.PredictPrice(c.Request().Context(), req.ProductID, req.DaysAhead)
	if err != nil {
		if errors.Is(err, usecase.ErrInsufficientData) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("insufficient price data for prediction"))
		}
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		metrics.EngineErrors.WithLabelValues(endpoint).Inc()
		h.log.Error("predict usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) Analysis(c echo.Context) error {
	start := time.Now()
	endpoint := "analysis"
	defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":analysis", 5, 2) {
		h.log.Warn("analysis rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := fmt.Sprintf("analysis:%s:%d", req.ProductID, req.PeriodDays)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.log.Warn("analysis cache_get_error", xlogger.Error(err))
		} else if ok {
			metrics.CacheHits.WithLabelValues(endpoint).Inc()
			var cached models.TrendAnalysis
			if err := json.Unmarshal(b, &cached); err == nil {
				return xhttp.SuccessResponse(c, &cached)
			}
		}
	}

	res, err := h.engine.AnalyzePriceTrends(c.Request().Context(), req.ProductID, req.PeriodDays)
	if err != nil {
		if errors.Is(err, usecase.ErrInsufficientData) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("insufficient price data for analysis"))
		}
		metrics.EngineErrors.WithLabelValues(endpoint).Inc()
		h.log.Error("analysis usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, h.ttl); err != nil {
				h.log.Warn("analysis cache_set_error", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) Alerts(c echo.Context) error {
	start := time.Now()
	endpoint := "alerts"
	defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":alerts", 3, 1) {
		h.log.Warn("alerts rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	candidates, err := h.engine.GenerateAlerts(c.Request().Context(), req.ProductID, req.TargetPrice)
	if err != nil {
		metrics.EngineErrors.WithLabelValues(endpoint).Inc()
		h.log.Error("alerts usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"product_id": req.ProductID,
		"count":      len(candidates),
		"alerts":     candidates,
	})
}

func (h *EngineHandler) Report(c echo.Context) error {
	start := time.Now()
	endpoint := "report"
	defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	blob, name, err := h.reports.PriceHistoryXLSX(c.Request().Context(), usecase.ReportParams{
		ProductID: req.ProductID,
		Days:      req.Days,
	})
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		metrics.EngineErrors.WithLabelValues(endpoint).Inc()
		h.log.Error("report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", blob)
}

var _ xhttp.Handler = (*EngineHandler)(nil)
