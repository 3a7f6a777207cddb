package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/handler/ws"
	"PricePulse/internal/service/notify"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	xlogger "PricePulse/pkg/logger"
)

// SystemHandler serves monitoring control, system stats, notification
// tests, health and the dashboard websocket.
type SystemHandler struct {
	products *usecase.Products
	monitor  *usecase.Monitor
	history  domrepo.PriceHistoryStore
	search   domrepo.SearchClient
	notify   *notify.Manager
	hub      *ws.Hub
	log      *xlogger.Logger
}

func NewSystemHandler(
	products *usecase.Products,
	monitor *usecase.Monitor,
	history domrepo.PriceHistoryStore,
	search domrepo.SearchClient,
	notifier *notify.Manager,
	hub *ws.Hub,
	log *xlogger.Logger,
) *SystemHandler {
	return &SystemHandler{
		products: products,
		monitor:  monitor,
		history:  history,
		search:   search,
		notify:   notifier,
		hub:      hub,
		log:      log,
	}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.hub != nil {
		e.GET("/ws", h.hub.Serve)
	}

	g := e.Group("/api")
	g.GET("/stats", h.Stats)
	g.GET("/monitoring/status", h.MonitorStatus)
	g.POST("/monitoring/start", h.MonitorStart)
	g.POST("/monitoring/stop", h.MonitorStop)
	g.POST("/notifications/test", h.TestNotification)
}

// Health reports liveness plus the state of the history store and the
// upstream search API. Degraded dependencies do not fail the endpoint.
func (h *SystemHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	deps := echo.Map{}
	healthy := true

	if err := h.history.Health(ctx); err != nil {
		deps["history_store"] = err.Error()
		healthy = false
	} else {
		deps["history_store"] = "ok"
	}
	if h.search != nil {
		if err := h.search.Health(ctx); err != nil {
			deps["search_api"] = err.Error()
		} else {
			deps["search_api"] = "ok"
		}
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}
	return xhttp.SuccessResponse(c, echo.Map{"status": status, "dependencies": deps})
}

func (h *SystemHandler) Stats(c echo.Context) error {
	counts, err := h.products.Stats(c.Request().Context())
	if err != nil {
		h.log.Error("stats error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	out := echo.Map{
		"counts":     counts,
		"monitoring": h.monitor.Status(),
	}
	if h.hub != nil {
		out["ws_clients"] = h.hub.ClientCount()
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *SystemHandler) MonitorStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.monitor.Status())
}

// MonitorStart launches the ticker goroutines on the app context, not
// the request one, so they outlive this call.
func (h *SystemHandler) MonitorStart(c echo.Context) error {
	if err := h.monitor.Start(context.Background()); err != nil {
		h.log.Error("monitor start error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.monitor.Status())
}

func (h *SystemHandler) MonitorStop(c echo.Context) error {
	h.monitor.Stop()
	return xhttp.SuccessResponse(c, h.monitor.Status())
}

func (h *SystemHandler) TestNotification(c echo.Context) error {
	req := &models.TestNotificationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.notify == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("notifications not configured"))
	}
	results, err := h.notify.Test(c.Request().Context(), req.Channel)
	if err != nil {
		h.log.Error("notification test error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, results)
}

var _ xhttp.Handler = (*SystemHandler)(nil)
