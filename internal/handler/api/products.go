package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	xlogger "PricePulse/pkg/logger"
)

// ProductsHandler serves tracked-product CRUD and the read views built
// on top of the stores.
type ProductsHandler struct {
	products *usecase.Products
	monitor  *usecase.Monitor
	log      *xlogger.Logger
}

func NewProductsHandler(products *usecase.Products, monitor *usecase.Monitor, log *xlogger.Logger) *ProductsHandler {
	return &ProductsHandler{products: products, monitor: monitor, log: log}
}

func (h *ProductsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/products", h.Create)
	g.GET("/products", h.List)
	g.POST("/products/check-all", h.CheckAll)
	g.GET("/products/:id", h.Get)
	g.PUT("/products/:id", h.Update)
	g.DELETE("/products/:id", h.Deactivate)
	g.POST("/products/:id/check", h.Check)
	g.GET("/products/:id/history", h.History)
	g.GET("/products/:id/alerts/recent", h.RecentAlerts)
	g.GET("/deals", h.Deals)
	g.GET("/search", h.Search)
}

func (h *ProductsHandler) Create(c echo.Context) error {
	req := &models.CreateProductRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.products.Create(c.Request().Context(), req)
	if err != nil {
		h.log.Error("product create error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, p)
}

func (h *ProductsHandler) List(c echo.Context) error {
	req := &models.ListProductsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, total, err := h.products.List(c.Request().Context(), req.ActiveOnly, req.Limit, req.Offset)
	if err != nil {
		h.log.Error("product list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(total))
}

func (h *ProductsHandler) Get(c echo.Context) error {
	req := &models.ProductIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.products.Get(c.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		h.log.Error("product get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *ProductsHandler) Update(c echo.Context) error {
	req := &models.UpdateProductRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.products.Update(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		h.log.Error("product update error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *ProductsHandler) Deactivate(c echo.Context) error {
	req := &models.ProductIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.products.Deactivate(c.Request().Context(), req.ID); err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		h.log.Error("product deactivate error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ProductsHandler) Check(c echo.Context) error {
	req := &models.ProductIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	obs, err := h.monitor.CheckByID(c.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		h.log.Error("product check error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, obs)
}

func (h *ProductsHandler) CheckAll(c echo.Context) error {
	checked, err := h.monitor.CheckAll(c.Request().Context())
	if err != nil {
		h.log.Error("check-all error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"checked": checked})
}

func (h *ProductsHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	obs, err := h.products.History(c.Request().Context(), req.ProductID, req.Days)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		h.log.Error("history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"product_id":   req.ProductID,
		"days":         req.Days,
		"observations": obs,
	})
}

func (h *ProductsHandler) RecentAlerts(c echo.Context) error {
	req := &models.RecentAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.products.Alerts(c.Request().Context(), req.ProductID, req.Limit)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("product not found"))
		}
		h.log.Error("recent alerts error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ProductsHandler) Deals(c echo.Context) error {
	req := &models.DealsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	deals, err := h.products.Deals(c.Request().Context(), req.MinDiscount, req.Limit)
	if err != nil {
		h.log.Error("deals error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, deals, int64(len(deals)))
}

func (h *ProductsHandler) Search(c echo.Context) error {
	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	results, err := h.products.Search(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		h.log.Error("search error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

var _ xhttp.Handler = (*ProductsHandler)(nil)
