package http

import "github.com/labstack/echo/v4"

// Handler is anything that can attach its routes to the Echo instance.
// The API is composed of several of these behind a single router.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
