package handlers

import (
	"net/http"

	"myregistry/api"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
)

// NewEcho assembles the dashboard HTTP surface: registry error rendering, OpenAPI request
// validation, the API routes and the Prometheus endpoint at /metrics.
func NewEcho(server ServerInterface, metrics http.Handler, logger log.Logger) (*echo.Echo, error) {
	validator, err := NewRequestValidator(api.OpenAPISpec)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	service.RegisterErrorHandler(e, logger)
	e.Use(validator)
	RegisterHandlers(e, server)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	return e, nil
}
