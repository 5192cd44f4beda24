package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ServerInterface is the dashboard API described by api/myregistry.openapi.yaml.
type ServerInterface interface {
	// GetApplications (GET /v1/applications)
	GetApplications(ctx echo.Context) error
	// GetApplicationInstances (GET /v1/applications/{name}/instances)
	GetApplicationInstances(ctx echo.Context, name string) error
	// GetInstances (GET /v1/instances)
	GetInstances(ctx echo.Context) error
	// AddRecords (POST /v1/records/{host}/{port})
	AddRecords(ctx echo.Context, host string, port int) error
	// GetRecords (GET /v1/records/{host}/{port}/{scheme})
	GetRecords(ctx echo.Context, host string, port int, scheme string, params GetRecordsParams) error
}

// GetRecordsParams are the query parameters of GetRecords.
type GetRecordsParams struct {
	DurationMs int64 `form:"duration_ms" json:"duration_ms"`
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetApplications(ctx echo.Context) error {
	return w.Handler.GetApplications(ctx)
}

func (w *ServerInterfaceWrapper) GetApplicationInstances(ctx echo.Context) error {
	name, err := pathParam(ctx, "name")
	if err != nil {
		return err
	}
	return w.Handler.GetApplicationInstances(ctx, name)
}

func (w *ServerInterfaceWrapper) GetInstances(ctx echo.Context) error {
	return w.Handler.GetInstances(ctx)
}

func (w *ServerInterfaceWrapper) AddRecords(ctx echo.Context) error {
	host, port, err := hostPortParams(ctx)
	if err != nil {
		return err
	}
	return w.Handler.AddRecords(ctx, host, port)
}

func (w *ServerInterfaceWrapper) GetRecords(ctx echo.Context) error {
	host, port, err := hostPortParams(ctx)
	if err != nil {
		return err
	}
	scheme, err := pathParam(ctx, "scheme")
	if err != nil {
		return err
	}

	var params GetRecordsParams
	raw := ctx.QueryParam("duration_ms")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query argument duration_ms is required, but not found")
	}
	if params.DurationMs, err = strconv.ParseInt(raw, 10, 64); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter duration_ms: %s", err))
	}
	return w.Handler.GetRecords(ctx, host, port, scheme, params)
}

func hostPortParams(ctx echo.Context) (string, int, error) {
	host, err := pathParam(ctx, "host")
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(ctx.Param("port"))
	if err != nil {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter port: %s", err))
	}
	return host, port, nil
}

// pathParam returns the decoded path parameter. Echo matches on the raw path when the request
// carries escaped characters, leaving parameters escaped in that case only.
func pathParam(ctx echo.Context, name string) (string, error) {
	v := ctx.Param(name)
	if ctx.Request().URL.RawPath == "" {
		return v, nil
	}
	unescaped, err := url.PathUnescape(v)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return unescaped, nil
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the router.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the routes under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET(baseURL+"/v1/applications", wrapper.GetApplications)
	router.GET(baseURL+"/v1/applications/:name/instances", wrapper.GetApplicationInstances)
	router.GET(baseURL+"/v1/instances", wrapper.GetInstances)
	router.POST(baseURL+"/v1/records/:host/:port", wrapper.AddRecords)
	router.GET(baseURL+"/v1/records/:host/:port/:scheme", wrapper.GetRecords)
}
