package service

import (
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// RegisterErrorHandler register custom error handler.
func RegisterErrorHandler(e *echo.Echo, logger log.Logger) {
	e.HTTPErrorHandler = NewHTTPErrorHandler(NewErrorCodeToStatusCodeMaps(), logger).Handler
}

// NewErrorCodeToStatusCodeMaps creates an error code to http status mapping.
func NewErrorCodeToStatusCodeMaps() map[string]int {
	return map[string]int{
		ErrBadParameter:        http.StatusBadRequest,
		ErrEntityNotFound:      http.StatusNotFound,
		ErrEntityExists:        http.StatusConflict,
		ErrConnectionLoss:      http.StatusServiceUnavailable,
		ErrNotRunning:          http.StatusServiceUnavailable,
		ErrInternalServerError: http.StatusInternalServerError,
	}
}

// HTTPErrorHandler renders RegistryError values (and echo errors) as ErrResponse JSON.
type HTTPErrorHandler struct {
	errorCodeToHTTPStatusCodeMap map[string]int
	logger                       log.Logger
}

// NewHTTPErrorHandler creates a new instance of the HTTPErrorHandler.
func NewHTTPErrorHandler(errorCodeToStatusCodeMaps map[string]int, logger log.Logger) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		errorCodeToHTTPStatusCodeMap: errorCodeToStatusCodeMaps,
		logger:                       logger,
	}
}

func (h *HTTPErrorHandler) getStatusCode(errorCode string) int {
	if status, ok := h.errorCodeToHTTPStatusCodeMap[errorCode]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Handler handles error returned by echo Handlers.
func (h *HTTPErrorHandler) Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	regErr := ToRegistryError(err)
	if regErr == nil {
		regErr = NewRegistryError(ErrInternalServerError, "an internal server error has occurred", err)
	}

	var statusCode int
	var he *echo.HTTPError
	if errors.As(err, &he) && ToRegistryError(err) == nil {
		code := ErrInternalServerError
		switch {
		case he.Code == http.StatusNotFound:
			code = ErrEntityNotFound
		case he.Code == http.StatusBadRequest:
			code = ErrBadParameter
		}
		if he.Internal != nil {
			if inner, ok := he.Internal.(*echo.HTTPError); ok {
				he = inner
			}
			var requestError *openapi3filter.RequestError
			if errors.As(he.Internal, &requestError) {
				code = ErrBadParameter
			}
		}

		m, _ := he.Message.(string)
		if m == "" {
			m = http.StatusText(he.Code)
		}
		regErr = NewRegistryError(code, m, err)
		statusCode = he.Code
	} else {
		statusCode = h.getStatusCode(regErr.Code)
	}

	level.Error(h.logger).Log(
		"msg", "HTTP request error",
		"status", statusCode,
		"err", err,
	)

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(statusCode)
		return
	}
	_ = c.JSON(statusCode, ErrResponse{Error: regErr})
}

// ErrResponse from server.
type ErrResponse struct {
	Error *RegistryError `json:"error,omitempty"`
}
