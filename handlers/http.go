// Package handlers contains http handlers for the myregistry dashboard.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"myregistry/helpers"
	"myregistry/interfaces"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// HTTPServer implements ServerInterface over the registry subscriber and the record store.
type HTTPServer struct {
	subscriber interfaces.AppSubscriber
	exporter   interfaces.RecordExporter
	importer   interfaces.RecordImporter
	logger     log.Logger
}

var _ ServerInterface = (*HTTPServer)(nil)

// NewHTTPServer creates a new HTTPServer.
func NewHTTPServer(subscriber interfaces.AppSubscriber, exporter interfaces.RecordExporter, importer interfaces.RecordImporter, logger log.Logger) *HTTPServer {
	return &HTTPServer{
		subscriber: helpers.NilPanic(subscriber, "handlers.http.go: subscriber is required"),
		exporter:   helpers.NilPanic(exporter, "handlers.http.go: exporter is required"),
		importer:   helpers.NilPanic(importer, "handlers.http.go: importer is required"),
		logger:     log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "HTTPServer"),
	}
}

// GetApplications (GET /v1/applications) returns the instance count of every application.
func (h *HTTPServer) GetApplications(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, toApplicationsResponse(h.subscriber.SummaryCounts()))
}

// GetApplicationInstances (GET /v1/applications/{name}/instances) returns the instances of one
// application. An unknown application has no instances.
func (h *HTTPServer) GetApplicationInstances(ectx echo.Context, name string) error {
	if name == "" {
		return service.NewBadParameterError("name is required", nil)
	}
	return ectx.JSON(http.StatusOK, toInstancesResponse(h.subscriber.GetByName(name)))
}

// GetInstances (GET /v1/instances) returns every registered instance.
func (h *HTTPServer) GetInstances(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, toInstancesResponse(h.subscriber.GetAll()))
}

// AddRecords (POST /v1/records/{host}/{port}) stores records for an instance. Returns 200 on
// success, 400 on parse/validation error, 500 on storage error.
func (h *HTTPServer) AddRecords(ectx echo.Context, host string, port int) error {
	target, err := fromHostPort(host, port)
	if err != nil {
		return fmt.Errorf("addRecords failed to convert address, err: %w", err)
	}

	var req RecordsRequest
	if err := ectx.Bind(&req); err != nil {
		return service.NewBadParameterError("invalid request body", err)
	}
	records, schemes, err := fromRecordsRequest(req)
	if err != nil {
		return fmt.Errorf("addRecords failed to convert request to records, err: %w", err)
	}

	ctx := ectx.Request().Context()
	if err := h.importer.EnsureSchema(ctx, target, schemes); err != nil {
		return fmt.Errorf("addRecords failed to prepare schema for %s, err: %w", target.InstanceID(), err)
	}
	if err := h.importer.AddRecords(ctx, target, records); err != nil {
		return fmt.Errorf("addRecords failed to store records for %s, err: %w", target.InstanceID(), err)
	}
	level.Debug(h.logger).Log("msg", "records stored", "instance", target.InstanceID(), "count", len(records))

	return ectx.NoContent(http.StatusOK)
}

// GetRecords (GET /v1/records/{host}/{port}/{scheme}) returns the records of the last
// duration_ms milliseconds, oldest first.
func (h *HTTPServer) GetRecords(ectx echo.Context, host string, port int, scheme string, params GetRecordsParams) error {
	target, err := fromHostPort(host, port)
	if err != nil {
		return fmt.Errorf("getRecords failed to convert address, err: %w", err)
	}
	if scheme == "" {
		return service.NewBadParameterError("scheme is required", nil)
	}
	if params.DurationMs <= 0 {
		return service.NewBadParameterError("duration_ms must be positive", nil)
	}

	ctx := ectx.Request().Context()
	records, err := h.exporter.GetLatestRecords(ctx, target, scheme, time.Duration(params.DurationMs)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("getRecords failed to read records for %s, err: %w", target.InstanceID(), err)
	}

	return ectx.JSON(http.StatusOK, toRecordsResponse(records))
}
