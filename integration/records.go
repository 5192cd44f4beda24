package integration

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"myregistry/handlers"
	"myregistry/interfaces"
	"myregistry/service"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	scenarioRecords           = "records"
	scenarioRecordingSchedule = "recording_schedule"
)

func init() {
	Register(scenarioRecords, runRecords)
	Register(scenarioRecordingSchedule, runRecordingSchedule)
}

func runRecords(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := service.NowMs(env.tp)
	body := handlers.RecordsRequest{Records: []handlers.Record{
		{SchemeName: "cpu", Timestamp: now - 2000, Value: `{"load":0.5}`},
		{SchemeName: "mem", Timestamp: now - 1500, Value: `{"rss":1024}`},
		{SchemeName: "cpu", Timestamp: now - 1000, Value: `{"load":0.7}`},
	}}

	// 1. Append
	status, err := env.PostJSON(ctx, "/v1/records/10.0.0.1/8080", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("add records: status %d", status)
	}

	// 2. Read back one scheme, oldest first
	var resp handlers.RecordsResponse
	if status, err = env.GetJSON(ctx, "/v1/records/10.0.0.1/8080/cpu?duration_ms=60000", &resp); err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("get records: status %d", status)
	}
	if len(resp.Records) != 2 || resp.Records[0].Value != `{"load":0.5}` || resp.Records[1].Value != `{"load":0.7}` {
		return fmt.Errorf("unexpected cpu records: %+v", resp.Records)
	}

	// 3. Window narrower than the records
	if _, err = env.GetJSON(ctx, "/v1/records/10.0.0.1/8080/cpu?duration_ms=1", &resp); err != nil {
		return err
	}
	if len(resp.Records) != 0 {
		return fmt.Errorf("expected no records in a 1ms window, got %d", len(resp.Records))
	}

	// 4. Invalid requests are rejected before reaching the store
	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/v1/records/10.0.0.1/8080", handlers.RecordsRequest{}},
		{http.MethodPost, "/v1/records/10.0.0.1/0", body},
		{http.MethodGet, "/v1/records/10.0.0.1/8080/cpu", nil},
		{http.MethodGet, "/v1/records/10.0.0.1/8080/cpu?duration_ms=0", nil},
	} {
		var status int
		if tc.method == http.MethodPost {
			status, err = env.PostJSON(ctx, tc.path, tc.body, nil)
		} else {
			status, err = env.GetJSON(ctx, tc.path, nil)
		}
		if err != nil {
			return err
		}
		if status != http.StatusBadRequest {
			return fmt.Errorf("%s %s: expected 400, got %d", tc.method, tc.path, status)
		}
	}
	return nil
}

// runRecordingSchedule records agent metrics through the schedule and reads them through the dashboard.
func runRecordingSchedule(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	publisher, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8080)
	if err != nil {
		return err
	}
	app := publisher.Application()

	agentMetrics := prometheus.NewRegistry()
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{Name: "svc_inflight_requests", Help: "In-flight requests."})
	agentMetrics.MustRegister(inflight)
	inflight.Set(3)

	schedule := service.NewRecordingSchedule(
		app.HostAndPort(),
		[]interfaces.Collector{service.NewGathererCollector("runtime", agentMetrics, "svc_")},
		env.Store,
		env.tp,
		time.Hour,
		time.Hour,
		env.logger,
	)
	if err := schedule.Start(ctx); err != nil {
		return err
	}
	defer schedule.Stop()

	if err := schedule.RunOnce(ctx); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	var resp handlers.RecordsResponse
	path := fmt.Sprintf("/v1/records/%s/%d/runtime?duration_ms=60000", app.Host, app.Port)
	if _, err := env.GetJSON(ctx, path, &resp); err != nil {
		return err
	}
	if len(resp.Records) != 1 {
		return fmt.Errorf("expected one runtime record, got %+v", resp.Records)
	}
	want := handlers.Record{SchemeName: "runtime", Value: `{"svc_inflight_requests":3}`}
	resp.Records[0].Timestamp = 0
	if resp.Records[0] != want {
		return fmt.Errorf("unexpected record %+v", resp.Records[0])
	}
	return nil
}
