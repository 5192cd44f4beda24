package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"myregistry/domain"
	"myregistry/interfaces/mock"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func newTestPublisher() *mock.AppPublisherMock {
	return &mock.AppPublisherMock{
		ApplicationFunc: func() domain.Application {
			return domain.Application{Name: "svc-a", Host: "10.0.0.1", Port: 8080, State: domain.StateUp}
		},
	}
}

func newTestPresence(publisher *mock.AppPublisherMock) (*presence, *health.Server) {
	healthServer := health.NewServer()
	p := newPresence(publisher, healthServer, log.NewNopLogger())
	p.backOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return p, healthServer
}

func healthStatus(t *testing.T, s *health.Server, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestPresence_StartsNotServing(t *testing.T) {
	_, s := newTestPresence(newTestPublisher())

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, healthStatus(t, s, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, healthStatus(t, s, "svc-a"))
}

func TestPresence_RegisterRetriesUntilPublished(t *testing.T) {
	publisher := newTestPublisher()
	var attempts atomic.Int32
	publisher.RegisterFunc = func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("connection_loss")
		}
		return nil
	}
	p, s := newTestPresence(publisher)

	require.NoError(t, p.register(context.Background()))
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, healthStatus(t, s, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, healthStatus(t, s, "svc-a"))
}

func TestPresence_RegisterStopsWithContext(t *testing.T) {
	publisher := newTestPublisher()
	publisher.RegisterFunc = func(ctx context.Context) error {
		return errors.New("connection_loss")
	}
	p, s := newTestPresence(publisher)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.Error(t, p.register(ctx))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, healthStatus(t, s, ""))
}

func TestPresence_Unregister(t *testing.T) {
	publisher := newTestPublisher()
	var order []string
	publisher.UpdateStateFunc = func(ctx context.Context, state string) error {
		order = append(order, "state:"+state)
		return nil
	}
	publisher.UnregisterFunc = func(ctx context.Context) error {
		order = append(order, "unregister")
		return nil
	}
	p, s := newTestPresence(publisher)
	require.NoError(t, p.register(context.Background()))

	p.unregister(context.Background())

	assert.Equal(t, []string{"state:DOWN", "unregister"}, order)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, healthStatus(t, s, ""))
}

func TestPresence_UnregisterDespiteStateFailure(t *testing.T) {
	publisher := newTestPublisher()
	publisher.UpdateStateFunc = func(ctx context.Context, state string) error {
		return errors.New("connection_loss")
	}
	p, _ := newTestPresence(publisher)

	p.unregister(context.Background())

	assert.Len(t, publisher.UnregisterCalls(), 1)
}
