package main

import (
	"context"
	"time"

	"myregistry/domain"
	"myregistry/interfaces"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// presence ties the registry entry of this process to its gRPC health status: the process reports
// SERVING only while it is registered.
type presence struct {
	publisher interfaces.AppPublisher
	health    *health.Server
	logger    log.Logger
	backOff   func() backoff.BackOff
}

func newPresence(publisher interfaces.AppPublisher, healthServer *health.Server, logger log.Logger) *presence {
	p := &presence{
		publisher: publisher,
		health:    healthServer,
		logger:    log.With(logger, "component", "presence"),
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	p.setServing(false)
	return p
}

func (p *presence) setServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	p.health.SetServingStatus("", status)
	p.health.SetServingStatus(p.publisher.Application().Name, status)
}

// register retries until the instance is published or ctx ends.
func (p *presence) register(ctx context.Context) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.publisher.Register(ctx)
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			level.Warn(p.logger).Log("msg", "registration failed", "retry_in", next, "err", err)
		}),
	)
	if err != nil {
		return err
	}
	p.setServing(true)
	level.Info(p.logger).Log("msg", "instance registered", "state", domain.StateUp)
	return nil
}

// unregister reports NOT_SERVING, publishes the DOWN state and removes the session node.
func (p *presence) unregister(ctx context.Context) {
	p.setServing(false)
	if err := p.publisher.UpdateState(ctx, domain.StateDown); err != nil {
		level.Warn(p.logger).Log("msg", "unable to publish DOWN state", "err", err)
	}
	if err := p.publisher.Unregister(ctx); err != nil {
		level.Error(p.logger).Log("msg", "unable to unregister", "err", err)
		return
	}
	level.Info(p.logger).Log("msg", "instance unregistered")
}
