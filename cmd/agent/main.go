package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myregistry/adapters/myredis"
	"myregistry/adapters/zookeeper"
	"myregistry/domain"
	"myregistry/interfaces"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "Starting myregistry agent")

	config, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"service_port_grpc", config.GRPCPort,
		"zk_addr", config.ZooKeeper.Address,
		"zk_root", config.ZooKeeper.Root,
		"app", config.Instance.Name,
		"redis_addr", config.RedisAddr,
	)

	tp := service.NewTimeProvider(func() time.Time {
		return time.Now().UTC()
	})

	var app domain.Application
	{
		app, err = domain.NewApplication(
			config.Instance.Name,
			config.Instance.Host,
			config.Instance.InternalHost,
			config.Instance.Port,
			domain.StateUp,
			service.NowMs(tp),
		)
		if err != nil {
			level.Error(logger).Log("msg", "Invalid instance descriptor", "err", err)
			os.Exit(1)
		}
	}

	var publisher *zookeeper.Publisher
	{
		client := zookeeper.NewClient(config.ZooKeeper, logger)
		publisher = zookeeper.NewPublisher(client, app, tp, logger)
		publisher.Start()
	}

	var schedule *service.RecordingSchedule
	if config.RedisAddr != "" {
		redisClient, err := myredis.NewRedisUniversalClient(config.RedisAddr)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create Redis client", "err", err)
			os.Exit(1)
		}
		store := myredis.NewRecordStore(redisClient, config.RecordTTL, tp, logger)

		runtimeMetrics := prometheus.NewRegistry()
		runtimeMetrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		schedule = service.NewRecordingSchedule(
			app.HostAndPort(),
			[]interfaces.Collector{service.NewGathererCollector("runtime", runtimeMetrics, config.Recording.Prefixes...)},
			store,
			tp,
			config.Recording.InitDelay,
			config.Recording.Period,
			logger,
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = schedule.Start(ctx)
		cancel()
		if err != nil {
			level.Error(logger).Log("msg", "Failed to start recording", "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Recording started", "instance", app.HostAndPort().InstanceID())
	}

	var (
		grpcServer   *grpc.Server
		healthServer *health.Server
	)
	{
		grpcServer = grpc.NewServer()
		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)
	}
	registration := newPresence(publisher, healthServer, logger)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", config.GRPCPort))
	if err != nil {
		level.Error(logger).Log("msg", "Failed to listen", "err", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		level.Info(logger).Log("msg", "Starting gRPC server", "addr", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			level.Error(logger).Log("msg", "gRPC server error", "err", err)
		}
	}()

	registerCtx, registerCancel := context.WithCancel(context.Background())
	registered := make(chan struct{})
	go func() {
		defer close(registered)
		if err := registration.register(registerCtx); err != nil {
			level.Warn(logger).Log("msg", "Registration abandoned", "err", err)
		}
	}()

	<-quit
	level.Info(logger).Log("msg", "Shutting down...")

	registerCancel()
	<-registered

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	registration.unregister(shutdownCtx)
	if schedule != nil {
		schedule.Stop()
	}
	publisher.Shutdown()
	grpcServer.GracefulStop()

	level.Info(logger).Log("msg", "Agent stopped")
}
