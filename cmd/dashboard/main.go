package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myregistry/adapters/myredis"
	"myregistry/adapters/zookeeper"
	"myregistry/handlers"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

func main() {
	// Initialize logger
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "Starting myregistry dashboard")

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"service_port_http", config.HTTPPort,
		"zk_addr", config.ZooKeeper.Address,
		"zk_root", config.ZooKeeper.Root,
		"redis_addr", config.RedisAddr,
	)

	tp := service.NewTimeProvider(func() time.Time {
		return time.Now().UTC()
	})

	var store *myredis.RecordStore
	{
		redisClient, err := myredis.NewRedisUniversalClient(config.RedisAddr)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create Redis client", "err", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			level.Error(logger).Log("msg", "Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Connected to Redis")

		store = myredis.NewRecordStore(redisClient, config.RecordTTL, tp, logger)
	}

	metrics := service.NewRegistryMetrics()

	var subscriber *zookeeper.Subscriber
	{
		client := zookeeper.NewClient(config.ZooKeeper, logger)
		subscriber = zookeeper.NewSubscriber(client, logger)
		subscriber.OnChange(metrics.ObserveCounts)
		subscriber.OnRebuild(metrics.IncRebuilds)
		subscriber.Start()
		level.Info(logger).Log("msg", "Registry subscriber started", "applications", len(subscriber.GetAllNames()))
	}

	// Create HTTPServer
	var httpServer handlers.ServerInterface
	{
		httpServer = handlers.NewHTTPServer(subscriber, store, store, logger)
	}

	// Create HTTP server (Echo)
	var e *echo.Echo
	{
		e, err = handlers.NewEcho(httpServer, metrics.Handler(), logger)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create HTTP server", "err", err)
			os.Exit(1)
		}
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf(":%d", config.HTTPPort)
		level.Info(logger).Log("msg", "Starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "HTTP server error", "err", err)
		}
	}()

	<-quit
	level.Info(logger).Log("msg", "Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during server shutdown", "err", err)
	}
	subscriber.Shutdown()

	level.Info(logger).Log("msg", "Server stopped")
}
