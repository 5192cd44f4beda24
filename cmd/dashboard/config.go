package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"myregistry/adapters/zookeeper"
)

const (
	envHTTPPort   = "SERVICE_PORT_HTTP"
	envRedisAddr  = "REDIS_ADDR"
	envRecordTTLS = "RECORD_TTL_S"
	defaultTTL    = 24 * time.Hour
)

type DashboardConfig struct {
	HTTPPort  int
	ZooKeeper zookeeper.Config
	RedisAddr string
	RecordTTL time.Duration
}

// LoadConfig loads configuration from environment variables.
// REDIS_ADDR and SERVICE_PORT_HTTP are required.
func LoadConfig() (*DashboardConfig, error) {
	redisAddr := os.Getenv(envRedisAddr)
	if redisAddr == "" {
		return nil, fmt.Errorf("%s is required", envRedisAddr)
	}

	httpPortStr := os.Getenv(envHTTPPort)
	if httpPortStr == "" {
		return nil, fmt.Errorf("%s is required", envHTTPPort)
	}
	httpPort, err := strconv.Atoi(httpPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envHTTPPort, err)
	}

	ttl := defaultTTL
	if ttlStr := os.Getenv(envRecordTTLS); ttlStr != "" {
		sec, err := strconv.Atoi(ttlStr)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("%s must be a positive number of seconds, got %q", envRecordTTLS, ttlStr)
		}
		ttl = time.Duration(sec) * time.Second
	}

	zkConfig, err := zookeeper.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	return &DashboardConfig{
		HTTPPort:  httpPort,
		ZooKeeper: zkConfig,
		RedisAddr: redisAddr,
		RecordTTL: ttl,
	}, nil
}
