package main

import (
	"testing"
	"time"

	"myregistry/adapters/zookeeper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, redisAddr, httpPort string) {
	t.Setenv(envRedisAddr, redisAddr)
	t.Setenv(envHTTPPort, httpPort)
	t.Setenv(envRecordTTLS, "")
	t.Setenv(zookeeper.EnvAddress, "")
	t.Setenv(zookeeper.EnvBaseSleepMs, "")
	t.Setenv(zookeeper.EnvMaxRetries, "")
	t.Setenv(zookeeper.EnvSessionTimeoutMs, "")
	t.Setenv(zookeeper.EnvConnectionTimeoutMs, "")
	t.Setenv(zookeeper.EnvRoot, "")
}

func TestLoadConfig_RedisAddrRequired(t *testing.T) {
	setEnv(t, "", "8080")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "REDIS_ADDR is required")
}

func TestLoadConfig_ServicePortRequired(t *testing.T) {
	setEnv(t, "redis://localhost:6379", "")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SERVICE_PORT_HTTP is required")
}

func TestLoadConfig_InvalidServicePort(t *testing.T) {
	setEnv(t, "redis://localhost:6379", "not-a-number")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SERVICE_PORT_HTTP")
}

func TestLoadConfig_InvalidTTL(t *testing.T) {
	setEnv(t, "redis://localhost:6379", "8080")
	t.Setenv(envRecordTTLS, "-5")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), envRecordTTLS)
}

func TestLoadConfig_InvalidZooKeeperRoot(t *testing.T) {
	setEnv(t, "redis://localhost:6379", "8080")
	t.Setenv(zookeeper.EnvRoot, "relative")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_Ok(t *testing.T) {
	setEnv(t, "redis://localhost:6379", "8080")
	t.Setenv(envRecordTTLS, "120")
	t.Setenv(zookeeper.EnvAddress, "zk1:2181,zk2:2181")
	t.Setenv(zookeeper.EnvRoot, "/apps")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 2*time.Minute, cfg.RecordTTL)
	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, cfg.ZooKeeper.Servers())
	assert.Equal(t, "/apps", cfg.ZooKeeper.Root)
}

func TestLoadConfig_DefaultTTL(t *testing.T) {
	setEnv(t, "redis://localhost:6379", "8080")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultTTL, cfg.RecordTTL)
	assert.Equal(t, zookeeper.DefaultAddress, cfg.ZooKeeper.Address)
}
