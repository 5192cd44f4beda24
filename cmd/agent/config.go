package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"myregistry/adapters/zookeeper"

	"gopkg.in/yaml.v3"
)

// Env variable names.
const (
	envGRPCPort    = "SERVICE_PORT_GRPC"
	envConfigPath  = "CONFIG_PATH"
	envRedisAddr   = "REDIS_ADDR"
	envRecordTTLS  = "RECORD_TTL_S"
	defaultTTL     = 24 * time.Hour
	defaultInitial = 10 * time.Second
	defaultPeriod  = time.Minute
)

// AgentConfig holds the agent configuration loaded by LoadConfig from environment variables and the
// YAML instance descriptor at CONFIG_PATH. RedisAddr is optional; without it nothing is recorded.
type AgentConfig struct {
	GRPCPort  int
	ZooKeeper zookeeper.Config
	Instance  InstanceConfig
	Recording RecordingConfig
	RedisAddr string
	RecordTTL time.Duration
}

// InstanceConfig identifies this process in the registry.
type InstanceConfig struct {
	Name         string
	Host         string
	InternalHost string
	Port         int
}

// RecordingConfig drives the recording schedule.
type RecordingConfig struct {
	InitDelay time.Duration
	Period    time.Duration
	Prefixes  []string
}

// yamlConfig is the root of the instance descriptor.
type yamlConfig struct {
	Application yamlApplication `yaml:"application"`
	Recording   yamlRecording   `yaml:"recording"`
}

// yamlApplication is the published identity; port defaults to SERVICE_PORT_GRPC.
type yamlApplication struct {
	Name         string `yaml:"name"`
	Host         string `yaml:"host"`
	InternalHost string `yaml:"internal_host"`
	Port         int    `yaml:"port"`
}

type yamlRecording struct {
	InitDelayMs int64    `yaml:"init_delay_ms"`
	PeriodMs    int64    `yaml:"period_ms"`
	Prefixes    []string `yaml:"prefixes"`
}

func loadYAMLConfig(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out yamlConfig
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadConfig reads SERVICE_PORT_GRPC (required, 1-65535), CONFIG_PATH (required), the ZK_* settings,
// REDIS_ADDR and RECORD_TTL_S (seconds, default one day).
func LoadConfig() (*AgentConfig, error) {
	grpcPortStr := os.Getenv(envGRPCPort)
	grpcPort, err := strconv.Atoi(grpcPortStr)
	if err != nil || grpcPortStr == "" {
		return nil, fmt.Errorf("%s must be a valid port (1-65535)", envGRPCPort)
	}
	if grpcPort <= 0 || grpcPort > 65535 {
		return nil, fmt.Errorf("%s must be 1-65535, got %d", envGRPCPort, grpcPort)
	}

	configPath := strings.TrimSpace(os.Getenv(envConfigPath))
	if configPath == "" {
		return nil, fmt.Errorf("%s is required", envConfigPath)
	}
	if !filepath.IsAbs(configPath) {
		abs, absErr := filepath.Abs(configPath)
		if absErr != nil {
			return nil, absErr
		}
		configPath = abs
	}
	raw, err := loadYAMLConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	zkConfig, err := zookeeper.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if ttlStr := os.Getenv(envRecordTTLS); ttlStr != "" {
		sec, err := strconv.Atoi(ttlStr)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("%s must be a positive number of seconds, got %q", envRecordTTLS, ttlStr)
		}
		ttl = time.Duration(sec) * time.Second
	}

	instance, err := instanceFromYAML(raw.Application, grpcPort)
	if err != nil {
		return nil, err
	}
	recording, err := recordingFromYAML(raw.Recording)
	if err != nil {
		return nil, err
	}

	return &AgentConfig{
		GRPCPort:  grpcPort,
		ZooKeeper: zkConfig,
		Instance:  instance,
		Recording: recording,
		RedisAddr: strings.TrimSpace(os.Getenv(envRedisAddr)),
		RecordTTL: ttl,
	}, nil
}

func instanceFromYAML(app yamlApplication, grpcPort int) (InstanceConfig, error) {
	if app.Name == "" {
		return InstanceConfig{}, fmt.Errorf("application.name is required")
	}
	host := app.Host
	if host == "" {
		h, err := os.Hostname()
		if err != nil {
			return InstanceConfig{}, fmt.Errorf("application.host is empty and hostname is unavailable: %w", err)
		}
		host = h
	}
	port := app.Port
	if port == 0 {
		port = grpcPort
	}
	if port < 0 || port > 65535 {
		return InstanceConfig{}, fmt.Errorf("application.port must be 1-65535, got %d", port)
	}
	return InstanceConfig{Name: app.Name, Host: host, InternalHost: app.InternalHost, Port: port}, nil
}

func recordingFromYAML(r yamlRecording) (RecordingConfig, error) {
	if r.InitDelayMs < 0 || r.PeriodMs < 0 {
		return RecordingConfig{}, fmt.Errorf("recording delays must not be negative")
	}
	out := RecordingConfig{InitDelay: defaultInitial, Period: defaultPeriod, Prefixes: r.Prefixes}
	if r.InitDelayMs > 0 {
		out.InitDelay = time.Duration(r.InitDelayMs) * time.Millisecond
	}
	if r.PeriodMs > 0 {
		out.Period = time.Duration(r.PeriodMs) * time.Millisecond
	}
	return out, nil
}
