package zookeeper

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env variable names read by ConfigFromEnv.
const (
	EnvAddress             = "ZK_ADDR"
	EnvBaseSleepMs         = "ZK_BASE_SLEEP_MS"
	EnvMaxRetries          = "ZK_MAX_RETRIES"
	EnvSessionTimeoutMs    = "ZK_SESSION_TIMEOUT_MS"
	EnvConnectionTimeoutMs = "ZK_CONNECTION_TIMEOUT_MS"
	EnvRoot                = "ZK_ROOT"
)

// ConfigFromEnv reads the coordination client settings. Unset variables fall back to the
// defaults; set ones must parse and be non-negative.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	cfg.Address = strings.TrimSpace(os.Getenv(EnvAddress))
	cfg.Root = strings.TrimSpace(os.Getenv(EnvRoot))

	var err error
	if cfg.BaseSleep, err = envMillis(EnvBaseSleepMs); err != nil {
		return Config{}, err
	}
	if cfg.SessionTimeout, err = envMillis(EnvSessionTimeoutMs); err != nil {
		return Config{}, err
	}
	if cfg.ConnectionTimeout, err = envMillis(EnvConnectionTimeoutMs); err != nil {
		return Config{}, err
	}

	cfg.MaxRetries = -1
	if raw := os.Getenv(EnvMaxRetries); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%s must be a non-negative integer, got %q", EnvMaxRetries, raw)
		}
		cfg.MaxRetries = n
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envMillis(name string) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number of milliseconds, got %q", name, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
