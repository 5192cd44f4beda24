package zookeeper

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultAddress           = "127.0.0.1:2181"
	DefaultBaseSleep         = 1000 * time.Millisecond
	DefaultMaxRetries        = 3
	DefaultSessionTimeout    = 6000 * time.Millisecond
	DefaultConnectionTimeout = 6000 * time.Millisecond
	DefaultRoot              = "/myregistry"
)

// Config holds coordination client settings.
type Config struct {
	Address           string        // comma separated host:port list
	BaseSleep         time.Duration // initial backoff interval between connect attempts
	MaxRetries        int           // retries per connect round
	SessionTimeout    time.Duration
	ConnectionTimeout time.Duration // bound on waiting for a usable connection
	Root              string        // namespace, e.g. /myregistry
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.BaseSleep <= 0 {
		c.BaseSleep = DefaultBaseSleep
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	return c
}

// Validate checks the namespace root and address list.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Root, "/") || (len(c.Root) > 1 && strings.HasSuffix(c.Root, "/")) {
		return fmt.Errorf("zookeeper root must start with '/' and not end with it, got %q", c.Root)
	}
	if len(c.Servers()) == 0 {
		return fmt.Errorf("zookeeper address is empty")
	}
	return nil
}

// Servers splits Address into trimmed, non-empty entries.
func (c Config) Servers() []string {
	var out []string
	for _, s := range strings.Split(c.Address, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// InstancesPath is the parent of every application node.
func (c Config) InstancesPath() string {
	return instancesPath(c.Root)
}

func instancesPath(root string) string {
	if root == "/" {
		return "/instances"
	}
	return root + "/instances"
}
