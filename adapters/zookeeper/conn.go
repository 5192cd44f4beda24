package zookeeper

import (
	"fmt"
	"net"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-zookeeper/zk"
)

// Conn is the part of *zk.Conn the client uses. zktest.Conn implements it in memory.
type Conn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
	Exists(path string) (bool, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Get(path string) ([]byte, *zk.Stat, error)
	GetW(path string) ([]byte, *zk.Stat, <-chan zk.Event, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Children(path string) ([]string, *zk.Stat, error)
	ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error)
	Close()
}

// Connector opens a session against servers. The returned channel carries session events and is
// closed when the connection is closed.
type Connector func(servers []string, sessionTimeout, connectionTimeout time.Duration) (Conn, <-chan zk.Event, error)

// ZKConnector dials a real ensemble. Each TCP dial is bounded by the connection timeout and the
// library's own log lines are routed to logger at debug level.
func ZKConnector(logger log.Logger) Connector {
	zkLogger := zkLogAdapter{logger: log.With(logger, "component", "zk")}
	return func(servers []string, sessionTimeout, connectionTimeout time.Duration) (Conn, <-chan zk.Event, error) {
		dialer := func(network, address string, _ time.Duration) (net.Conn, error) {
			return net.DialTimeout(network, address, connectionTimeout)
		}
		conn, events, err := zk.Connect(servers, sessionTimeout, zk.WithDialer(dialer), zk.WithLogger(zkLogger))
		if err != nil {
			return nil, nil, err
		}
		return conn, events, nil
	}
}

type zkLogAdapter struct {
	logger log.Logger
}

func (a zkLogAdapter) Printf(format string, args ...interface{}) {
	level.Debug(a.logger).Log("msg", fmt.Sprintf(format, args...))
}
