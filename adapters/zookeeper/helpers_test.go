package zookeeper

import (
	"context"
	"testing"
	"time"

	"myregistry/adapters/zookeeper/zktest"
	"myregistry/domain"

	"github.com/go-kit/log"
	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

func testConfig() Config {
	return Config{
		Address:           "zk1:2181,zk2:2181",
		BaseSleep:         10 * time.Millisecond,
		MaxRetries:        2,
		SessionTimeout:    time.Second,
		ConnectionTimeout: 300 * time.Millisecond,
		Root:              testRoot,
	}
}

func testConnector(srv *zktest.Server) Connector {
	return func(servers []string, sessionTimeout, _ time.Duration) (Conn, <-chan zk.Event, error) {
		conn, events, err := srv.Connect(servers, sessionTimeout)
		if err != nil {
			return nil, nil, err
		}
		return conn, events, nil
	}
}

func newTestClient(t *testing.T, srv *zktest.Server) *Client {
	t.Helper()
	c := NewClient(testConfig(), log.NewNopLogger(), WithConnector(testConnector(srv)))
	t.Cleanup(c.Shutdown)
	return c
}

func startConnected(t *testing.T, c *Client) {
	t.Helper()
	c.Start()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, c.WaitConnected(ctx))
}

// lastConn is the most recent session opened against srv.
func lastConn(t *testing.T, srv *zktest.Server) *zktest.Conn {
	t.Helper()
	conns := srv.Conns()
	require.NotEmpty(t, conns)
	return conns[len(conns)-1]
}

func mustApp(t *testing.T, name, host string, port int) domain.Application {
	t.Helper()
	app, err := domain.NewApplication(name, host, "", port, domain.StateUp, 1000)
	require.NoError(t, err)
	return app
}

// nextState reads one state from ch or fails after waitFor.
func nextState(t *testing.T, ch <-chan domain.ConnectionState) domain.ConnectionState {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "state channel closed")
		return s
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for connection state")
		return ""
	}
}
