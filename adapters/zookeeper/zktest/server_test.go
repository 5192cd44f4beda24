package zktest

import (
	"errors"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, s *Server) (*Conn, <-chan zk.Event) {
	t.Helper()
	c, events, err := s.Connect([]string{"127.0.0.1:2181"}, time.Second)
	require.NoError(t, err)
	return c, events
}

func drainStates(events <-chan zk.Event) []zk.State {
	var out []zk.State
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			if ev.Type == zk.EventSession {
				out = append(out, ev.State)
			}
		default:
			return out
		}
	}
}

func TestConnect_EmitsSessionEvents(t *testing.T) {
	s := NewServer()
	_, events := connect(t, s)
	assert.Equal(t, []zk.State{zk.StateConnecting, zk.StateConnected, zk.StateHasSession}, drainStates(events))
}

func TestFailConnect(t *testing.T) {
	s := NewServer()
	s.FailConnect(zk.ErrNoServer)

	_, _, err := s.Connect([]string{"x"}, time.Second)
	require.ErrorIs(t, err, zk.ErrNoServer)

	_, _, err = s.Connect([]string{"x"}, time.Second)
	require.NoError(t, err)
}

func TestCreateDelete(t *testing.T) {
	s := NewServer()
	c, _ := connect(t, s)

	_, err := c.Create("/a/b", nil, 0, zk.WorldACL(zk.PermAll))
	require.ErrorIs(t, err, zk.ErrNoNode)

	_, err = c.Create("/a", []byte("x"), 0, zk.WorldACL(zk.PermAll))
	require.NoError(t, err)
	_, err = c.Create("/a", nil, 0, zk.WorldACL(zk.PermAll))
	require.ErrorIs(t, err, zk.ErrNodeExists)

	_, err = c.Create("/a/e", nil, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	require.NoError(t, err)
	_, err = c.Create("/a/e/child", nil, 0, zk.WorldACL(zk.PermAll))
	require.ErrorIs(t, err, zk.ErrNoChildrenForEphemerals)

	require.ErrorIs(t, c.Delete("/a", -1), zk.ErrNotEmpty)
	require.NoError(t, c.Delete("/a/e", -1))
	require.ErrorIs(t, c.Delete("/a/e", -1), zk.ErrNoNode)

	children, _, err := c.Children("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, children)
}

func TestWatches(t *testing.T) {
	s := NewServer()
	c, _ := connect(t, s)

	exists, _, existW, err := c.ExistsW("/root")
	require.NoError(t, err)
	assert.False(t, exists)

	s.Put("/root", nil)
	ev := <-existW
	assert.Equal(t, zk.EventNodeCreated, ev.Type)

	_, _, childW, err := c.ChildrenW("/root")
	require.NoError(t, err)
	s.Put("/root/a", []byte("1"))
	assert.Equal(t, zk.EventNodeChildrenChanged, (<-childW).Type)

	_, _, dataW, err := c.GetW("/root/a")
	require.NoError(t, err)
	s.Put("/root/a", []byte("2"))
	assert.Equal(t, zk.EventNodeDataChanged, (<-dataW).Type)

	_, _, dataW, err = c.GetW("/root/a")
	require.NoError(t, err)
	s.Remove("/root/a")
	assert.Equal(t, zk.EventNodeDeleted, (<-dataW).Type)
}

func TestDisconnectKeepsSession(t *testing.T) {
	s := NewServer()
	c, events := connect(t, s)
	drainStates(events)

	_, err := c.Create("/e", nil, zk.FlagEphemeral, nil)
	require.NoError(t, err)

	c.Disconnect()
	_, _, err = c.Get("/e")
	require.ErrorIs(t, err, zk.ErrConnectionClosed)
	assert.True(t, s.Exists("/e"))

	c.Reconnect()
	assert.Equal(t, []zk.State{zk.StateDisconnected, zk.StateConnecting, zk.StateConnected, zk.StateHasSession}, drainStates(events))
	_, _, err = c.Get("/e")
	require.NoError(t, err)
}

func TestExpireDropsEphemeralsAndWatches(t *testing.T) {
	s := NewServer()
	c, events := connect(t, s)
	other, _ := connect(t, s)
	drainStates(events)

	_, err := c.Create("/e", nil, zk.FlagEphemeral, nil)
	require.NoError(t, err)
	_, _, watch, err := c.ChildrenW("/")
	require.NoError(t, err)
	_, _, otherWatch, err := other.GetW("/e")
	require.NoError(t, err)
	before := c.SessionID()

	c.Expire()

	assert.False(t, s.Exists("/e"))
	assert.Equal(t, zk.EventNodeDeleted, (<-otherWatch).Type)
	assert.Equal(t, zk.EventNodeChildrenChanged, (<-watch).Type, "own watch fires for the deletion first")
	assert.NotEqual(t, before, c.SessionID())
	assert.Equal(t, []zk.State{zk.StateDisconnected, zk.StateExpired}, drainStates(events))

	c.Reconnect()
	assert.Equal(t, []zk.State{zk.StateConnecting, zk.StateConnected, zk.StateHasSession}, drainStates(events))
}

func TestExpireInvalidatesPendingWatches(t *testing.T) {
	s := NewServer()
	c, _ := connect(t, s)
	s.Put("/a", nil)

	_, _, watch, err := c.GetW("/a")
	require.NoError(t, err)

	c.Expire()
	ev := <-watch
	assert.Equal(t, zk.EventNotWatching, ev.Type)
	assert.ErrorIs(t, ev.Err, zk.ErrSessionExpired)
	_, open := <-watch
	assert.False(t, open)
}

func TestCloseClosesEvents(t *testing.T) {
	s := NewServer()
	c, events := connect(t, s)
	_, err := c.Create("/e", nil, zk.FlagEphemeral, nil)
	require.NoError(t, err)

	c.Close()
	c.Close()
	for range events {
	}
	assert.False(t, s.Exists("/e"))

	_, _, err = c.Get("/")
	require.ErrorIs(t, err, zk.ErrClosing)
}

func TestInjectError(t *testing.T) {
	s := NewServer()
	c, _ := connect(t, s)
	boom := errors.New("boom")
	s.InjectError(OpChildren, "/x", boom)

	_, _, err := c.Children("/")
	require.NoError(t, err, "prefix does not match")

	s.Put("/x", nil)
	_, _, err = c.Children("/x")
	require.ErrorIs(t, err, boom)
	_, _, err = c.Children("/x")
	require.NoError(t, err, "one-shot")
}
