package zookeeper

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"myregistry/adapters/zookeeper/zktest"
	"myregistry/domain"

	"github.com/go-kit/log"
	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchRoot = "/w"

func startWatcher(t *testing.T, srv *zktest.Server) (*Client, *TreeWatcher) {
	t.Helper()
	c := newTestClient(t, srv)
	startConnected(t, c)
	w := NewTreeWatcher(c, watchRoot, log.NewNopLogger())
	t.Cleanup(w.Stop)
	require.True(t, w.Start())
	return c, w
}

func nextEvent(t *testing.T, w *TreeWatcher) domain.TreeEvent {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for tree event")
		return domain.TreeEvent{}
	}
}

func assertNoEvent(t *testing.T, w *TreeWatcher) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected tree event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTreeWatcher_InitialLoadIsSilent(t *testing.T) {
	srv := zktest.NewServer()
	srv.Put(watchRoot+"/app/i1", []byte("one"))
	srv.Put(watchRoot+"/app/i2", []byte("two"))

	_, w := startWatcher(t, srv)

	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventInitialized}, nextEvent(t, w))
	assertNoEvent(t, w)
	assert.False(t, w.Start())
}

func TestTreeWatcher_MissingRootIsWatchedForCreation(t *testing.T) {
	srv := zktest.NewServer()
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)

	srv.Put(watchRoot+"/app/i1", []byte("one"))

	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app"}, nextEvent(t, w))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app/i1", Data: []byte("one")}, nextEvent(t, w))
}

func TestTreeWatcher_AddUpdateRemove(t *testing.T) {
	srv := zktest.NewServer()
	srv.Put(watchRoot, nil)
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)

	srv.Put(watchRoot+"/app", nil)
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app"}, nextEvent(t, w))

	srv.Put(watchRoot+"/app/i1", []byte("v1"))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app/i1", Data: []byte("v1")}, nextEvent(t, w))

	srv.Put(watchRoot+"/app/i1", []byte("v2"))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeUpdated, Path: watchRoot + "/app/i1", Data: []byte("v2")}, nextEvent(t, w))

	srv.Remove(watchRoot + "/app/i1")
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeRemoved, Path: watchRoot + "/app/i1", Data: []byte("v2")}, nextEvent(t, w))
}

func TestTreeWatcher_SubtreeRemovalIsDeepestFirst(t *testing.T) {
	srv := zktest.NewServer()
	srv.Put(watchRoot+"/app/i1", []byte("one"))
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)

	srv.Remove(watchRoot)

	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeRemoved, Path: watchRoot + "/app/i1", Data: []byte("one")}, nextEvent(t, w))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeRemoved, Path: watchRoot + "/app"}, nextEvent(t, w))

	// the root is watched for re-creation
	srv.Put(watchRoot+"/other", nil)
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/other"}, nextEvent(t, w))
}

func TestTreeWatcher_ConnectionEvents(t *testing.T) {
	srv := zktest.NewServer()
	srv.Put(watchRoot+"/app/i1", []byte("one"))
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)

	conn := lastConn(t, srv)
	conn.Disconnect()
	assert.Equal(t, domain.TreeEventConnectionSuspended, nextEvent(t, w).Type)
	conn.Reconnect()
	assert.Equal(t, domain.TreeEventConnectionReconnected, nextEvent(t, w).Type)

	conn.Expire()
	assert.Equal(t, domain.TreeEventConnectionSuspended, nextEvent(t, w).Type)
	assert.Equal(t, domain.TreeEventConnectionLost, nextEvent(t, w).Type)
	conn.Reconnect()
	assert.Equal(t, domain.TreeEventConnectionReconnected, nextEvent(t, w).Type)

	// watches were re-armed on the new session
	srv.Put(watchRoot+"/app/i2", []byte("two"))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app/i2", Data: []byte("two")}, nextEvent(t, w))
}

func TestTreeWatcher_ReconnectKeepsForwardersBounded(t *testing.T) {
	srv := zktest.NewServer()
	for i := range 20 {
		srv.Put(fmt.Sprintf("%s/app/i%d", watchRoot, i), []byte("v"))
	}
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)
	before := runtime.NumGoroutine()

	conn := lastConn(t, srv)
	for range 50 {
		conn.Disconnect()
		require.Equal(t, domain.TreeEventConnectionSuspended, nextEvent(t, w).Type)
		conn.Reconnect()
		require.Equal(t, domain.TreeEventConnectionReconnected, nextEvent(t, w).Type)
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+5
	}, waitFor, tick, "goroutines grew across reconnects")

	// the watches armed before the suspensions still fire
	srv.Put(watchRoot+"/app/i20", []byte("new"))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app/i20", Data: []byte("new")}, nextEvent(t, w))
	srv.Remove(watchRoot + "/app/i3")
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeRemoved, Path: watchRoot + "/app/i3", Data: []byte("v")}, nextEvent(t, w))
}

func TestTreeWatcher_ExpiryReplacesForwarders(t *testing.T) {
	srv := zktest.NewServer()
	for i := range 20 {
		srv.Put(fmt.Sprintf("%s/app/i%d", watchRoot, i), []byte("v"))
	}
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)
	before := runtime.NumGoroutine()

	conn := lastConn(t, srv)
	for range 10 {
		conn.Expire()
		require.Equal(t, domain.TreeEventConnectionSuspended, nextEvent(t, w).Type)
		require.Equal(t, domain.TreeEventConnectionLost, nextEvent(t, w).Type)
		conn.Reconnect()
		require.Equal(t, domain.TreeEventConnectionReconnected, nextEvent(t, w).Type)
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+5
	}, waitFor, tick, "goroutines grew across session expiries")

	srv.Put(watchRoot+"/app/i20", []byte("new"))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app/i20", Data: []byte("new")}, nextEvent(t, w))
}

func TestTreeWatcher_RetriesFailedInitialArm(t *testing.T) {
	srv := zktest.NewServer()
	srv.Put(watchRoot+"/app/i1", []byte("one"))
	c := newTestClient(t, srv)
	startConnected(t, c)
	srv.InjectError(zktest.OpChildren, watchRoot, zk.ErrNoAuth)

	w := NewTreeWatcher(c, watchRoot, log.NewNopLogger())
	t.Cleanup(w.Stop)
	require.True(t, w.Start())

	assert.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)
	srv.Put(watchRoot+"/app/i2", []byte("two"))
	assert.Equal(t, domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: watchRoot + "/app/i2", Data: []byte("two")}, nextEvent(t, w))
}

func TestTreeWatcher_StopClosesEvents(t *testing.T) {
	srv := zktest.NewServer()
	_, w := startWatcher(t, srv)
	require.Equal(t, domain.TreeEventInitialized, nextEvent(t, w).Type)

	w.Stop()
	w.Stop()
	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestTreeWatcher_StopWithoutStart(t *testing.T) {
	c := newTestClient(t, zktest.NewServer())
	w := NewTreeWatcher(c, watchRoot, log.NewNopLogger())
	w.Stop()
	_, ok := <-w.Events()
	assert.False(t, ok)
}
