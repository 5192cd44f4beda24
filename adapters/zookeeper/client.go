package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"myregistry/domain"
	"myregistry/helpers"
	"myregistry/service"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-zookeeper/zk"
)

const subscriptionBuffer = 64

// CreateMode selects the node lifetime.
type CreateMode int32

const (
	// Persistent nodes outlive the session that created them.
	Persistent CreateMode = 0
	// Ephemeral nodes are deleted by the server when the creating session ends.
	Ephemeral CreateMode = zk.FlagEphemeral
)

// Client is one logical ZooKeeper connection shared by publishers and subscribers.
// After the first session is established the underlying library reconnects on its own; the
// client translates its session events into domain.ConnectionState transitions.
type Client struct {
	cfg       Config
	connector Connector
	logger    log.Logger
	handlers  lifecycleHandlers

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.RWMutex
	conn      Conn
	state     domain.ConnectionState
	up        bool
	connected chan struct{} // closed while up

	subsMu     sync.Mutex
	subs       map[uint64]chan domain.ConnectionState
	nextSub    uint64
	subsClosed bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithConnector replaces how sessions are opened. Tests pass an in-memory connector.
func WithConnector(connector Connector) ClientOption {
	return func(c *Client) {
		c.connector = helpers.NilPanic(connector, "zookeeper.client.go: connector is required")
	}
}

// NewClient creates a stopped client. Zero config fields fall back to the package defaults;
// an invalid root or address panics.
func NewClient(cfg Config, logger log.Logger, opts ...ClientOption) *Client {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		panic("zookeeper.client.go: " + err.Error())
	}
	logger = log.With(helpers.NilPanic(logger, "zookeeper.client.go: logger is required"), "component", "ZookeeperClient")

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:       cfg,
		logger:    logger,
		handlers:  lifecycleHandlers{logger: logger},
		ctx:       ctx,
		cancel:    cancel,
		connected: make(chan struct{}),
		subs:      map[uint64]chan domain.ConnectionState{},
	}
	c.connector = ZKConnector(logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// AddLifecycleHandler registers h; a handler with the same name is replaced in place.
func (c *Client) AddLifecycleHandler(h LifecycleHandler) {
	c.handlers.add(helpers.NilPanic(h, "zookeeper.client.go: lifecycle handler is required"))
}

// RemoveLifecycleHandler unregisters the handler with the given name, if any.
func (c *Client) RemoveLifecycleHandler(name string) {
	c.handlers.remove(name)
}

// Start launches the background connect loop. It returns false when the client was already
// started and panics when called after Shutdown.
func (c *Client) Start() bool {
	if c.stopped.Load() {
		panic("zookeeper.client.go: start after shutdown")
	}
	if !c.started.CompareAndSwap(false, true) {
		return false
	}

	c.handlers.run(phaseBeforeStart)
	level.Info(c.logger).Log("msg", "starting zookeeper client", "addr", c.cfg.Address, "root", c.cfg.Root)
	c.wg.Add(1)
	go c.connectLoop()
	c.handlers.run(phaseAfterStarted)
	return true
}

// Shutdown stops the client exactly once: BeforeShutdown handlers run, the connection is closed
// and every state subscription channel is closed.
func (c *Client) Shutdown() {
	c.stopOnce.Do(func() {
		if c.started.Load() {
			c.handlers.run(phaseBeforeShutdown)
		}
		c.stopped.Store(true)
		c.cancel()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.markDownLocked()
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}

		c.wg.Wait()
		c.closeSubscriptions()
		level.Info(c.logger).Log("msg", "zookeeper client stopped")
	})
}

// IsRunning reports started and not shut down.
func (c *Client) IsRunning() bool {
	return c.started.Load() && !c.stopped.Load()
}

// State returns the last broadcast connection state, empty before the first session.
func (c *Client) State() domain.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// WaitConnected blocks until a session is usable, ctx is done or the client stops.
func (c *Client) WaitConnected(ctx context.Context) error {
	for {
		if !c.IsRunning() {
			return service.NewNotRunningError("zookeeper client is not running", nil)
		}
		c.mu.RLock()
		up, ch := c.up, c.connected
		c.mu.RUnlock()
		if up {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return service.NewConnectionLossError("no zookeeper connection", ctx.Err())
		case <-c.ctx.Done():
		}
	}
}

// Subscribe returns a channel of connection state changes. Delivery never blocks the client:
// when the buffer is full the state is dropped and a warning logged. The channel is closed when
// ctx is done or the client shuts down.
func (c *Client) Subscribe(ctx context.Context) <-chan domain.ConnectionState {
	ch := make(chan domain.ConnectionState, subscriptionBuffer)

	c.subsMu.Lock()
	if c.subsClosed {
		c.subsMu.Unlock()
		close(ch)
		return ch
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			c.unsubscribe(id)
		case <-c.ctx.Done():
		}
	}()
	return ch
}

func (c *Client) unsubscribe(id uint64) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Client) closeSubscriptions() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subsClosed = true
}

func (c *Client) broadcast(state domain.ConnectionState) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- state:
		default:
			level.Warn(c.logger).Log("msg", "state subscriber is full, dropping state", "subscriber", id, "state", state)
		}
	}
}

// connectLoop runs rounds of MaxRetries+1 backoff attempts until a session is established or
// the client stops.
func (c *Client) connectLoop() {
	defer c.wg.Done()

	for round := 1; ; round++ {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.cfg.BaseSleep

		_, err := backoff.Retry(c.ctx, c.connectOnce,
			backoff.WithBackOff(b),
			backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				level.Warn(c.logger).Log("msg", "zookeeper connect attempt failed", "round", round, "retry_in", next, "err", err)
			}),
		)
		if err == nil || c.ctx.Err() != nil {
			return
		}
		level.Error(c.logger).Log("msg", "zookeeper connect round exhausted, starting over", "round", round, "err", err)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.cfg.BaseSleep):
		}
	}
}

// connectOnce opens a session and waits up to ConnectionTimeout for it to be established.
func (c *Client) connectOnce() (struct{}, error) {
	conn, events, err := c.connector(c.cfg.Servers(), c.cfg.SessionTimeout, c.cfg.ConnectionTimeout)
	if err != nil {
		return struct{}{}, fmt.Errorf("connect to %s: %w", c.cfg.Address, err)
	}

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return struct{}{}, backoff.Permanent(c.ctx.Err())
	}
	c.conn = conn
	c.mu.Unlock()

	established := make(chan struct{})
	c.wg.Add(1)
	go c.pump(conn, events, established)

	timer := time.NewTimer(c.cfg.ConnectionTimeout)
	defer timer.Stop()
	select {
	case <-established:
		return struct{}{}, nil
	case <-c.ctx.Done():
		return struct{}{}, backoff.Permanent(c.ctx.Err())
	case <-timer.C:
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
	return struct{}{}, fmt.Errorf("no session within %s", c.cfg.ConnectionTimeout)
}

// pump drains the session event channel of one connection until it is closed.
func (c *Client) pump(conn Conn, events <-chan zk.Event, established chan<- struct{}) {
	defer c.wg.Done()

	var sm stateMachine
	var once sync.Once
	for ev := range events {
		if ev.Type == zk.EventSession && ev.State == zk.StateHasSession {
			once.Do(func() { close(established) })
		}
		to, ok := sm.next(ev)
		if !ok {
			continue
		}
		c.setState(conn, to)
	}
}

func (c *Client) setState(conn Conn, to domain.ConnectionState) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.state = to
	if to.IsConnected() {
		if !c.up {
			c.up = true
			close(c.connected)
		}
	} else {
		c.markDownLocked()
	}
	c.mu.Unlock()

	level.Info(c.logger).Log("msg", "zookeeper connection state changed", "state", to)
	c.broadcast(to)
}

func (c *Client) markDownLocked() {
	if c.up {
		c.up = false
		c.connected = make(chan struct{})
	}
}

// awaitConn returns the live connection, waiting at most ConnectionTimeout for one.
func (c *Client) awaitConn(ctx context.Context) (Conn, error) {
	if !c.IsRunning() {
		return nil, service.NewNotRunningError("zookeeper client is not running", nil)
	}
	timer := time.NewTimer(c.cfg.ConnectionTimeout)
	defer timer.Stop()
	for {
		c.mu.RLock()
		conn, up, ch := c.conn, c.up, c.connected
		c.mu.RUnlock()
		if up && conn != nil {
			return conn, nil
		}
		select {
		case <-ch:
		case <-timer.C:
			return nil, service.NewConnectionLossError(fmt.Sprintf("no zookeeper connection within %s", c.cfg.ConnectionTimeout), nil)
		case <-ctx.Done():
			return nil, service.NewConnectionLossError("no zookeeper connection", ctx.Err())
		case <-c.ctx.Done():
			return nil, service.NewNotRunningError("zookeeper client is not running", nil)
		}
	}
}

// call runs fn against the live connection. It fails fast when the client is not running and
// gives up when ctx is done; it never retries.
func call[T any](ctx context.Context, c *Client, op, p string, fn func(Conn) (T, error)) (T, error) {
	var zero T
	conn, err := c.awaitConn(ctx)
	if err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(conn)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.v, c.mapError(op, p, r.err)
		}
		return r.v, nil
	case <-ctx.Done():
		return zero, service.NewConnectionLossError(fmt.Sprintf("%s %s", op, p), ctx.Err())
	case <-c.ctx.Done():
		return zero, service.NewNotRunningError("zookeeper client is not running", nil)
	}
}

func (c *Client) mapError(op, p string, err error) error {
	msg := fmt.Sprintf("%s %s", op, p)
	switch {
	case errors.Is(err, zk.ErrNoNode):
		return service.NewEntityNotFoundError(msg, err)
	case errors.Is(err, zk.ErrNodeExists):
		return service.NewEntityExistsError(msg, err)
	case errors.Is(err, zk.ErrClosing) && c.stopped.Load():
		return service.NewNotRunningError(msg, err)
	case errors.Is(err, zk.ErrConnectionClosed),
		errors.Is(err, zk.ErrNoServer),
		errors.Is(err, zk.ErrSessionExpired),
		errors.Is(err, zk.ErrSessionMoved),
		errors.Is(err, zk.ErrClosing):
		return service.NewConnectionLossError(msg, err)
	default:
		return service.NewInternalServerError(msg, err)
	}
}

// Create creates path with data. With createParents, missing ancestors are created as empty
// persistent nodes first. It returns the created path.
func (c *Client) Create(ctx context.Context, p string, data []byte, mode CreateMode, createParents bool) (string, error) {
	return call(ctx, c, "create", p, func(conn Conn) (string, error) {
		if createParents {
			if err := ensureParents(conn, p); err != nil {
				return "", err
			}
		}
		return conn.Create(p, data, int32(mode), zk.WorldACL(zk.PermAll))
	})
}

func ensureParents(conn Conn, p string) error {
	parent := path.Dir(p)
	if parent == "/" || parent == "." {
		return nil
	}
	cur := ""
	for _, part := range strings.Split(strings.TrimPrefix(parent, "/"), "/") {
		cur += "/" + part
		if _, err := conn.Create(cur, nil, int32(Persistent), zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return err
		}
	}
	return nil
}

// Delete removes path regardless of its version.
func (c *Client) Delete(ctx context.Context, p string) error {
	_, err := call(ctx, c, "delete", p, func(conn Conn) (struct{}, error) {
		return struct{}{}, conn.Delete(p, -1)
	})
	return err
}

// Exists reports whether path is present.
func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	return call(ctx, c, "exists", p, func(conn Conn) (bool, error) {
		ok, _, err := conn.Exists(p)
		return ok, err
	})
}

// Get returns the payload of path.
func (c *Client) Get(ctx context.Context, p string) ([]byte, error) {
	return call(ctx, c, "get", p, func(conn Conn) ([]byte, error) {
		data, _, err := conn.Get(p)
		return data, err
	})
}

// Set replaces the payload of path regardless of its version.
func (c *Client) Set(ctx context.Context, p string, data []byte) error {
	_, err := call(ctx, c, "set", p, func(conn Conn) (struct{}, error) {
		_, err := conn.Set(p, data, -1)
		return struct{}{}, err
	})
	return err
}

// Children returns the child names of path.
func (c *Client) Children(ctx context.Context, p string) ([]string, error) {
	return call(ctx, c, "children", p, func(conn Conn) ([]string, error) {
		children, _, err := conn.Children(p)
		return children, err
	})
}

type watched[T any] struct {
	v     T
	watch <-chan zk.Event
}

// ChildrenW returns the child names of path and a one-shot watch on them.
func (c *Client) ChildrenW(ctx context.Context, p string) ([]string, <-chan zk.Event, error) {
	r, err := call(ctx, c, "children_w", p, func(conn Conn) (watched[[]string], error) {
		children, _, w, err := conn.ChildrenW(p)
		return watched[[]string]{v: children, watch: w}, err
	})
	return r.v, r.watch, err
}

// GetW returns the payload of path and a one-shot watch on its data.
func (c *Client) GetW(ctx context.Context, p string) ([]byte, <-chan zk.Event, error) {
	r, err := call(ctx, c, "get_w", p, func(conn Conn) (watched[[]byte], error) {
		data, _, w, err := conn.GetW(p)
		return watched[[]byte]{v: data, watch: w}, err
	})
	return r.v, r.watch, err
}

// ExistsW reports whether path is present and sets a one-shot watch that fires on its creation,
// deletion or data change.
func (c *Client) ExistsW(ctx context.Context, p string) (bool, <-chan zk.Event, error) {
	r, err := call(ctx, c, "exists_w", p, func(conn Conn) (watched[bool], error) {
		ok, _, w, err := conn.ExistsW(p)
		return watched[bool]{v: ok, watch: w}, err
	})
	return r.v, r.watch, err
}
