package zktest

import (
	"path"
	"slices"
	"time"

	"github.com/go-zookeeper/zk"
)

// Conn is one client session. Its method set matches *zk.Conn for the operations it implements.
type Conn struct {
	srv       *Server
	session   int64
	events    chan zk.Event
	connected bool
	closed    bool
}

// SessionID returns the current session id; it changes after Expire.
func (c *Conn) SessionID() int64 {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	return c.session
}

// Disconnect drops the connection. The session, its ephemerals and its watches survive.
func (c *Conn) Disconnect() {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if c.closed || !c.connected {
		return
	}
	c.connected = false
	c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateDisconnected})
}

// Reconnect re-establishes a dropped connection, with a new session after Expire.
func (c *Conn) Reconnect() {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if c.closed || c.connected {
		return
	}
	c.establishLocked()
}

// Expire ends the session on the server side: its ephemerals are deleted, its watches receive
// EventNotWatching and StateExpired is emitted. The connection stays down until Reconnect.
func (c *Conn) Expire() {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if c.closed {
		return
	}
	if c.connected {
		c.connected = false
		c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateDisconnected})
	}
	c.srv.dropSessionLocked(c, zk.ErrSessionExpired)
	c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateExpired})
	c.srv.nextSession++
	c.session = c.srv.nextSession
}

// Close ends the session and closes the event channel.
func (c *Conn) Close() {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if c.closed {
		return
	}
	c.srv.dropSessionLocked(c, zk.ErrClosing)
	if c.connected {
		c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateDisconnected})
	}
	c.connected = false
	c.closed = true
	close(c.events)
}

func (c *Conn) Create(p string, data []byte, flags int32, acl []zk.ACL) (string, error) {
	s, err := c.begin(OpCreate, p)
	if err != nil {
		return "", err
	}
	defer s.mu.Unlock()

	if _, ok := s.nodes[p]; ok {
		return "", zk.ErrNodeExists
	}
	parent, ok := s.nodes[path.Dir(p)]
	if !ok {
		return "", zk.ErrNoNode
	}
	if parent.owner != 0 {
		return "", zk.ErrNoChildrenForEphemerals
	}
	var owner int64
	if flags&zk.FlagEphemeral != 0 {
		owner = c.session
	}
	s.createLocked(p, data, owner)
	return p, nil
}

func (c *Conn) Delete(p string, version int32) error {
	s, err := c.begin(OpDelete, p)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return zk.ErrNoNode
	}
	if version != -1 && version != n.version {
		return zk.ErrBadVersion
	}
	if len(n.children) > 0 {
		return zk.ErrNotEmpty
	}
	s.deleteLocked(p)
	return nil
}

func (c *Conn) Exists(p string) (bool, *zk.Stat, error) {
	s, err := c.begin(OpExists, p)
	if err != nil {
		return false, nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return false, &zk.Stat{}, nil
	}
	return true, statOf(n), nil
}

func (c *Conn) ExistsW(p string) (bool, *zk.Stat, <-chan zk.Event, error) {
	s, err := c.begin(OpExists, p)
	if err != nil {
		return false, nil, nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return false, &zk.Stat{}, s.addWatchLocked(c, watchKey{p, watchExist}), nil
	}
	return true, statOf(n), s.addWatchLocked(c, watchKey{p, watchData}), nil
}

func (c *Conn) Get(p string) ([]byte, *zk.Stat, error) {
	s, err := c.begin(OpGet, p)
	if err != nil {
		return nil, nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return slices.Clone(n.data), statOf(n), nil
}

func (c *Conn) GetW(p string) ([]byte, *zk.Stat, <-chan zk.Event, error) {
	s, err := c.begin(OpGet, p)
	if err != nil {
		return nil, nil, nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return nil, nil, nil, zk.ErrNoNode
	}
	return slices.Clone(n.data), statOf(n), s.addWatchLocked(c, watchKey{p, watchData}), nil
}

func (c *Conn) Set(p string, data []byte, version int32) (*zk.Stat, error) {
	s, err := c.begin(OpSet, p)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return nil, zk.ErrNoNode
	}
	if version != -1 && version != n.version {
		return nil, zk.ErrBadVersion
	}
	n.data = slices.Clone(data)
	n.version++
	s.fireLocked(watchKey{p, watchData}, zk.EventNodeDataChanged)
	return statOf(n), nil
}

func (c *Conn) Children(p string) ([]string, *zk.Stat, error) {
	s, err := c.begin(OpChildren, p)
	if err != nil {
		return nil, nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return sortedChildren(n), statOf(n), nil
}

func (c *Conn) ChildrenW(p string) ([]string, *zk.Stat, <-chan zk.Event, error) {
	s, err := c.begin(OpChildren, p)
	if err != nil {
		return nil, nil, nil, err
	}
	defer s.mu.Unlock()

	n, ok := s.nodes[p]
	if !ok {
		return nil, nil, nil, zk.ErrNoNode
	}
	return sortedChildren(n), statOf(n), s.addWatchLocked(c, watchKey{p, watchChild}), nil
}

// begin applies the configured delay, then locks the server and checks the connection and any
// injected fault. On success the caller owns the lock and must unlock it.
func (c *Conn) begin(op Op, p string) (*Server, error) {
	s := c.srv
	s.mu.Lock()
	delay := s.opDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	switch {
	case c.closed:
		s.mu.Unlock()
		return nil, zk.ErrClosing
	case !c.connected:
		s.mu.Unlock()
		return nil, zk.ErrConnectionClosed
	}
	if err := s.takeFaultLocked(op, p); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (c *Conn) establishLocked() {
	c.connected = true
	c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateConnecting})
	c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateConnected})
	c.sendLocked(zk.Event{Type: zk.EventSession, State: zk.StateHasSession})
}

// sendLocked publishes on the session channel without blocking, like the real client.
func (c *Conn) sendLocked(ev zk.Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
	}
}

func statOf(n *node) *zk.Stat {
	return &zk.Stat{
		Version:        n.version,
		EphemeralOwner: n.owner,
		NumChildren:    int32(len(n.children)),
		DataLength:     int32(len(n.data)),
	}
}
