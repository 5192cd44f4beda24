// Package zktest is an in-memory ZooKeeper ensemble for tests. It speaks the subset of the
// github.com/go-zookeeper/zk connection API used by the registry: node CRUD, ephemeral ownership,
// one-shot watches and session events. Sessions can be disconnected, reconnected and expired on
// demand to drive connection state transitions.
package zktest

import (
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
)

// Op names a connection operation for error injection.
type Op string

const (
	OpCreate   Op = "create"
	OpDelete   Op = "delete"
	OpExists   Op = "exists"
	OpGet      Op = "get"
	OpSet      Op = "set"
	OpChildren Op = "children"
)

const eventBufferSize = 64

type watchType int

const (
	watchData watchType = iota
	watchExist
	watchChild
)

type watchKey struct {
	path string
	kind watchType
}

type watcher struct {
	conn *Conn
	ch   chan zk.Event
}

type node struct {
	data     []byte
	owner    int64
	version  int32
	children map[string]struct{}
}

type injected struct {
	op   Op
	path string // empty matches any path
	err  error
}

// Server is the shared tree. Every Conn created by Connect sees the same nodes.
type Server struct {
	mu          sync.Mutex
	nodes       map[string]*node
	watchers    map[watchKey][]watcher
	conns       []*Conn
	nextSession int64
	connectErrs []error
	faults      []injected
	opDelay     time.Duration
}

// NewServer returns a server holding only the root node.
func NewServer() *Server {
	return &Server{
		nodes:    map[string]*node{"/": {children: map[string]struct{}{}}},
		watchers: map[watchKey][]watcher{},
	}
}

// FailConnect makes the next len(errs) Connect calls fail with the given errors, in order.
func (s *Server) FailConnect(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectErrs = append(s.connectErrs, errs...)
}

// InjectError makes the next op on pathPrefix (any path when empty) fail with err. One-shot.
func (s *Server) InjectError(op Op, pathPrefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, injected{op: op, path: pathPrefix, err: err})
}

// SetOpDelay delays every subsequent operation, used to exercise caller timeouts.
func (s *Server) SetOpDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opDelay = d
}

// Connect opens a new session. The session is established before Connect returns and the
// Connecting, Connected and HasSession events are already queued on the event channel.
func (s *Server) Connect(servers []string, sessionTimeout time.Duration) (*Conn, <-chan zk.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.connectErrs) > 0 {
		err := s.connectErrs[0]
		s.connectErrs = s.connectErrs[1:]
		return nil, nil, err
	}
	if len(servers) == 0 {
		return nil, nil, zk.ErrNoServer
	}

	s.nextSession++
	c := &Conn{
		srv:     s,
		session: s.nextSession,
		events:  make(chan zk.Event, eventBufferSize),
	}
	s.conns = append(s.conns, c)
	c.establishLocked()
	return c, c.events, nil
}

// Conns returns every connection ever opened, oldest first.
func (s *Server) Conns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.conns)
}

// DisconnectAll drops every open connection without ending sessions.
func (s *Server) DisconnectAll() {
	for _, c := range s.Conns() {
		c.Disconnect()
	}
}

// ReconnectAll restores every disconnected connection.
func (s *Server) ReconnectAll() {
	for _, c := range s.Conns() {
		c.Reconnect()
	}
}

// Exists reports whether path is present, bypassing sessions. For assertions.
func (s *Server) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[p]
	return ok
}

// Children lists the sorted child names of p, bypassing sessions. For assertions.
func (s *Server) Children(p string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[p]
	if !ok {
		return nil
	}
	return sortedChildren(n)
}

// Data returns the payload of p, bypassing sessions. For assertions.
func (s *Server) Data(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[p]
	if !ok {
		return nil, false
	}
	return slices.Clone(n.data), true
}

// Put creates or replaces a persistent node and any missing parents, firing watches as a remote
// writer would. Used to seed foreign or malformed entries.
func (s *Server) Put(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	cur := ""
	for i, part := range parts {
		cur += "/" + part
		if n, ok := s.nodes[cur]; ok {
			if i == len(parts)-1 {
				n.data = slices.Clone(data)
				n.version++
				s.fireLocked(watchKey{cur, watchData}, zk.EventNodeDataChanged)
			}
			continue
		}
		var payload []byte
		if i == len(parts)-1 {
			payload = data
		}
		s.createLocked(cur, payload, 0)
	}
}

// Remove deletes p and its subtree, firing watches.
func (s *Server) Remove(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeTreeLocked(p)
}

func (s *Server) removeTreeLocked(p string) {
	n, ok := s.nodes[p]
	if !ok {
		return
	}
	for _, child := range sortedChildren(n) {
		s.removeTreeLocked(path.Join(p, child))
	}
	s.deleteLocked(p)
}

func (s *Server) takeFaultLocked(op Op, p string) error {
	for i, f := range s.faults {
		if f.op == op && strings.HasPrefix(p, f.path) {
			s.faults = slices.Delete(s.faults, i, i+1)
			return f.err
		}
	}
	return nil
}

func (s *Server) createLocked(p string, data []byte, owner int64) {
	parent := path.Dir(p)
	s.nodes[p] = &node{data: slices.Clone(data), owner: owner, children: map[string]struct{}{}}
	s.nodes[parent].children[path.Base(p)] = struct{}{}

	s.fireLocked(watchKey{p, watchExist}, zk.EventNodeCreated)
	s.fireLocked(watchKey{parent, watchChild}, zk.EventNodeChildrenChanged)
}

func (s *Server) deleteLocked(p string) {
	parent := path.Dir(p)
	delete(s.nodes, p)
	if pn, ok := s.nodes[parent]; ok {
		delete(pn.children, path.Base(p))
	}

	s.fireLocked(watchKey{p, watchData}, zk.EventNodeDeleted)
	s.fireLocked(watchKey{p, watchExist}, zk.EventNodeDeleted)
	s.fireLocked(watchKey{p, watchChild}, zk.EventNodeDeleted)
	s.fireLocked(watchKey{parent, watchChild}, zk.EventNodeChildrenChanged)
}

func (s *Server) fireLocked(key watchKey, evType zk.EventType) {
	ws := s.watchers[key]
	if len(ws) == 0 {
		return
	}
	delete(s.watchers, key)
	for _, w := range ws {
		w.ch <- zk.Event{Type: evType, State: zk.StateHasSession, Path: key.path}
		close(w.ch)
	}
}

func (s *Server) addWatchLocked(c *Conn, key watchKey) <-chan zk.Event {
	ch := make(chan zk.Event, 1)
	s.watchers[key] = append(s.watchers[key], watcher{conn: c, ch: ch})
	return ch
}

// dropSessionLocked deletes the session's ephemerals and invalidates its watches with err.
func (s *Server) dropSessionLocked(c *Conn, err error) {
	var owned []string
	for p, n := range s.nodes {
		if n.owner == c.session {
			owned = append(owned, p)
		}
	}
	// Deepest first so parents are never deleted before their children.
	slices.SortFunc(owned, func(a, b string) int { return strings.Count(b, "/") - strings.Count(a, "/") })
	for _, p := range owned {
		s.removeTreeLocked(p)
	}

	for key, ws := range s.watchers {
		kept := ws[:0]
		for _, w := range ws {
			if w.conn != c {
				kept = append(kept, w)
				continue
			}
			ev := zk.Event{Type: zk.EventNotWatching, State: zk.StateDisconnected, Path: key.path, Err: err}
			w.ch <- ev
			close(w.ch)
			c.sendLocked(ev)
		}
		if len(kept) == 0 {
			delete(s.watchers, key)
		} else {
			s.watchers[key] = kept
		}
	}
}

func sortedChildren(n *node) []string {
	out := make([]string, 0, len(n.children))
	for name := range n.children {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
