package zookeeper

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"myregistry/domain"
	"myregistry/helpers"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-zookeeper/zk"
)

const (
	treeEventBuffer = 256
	// instance nodes sit two levels below the watched root: root/app/instance.
	treeMaxDepth = 2
)

type watchKind int

const (
	watchChildren watchKind = iota
	watchData
	watchExists
)

type firedWatch struct {
	ev   zk.Event
	kind watchKind
	path string
	gen  uint64
	id   uint64
}

type treeNode struct {
	id       uint64
	depth    int
	children map[string]struct{}
	data     []byte
}

// TreeWatcher keeps children and data watches on every node of a two-level tree and reports
// changes as domain.TreeEvent values. One goroutine owns all watch state; each armed one-shot
// watch gets a forwarding goroutine that hands the fired event to it.
//
// The initial load and every full re-arm are silent; they are followed by a single
// TreeEventInitialized or TreeEventConnectionReconnected event instead of per-node additions.
// Watches survive a suspension within the same session, so a plain reconnect re-arms nothing.
// The tree is re-armed after the session is lost or when a refresh failed.
type TreeWatcher struct {
	client *Client
	root   string
	logger log.Logger

	events chan domain.TreeEvent
	fired  chan firedWatch
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	started  atomic.Bool
	stopOnce sync.Once

	// owned by the run goroutine once it is started
	gen         uint64
	genCtx      context.Context
	genCancel   context.CancelFunc
	seq         uint64
	known       map[string]*treeNode
	needsArm    bool
	watchesLost bool
	retryEach   time.Duration
}

// NewTreeWatcher creates a watcher for the subtree at root. Nothing is watched until Start.
func NewTreeWatcher(client *Client, root string, logger log.Logger) *TreeWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	genCtx, genCancel := context.WithCancel(ctx)
	client = helpers.NilPanic(client, "zookeeper.tree_watcher.go: client is required")
	return &TreeWatcher{
		client:    client,
		root:      helpers.StrPanic(root, "zookeeper.tree_watcher.go: root is required"),
		logger:    log.With(helpers.NilPanic(logger, "zookeeper.tree_watcher.go: logger is required"), "component", "TreeWatcher"),
		events:    make(chan domain.TreeEvent, treeEventBuffer),
		fired:     make(chan firedWatch),
		ctx:       ctx,
		cancel:    cancel,
		genCtx:    genCtx,
		genCancel: genCancel,
		done:      make(chan struct{}),
		known:     map[string]*treeNode{},
		retryEach: client.Config().BaseSleep,
	}
}

// Events delivers tree events in order. It is closed after Stop.
func (w *TreeWatcher) Events() <-chan domain.TreeEvent {
	return w.events
}

// Start arms every watch synchronously and launches the owning goroutine. When arming fails it
// is retried in the background and TreeEventInitialized follows the first success.
// Returns false if already started.
func (w *TreeWatcher) Start() bool {
	if !w.started.CompareAndSwap(false, true) {
		return false
	}

	states := w.client.Subscribe(w.ctx)
	if err := w.armAll(w.ctx); err != nil {
		level.Warn(w.logger).Log("msg", "initial watch arming failed, will retry", "root", w.root, "err", err)
		w.needsArm = true
	} else {
		w.emit(domain.TreeEvent{Type: domain.TreeEventInitialized})
	}

	go w.run(states)
	return true
}

// Stop cancels every watch forwarder and the owning goroutine, then closes Events.
func (w *TreeWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		if w.started.Load() {
			<-w.done
		}
		close(w.events)
	})
}

func (w *TreeWatcher) run(states <-chan domain.ConnectionState) {
	defer close(w.done)

	ticker := time.NewTicker(w.retryEach)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case f := <-w.fired:
			w.handle(w.ctx, f)
		case state, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			w.handleState(w.ctx, state)
		case <-ticker.C:
			if w.needsArm && w.client.State().IsConnected() {
				w.rearm(w.ctx, domain.TreeEventInitialized)
			}
		}
	}
}

func (w *TreeWatcher) handleState(ctx context.Context, state domain.ConnectionState) {
	switch state {
	case domain.ConnectionStateSuspended:
		w.emit(domain.TreeEvent{Type: domain.TreeEventConnectionSuspended})
	case domain.ConnectionStateLost:
		w.watchesLost = true
		w.emit(domain.TreeEvent{Type: domain.TreeEventConnectionLost})
	case domain.ConnectionStateReconnected:
		if w.watchesLost || w.needsArm {
			if err := w.armAll(ctx); err != nil {
				level.Warn(w.logger).Log("msg", "re-arming watches after reconnect failed, will retry", "err", err)
				w.needsArm = true
			} else {
				w.needsArm = false
			}
		}
		w.emit(domain.TreeEvent{Type: domain.TreeEventConnectionReconnected})
	case domain.ConnectionStateConnected:
		if w.needsArm {
			w.rearm(ctx, domain.TreeEventInitialized)
		}
	}
}

func (w *TreeWatcher) rearm(ctx context.Context, then domain.TreeEventType) {
	if err := w.armAll(ctx); err != nil {
		level.Warn(w.logger).Log("msg", "re-arming watches failed, will retry", "err", err)
		w.needsArm = true
		return
	}
	w.needsArm = false
	w.emit(domain.TreeEvent{Type: then})
}

// armAll forgets every known node and silently re-arms the whole tree. Forwarders of the previous
// generation are cancelled and anything they already handed over is dropped by generation.
func (w *TreeWatcher) armAll(ctx context.Context) error {
	w.genCancel()
	w.genCtx, w.genCancel = context.WithCancel(w.ctx)
	w.gen++
	w.watchesLost = false
	w.known = map[string]*treeNode{}
	return w.armRoot(ctx, false)
}

// armRoot watches the root's children, or its creation when it does not exist yet.
func (w *TreeWatcher) armRoot(ctx context.Context, emit bool) error {
	for {
		err := w.armNode(ctx, w.root, 0, emit)
		if !service.IsEntityNotFoundError(err) {
			return err
		}
		exists, watch, err := w.client.ExistsW(ctx, w.root)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		w.forward(watch, watchExists, w.root, 0)
		return nil
	}
}

func (w *TreeWatcher) armNode(ctx context.Context, p string, depth int, emit bool) error {
	w.seq++
	n := &treeNode{id: w.seq, depth: depth, children: map[string]struct{}{}}

	if depth == treeMaxDepth {
		data, watch, err := w.client.GetW(ctx, p)
		if err != nil {
			return err
		}
		n.data = data
		w.known[p] = n
		w.forward(watch, watchData, p, n.id)
		if emit {
			w.emit(domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: p, Data: data})
		}
		return nil
	}

	children, watch, err := w.client.ChildrenW(ctx, p)
	if err != nil {
		return err
	}
	w.known[p] = n
	w.forward(watch, watchChildren, p, n.id)
	if emit && depth > 0 {
		w.emit(domain.TreeEvent{Type: domain.TreeEventNodeAdded, Path: p})
	}
	for _, name := range children {
		err := w.armNode(ctx, p+"/"+name, depth+1, emit)
		if service.IsEntityNotFoundError(err) {
			continue
		}
		if err != nil {
			return err
		}
		n.children[name] = struct{}{}
	}
	return nil
}

func (w *TreeWatcher) forward(watch <-chan zk.Event, kind watchKind, p string, id uint64) {
	if watch == nil {
		return
	}
	gen, done := w.gen, w.genCtx.Done()
	go func() {
		select {
		case ev, ok := <-watch:
			if !ok {
				return
			}
			select {
			case w.fired <- firedWatch{ev: ev, kind: kind, path: p, gen: gen, id: id}:
			case <-done:
			}
		case <-done:
		}
	}()
}

func (w *TreeWatcher) handle(ctx context.Context, f firedWatch) {
	if f.gen != w.gen {
		return
	}
	if f.ev.Type == zk.EventNotWatching {
		w.watchesLost = true
		return
	}

	if f.kind == watchExists {
		if _, ok := w.known[f.path]; ok {
			return
		}
		if err := w.armRoot(ctx, true); err != nil {
			w.fail(err)
		}
		return
	}

	n, ok := w.known[f.path]
	if !ok || n.id != f.id {
		return
	}
	switch f.ev.Type {
	case zk.EventNodeDeleted:
		w.nodeGone(ctx, f.path)
	case zk.EventNodeChildrenChanged:
		w.refreshChildren(ctx, f.path, n)
	case zk.EventNodeDataChanged:
		data, watch, err := w.client.GetW(ctx, f.path)
		if service.IsEntityNotFoundError(err) {
			w.nodeGone(ctx, f.path)
			return
		}
		if err != nil {
			w.fail(err)
			return
		}
		n.data = data
		w.forward(watch, watchData, f.path, n.id)
		w.emit(domain.TreeEvent{Type: domain.TreeEventNodeUpdated, Path: f.path, Data: data})
	}
}

func (w *TreeWatcher) refreshChildren(ctx context.Context, p string, n *treeNode) {
	children, watch, err := w.client.ChildrenW(ctx, p)
	if service.IsEntityNotFoundError(err) {
		w.nodeGone(ctx, p)
		return
	}
	if err != nil {
		w.fail(err)
		return
	}
	w.forward(watch, watchChildren, p, n.id)

	current := make(map[string]struct{}, len(children))
	for _, name := range children {
		current[name] = struct{}{}
	}
	for name := range n.children {
		if _, ok := current[name]; !ok {
			w.removeSubtree(p + "/" + name)
		}
	}
	for _, name := range children {
		if _, ok := n.children[name]; ok {
			continue
		}
		err := w.armNode(ctx, p+"/"+name, n.depth+1, true)
		if service.IsEntityNotFoundError(err) {
			continue
		}
		if err != nil {
			w.fail(err)
			return
		}
		n.children[name] = struct{}{}
	}
}

func (w *TreeWatcher) nodeGone(ctx context.Context, p string) {
	w.removeSubtree(p)
	if p == w.root {
		if err := w.armRoot(ctx, true); err != nil {
			w.fail(err)
		}
	}
}

// removeSubtree forgets p and its descendants, reporting removals deepest first. The root itself
// is never reported.
func (w *TreeWatcher) removeSubtree(p string) {
	var gone []string
	for kp := range w.known {
		if kp == p || strings.HasPrefix(kp, p+"/") {
			gone = append(gone, kp)
		}
	}
	slices.SortFunc(gone, func(a, b string) int {
		if d := w.known[b].depth - w.known[a].depth; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	for _, kp := range gone {
		n := w.known[kp]
		delete(w.known, kp)
		if n.depth > 0 {
			w.emit(domain.TreeEvent{Type: domain.TreeEventNodeRemoved, Path: kp, Data: n.data})
		}
	}
	if parent, ok := w.known[path.Dir(p)]; ok {
		delete(parent.children, path.Base(p))
	}
}

func (w *TreeWatcher) fail(err error) {
	level.Warn(w.logger).Log("msg", "watch refresh failed, scheduling full re-arm", "err", err)
	w.needsArm = true
}

func (w *TreeWatcher) emit(ev domain.TreeEvent) {
	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	}
}
