package zookeeper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"myregistry/domain"
	"myregistry/helpers"
	"myregistry/interfaces"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Subscriber keeps an in-memory view of every registered instance. Tree events are applied by a
// single reconciliation goroutine; queries read the cache snapshot without locking.
type Subscriber struct {
	client  *Client
	cache   *service.RegistryCache
	watcher *TreeWatcher
	root    string
	logger  log.Logger

	// writeMu orders incremental updates against full rebuilds, so a rebuild that read the tree
	// before an event was applied cannot publish over it.
	writeMu   sync.Mutex
	onRebuild []func()

	started  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

var _ interfaces.AppSubscriber = (*Subscriber)(nil)

// NewSubscriber creates a subscriber over the client's namespace.
func NewSubscriber(client *Client, logger log.Logger) *Subscriber {
	client = helpers.NilPanic(client, "zookeeper.subscriber.go: client is required")
	logger = log.With(helpers.NilPanic(logger, "zookeeper.subscriber.go: logger is required"), "component", "AppSubscriber")
	root := client.Config().Root

	ctx, cancel := context.WithCancel(context.Background())
	return &Subscriber{
		client:  client,
		cache:   service.NewRegistryCache(logger),
		watcher: NewTreeWatcher(client, instancesPath(root), logger),
		root:    root,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// OnChange registers an observer of instance counts, called after every published snapshot.
func (s *Subscriber) OnChange(fn func(counts map[string]int)) {
	s.cache.OnChange(fn)
}

// OnRebuild registers fn to be called after every full rebuild. Must be called before Start.
func (s *Subscriber) OnRebuild(fn func()) {
	s.onRebuild = append(s.onRebuild, helpers.NilPanic(fn, "zookeeper.subscriber.go: fn is required"))
}

// Start starts the client, waits up to the connection timeout for a session, arms the tree
// watcher, launches reconciliation and performs one synchronous full rebuild.
// Returns false when already started.
func (s *Subscriber) Start() bool {
	if !s.started.CompareAndSwap(false, true) {
		return false
	}

	s.client.Start()
	waitCtx, cancel := context.WithTimeout(s.ctx, s.client.Config().ConnectionTimeout)
	if err := s.client.WaitConnected(waitCtx); err != nil {
		level.Warn(s.logger).Log("msg", "no zookeeper connection yet, cache starts empty", "err", err)
	}
	cancel()

	s.watcher.Start()
	go s.reconcile()

	if err := s.rebuild(s.ctx); err != nil {
		level.Warn(s.logger).Log("msg", "initial rebuild failed", "err", err)
	}
	return true
}

func (s *Subscriber) reconcile() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			s.apply(ev)
		}
	}
}

// apply dispatches one tree event. Panics are recovered so reconciliation keeps running.
func (s *Subscriber) apply(ev domain.TreeEvent) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(s.logger).Log("msg", "tree event handling panicked", "event", ev.Type, "path", ev.Path, "err", fmt.Sprint(r))
		}
	}()

	switch ev.Type {
	case domain.TreeEventNodeAdded, domain.TreeEventNodeUpdated:
		app, ok := FromSessionNode(s.root, ev.Path)
		if !ok {
			s.logUndecodable(ev.Path)
			return
		}
		s.writeMu.Lock()
		s.cache.Upsert(app)
		s.writeMu.Unlock()
	case domain.TreeEventNodeRemoved:
		if ev.Path == "" {
			return
		}
		app, ok := FromSessionNode(s.root, ev.Path)
		if !ok {
			s.logUndecodable(ev.Path)
			return
		}
		s.writeMu.Lock()
		s.cache.Remove(app)
		s.writeMu.Unlock()
	case domain.TreeEventInitialized, domain.TreeEventConnectionReconnected:
		if err := s.rebuild(s.ctx); err != nil {
			level.Warn(s.logger).Log("msg", "rebuild failed", "event", ev.Type, "err", err)
		}
	default:
		level.Info(s.logger).Log("msg", "connection event", "event", ev.Type)
	}
}

func (s *Subscriber) logUndecodable(p string) {
	// App nodes are part of the tree too; only deeper paths are worth a warning.
	if _, isApp := fromAppNode(s.root, p); isApp {
		return
	}
	level.Warn(s.logger).Log("msg", "ignoring node that is not a session node", "path", p)
}

// rebuild reads the whole namespace and publishes it as a new snapshot. A missing namespace is
// an empty registry. Unreadable applications and malformed nodes are skipped.
func (s *Subscriber) rebuild(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base := instancesPath(s.root)
	appNodes, err := s.client.Children(ctx, base)
	if service.IsEntityNotFoundError(err) {
		appNodes, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("rebuild failed to list applications under %s, err: %w", base, err)
	}

	var apps []domain.Application
	for _, appNode := range appNodes {
		appPath := base + "/" + appNode
		instances, err := s.client.Children(ctx, appPath)
		if service.IsEntityNotFoundError(err) {
			continue
		}
		if err != nil {
			level.Warn(s.logger).Log("msg", "skipping unreadable application", "path", appPath, "err", err)
			continue
		}
		for _, instance := range instances {
			p := appPath + "/" + instance
			app, ok := FromSessionNode(s.root, p)
			if !ok {
				level.Warn(s.logger).Log("msg", "skipping malformed session node", "path", p)
				continue
			}
			apps = append(apps, app)
		}
	}

	s.cache.Replace(apps)
	level.Debug(s.logger).Log("msg", "registry rebuilt", "instances", len(apps))
	for _, fn := range s.onRebuild {
		fn()
	}
	return nil
}

// GetAll returns every known instance sorted by domain.Application.Compare.
func (s *Subscriber) GetAll() []domain.Application {
	return s.cache.GetAll()
}

// GetByName returns the instances of name; empty, never nil, when unknown.
func (s *Subscriber) GetByName(name string) []domain.Application {
	return s.cache.GetByName(name)
}

// GetAllNames returns the sorted names of applications with at least one instance.
func (s *Subscriber) GetAllNames() []string {
	return s.cache.GetAllNames()
}

// SummaryCounts returns the instance count per application.
func (s *Subscriber) SummaryCounts() map[string]int {
	return s.cache.SummaryCounts()
}

// Shutdown stops the watcher and reconciliation, then shuts the client down.
func (s *Subscriber) Shutdown() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.watcher.Stop()
		if s.started.Load() {
			<-s.done
		}
		s.client.Shutdown()
	})
}
