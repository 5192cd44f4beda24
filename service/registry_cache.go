package service

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"myregistry/domain"
	"myregistry/helpers"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// registrySnapshot is immutable once published. Every slice is sorted by domain.Application.Compare
// and no name maps to an empty slice.
type registrySnapshot struct {
	byName map[string][]domain.Application
	total  int
}

var emptySnapshot = &registrySnapshot{byName: map[string][]domain.Application{}}

// RegistryCache holds the cluster-wide view of registered instances as an atomically swapped snapshot.
// Readers never block; writers serialize on mu and publish a modified copy.
type RegistryCache struct {
	mu        sync.Mutex
	snapshot  atomic.Pointer[registrySnapshot]
	observers []func(counts map[string]int)
	logger    log.Logger
}

// NewRegistryCache creates an empty cache.
func NewRegistryCache(logger log.Logger) *RegistryCache {
	c := &RegistryCache{
		logger: log.With(helpers.NilPanic(logger, "service.registry_cache.go: logger is required"), "component", "RegistryCache"),
	}
	c.snapshot.Store(emptySnapshot)
	return c
}

// OnChange registers fn to be called with the instance counts after every published snapshot.
// Observers run on the writer's goroutine while the writer lock is held.
func (c *RegistryCache) OnChange(fn func(counts map[string]int)) {
	helpers.NilPanic(fn, "service.registry_cache.go: fn is required")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Upsert adds app, replacing an equal instance if one is cached.
func (c *RegistryCache) Upsert(app domain.Application) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snapshot.Load()
	instances := slices.Clone(cur.byName[app.Name])
	if i := slices.IndexFunc(instances, app.Equal); i >= 0 {
		instances[i] = app
	} else {
		instances = append(instances, app)
		slices.SortFunc(instances, domain.Application.Compare)
	}

	next := maps.Clone(cur.byName)
	next[app.Name] = instances
	c.publish(next)
}

// Remove drops the cached instance equal to app. Unknown instances are ignored.
func (c *RegistryCache) Remove(app domain.Application) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snapshot.Load()
	instances := cur.byName[app.Name]
	i := slices.IndexFunc(instances, app.Equal)
	if i < 0 {
		return
	}

	next := maps.Clone(cur.byName)
	if len(instances) == 1 {
		delete(next, app.Name)
	} else {
		next[app.Name] = slices.Delete(slices.Clone(instances), i, i+1)
	}
	c.publish(next)
}

// Replace publishes a snapshot built from apps alone. Duplicates collapse to the last occurrence.
func (c *RegistryCache) Replace(apps []domain.Application) {
	byKey := make(map[string]domain.Application, len(apps))
	for _, app := range apps {
		byKey[app.Key()] = app
	}
	next := make(map[string][]domain.Application)
	for _, app := range byKey {
		next[app.Name] = append(next[app.Name], app)
	}
	for _, instances := range next {
		slices.SortFunc(instances, domain.Application.Compare)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.publish(next)
}

// publish must be called with mu held.
func (c *RegistryCache) publish(byName map[string][]domain.Application) {
	total := 0
	for name, instances := range byName {
		if len(instances) == 0 {
			delete(byName, name)
		}
		total += len(instances)
	}
	c.snapshot.Store(&registrySnapshot{byName: byName, total: total})

	if len(c.observers) == 0 {
		return
	}
	counts := countsOf(byName)
	for _, fn := range c.observers {
		c.notify(fn, counts)
	}
}

func (c *RegistryCache) notify(fn func(map[string]int), counts map[string]int) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(c.logger).Log("msg", "registry observer panicked", "err", fmt.Sprint(r))
		}
	}()
	fn(maps.Clone(counts))
}

// GetAll returns every cached instance sorted by domain.Application.Compare.
func (c *RegistryCache) GetAll() []domain.Application {
	snap := c.snapshot.Load()
	out := make([]domain.Application, 0, snap.total)
	for _, name := range slices.Sorted(maps.Keys(snap.byName)) {
		out = append(out, snap.byName[name]...)
	}
	return out
}

// GetByName returns a copy of one application's instances; empty, never nil, when unknown.
func (c *RegistryCache) GetByName(name string) []domain.Application {
	instances := c.snapshot.Load().byName[name]
	out := make([]domain.Application, len(instances))
	copy(out, instances)
	return out
}

// GetAllNames returns sorted names with at least one instance.
func (c *RegistryCache) GetAllNames() []string {
	return slices.Sorted(maps.Keys(c.snapshot.Load().byName))
}

// SummaryCounts returns instance counts per application name.
func (c *RegistryCache) SummaryCounts() map[string]int {
	return countsOf(c.snapshot.Load().byName)
}

func countsOf(byName map[string][]domain.Application) map[string]int {
	counts := make(map[string]int, len(byName))
	for name, instances := range byName {
		counts[name] = len(instances)
	}
	return counts
}
