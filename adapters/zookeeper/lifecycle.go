package zookeeper

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LifecycleHandler observes client start and shutdown. Handlers are keyed by Name.
type LifecycleHandler interface {
	Name() string
	BeforeStart()
	AfterStarted()
	BeforeShutdown()
}

// LifecycleHooks adapts plain funcs to LifecycleHandler. Nil hooks are skipped.
type LifecycleHooks struct {
	HandlerName        string
	BeforeStartFunc    func()
	AfterStartedFunc   func()
	BeforeShutdownFunc func()
}

func (h LifecycleHooks) Name() string { return h.HandlerName }

func (h LifecycleHooks) BeforeStart() {
	if h.BeforeStartFunc != nil {
		h.BeforeStartFunc()
	}
}

func (h LifecycleHooks) AfterStarted() {
	if h.AfterStartedFunc != nil {
		h.AfterStartedFunc()
	}
}

func (h LifecycleHooks) BeforeShutdown() {
	if h.BeforeShutdownFunc != nil {
		h.BeforeShutdownFunc()
	}
}

type lifecyclePhase int

const (
	phaseBeforeStart lifecyclePhase = iota
	phaseAfterStarted
	phaseBeforeShutdown
)

func (p lifecyclePhase) String() string {
	switch p {
	case phaseBeforeStart:
		return "before_start"
	case phaseAfterStarted:
		return "after_started"
	default:
		return "before_shutdown"
	}
}

// lifecycleHandlers is an ordered registry of handlers.
type lifecycleHandlers struct {
	mu       sync.Mutex
	handlers []LifecycleHandler
	logger   log.Logger
}

// add appends h, or replaces in place the handler registered under the same name.
func (l *lifecycleHandlers) add(h LifecycleHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := slices.IndexFunc(l.handlers, func(x LifecycleHandler) bool { return x.Name() == h.Name() }); i >= 0 {
		l.handlers[i] = h
		return
	}
	l.handlers = append(l.handlers, h)
}

func (l *lifecycleHandlers) remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = slices.DeleteFunc(l.handlers, func(x LifecycleHandler) bool { return x.Name() == name })
}

// run invokes phase on every handler in registration order. A panicking handler is logged and
// does not stop the others.
func (l *lifecycleHandlers) run(phase lifecyclePhase) {
	l.mu.Lock()
	handlers := slices.Clone(l.handlers)
	l.mu.Unlock()

	for _, h := range handlers {
		l.runOne(h, phase)
	}
}

func (l *lifecycleHandlers) runOne(h LifecycleHandler, phase lifecyclePhase) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(l.logger).Log("msg", "lifecycle handler panicked", "handler", h.Name(), "phase", phase, "err", fmt.Sprint(r))
		}
	}()
	switch phase {
	case phaseBeforeStart:
		h.BeforeStart()
	case phaseAfterStarted:
		h.AfterStarted()
	case phaseBeforeShutdown:
		h.BeforeShutdown()
	}
}
