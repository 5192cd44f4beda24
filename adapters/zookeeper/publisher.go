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

const publisherHandlerName = "app-publisher"

// Publisher announces one application instance as an ephemeral session node and re-announces
// it whenever the client reconnects.
type Publisher struct {
	client *Client
	tp     interfaces.TimeProvider
	logger log.Logger

	mu      sync.Mutex // serializes Register, Unregister and UpdateState
	app     domain.Application
	session string

	started      atomic.Bool
	listenCancel context.CancelFunc
	listenDone   chan struct{}
	stopOnce     sync.Once
}

var _ interfaces.AppPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher for app. Panics on nil dependencies.
func NewPublisher(client *Client, app domain.Application, tp interfaces.TimeProvider, logger log.Logger) *Publisher {
	return &Publisher{
		client:     helpers.NilPanic(client, "zookeeper.publisher.go: client is required"),
		tp:         helpers.NilPanic(tp, "zookeeper.publisher.go: time provider is required"),
		logger:     log.With(helpers.NilPanic(logger, "zookeeper.publisher.go: logger is required"), "component", "AppPublisher", "app", app.Name),
		app:        app,
		listenDone: make(chan struct{}),
	}
}

// Start subscribes to connection states, hooks listener shutdown into the client lifecycle and
// starts the client. It does not register; call Register once the instance is ready.
// Returns false when already started.
func (p *Publisher) Start() bool {
	if !p.started.CompareAndSwap(false, true) {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.listenCancel = cancel
	states := p.client.Subscribe(ctx)
	go p.listen(ctx, states)

	p.client.AddLifecycleHandler(LifecycleHooks{
		HandlerName:        publisherHandlerName,
		BeforeShutdownFunc: p.stopListener,
	})
	p.client.Start()
	return true
}

func (p *Publisher) listen(ctx context.Context, states <-chan domain.ConnectionState) {
	defer close(p.listenDone)
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if state != domain.ConnectionStateReconnected {
				continue
			}
			level.Info(p.logger).Log("msg", "connection re-established, registering again")
			if err := p.Register(ctx); err != nil {
				level.Error(p.logger).Log("msg", "re-registration failed", "err", err)
			}
		}
	}
}

func (p *Publisher) stopListener() {
	p.stopOnce.Do(func() {
		if p.listenCancel == nil {
			return
		}
		p.listenCancel()
		<-p.listenDone
	})
}

// Register publishes the instance with a fresh LastRecover. The previous session node, if any,
// is deleted first on a best-effort basis. It is a no-op while the client is not running.
func (p *Publisher) Register(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registerLocked(ctx)
}

func (p *Publisher) registerLocked(ctx context.Context) error {
	p.app.LastRecover = service.NowMs(p.tp)
	if !p.client.IsRunning() {
		level.Debug(p.logger).Log("msg", "client not running, skipping registration")
		return nil
	}

	if p.session != "" {
		if err := p.client.Delete(ctx, p.session); err != nil && !service.IsEntityNotFoundError(err) {
			level.Warn(p.logger).Log("msg", "failed to delete previous session node", "session", p.session, "err", err)
		}
		p.session = ""
	}

	root := p.client.Config().Root
	node, err := ToSessionNode(root, p.app)
	if err != nil {
		return service.NewBadParameterError("invalid application", err)
	}
	payload, err := toNodePayload(p.app)
	if err != nil {
		return service.NewInternalServerError("can't encode application", err)
	}

	if err := p.ensureRoot(ctx, root); err != nil {
		if p.stoppedDuring(err) {
			return nil
		}
		return fmt.Errorf("register %s failed to ensure root %s, err: %w", p.app.Name, root, err)
	}
	created, err := p.client.Create(ctx, node, payload, Ephemeral, true)
	if err != nil {
		if p.stoppedDuring(err) {
			return nil
		}
		return fmt.Errorf("register %s failed to create session node, err: %w", p.app.Name, err)
	}
	p.session = created
	level.Info(p.logger).Log("msg", "instance registered", "session", created)
	return nil
}

func (p *Publisher) ensureRoot(ctx context.Context, root string) error {
	exists, err := p.client.Exists(ctx, root)
	if err != nil || exists {
		return err
	}
	if _, err := p.client.Create(ctx, root, nil, Persistent, true); err != nil && !service.IsEntityExistsError(err) {
		return err
	}
	return nil
}

// Unregister deletes the current session node. A node that is already gone counts as success.
// The application value is left untouched.
func (p *Publisher) Unregister(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsRunning() || p.session == "" {
		return nil
	}
	if err := p.client.Delete(ctx, p.session); err != nil && !service.IsEntityNotFoundError(err) {
		if p.stoppedDuring(err) {
			return nil
		}
		return fmt.Errorf("unregister %s failed to delete session node, err: %w", p.app.Name, err)
	}
	level.Info(p.logger).Log("msg", "instance unregistered", "session", p.session)
	p.session = ""
	return nil
}

// stoppedDuring reports whether err comes from a client shut down while the call was in flight.
// Such calls end as no-ops, the same as calls made after shutdown.
func (p *Publisher) stoppedDuring(err error) bool {
	if !service.IsNotRunningError(err) && p.client.IsRunning() {
		return false
	}
	level.Debug(p.logger).Log("msg", "client shut down during the call, skipping", "err", err)
	return true
}

// UpdateState sets the published state and registers again.
func (p *Publisher) UpdateState(ctx context.Context, state string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.app.State = state
	return p.registerLocked(ctx)
}

// Application returns a copy of the published instance.
func (p *Publisher) Application() domain.Application {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.app
}

// Session returns the current session node path, empty when not registered.
func (p *Publisher) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Shutdown stops reacting to reconnects and shuts the client down. The session node disappears
// with the session.
func (p *Publisher) Shutdown() {
	p.stopListener()
	p.client.RemoveLifecycleHandler(publisherHandlerName)
	p.client.Shutdown()
}
