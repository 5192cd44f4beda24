package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"myregistry/adapters/myredis"
	"myregistry/adapters/zookeeper"
	"myregistry/adapters/zookeeper/zktest"
	"myregistry/domain"
	"myregistry/handlers"
	"myregistry/interfaces"
	"myregistry/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kit/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-zookeeper/zk"
)

const (
	pollInterval = 10 * time.Millisecond
	recordTTL    = time.Hour
)

// Env is one in-process registry: a shared in-memory ZooKeeper, a dashboard serving HTTP on a
// loopback port and a record store on miniredis. Agents are added with StartAgent.
type Env struct {
	ZK         *zktest.Server
	Redis      *miniredis.Miniredis
	Subscriber *zookeeper.Subscriber
	Metrics    *service.RegistryMetrics
	Store      *myredis.RecordStore
	BaseURL    string

	cfg         zookeeper.Config
	tp          interfaces.TimeProvider
	logger      log.Logger
	redisClient redis.UniversalClient
	http        *httptest.Server
	httpClient  *http.Client

	mu     sync.Mutex
	agents []*zookeeper.Publisher
}

// ZooKeeperConfig is the client configuration every Env session uses.
func ZooKeeperConfig() zookeeper.Config {
	return zookeeper.Config{
		Address:           "zk1:2181,zk2:2181,zk3:2181",
		BaseSleep:         10 * time.Millisecond,
		MaxRetries:        2,
		SessionTimeout:    time.Second,
		ConnectionTimeout: 500 * time.Millisecond,
		Root:              zookeeper.DefaultRoot,
	}
}

// NewEnv starts the dashboard side. Close releases everything, agents included.
func NewEnv(logger log.Logger) (*Env, error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("start miniredis: %w", err)
	}
	redisClient, err := myredis.NewRedisUniversalClient("redis://" + mr.Addr())
	if err != nil {
		mr.Close()
		return nil, fmt.Errorf("create redis client: %w", err)
	}

	env := &Env{
		ZK:          zktest.NewServer(),
		Redis:       mr,
		Metrics:     service.NewRegistryMetrics(),
		cfg:         ZooKeeperConfig(),
		tp:          service.NewTimeProvider(time.Now),
		logger:      logger,
		redisClient: redisClient,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
	env.Store = myredis.NewRecordStore(redisClient, recordTTL, env.tp, logger)

	env.Subscriber = zookeeper.NewSubscriber(env.newClient(), logger)
	env.Subscriber.OnChange(env.Metrics.ObserveCounts)
	env.Subscriber.OnRebuild(env.Metrics.IncRebuilds)
	env.Subscriber.Start()

	e, err := handlers.NewEcho(handlers.NewHTTPServer(env.Subscriber, env.Store, env.Store, logger), env.Metrics.Handler(), logger)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.http = httptest.NewServer(e)
	env.BaseURL = env.http.URL
	return env, nil
}

func (e *Env) newClient() *zookeeper.Client {
	return zookeeper.NewClient(e.cfg, e.logger, zookeeper.WithConnector(e.connector()))
}

func (e *Env) connector() zookeeper.Connector {
	return func(servers []string, sessionTimeout, _ time.Duration) (zookeeper.Conn, <-chan zk.Event, error) {
		conn, events, err := e.ZK.Connect(servers, sessionTimeout)
		if err != nil {
			return nil, nil, err
		}
		return conn, events, nil
	}
}

// StartAgent publishes one instance on its own session and registers it.
func (e *Env) StartAgent(ctx context.Context, name, host string, port int) (*zookeeper.Publisher, error) {
	app, err := domain.NewApplication(name, host, "", port, domain.StateUp, service.NowMs(e.tp))
	if err != nil {
		return nil, err
	}
	client := e.newClient()
	publisher := zookeeper.NewPublisher(client, app, e.tp, e.logger)
	publisher.Start()

	e.mu.Lock()
	e.agents = append(e.agents, publisher)
	e.mu.Unlock()

	if err := client.WaitConnected(ctx); err != nil {
		return nil, fmt.Errorf("agent %s:%d not connected: %w", host, port, err)
	}
	if err := publisher.Register(ctx); err != nil {
		return nil, fmt.Errorf("register %s:%d: %w", host, port, err)
	}
	return publisher, nil
}

// Close stops agents, the dashboard and the backing stores.
func (e *Env) Close() {
	e.mu.Lock()
	agents := e.agents
	e.agents = nil
	e.mu.Unlock()
	for _, a := range agents {
		a.Shutdown()
	}
	if e.http != nil {
		e.http.Close()
	}
	if e.Subscriber != nil {
		e.Subscriber.Shutdown()
	}
	_ = e.redisClient.Close()
	e.Redis.Close()
}

// GetJSON fetches path from the dashboard and decodes a 200 body into out.
// Other statuses are returned with the body left undecoded.
func (e *Env) GetJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	return e.do(req, out)
}

// PostJSON posts body as JSON and decodes a 200 body into out when out is not nil.
func (e *Env) PostJSON(ctx context.Context, path string, body any, out any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, out)
}

// GetText fetches path and returns the body as text.
func (e *Env) GetText(ctx context.Context, path string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), err
}

func (e *Env) do(req *http.Request, out any) (int, error) {
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return resp.StatusCode, nil
}

// waitUntil polls cond until it reports true, returns an error, or ctx ends. The last mismatch
// is included in the timeout error.
func waitUntil(ctx context.Context, what string, cond func() (bool, string, error)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	last := ""
	for {
		ok, detail, err := cond()
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if ok {
			return nil
		}
		last = detail
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last: %s)", what, ctx.Err(), last)
		case <-ticker.C:
		}
	}
}
