package integration

import (
	"context"
	"fmt"
	"time"

	"myregistry/adapters/zookeeper"
	"myregistry/handlers"
)

const (
	scenarioConnectionSuspended = "connection_suspended"
	scenarioSessionExpired      = "session_expired"
)

func init() {
	Register(scenarioConnectionSuspended, runConnectionSuspended)
	Register(scenarioSessionExpired, runSessionExpired)
}

// runConnectionSuspended drops every connection while keeping the sessions. Ephemeral nodes
// survive, so the registry view must come back unchanged.
func runConnectionSuspended(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8080); err != nil {
		return err
	}
	if err := waitForPorts(ctx, env, "svc-a", []int{8080}); err != nil {
		return err
	}

	env.ZK.DisconnectAll()
	time.Sleep(50 * time.Millisecond)
	env.ZK.ReconnectAll()

	// A registration made after the resume is seen too
	if _, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8081); err != nil {
		return err
	}
	return waitForPorts(ctx, env, "svc-a", []int{8080, 8081})
}

// runSessionExpired expires every session. The ephemeral nodes vanish with them; publishers
// register again on the new sessions and the dashboard rebuilds its view.
func runSessionExpired(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8080); err != nil {
		return err
	}
	if _, err := env.StartAgent(ctx, "svc-b", "10.0.0.2", 9000); err != nil {
		return err
	}
	want := []handlers.ApplicationSummary{{Name: "svc-a", Instances: 1}, {Name: "svc-b", Instances: 1}}
	if err := waitForApplications(ctx, env, want); err != nil {
		return err
	}

	for _, conn := range env.ZK.Conns() {
		conn.Expire()
	}
	for _, name := range []string{"svc-a", "svc-b"} {
		if left := env.ZK.Children(zookeeper.ToAppNode(env.cfg.Root, name)); len(left) != 0 {
			return fmt.Errorf("session nodes of %s survived expiry: %v", name, left)
		}
	}
	env.ZK.ReconnectAll()

	if err := waitUntil(ctx, "re-registration", func() (bool, string, error) {
		a := env.ZK.Children(zookeeper.ToAppNode(env.cfg.Root, "svc-a"))
		b := env.ZK.Children(zookeeper.ToAppNode(env.cfg.Root, "svc-b"))
		return len(a) == 1 && len(b) == 1, fmt.Sprintf("%v %v", a, b), nil
	}); err != nil {
		return err
	}
	return waitForApplications(ctx, env, want)
}
