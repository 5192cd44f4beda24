// Package integration runs end-to-end scenarios against an in-process registry: agents publishing
// into an in-memory ZooKeeper, a dashboard subscriber behind its real HTTP surface, and a miniredis
// record store.
package integration

import (
	"context"
	"fmt"
	"sort"
)

// Runner runs a single scenario. Each run gets a fresh Env.
type Runner func(ctx context.Context, env *Env) error

var registry = make(map[string]Runner)

// Register adds a scenario by name. Call from init() in scenario files.
func Register(name string, fn Runner) {
	registry[name] = fn
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run runs the named scenario.
func Run(ctx context.Context, name string, env *Env) error {
	fn, ok := registry[name]
	if !ok {
		return &UnknownScenarioError{Name: name}
	}
	return fn(ctx, env)
}

// UnknownScenarioError is returned when the requested scenario name is not registered.
type UnknownScenarioError struct {
	Name string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("unknown scenario: %s", e.Name)
}
