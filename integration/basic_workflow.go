package integration

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"myregistry/handlers"

	"github.com/stretchr/testify/assert"
)

const scenarioBasicWorkflow = "basic_workflow"

func init() {
	Register(scenarioBasicWorkflow, runBasicWorkflow)
}

func runBasicWorkflow(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 1. Two instances of svc-a, one of svc-b
	first, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8080)
	if err != nil {
		return err
	}
	if _, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8081); err != nil {
		return err
	}
	if _, err := env.StartAgent(ctx, "svc-b", "10.0.0.2", 9000); err != nil {
		return err
	}

	// 2. Summary counts
	want := []handlers.ApplicationSummary{{Name: "svc-a", Instances: 2}, {Name: "svc-b", Instances: 1}}
	if err := waitForApplications(ctx, env, want); err != nil {
		return err
	}

	// 3. Instances of svc-a, sorted by port
	if err := waitForPorts(ctx, env, "svc-a", []int{8080, 8081}); err != nil {
		return err
	}

	// 4. Unknown application has no instances
	var unknown handlers.InstancesResponse
	status, err := env.GetJSON(ctx, "/v1/applications/svc-x/instances", &unknown)
	if err != nil {
		return err
	}
	if status != http.StatusOK || len(unknown.Instances) != 0 {
		return fmt.Errorf("unknown application: status %d, %d instances", status, len(unknown.Instances))
	}

	// 5. Unregister removes visibility, the other instance stays
	if err := first.Unregister(ctx); err != nil {
		return fmt.Errorf("unregister: %w", err)
	}
	if err := waitForPorts(ctx, env, "svc-a", []int{8081}); err != nil {
		return err
	}

	// 6. The full listing agrees with the per-application one
	var all handlers.InstancesResponse
	if _, err := env.GetJSON(ctx, "/v1/instances", &all); err != nil {
		return err
	}
	if len(all.Instances) != 2 {
		return fmt.Errorf("expected 2 instances in total, got %d", len(all.Instances))
	}
	return nil
}

func waitForApplications(ctx context.Context, env *Env, want []handlers.ApplicationSummary) error {
	return waitUntil(ctx, "applications", func() (bool, string, error) {
		var resp handlers.ApplicationsResponse
		if _, err := env.GetJSON(ctx, "/v1/applications", &resp); err != nil {
			return false, "", err
		}
		return assert.ObjectsAreEqual(want, resp.Applications), fmt.Sprintf("%v", resp.Applications), nil
	})
}

func waitForPorts(ctx context.Context, env *Env, name string, want []int) error {
	return waitUntil(ctx, "instances of "+name, func() (bool, string, error) {
		var resp handlers.InstancesResponse
		if _, err := env.GetJSON(ctx, "/v1/applications/"+name+"/instances", &resp); err != nil {
			return false, "", err
		}
		got := make([]int, 0, len(resp.Instances))
		for _, i := range resp.Instances {
			got = append(got, i.Port)
		}
		return assert.ObjectsAreEqual(want, got), fmt.Sprintf("%v", got), nil
	})
}
