package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const scenarioMetrics = "metrics"

func init() {
	Register(scenarioMetrics, runMetrics)
}

// runMetrics follows the instance gauges while agents come and go. A stopped agent's session
// closes, which removes its node.
func runMetrics(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	first, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8080)
	if err != nil {
		return err
	}
	if _, err := env.StartAgent(ctx, "svc-a", "10.0.0.1", 8081); err != nil {
		return err
	}
	if err := waitForMetric(ctx, env, `myregistry_instances{app="svc-a"} 2`); err != nil {
		return err
	}

	first.Shutdown()
	if err := waitForMetric(ctx, env, `myregistry_instances{app="svc-a"} 1`); err != nil {
		return err
	}
	return waitForMetric(ctx, env, "myregistry_applications 1")
}

func waitForMetric(ctx context.Context, env *Env, line string) error {
	return waitUntil(ctx, "metric "+line, func() (bool, string, error) {
		status, body, err := env.GetText(ctx, "/metrics")
		if err != nil {
			return false, "", err
		}
		if status != http.StatusOK {
			return false, "", fmt.Errorf("metrics: status %d", status)
		}
		for _, l := range strings.Split(body, "\n") {
			if l == line {
				return true, "", nil
			}
		}
		return false, body, nil
	})
}
