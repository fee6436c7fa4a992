package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/raynmakers/autopiloot/internal/orchestrator"
)

// TaskQueue is the Temporal task queue autopiloot's worker serves and
// its workflows are dispatched on.
const TaskQueue = "autopiloot-task-queue"

// StartWorker connects to Temporal and starts the autopiloot task queue
// worker. orch is injected so activities can dispatch, route to the DLQ,
// and emit run events through the same in-process orchestrator the
// cron-driven synchronous path uses.
func StartWorker(hostPort string, orch *orchestrator.Orchestrator, logger *slog.Logger) (func(), error) {
	if hostPort == "" {
		hostPort = "127.0.0.1:7233"
	}

	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		return nil, fmt.Errorf("temporal: dial %s: %w", hostPort, err)
	}

	w := worker.New(c, TaskQueue, worker.Options{})

	acts := &Activities{Orchestrator: orch}

	w.RegisterWorkflow(DailyRunWorkflow)

	w.RegisterActivity(acts.PlanDailyRunActivity)
	w.RegisterActivity(acts.ListReadyVideosActivity)
	w.RegisterActivity(acts.DispatchTranscriberActivity)
	w.RegisterActivity(acts.DispatchSummarizerActivity)
	w.RegisterActivity(acts.HandleDLQActivity)
	w.RegisterActivity(acts.EmitRunEventsActivity)

	if err := w.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("temporal: start worker: %w", err)
	}

	logger.Info("temporal worker started", "task_queue", TaskQueue, "host_port", hostPort)

	stop := func() {
		w.Stop()
		c.Close()
	}
	return stop, nil
}

// TriggerDailyRun starts a DailyRunWorkflow execution with the given
// workflow ID (callers compose an ID from the run date so a repeated
// trigger for the same day is a no-op rather than a duplicate run).
func TriggerDailyRun(ctx context.Context, c client.Client, workflowID string, req DailyRunRequest) error {
	_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: TaskQueue,
	}, DailyRunWorkflow, req)
	return err
}
