// Package temporal drives the daily content pipeline as a Temporal
// workflow, giving the in-process orchestrator restart-safe, retried
// execution instead of a bare scheduler loop.
package temporal

import (
	"context"

	"github.com/raynmakers/autopiloot/internal/orchestrator"
)

// Activities holds the orchestrator dependency every activity method
// delegates to. It holds no other state: the workflow decides ordering,
// the orchestrator decides what each step does.
type Activities struct {
	Orchestrator *orchestrator.Orchestrator
}

// PlanDailyRunActivity discovers candidate videos across every
// configured channel and returns how many were newly seen.
func (a *Activities) PlanDailyRunActivity(ctx context.Context) (int, error) {
	return a.Orchestrator.PlanDailyRun(ctx)
}

// DispatchTranscriberActivity dispatches transcription for one video.
func (a *Activities) DispatchTranscriberActivity(ctx context.Context, videoID string) error {
	return a.Orchestrator.DispatchTranscriber(ctx, videoID)
}

// DispatchSummarizerActivity dispatches summarization for one video.
func (a *Activities) DispatchSummarizerActivity(ctx context.Context, videoID string) error {
	return a.Orchestrator.DispatchSummarizer(ctx, videoID)
}

// HandleDLQActivity routes a failed job to the dead-letter queue.
func (a *Activities) HandleDLQActivity(ctx context.Context, req HandleDLQRequest) error {
	return a.Orchestrator.HandleDLQ(ctx, req.VideoID, orchestrator.JobType(req.JobType), req.Agent, req.Reason)
}

// HandleDLQRequest is the activity-boundary payload for HandleDLQActivity
// (Temporal activities marshal their arguments, so this is a plain
// struct rather than the richer in-process call signature).
type HandleDLQRequest struct {
	VideoID string
	JobType string
	Agent   string
	Reason  string
}

// EmitRunEventsActivity computes and records the run's health summary.
func (a *Activities) EmitRunEventsActivity(ctx context.Context, discovered, completed, failed int) (orchestrator.RunSummary, error) {
	return a.Orchestrator.EmitRunEvents(ctx, discovered, completed, failed)
}

// ListReadyVideosRequest selects which store status feeds the next
// pipeline stage.
type ListReadyVideosRequest struct {
	Status string
	Limit  int
}

// ListReadyVideosActivity returns the IDs of videos sitting in Status,
// ready for the next stage to dispatch.
func (a *Activities) ListReadyVideosActivity(ctx context.Context, req ListReadyVideosRequest) ([]string, error) {
	videos, err := a.Orchestrator.ListVideosByStatus(req.Status, req.Limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}
	return ids, nil
}
