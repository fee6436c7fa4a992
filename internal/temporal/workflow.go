package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/raynmakers/autopiloot/internal/orchestrator"
)

// DailyRunRequest parameterizes one invocation of DailyRunWorkflow — the
// cron trigger in cmd/autopiloot passes an empty request for the normal
// daily cadence; a manual backfill run can narrow TranscribeLimit /
// SummarizeLimit.
type DailyRunRequest struct {
	TranscribeLimit int
	SummarizeLimit  int
}

// DailyRunWorkflow runs the discovery → transcription → summarization
// phases as ordered activities, giving the orchestrator Temporal's
// built-in retry/timeout/replay semantics on top of the policy engine's
// own pure decisions:
//
//  1. PLAN         — discover new videos from every configured channel
//  2. TRANSCRIBE   — dispatch transcription for every "discovered" video
//  3. SUMMARIZE    — dispatch summarization for every "transcribed" video
//  4. EMIT EVENTS  — compute and record the run's health summary
//
// A per-video activity failure does not abort the run: DispatchTranscriber
// and DispatchSummarizer already revert the video to a retryable state on
// failure (or route it to the DLQ via the policy engine), so the workflow
// treats an individual activity error as "this video didn't make it this
// run" and continues with the rest of the batch.
func DailyRunWorkflow(ctx workflow.Context, req DailyRunRequest) (orchestrator.RunSummary, error) {
	logger := workflow.GetLogger(ctx)

	planOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	listOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	transcribeOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1}, // the policy engine owns retry scheduling
	}
	summarizeOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	emitOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}

	var a *Activities

	// ===== PHASE 1: PLAN =====
	logger.Info("daily run: planning")
	planCtx := workflow.WithActivityOptions(ctx, planOpts)
	var discovered int
	if err := workflow.ExecuteActivity(planCtx, a.PlanDailyRunActivity).Get(ctx, &discovered); err != nil {
		return orchestrator.RunSummary{}, fmt.Errorf("daily run: plan phase: %w", err)
	}
	logger.Info("daily run: planned", "discovered", discovered)

	// ===== PHASE 2: TRANSCRIBE =====
	transcribeLimit := req.TranscribeLimit
	if transcribeLimit <= 0 {
		transcribeLimit = 50
	}
	listCtx := workflow.WithActivityOptions(ctx, listOpts)
	var toTranscribe []string
	if err := workflow.ExecuteActivity(listCtx, a.ListReadyVideosActivity, ListReadyVideosRequest{Status: "discovered", Limit: transcribeLimit}).Get(ctx, &toTranscribe); err != nil {
		return orchestrator.RunSummary{}, fmt.Errorf("daily run: list discovered videos: %w", err)
	}

	transcribeCtx := workflow.WithActivityOptions(ctx, transcribeOpts)
	completed, failed := 0, 0
	for _, videoID := range toTranscribe {
		if err := workflow.ExecuteActivity(transcribeCtx, a.DispatchTranscriberActivity, videoID).Get(ctx, nil); err != nil {
			logger.Warn("daily run: transcribe dispatch failed", "video_id", videoID, "error", err)
			failed++
			continue
		}
	}
	logger.Info("daily run: transcription dispatched", "count", len(toTranscribe), "failed", failed)

	// ===== PHASE 3: SUMMARIZE =====
	summarizeLimit := req.SummarizeLimit
	if summarizeLimit <= 0 {
		summarizeLimit = 50
	}
	var toSummarize []string
	if err := workflow.ExecuteActivity(listCtx, a.ListReadyVideosActivity, ListReadyVideosRequest{Status: "transcribed", Limit: summarizeLimit}).Get(ctx, &toSummarize); err != nil {
		return orchestrator.RunSummary{}, fmt.Errorf("daily run: list transcribed videos: %w", err)
	}

	summarizeCtx := workflow.WithActivityOptions(ctx, summarizeOpts)
	for _, videoID := range toSummarize {
		if err := workflow.ExecuteActivity(summarizeCtx, a.DispatchSummarizerActivity, videoID).Get(ctx, nil); err != nil {
			logger.Warn("daily run: summarize dispatch failed", "video_id", videoID, "error", err)
			failed++
			continue
		}
		completed++
	}
	logger.Info("daily run: summarization dispatched", "count", len(toSummarize))

	// ===== PHASE 4: EMIT EVENTS =====
	emitCtx := workflow.WithActivityOptions(ctx, emitOpts)
	var summary orchestrator.RunSummary
	if err := workflow.ExecuteActivity(emitCtx, a.EmitRunEventsActivity, discovered, completed, failed).Get(ctx, &summary); err != nil {
		return orchestrator.RunSummary{}, fmt.Errorf("daily run: emit events phase: %w", err)
	}

	logger.Info("daily run: complete", "health_score", summary.HealthScore, "status_icon", summary.StatusIcon)
	return summary, nil
}
