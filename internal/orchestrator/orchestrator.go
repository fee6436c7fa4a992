// Package orchestrator drives the daily content pipeline: planning the
// run, dispatching work to the scraper, transcriber, and summarizer
// agents through the policy engine, routing failures to the dead-letter
// queue, and emitting run-level events. Every state transition here goes
// through internal/store so a crash mid-run leaves the next run able to
// pick up exactly where the last one stopped.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/raynmakers/autopiloot/internal/config"
	"github.com/raynmakers/autopiloot/internal/external"
	"github.com/raynmakers/autopiloot/internal/policy"
	"github.com/raynmakers/autopiloot/internal/store"
	"github.com/raynmakers/autopiloot/internal/timeutil"
)

// JobType enumerates the fixed set of dispatchable job shapes.
type JobType string

const (
	JobChannelScrape   JobType = "channel_scrape"
	JobSheetBackfill   JobType = "sheet_backfill"
	JobSingleVideo     JobType = "single_video"
	JobBatchTranscribe JobType = "batch_transcribe"
	JobSingleSummary   JobType = "single_summary"
	JobBatchSummarize  JobType = "batch_summarize"
)

// JobTypeSchema describes the validation and agent-routing contract for
// one job type.
type JobTypeSchema struct {
	Agent          string
	RequiresVideo  bool
	RequiresBatch  bool
}

// jobTypeSchemas is the fixed registry of job types and their owning
// agent; the dispatch functions do not consult it.
var jobTypeSchemas = map[JobType]JobTypeSchema{
	JobChannelScrape:   {Agent: "scraper", RequiresVideo: false, RequiresBatch: false},
	JobSheetBackfill:   {Agent: "scraper", RequiresVideo: false, RequiresBatch: false},
	JobSingleVideo:     {Agent: "transcriber", RequiresVideo: true, RequiresBatch: false},
	JobBatchTranscribe: {Agent: "transcriber", RequiresVideo: false, RequiresBatch: true},
	JobSingleSummary:   {Agent: "summarizer", RequiresVideo: true, RequiresBatch: false},
	JobBatchSummarize:  {Agent: "summarizer", RequiresVideo: false, RequiresBatch: true},
}

// Dependencies bundles every external collaborator the orchestrator
// needs. All fields are required except Notifier and Index, which may be
// nil to silently skip notification delivery and vector-index upserts
// (useful in tests).
type Dependencies struct {
	ConfigManager *config.RWMutexManager
	Store         *store.Store
	Channels      external.ChannelSource
	Transcriber   external.Transcription
	Summarizer    external.Summarization
	Index         external.VectorIndex
	Notifier      external.NotificationSink
	Logger        *slog.Logger
}

// Orchestrator dispatches and tracks the daily content pipeline.
type Orchestrator struct {
	deps Dependencies
}

// New constructs an Orchestrator from its dependencies.
func New(deps Dependencies) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{deps: deps}
}

// JobError reports a dispatch failure along with a Kind classification.
// The dispatch paths in this package do not construct or inspect it.
type JobError struct {
	Kind    string // ErrKind* constants
	Message string
	Err     error
}

const (
	ErrKindTerminal      = "terminal"
	ErrKindTransient     = "transient"
	ErrKindQuota         = "quota"
	ErrKindConfiguration = "configuration"
)

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("orchestrator: %s (%s): %v", e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("orchestrator: %s (%s)", e.Message, e.Kind)
}

func (e *JobError) Unwrap() error { return e.Err }

// PlanDailyRun discovers candidate videos from every configured channel
// handle, upserts them into the store, and returns the count of newly
// seen videos. It is schedule-gated by the caller (the cron trigger or
// the Temporal workflow), not by this function.
func (o *Orchestrator) PlanDailyRun(ctx context.Context) (int, error) {
	cfg := o.deps.ConfigManager.Get()
	discovered := 0

	for _, handle := range cfg.Scraper.Handles {
		videos, err := o.deps.Channels.ListRecentVideos(ctx, handle, cfg.Scraper.DailyLimitPerChannel)
		if err != nil {
			o.deps.Logger.Error("channel scrape failed", "handle", handle, "error", err)
			continue
		}
		for _, v := range videos {
			_, getErr := o.deps.Store.GetVideo(v.VideoID)
			isNew := getErr == store.ErrNotFound
			if err := o.deps.Store.UpsertVideo(store.Video{
				VideoID:       v.VideoID,
				URL:           v.URL,
				Title:         v.Title,
				ChannelHandle: handle,
				DurationSec:   v.DurationSec,
			}); err != nil {
				o.deps.Logger.Error("upsert video failed", "video_id", v.VideoID, "error", err)
				continue
			}
			if isNew {
				discovered++
			}
		}
	}

	if err := o.deps.Store.AppendAudit("daily_run_planned", "", fmt.Sprintf(`{"discovered":%d}`, discovered)); err != nil {
		return discovered, fmt.Errorf("orchestrator: append plan audit: %w", err)
	}
	return discovered, nil
}

// dispatchDecision evaluates the policy engine for videoID/operation and
// returns its decision; the caller derives the job id itself.
func (o *Orchestrator) dispatchDecision(videoID, operation string, attempt int, lastErrorKind string) policy.Decision {
	cfg := o.deps.ConfigManager.Get()
	day := timeutil.FormatForFilename(timeutil.Now())
	cost, _ := o.deps.Store.GetDailyCost(day)

	return policy.Evaluate(policy.Context{
		VideoID:       videoID,
		Operation:     operation,
		Attempt:       attempt,
		LastErrorKind: lastErrorKind,
		QuotaUsed:     0,
		QuotaLimit:    cfg.Reliability.Quotas.YouTubeDailyLimit,
		DailySpendUSD: cost.TranscriptionUSD + cost.LLMUSD,
		VideoSpendUSD: 0,
	}, policy.Overrides{
		MaxAttempts:      cfg.Reliability.Retry.MaxAttempts,
		BaseDelay:        time.Duration(cfg.Reliability.Retry.BaseDelaySec) * time.Second,
		QuotaThreshold:   cfg.Reliability.Retry.QuotaThreshold,
		MaxVideoSpendUSD: cfg.Budgets.TranscriptionDailyUSD,
	})
}

// DispatchTranscriber dispatches a single-video transcription job if the
// policy engine proceeds, idempotently on the video's "transcribe"
// operation key.
func (o *Orchestrator) DispatchTranscriber(ctx context.Context, videoID string) error {
	v, err := o.deps.Store.GetVideo(videoID)
	if err != nil {
		return fmt.Errorf("orchestrator: dispatch transcriber: %w", err)
	}

	decision := o.dispatchDecision(videoID, "transcribe", v.RetryCount, "")
	switch d := decision.(type) {
	case policy.Skip:
		return nil
	case policy.DLQ:
		return o.HandleDLQ(ctx, videoID, JobSingleVideo, "transcriber", d.Reason)
	case policy.RetryIn:
		o.deps.Logger.Info("transcribe dispatch deferred", "video_id", videoID, "delay", d.Delay, "reason", d.Reason)
		return nil
	}

	jobID := timeutil.IdempotencyKey(videoID, "transcribe")
	inserted, err := o.deps.Store.InsertJobIfAbsent(store.Job{
		JobID:   jobID,
		Agent:   "transcriber",
		JobType: string(JobSingleVideo),
		VideoID: videoID,
		Payload: "{}",
		Status:  "dispatched",
		Attempt: v.RetryCount,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: insert transcribe job: %w", err)
	}
	if !inserted {
		return nil
	}

	if err := o.deps.Store.TransitionVideoStatus(videoID, v.Status, "transcribing", ""); err != nil {
		return fmt.Errorf("orchestrator: transition to transcribing: %w", err)
	}

	if err := o.deps.Store.AppendAudit("job_dispatched", videoID, fmt.Sprintf(`{"job_id":%q,"agent":"transcriber"}`, jobID)); err != nil {
		return fmt.Errorf("orchestrator: append dispatch audit: %w", err)
	}

	result, err := o.deps.Transcriber.Transcribe(ctx, videoID, v.URL)
	if err != nil {
		return o.handleAgentFailure(ctx, videoID, jobID, JobSingleVideo, "transcriber", "transcribing", err)
	}

	if err := o.deps.Store.RecordTranscriptAndAdvance(videoID, result.TextPath, result.JSONPath, result.WordCount); err != nil {
		return fmt.Errorf("orchestrator: record transcript: %w", err)
	}
	if err := o.deps.Store.UpdateJobStatus(jobID, "completed"); err != nil {
		return fmt.Errorf("orchestrator: mark transcribe job completed: %w", err)
	}
	return o.deps.Store.AppendAudit("transcribe_completed", videoID, fmt.Sprintf(`{"word_count":%d}`, result.WordCount))
}

// DispatchSummarizer dispatches a single-video summarization job,
// following the same idempotent-dispatch shape as DispatchTranscriber.
func (o *Orchestrator) DispatchSummarizer(ctx context.Context, videoID string) error {
	v, err := o.deps.Store.GetVideo(videoID)
	if err != nil {
		return fmt.Errorf("orchestrator: dispatch summarizer: %w", err)
	}

	decision := o.dispatchDecision(videoID, "summarize", v.RetryCount, "")
	switch d := decision.(type) {
	case policy.Skip:
		return nil
	case policy.DLQ:
		return o.HandleDLQ(ctx, videoID, JobSingleSummary, "summarizer", d.Reason)
	case policy.RetryIn:
		o.deps.Logger.Info("summarize dispatch deferred", "video_id", videoID, "delay", d.Delay, "reason", d.Reason)
		return nil
	}

	jobID := timeutil.IdempotencyKey(videoID, "summarize")
	inserted, err := o.deps.Store.InsertJobIfAbsent(store.Job{
		JobID:   jobID,
		Agent:   "summarizer",
		JobType: string(JobSingleSummary),
		VideoID: videoID,
		Payload: "{}",
		Status:  "dispatched",
		Attempt: v.RetryCount,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: insert summarize job: %w", err)
	}
	if !inserted {
		return nil
	}

	if err := o.deps.Store.TransitionVideoStatus(videoID, v.Status, "summarizing", ""); err != nil {
		return fmt.Errorf("orchestrator: transition to summarizing: %w", err)
	}

	if err := o.deps.Store.AppendAudit("job_dispatched", videoID, fmt.Sprintf(`{"job_id":%q,"agent":"summarizer"}`, jobID)); err != nil {
		return fmt.Errorf("orchestrator: append dispatch audit: %w", err)
	}

	transcriptPath := ""
	result, err := o.deps.Summarizer.Summarize(ctx, videoID, transcriptPath)
	if err != nil {
		return o.handleAgentFailure(ctx, videoID, jobID, JobSingleSummary, "summarizer", "summarizing", err)
	}

	if err := o.deps.Store.RecordSummaryAndAdvance(videoID, result.ShortPath, result.ZepDocID); err != nil {
		return fmt.Errorf("orchestrator: record summary: %w", err)
	}
	if err := o.deps.Store.UpdateJobStatus(jobID, "completed"); err != nil {
		return fmt.Errorf("orchestrator: mark summarize job completed: %w", err)
	}

	if result.Model != "" {
		day := timeutil.FormatForFilename(timeutil.Now())
		if err := o.deps.Store.AddDailyCost(day, 0, result.CostUSD); err != nil {
			o.deps.Logger.Warn("record llm cost failed", "video_id", videoID, "error", err)
		}
		llmDetails, err := json.Marshal(map[string]any{
			"video_id":       videoID,
			"model":          result.Model,
			"task":           result.Task,
			"prompt_id":      result.PromptID,
			"prompt_version": result.PromptVersion,
			"tokens_used":    result.TokensUsed,
			"cost_usd":       result.CostUSD,
			"latency_ms":     result.LatencyMS,
		})
		if err == nil {
			_ = o.deps.Store.AppendAudit("llm_request", videoID, string(llmDetails))
		}
	}

	if o.deps.Index != nil && result.ZepDocID != "" {
		if err := o.deps.Index.Upsert(ctx, result.ZepDocID, videoID, result.ShortPath); err != nil {
			o.deps.Logger.Warn("vector index upsert failed", "video_id", videoID, "error", err)
		}
	}

	return o.deps.Store.AppendAudit("summarize_completed", videoID, fmt.Sprintf(`{"zep_doc_id":%q}`, result.ZepDocID))
}

// handleAgentFailure records a failed external call: the video reverts
// to "discovered" with the error recorded, and the job record is marked
// "failed" (the row is kept, not deleted).
func (o *Orchestrator) handleAgentFailure(ctx context.Context, videoID, jobID string, jobType JobType, agent, fromStatus string, cause error) error {
	_ = o.deps.Store.TransitionVideoStatus(videoID, fromStatus, "discovered", cause.Error())
	_ = o.deps.Store.UpdateJobStatus(jobID, "failed")
	_ = o.deps.Store.AppendAudit("job_failed", videoID, fmt.Sprintf(`{"job_id":%q,"agent":%q,"error":%q}`, jobID, agent, cause.Error()))
	return fmt.Errorf("orchestrator: %s failed for %s: %w", agent, videoID, cause)
}

// highSeverityErrorTypes and mediumSeverityErrorTypes bucket error_type
// values into the DLQ severity table; anything else falls through to the
// retry_count≥5 check and finally to "low".
var highSeverityErrorTypes = map[string]bool{
	"authorization_failed": true,
	"data_corruption":      true,
	"security_violation":   true,
	"system_critical":      true,
}

var mediumSeverityErrorTypes = map[string]bool{
	"quota_exceeded":        true,
	"budget_exceeded":       true,
	"invalid_configuration": true,
	"dependency_failure":    true,
}

// realTimeJobTypes are dispatched for immediate user-visible effect;
// everything else is a batch job for recovery-priority purposes.
var realTimeJobTypes = map[JobType]bool{
	JobChannelScrape: true,
	JobSingleVideo:   true,
	JobSingleSummary: true,
}

// errorTypeFromReason extracts the error_type bucket key from a policy
// decision's reason string (e.g. "terminal_error:authorization_failed" ->
// "authorization_failed"); reasons that already are bare error_type
// values (e.g. "quota_exceeded", "budget_exceeded") pass through
// unchanged.
func errorTypeFromReason(reason string) string {
	const prefix = "terminal_error:"
	if len(reason) > len(prefix) && reason[:len(prefix)] == prefix {
		return reason[len(prefix):]
	}
	return reason
}

// dlqSeverity computes severity per the §3/§4.5.3 error_type bucket
// table, falling back to the retry_count≥5 rule and then "low".
func dlqSeverity(errorType string, retryCount int) string {
	switch {
	case highSeverityErrorTypes[errorType]:
		return "high"
	case mediumSeverityErrorTypes[errorType]:
		return "medium"
	case retryCount >= 5:
		return "medium"
	default:
		return "low"
	}
}

// dlqRecoveryPriority derives recovery_priority from severity and
// whether the job is real-time or batch.
func dlqRecoveryPriority(severity string, realTime bool) string {
	switch {
	case severity == "high":
		return "urgent"
	case severity == "medium" && realTime:
		return "high"
	case realTime:
		return "medium"
	default:
		return "low"
	}
}

// HandleDLQ routes a job to the dead-letter queue, clearing its active
// record in the same transaction. It is idempotent on job_id: if the job
// was already routed (e.g. the active record was already cleared by a
// prior call), the existing entry is left untouched and no second row
// is inserted. Otherwise dlq_id is derived deterministically from
// {job_type}_{job_id}_{timestamp} using the job's own dispatch time, so
// a duplicate route within the same transaction hits the store's
// ON CONFLICT(dlq_id) DO NOTHING rather than inserting a second entry.
func (o *Orchestrator) HandleDLQ(ctx context.Context, videoID string, jobType JobType, agent, reason string) error {
	operation := string(jobType)
	switch jobType {
	case JobSingleVideo:
		operation = "transcribe"
	case JobSingleSummary:
		operation = "summarize"
	}
	jobID := timeutil.IdempotencyKey(videoID, operation)

	if _, err := o.deps.Store.GetDeadLetterByJobID(jobID); err == nil {
		return nil
	}

	retryCount := 0
	timestamp := timeutil.FormatISO8601Z(timeutil.Now())
	if job, err := o.deps.Store.GetJob(jobID); err == nil {
		retryCount = job.Attempt
		timestamp = timeutil.FormatISO8601Z(job.DispatchedAt)
	} else if v, verr := o.deps.Store.GetVideo(videoID); verr == nil {
		retryCount = v.RetryCount
	}

	errorType := errorTypeFromReason(reason)
	severity := dlqSeverity(errorType, retryCount)
	priority := dlqRecoveryPriority(severity, realTimeJobTypes[jobType])

	dlqID := fmt.Sprintf("%s_%s_%s", jobType, jobID, timestamp)

	if err := o.deps.Store.RouteToDeadLetterAndClearJob(store.DeadLetterEntry{
		DLQID:            dlqID,
		JobID:            jobID,
		Agent:            agent,
		JobType:          string(jobType),
		VideoID:          videoID,
		Reason:           reason,
		Severity:         severity,
		RecoveryPriority: priority,
	}); err != nil {
		return fmt.Errorf("orchestrator: route to dlq: %w", err)
	}

	_ = o.deps.Store.TransitionVideoStatus(videoID, "discovered", "dlq", reason)

	return o.deps.Store.AppendAudit("routed_to_dlq", videoID, fmt.Sprintf(`{"reason":%q,"severity":%q,"recovery_priority":%q}`, reason, severity, priority))
}

// QueryDLQ returns dead-letter entries within the last window (clamped to
// [1h, 720h], default 24h), optionally filtered by agent and video ID,
// capped at limit rows (clamped to [1, 500], default 50).
func (o *Orchestrator) QueryDLQ(window time.Duration, agent, videoID string, limit int) ([]store.DeadLetterEntry, error) {
	if window <= 0 {
		window = 24 * time.Hour
	} else if window < time.Hour {
		window = time.Hour
	}
	if window > 720*time.Hour {
		window = 720 * time.Hour
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return o.deps.Store.QueryDeadLetterWindow(window, agent, videoID, limit)
}

// ListVideosByStatus returns videos currently in status, most recently
// updated first, capped at limit. It is the read path the Temporal
// workflow uses to discover which videos are ready for the next stage.
func (o *Orchestrator) ListVideosByStatus(status string, limit int) ([]store.Video, error) {
	return o.deps.Store.QueryVideosByStatus(status, limit)
}

// RunSummary is the payload EmitRunEvents records and returns.
type RunSummary struct {
	HealthScore float64
	StatusIcon  string
	Discovered  int
	Completed   int
	Failed      int
	DLQCount    int
}

// EmitRunEvents computes a coarse health summary for the just-completed
// run and appends it to the audit log, notifying the configured sink if
// one is set.
func (o *Orchestrator) EmitRunEvents(ctx context.Context, discovered, completed, failed int) (RunSummary, error) {
	dlqEntries, err := o.QueryDLQ(24*time.Hour, "", "", 500)
	if err != nil {
		return RunSummary{}, fmt.Errorf("orchestrator: query dlq for run summary: %w", err)
	}

	total := completed + failed
	successRate := 1.0
	if total > 0 {
		successRate = float64(completed) / float64(total)
	}
	dlqRate := 0.0
	if discovered > 0 {
		dlqRate = float64(len(dlqEntries)) / float64(discovered)
	}

	healthScore := 100 * (0.70*successRate + 0.15*(1-dlqRate) + 0.15*1.0)
	icon := statusIcon(healthScore)

	summary := RunSummary{
		HealthScore: healthScore,
		StatusIcon:  icon,
		Discovered:  discovered,
		Completed:   completed,
		Failed:      failed,
		DLQCount:    len(dlqEntries),
	}

	detailsJSON, err := json.Marshal(summary)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: marshal run summary: %w", err)
	}
	if err := o.deps.Store.AppendAudit("daily_run_completed", "", string(detailsJSON)); err != nil {
		return summary, fmt.Errorf("orchestrator: append run summary audit: %w", err)
	}

	if o.deps.Notifier != nil {
		title := fmt.Sprintf("%s Daily run complete (health %.0f)", icon, healthScore)
		body := fmt.Sprintf("discovered=%d completed=%d failed=%d dlq=%d", discovered, completed, failed, len(dlqEntries))
		if err := o.deps.Notifier.Send(ctx, title, body); err != nil {
			o.deps.Logger.Warn("notification send failed", "error", err)
		}
	}

	return summary, nil
}

func statusIcon(score float64) string {
	switch {
	case score >= 90:
		return "🟢"
	case score >= 80:
		return "🟡"
	case score >= 60:
		return "🟠"
	case score >= 40:
		return "🔴"
	default:
		return "⚫"
	}
}
