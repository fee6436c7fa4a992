// Package policy implements the pure decision engine that decides what
// happens next for a unit of work: proceed, retry after a delay, skip,
// or route to the dead-letter queue. It holds no state and makes no
// external calls — every input arrives in Context, every output is one
// of the four Decision variants, which makes it trivially unit-testable
// and safe to call from any goroutine.
package policy

import (
	"time"

	"github.com/raynmakers/autopiloot/internal/timeutil"
)

// Decision is a closed sum type: the only implementations are Proceed,
// RetryIn, Skip, and DLQ. The unexported marker method keeps external
// packages from adding a fifth variant.
type Decision interface {
	isDecision()
}

// Proceed means the caller should dispatch the work now.
type Proceed struct{}

func (Proceed) isDecision() {}

// RetryIn means the caller should wait Delay and then re-evaluate.
type RetryIn struct {
	Delay  time.Duration
	Reason string
}

func (RetryIn) isDecision() {}

// Skip means the work is already done (or otherwise not needed) and the
// caller should move on without dispatching or retrying.
type Skip struct {
	Reason string
}

func (Skip) isDecision() {}

// DLQ means the work has exhausted its retry budget, hit a terminal
// error, or would exceed a hard quota/budget ceiling, and should be
// routed to the dead-letter queue instead of retried.
type DLQ struct {
	Reason string
}

func (DLQ) isDecision() {}

// Context describes the unit of work being evaluated.
type Context struct {
	VideoID          string
	Operation        string // "scrape", "transcribe", "summarize"
	Attempt          int    // retry_count so far, 0 on first dispatch
	LastErrorKind    string // empty, or one of TerminalErrorKinds
	LastAttemptAt    time.Time
	QuotaUsed        int
	QuotaLimit       int
	DailySpendUSD    float64
	VideoSpendUSD    float64
	AlreadyProcessed bool // true if a checkpoint/idempotency key already covers this
	Now              time.Time
}

// Overrides carries the subset of configuration the policy engine needs,
// decoupling it from the config package so it stays a pure function of
// its two parameters.
type Overrides struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	QuotaThreshold    float64 // fraction of QuotaLimit, e.g. 0.9
	MaxVideoSpendUSD  float64
}

// DefaultOverrides mirrors the core's documented defaults.
func DefaultOverrides() Overrides {
	return Overrides{
		MaxAttempts:      3,
		BaseDelay:        60 * time.Second,
		QuotaThreshold:   0.9,
		MaxVideoSpendUSD: 0.5,
	}
}

// TerminalErrorKinds are error kinds that should never be retried: the
// input itself is invalid, so retrying only wastes another attempt.
var TerminalErrorKinds = map[string]bool{
	"invalid_video_id":     true,
	"video_too_long":       true,
	"unsupported_format":   true,
	"authorization_failed": true,
}

// Evaluate runs the decision ordering described by the core's reliability
// design: a terminal error or an exhausted retry budget routes to the
// DLQ; exceeding the quota threshold retries at the next UTC midnight
// reset (or routes to the DLQ if the hard limit is already breached);
// exceeding the per-video budget routes to the DLQ; an already-processed
// checkpoint is skipped; otherwise the work proceeds, with any non-zero
// attempt count paying the exponential backoff delay first.
func Evaluate(ctx Context, ov Overrides) Decision {
	now := ctx.Now
	if now.IsZero() {
		now = timeutil.Now()
	}

	if ctx.LastErrorKind != "" && TerminalErrorKinds[ctx.LastErrorKind] {
		return DLQ{Reason: "terminal_error:" + ctx.LastErrorKind}
	}

	if ov.MaxAttempts > 0 && ctx.Attempt >= ov.MaxAttempts {
		return DLQ{Reason: "retry_budget_exhausted"}
	}

	if ctx.QuotaLimit > 0 {
		threshold := ov.QuotaThreshold
		if threshold <= 0 {
			threshold = 0.9
		}
		used := float64(ctx.QuotaUsed) / float64(ctx.QuotaLimit)
		if ctx.QuotaUsed >= ctx.QuotaLimit {
			return DLQ{Reason: "quota_exceeded"}
		}
		if used >= threshold {
			return RetryIn{
				Delay:  time.Duration(timeutil.SecondsUntilNextUTCMidnight(now)) * time.Second,
				Reason: "quota_threshold_reached",
			}
		}
	}

	maxSpend := ov.MaxVideoSpendUSD
	if maxSpend <= 0 {
		maxSpend = 0.5
	}
	if ctx.VideoSpendUSD >= maxSpend {
		return DLQ{Reason: "budget_exceeded"}
	}

	if ctx.AlreadyProcessed {
		return Skip{Reason: "checkpoint_hit"}
	}

	if ctx.Attempt > 0 {
		base := ov.BaseDelay
		if base <= 0 {
			base = 60 * time.Second
		}

		if !ctx.LastAttemptAt.IsZero() {
			required := timeutil.BackoffDelay(ctx.Attempt, base)
			elapsed := now.Sub(ctx.LastAttemptAt)
			if elapsed < required {
				return RetryIn{
					Delay:  required - elapsed,
					Reason: "backoff unsatisfied",
				}
			}
			return Proceed{}
		}

		return RetryIn{
			Delay:  timeutil.BackoffDelayWithJitter(ctx.Attempt, base),
			Reason: "scheduled_retry",
		}
	}

	return Proceed{}
}
