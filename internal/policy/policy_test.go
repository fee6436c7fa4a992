package policy

import (
	"testing"
	"time"
)

func TestEvaluateTerminalErrorRoutesToDLQ(t *testing.T) {
	d := Evaluate(Context{LastErrorKind: "video_too_long"}, DefaultOverrides())
	dlq, ok := d.(DLQ)
	if !ok {
		t.Fatalf("expected DLQ, got %#v", d)
	}
	if dlq.Reason != "terminal_error:video_too_long" {
		t.Errorf("unexpected reason: %q", dlq.Reason)
	}
}

func TestEvaluateRetryBudgetExhaustedRoutesToDLQ(t *testing.T) {
	d := Evaluate(Context{Attempt: 3}, DefaultOverrides())
	if _, ok := d.(DLQ); !ok {
		t.Fatalf("expected DLQ at max attempts, got %#v", d)
	}
}

func TestEvaluateQuotaExceededRoutesToDLQ(t *testing.T) {
	d := Evaluate(Context{QuotaUsed: 10000, QuotaLimit: 10000}, DefaultOverrides())
	dlq, ok := d.(DLQ)
	if !ok {
		t.Fatalf("expected DLQ, got %#v", d)
	}
	if dlq.Reason != "quota_exceeded" {
		t.Errorf("unexpected reason: %q", dlq.Reason)
	}
}

func TestEvaluateQuotaThresholdRetriesAtMidnight(t *testing.T) {
	now := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)
	d := Evaluate(Context{QuotaUsed: 9500, QuotaLimit: 10000, Now: now}, DefaultOverrides())
	retry, ok := d.(RetryIn)
	if !ok {
		t.Fatalf("expected RetryIn at quota threshold, got %#v", d)
	}
	if retry.Delay != time.Hour {
		t.Errorf("expected 1h delay until UTC midnight, got %v", retry.Delay)
	}
	if retry.Reason != "quota_threshold_reached" {
		t.Errorf("unexpected reason: %q", retry.Reason)
	}
}

func TestEvaluateBudgetExceededRoutesToDLQ(t *testing.T) {
	d := Evaluate(Context{VideoSpendUSD: 0.5}, DefaultOverrides())
	dlq, ok := d.(DLQ)
	if !ok {
		t.Fatalf("expected DLQ, got %#v", d)
	}
	if dlq.Reason != "budget_exceeded" {
		t.Errorf("unexpected reason: %q", dlq.Reason)
	}
}

func TestEvaluateCheckpointHitSkips(t *testing.T) {
	d := Evaluate(Context{AlreadyProcessed: true}, DefaultOverrides())
	skip, ok := d.(Skip)
	if !ok {
		t.Fatalf("expected Skip, got %#v", d)
	}
	if skip.Reason != "checkpoint_hit" {
		t.Errorf("unexpected reason: %q", skip.Reason)
	}
}

func TestEvaluateFirstAttemptProceeds(t *testing.T) {
	d := Evaluate(Context{}, DefaultOverrides())
	if _, ok := d.(Proceed); !ok {
		t.Fatalf("expected Proceed on first attempt, got %#v", d)
	}
}

func TestEvaluateSubsequentAttemptRetriesWithBackoff(t *testing.T) {
	d := Evaluate(Context{Attempt: 1}, DefaultOverrides())
	retry, ok := d.(RetryIn)
	if !ok {
		t.Fatalf("expected RetryIn on a prior attempt, got %#v", d)
	}
	if retry.Reason != "scheduled_retry" {
		t.Errorf("unexpected reason: %q", retry.Reason)
	}
	if retry.Delay <= 0 {
		t.Errorf("expected positive backoff delay, got %v", retry.Delay)
	}
}

func TestEvaluateOrderingTerminalErrorBeatsCheckpoint(t *testing.T) {
	// Even if the checkpoint says "already processed", a terminal error
	// on the current attempt should still route to the DLQ: the earlier
	// work is suspect and must not be silently treated as done.
	d := Evaluate(Context{LastErrorKind: "invalid_video_id", AlreadyProcessed: true}, DefaultOverrides())
	if _, ok := d.(DLQ); !ok {
		t.Fatalf("expected DLQ to take priority over checkpoint skip, got %#v", d)
	}
}

func TestEvaluateAuthorizationFailedRoutesToDLQ(t *testing.T) {
	d := Evaluate(Context{Attempt: 0, LastErrorKind: "authorization_failed"}, DefaultOverrides())
	dlq, ok := d.(DLQ)
	if !ok {
		t.Fatalf("expected DLQ, got %#v", d)
	}
	if dlq.Reason != "terminal_error:authorization_failed" {
		t.Errorf("unexpected reason: %q", dlq.Reason)
	}
}

func TestEvaluateBackoffUnsatisfiedRetriesRemainingDelay(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	d := Evaluate(Context{
		Attempt:       2,
		LastAttemptAt: now.Add(-30 * time.Second),
		Now:           now,
	}, Overrides{MaxAttempts: 3, BaseDelay: 60 * time.Second})

	retry, ok := d.(RetryIn)
	if !ok {
		t.Fatalf("expected RetryIn, got %#v", d)
	}
	if retry.Reason != "backoff unsatisfied" {
		t.Errorf("unexpected reason: %q", retry.Reason)
	}
	// required = 60 * 2^2 = 240s, elapsed = 30s, remaining = 210s.
	if retry.Delay != 210*time.Second {
		t.Errorf("expected ~210s remaining, got %v", retry.Delay)
	}
}

func TestEvaluateBackoffSatisfiedProceeds(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	d := Evaluate(Context{
		Attempt:       1,
		LastAttemptAt: now.Add(-1 * time.Hour),
		Now:           now,
	}, Overrides{MaxAttempts: 3, BaseDelay: 60 * time.Second})

	if _, ok := d.(Proceed); !ok {
		t.Fatalf("expected Proceed once the required delay has elapsed, got %#v", d)
	}
}
