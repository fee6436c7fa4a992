// Package observability computes reporting and diagnostic views over the
// state store: dead-letter trend analysis, daily run summaries, and LLM
// usage metrics. It never writes to the store beyond the audit log — it
// is a read path, not a participant in the reliability core's decisions.
package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raynmakers/autopiloot/internal/store"
)

// TrendAnalyzer computes dead-letter trend reports over a configurable
// window.
type TrendAnalyzer struct {
	Store *store.Store
}

// ErrorPattern summarizes one error_type bucket within a trend window.
type ErrorPattern struct {
	ErrorType  string
	Count      int
	Percentage float64
	Examples   []string
}

// TemporalAnalysis breaks failures down by hour-of-day and flags bursts.
type TemporalAnalysis struct {
	HourlyBreakdown      map[int]int
	PeakHours            []int
	FailureVelocityPerMin float64
	BaselinePerMin        float64
	BurstDetected         bool
}

// Alert is a threshold-crossing notice surfaced by the trend analyzer.
type Alert struct {
	Severity string
	Message  string
}

// Recommendation is pattern-driven operator advice.
type Recommendation struct {
	Category    string
	Priority    string // low, medium, high, critical
	Action      string
	Description string
}

// DLQTrendReport is the full output of AnalyzeTrends.
type DLQTrendReport struct {
	TotalEntries      int
	EntriesPerHour    float64
	FailureRateCurrent float64
	FailureRatePrior   float64
	FailurePatterns   []ErrorPattern
	ByAgent           map[string]int
	ByJobType         map[string]int
	RetryDistribution map[int]int
	Temporal          TemporalAnalysis
	Alerts            []Alert
	Recommendations   []Recommendation
}

// recommendationTable maps a dominant error bucket to operator advice,
// adapted from the pattern-to-recommendation shape of a recommendations
// engine: each entry names what's wrong and what to do about it.
var recommendationTable = map[string]Recommendation{
	"timeout": {
		Category:    "timeout",
		Priority:    "high",
		Action:      "increase_client_timeout",
		Description: "Dominant failure is API timeouts; consider increasing the per-call timeout or polling interval.",
	},
	"quota_exceeded": {
		Category:    "quota_exceeded",
		Priority:    "high",
		Action:      "raise_quota_or_throttle",
		Description: "Quota ceiling is being hit repeatedly; raise the configured daily limit or throttle dispatch rate.",
	},
	"connection_error": {
		Category:    "connection_error",
		Priority:    "medium",
		Action:      "investigate_dependency",
		Description: "Repeated connection failures suggest an upstream dependency is degraded; investigate its health.",
	},
	"validation_error": {
		Category:    "validation_error",
		Priority:    "medium",
		Action:      "harden_input_filters",
		Description: "Repeated validation failures suggest malformed inputs are reaching dispatch; tighten upstream filtering.",
	},
}

// AnalyzeTrends computes a DLQ trend report over the last windowHours,
// comparing that window against the equal-length window just before it
// to derive a failure-rate trend and detect bursts (current rate at
// least spikeThreshold times the prior rate). Recommendations are only
// populated when includeRecommendations is true.
func (a *TrendAnalyzer) AnalyzeTrends(windowHours int, spikeThreshold float64, includeRecommendations bool) (DLQTrendReport, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	if spikeThreshold <= 0 {
		spikeThreshold = 2.0
	}
	window := time.Duration(windowHours) * time.Hour

	current, err := a.Store.QueryDeadLetterWindow(window, "", "", 10000)
	if err != nil {
		return DLQTrendReport{}, fmt.Errorf("observability: query current dlq window: %w", err)
	}
	prior, err := a.Store.QueryDeadLetterWindow(2*window, "", "", 10000)
	if err != nil {
		return DLQTrendReport{}, fmt.Errorf("observability: query prior dlq window: %w", err)
	}
	priorOnly := priorHalf(prior, current)

	report := DLQTrendReport{
		TotalEntries:      len(current),
		EntriesPerHour:     float64(len(current)) / float64(windowHours),
		FailureRateCurrent: ratePerMinute(current, window),
		FailureRatePrior:   ratePerMinute(priorOnly, window),
		ByAgent:            map[string]int{},
		ByJobType:          map[string]int{},
		RetryDistribution:  map[int]int{},
	}

	errorCounts := map[string][]string{}
	hourly := map[int]int{}
	for _, e := range current {
		errType := errorType(e.Reason)
		errorCounts[errType] = append(errorCounts[errType], e.VideoID)
		report.ByAgent[e.Agent]++
		report.ByJobType[e.JobType]++
		hourly[e.CreatedAt.UTC().Hour()]++
	}

	report.FailurePatterns = topErrorPatterns(errorCounts, len(current), 5)
	report.Temporal = TemporalAnalysis{
		HourlyBreakdown:       hourly,
		PeakHours:             peakHours(hourly),
		FailureVelocityPerMin: report.FailureRateCurrent,
		BaselinePerMin:        report.FailureRatePrior,
		BurstDetected:         report.FailureRatePrior > 0 && report.FailureRateCurrent >= spikeThreshold*report.FailureRatePrior,
	}

	if report.Temporal.BurstDetected {
		severity := "warning"
		if report.FailureRatePrior > 0 && report.FailureRateCurrent >= 3*report.FailureRatePrior {
			severity = "critical"
		}
		report.Alerts = append(report.Alerts, Alert{
			Severity: severity,
			Message:  fmt.Sprintf("dlq failure rate %.2f/min is %.1fx the prior baseline of %.2f/min", report.FailureRateCurrent, report.FailureRateCurrent/max1(report.FailureRatePrior), report.FailureRatePrior),
		})
	}

	if includeRecommendations && len(report.FailurePatterns) > 0 {
		dominant := report.FailurePatterns[0].ErrorType
		if rec, ok := recommendationTable[dominant]; ok {
			report.Recommendations = append(report.Recommendations, rec)
		}
	}

	return report, nil
}

func priorHalf(all, current []store.DeadLetterEntry) []store.DeadLetterEntry {
	seen := make(map[string]bool, len(current))
	for _, e := range current {
		seen[e.DLQID] = true
	}
	var out []store.DeadLetterEntry
	for _, e := range all {
		if !seen[e.DLQID] {
			out = append(out, e)
		}
	}
	return out
}

func ratePerMinute(entries []store.DeadLetterEntry, window time.Duration) float64 {
	minutes := window.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(len(entries)) / minutes
}

func errorType(reason string) string {
	if idx := strings.Index(reason, ":"); idx >= 0 {
		return reason[:idx]
	}
	return reason
}

func topErrorPatterns(counts map[string][]string, total int, n int) []ErrorPattern {
	patterns := make([]ErrorPattern, 0, len(counts))
	for errType, examples := range counts {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(len(examples)) / float64(total)
		}
		sort.Strings(examples)
		if len(examples) > 3 {
			examples = examples[:3]
		}
		patterns = append(patterns, ErrorPattern{ErrorType: errType, Count: len(counts[errType]), Percentage: pct, Examples: examples})
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Count > patterns[j].Count })
	if len(patterns) > n {
		patterns = patterns[:n]
	}
	return patterns
}

func peakHours(hourly map[int]int) []int {
	max := 0
	for _, c := range hourly {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return nil
	}
	var peaks []int
	for h, c := range hourly {
		if c == max {
			peaks = append(peaks, h)
		}
	}
	sort.Ints(peaks)
	return peaks
}

func max1(f float64) float64 {
	if f <= 0 {
		return 1
	}
	return f
}
