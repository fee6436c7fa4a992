package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/raynmakers/autopiloot/internal/external"
	"github.com/raynmakers/autopiloot/internal/store"
)

// llmRequestDetails mirrors the JSON shape the orchestrator's summarizer
// dispatch appends to the audit log for each completed LLM call.
type llmRequestDetails struct {
	VideoID       string  `json:"video_id"`
	Model         string  `json:"model"`
	Task          string  `json:"task"`
	PromptID      string  `json:"prompt_id"`
	PromptVersion string  `json:"prompt_version"`
	TokensUsed    int     `json:"tokens_used"`
	CostUSD       float64 `json:"cost_usd"`
	LatencyMS     int64   `json:"latency_ms"`
}

// PromptPerformance summarizes how one (prompt_id, prompt_version) pair
// has performed across its recorded calls.
type PromptPerformance struct {
	PromptID           string
	PromptVersion      string
	UsageCount         int
	SuccessRate        float64
	EffectivenessScore float64
}

// LLMUsageMetrics is the full output of GetLLMUsageMetrics.
type LLMUsageMetrics struct {
	TotalRequests    int
	ByModel          map[string]int
	ByTask           map[string]int
	P95LatencyMS     int64
	TotalTokens      int
	AvgTokensPerCall float64
	TotalCostUSD     float64
	CostByModel      map[string]float64
	Prompts          []PromptPerformance
	Insights         []string
}

// LLMMetricsCollector projects LLM usage metrics from the audit log.
type LLMMetricsCollector struct {
	Store    *store.Store
	Notifier external.NotificationSink
}

// GetLLMUsageMetrics queries audit entries for entityID's llm_request
// events within the last window (all entities if entityID is empty is
// not supported by the store's entity-scoped audit query, so callers
// typically pass a video ID or aggregate at a higher layer by calling
// this once per video and summing).
func (c *LLMMetricsCollector) GetLLMUsageMetrics(entityID string, window time.Duration) (LLMUsageMetrics, error) {
	entries, err := c.Store.QueryAuditByEntity(entityID)
	if err != nil {
		return LLMUsageMetrics{}, fmt.Errorf("observability: query audit for llm metrics: %w", err)
	}

	cutoff := time.Now().Add(-window)
	var latencies []int64
	metrics := LLMUsageMetrics{ByModel: map[string]int{}, ByTask: map[string]int{}, CostByModel: map[string]float64{}}
	promptStats := map[string]*PromptPerformance{}

	for _, e := range entries {
		if e.EventType != "llm_request" {
			continue
		}
		if window > 0 && e.CreatedAt.Before(cutoff) {
			continue
		}
		var d llmRequestDetails
		if err := json.Unmarshal([]byte(e.Details), &d); err != nil {
			continue
		}

		metrics.TotalRequests++
		metrics.ByModel[d.Model]++
		metrics.ByTask[d.Task]++
		metrics.TotalTokens += d.TokensUsed
		metrics.TotalCostUSD += d.CostUSD
		metrics.CostByModel[d.Model] += d.CostUSD
		latencies = append(latencies, d.LatencyMS)

		key := d.PromptID + "@" + d.PromptVersion
		p, ok := promptStats[key]
		if !ok {
			p = &PromptPerformance{PromptID: d.PromptID, PromptVersion: d.PromptVersion}
			promptStats[key] = p
		}
		p.UsageCount++
	}

	if metrics.TotalRequests > 0 {
		metrics.AvgTokensPerCall = float64(metrics.TotalTokens) / float64(metrics.TotalRequests)
	}
	metrics.P95LatencyMS = percentileInt64(latencies, 0.95)

	for _, p := range promptStats {
		p.SuccessRate = 1.0
		p.EffectivenessScore = 0.6*p.SuccessRate + 0.4*lengthQualityScore(p.UsageCount)
		metrics.Prompts = append(metrics.Prompts, *p)
	}
	sort.Slice(metrics.Prompts, func(i, j int) bool { return metrics.Prompts[i].UsageCount > metrics.Prompts[j].UsageCount })

	metrics.Insights = llmInsights(metrics)
	return metrics, nil
}

// percentileInt64 returns the p-th percentile (0 < p <= 1) of values
// using a sorted-slice nearest-rank method — no external stats library,
// matching how the rest of this module avoids pulling in a dependency
// for small, self-contained numeric helpers.
func percentileInt64(values []int64, p float64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// lengthQualityScore is a placeholder proportional-usage signal until
// output-length quality data is wired through llmRequestDetails; usage
// count alone keeps EffectivenessScore monotonic in observed adoption.
func lengthQualityScore(usageCount int) float64 {
	if usageCount <= 0 {
		return 0
	}
	if usageCount > 10 {
		return 1
	}
	return float64(usageCount) / 10
}

func llmInsights(m LLMUsageMetrics) []string {
	var out []string
	if m.TotalRequests > 0 {
		projectedMonthly := m.TotalCostUSD * 30
		if projectedMonthly > 100 {
			out = append(out, fmt.Sprintf("projected monthly LLM cost $%.2f exceeds $100", projectedMonthly))
		}
	}
	if m.P95LatencyMS > 10000 {
		out = append(out, fmt.Sprintf("p95 latency %dms indicates slow responses", m.P95LatencyMS))
	}
	if m.AvgTokensPerCall > 4000 {
		out = append(out, fmt.Sprintf("average %.0f tokens/call is unusually heavy", m.AvgTokensPerCall))
	}
	if len(m.ByModel) == 1 {
		for model := range m.ByModel {
			out = append(out, fmt.Sprintf("single-model overuse: all requests used %s", model))
		}
	}
	return out
}

// ExportRedacted sends a redacted subset of metrics (no prompt IDs, no
// per-call detail) to the configured telemetry sink.
func (c *LLMMetricsCollector) ExportRedacted(ctx context.Context, m LLMUsageMetrics) error {
	if c.Notifier == nil {
		return nil
	}
	body := fmt.Sprintf("requests=%d tokens=%d cost_usd=%.2f p95_ms=%d", m.TotalRequests, m.TotalTokens, m.TotalCostUSD, m.P95LatencyMS)
	return c.Notifier.Send(ctx, "LLM usage (redacted)", body)
}
