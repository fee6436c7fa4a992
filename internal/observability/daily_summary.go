package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/raynmakers/autopiloot/internal/store"
)

// Reporter computes daily run summaries over the store.
type Reporter struct {
	Store *store.Store
}

// BudgetConfig carries the subset of configuration the daily summary
// needs to compute budget/quota fitness, decoupling this package from
// internal/config the same way internal/policy decouples itself via
// its own Overrides type.
type BudgetConfig struct {
	TranscriptionDailyUSD float64
	LLMDailyUSD           float64
	YouTubeQuotaLimit     int
	AssemblyAIQuotaLimit  int
}

// VideoMetrics summarizes video throughput for the day.
type VideoMetrics struct {
	Discovered     int
	Processed      int
	ProcessingRate float64
	BySource       map[string]int
}

// JobMetrics summarizes job dispatch outcomes for the day.
type JobMetrics struct {
	Total     int
	Failures  int
	ByAgent   map[string]int
	ByJobType map[string]int
}

// CostMetrics summarizes spend for the day.
type CostMetrics struct {
	TranscriptionUSD   float64
	LLMUSD             float64
	TotalUSD           float64
	BudgetUtilization  float64
	CostPerVideo       float64
}

// ErrorMetrics summarizes DLQ entries for the day.
type ErrorMetrics struct {
	Total      int
	ByType     map[string]int
	BySeverity map[string]int
}

// QuotaMetrics summarizes per-service quota utilization for the day.
type QuotaMetrics struct {
	YouTubeUtilization    float64
	AssemblyAIUtilization float64
}

// Performance holds the composite health scoring for the day.
type Performance struct {
	ProcessingEfficiency float64
	CostEfficiency       float64
	ReliabilityScore     float64
	HealthScore          float64
	HealthStatus         string
}

// DailySummary is the full daily report.
type DailySummary struct {
	Date        string
	Video       VideoMetrics
	Jobs        JobMetrics
	Cost        CostMetrics
	Errors      ErrorMetrics
	Quota       QuotaMetrics
	Performance Performance
	Insights    []string
	Presentation string
}

// GenerateDailySummary computes the report for date (format
// "yyyy-mm-dd"); an empty date defaults to yesterday UTC.
func (r *Reporter) GenerateDailySummary(date string, budgets BudgetConfig, detail bool) (DailySummary, error) {
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	video, err := r.videoMetrics(date)
	if err != nil {
		return DailySummary{}, fmt.Errorf("observability: video metrics: %w", err)
	}
	jobs, err := r.jobMetrics(date)
	if err != nil {
		return DailySummary{}, fmt.Errorf("observability: job metrics: %w", err)
	}
	dailyCost, err := r.Store.GetDailyCost(date)
	if err != nil {
		return DailySummary{}, fmt.Errorf("observability: daily cost: %w", err)
	}
	errs, err := r.errorMetrics(date)
	if err != nil {
		return DailySummary{}, fmt.Errorf("observability: error metrics: %w", err)
	}

	totalBudget := budgets.TranscriptionDailyUSD + budgets.LLMDailyUSD
	totalCost := dailyCost.TranscriptionUSD + dailyCost.LLMUSD
	cost := CostMetrics{
		TranscriptionUSD:  dailyCost.TranscriptionUSD,
		LLMUSD:            dailyCost.LLMUSD,
		TotalUSD:          totalCost,
		BudgetUtilization: ratio(totalCost, totalBudget),
		CostPerVideo:      ratio(totalCost, float64(video.Processed)),
	}

	quota := QuotaMetrics{
		YouTubeUtilization:    ratio(float64(jobs.ByJobType["channel_scrape"]), float64(budgets.YouTubeQuotaLimit)),
		AssemblyAIUtilization: ratio(float64(jobs.ByAgent["transcriber"]), float64(budgets.AssemblyAIQuotaLimit)),
	}

	perf := computePerformance(video, jobs, errs, quota)

	summary := DailySummary{
		Date:        date,
		Video:       video,
		Jobs:        jobs,
		Cost:        cost,
		Errors:      errs,
		Quota:       quota,
		Performance: perf,
		Insights:    insights(video, cost, errs),
	}
	summary.Presentation = renderPresentation(summary)
	return summary, nil
}

func (r *Reporter) videoMetrics(date string) (VideoMetrics, error) {
	rows, err := r.Store.DB().Query(
		`SELECT channel_handle, status FROM videos WHERE date(created_at) = ? OR date(updated_at) = ?`,
		date, date,
	)
	if err != nil {
		return VideoMetrics{}, fmt.Errorf("query videos for %s: %w", date, err)
	}
	defer rows.Close()

	bySource := map[string]int{}
	discovered, processed := 0, 0
	for rows.Next() {
		var handle, status string
		if err := rows.Scan(&handle, &status); err != nil {
			return VideoMetrics{}, fmt.Errorf("scan video row: %w", err)
		}
		discovered++
		bySource[handle]++
		if status == "summarized" {
			processed++
		}
	}
	return VideoMetrics{
		Discovered:     discovered,
		Processed:      processed,
		ProcessingRate: ratio(float64(processed), float64(discovered)),
		BySource:       bySource,
	}, rows.Err()
}

func (r *Reporter) jobMetrics(date string) (JobMetrics, error) {
	rows, err := r.Store.DB().Query(
		`SELECT agent, job_type, status FROM jobs WHERE date(dispatched_at) = ?`,
		date,
	)
	if err != nil {
		return JobMetrics{}, fmt.Errorf("query jobs for %s: %w", date, err)
	}
	defer rows.Close()

	byAgent := map[string]int{}
	byType := map[string]int{}
	total, failures := 0, 0
	for rows.Next() {
		var agent, jType, status string
		if err := rows.Scan(&agent, &jType, &status); err != nil {
			return JobMetrics{}, fmt.Errorf("scan job row: %w", err)
		}
		total++
		byAgent[agent]++
		byType[jType]++
		if status == "failed" {
			failures++
		}
	}
	return JobMetrics{Total: total, Failures: failures, ByAgent: byAgent, ByJobType: byType}, rows.Err()
}

func (r *Reporter) errorMetrics(date string) (ErrorMetrics, error) {
	entries, err := r.Store.QueryDeadLetterWindow(48*time.Hour, "", "", 10000)
	if err != nil {
		return ErrorMetrics{}, fmt.Errorf("query dlq for %s: %w", date, err)
	}
	byType := map[string]int{}
	bySeverity := map[string]int{}
	total := 0
	for _, e := range entries {
		if e.CreatedAt.UTC().Format("2006-01-02") != date {
			continue
		}
		total++
		byType[errorType(e.Reason)]++
		bySeverity[e.Severity]++
	}
	return ErrorMetrics{Total: total, ByType: byType, BySeverity: bySeverity}, nil
}

func ratio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// computePerformance applies the health-score formula:
// 0.70*success_rate + 0.15*(1-dlq_rate) + 0.15*quota_fit, clamped to
// [0, 100], with quota_fit = 1.0 in [0.70, 0.80], 0.67 if < 0.90, else 0.
func computePerformance(video VideoMetrics, jobs JobMetrics, errs ErrorMetrics, quota QuotaMetrics) Performance {
	successRate := 1.0
	if jobs.Total > 0 {
		successRate = float64(jobs.Total-jobs.Failures) / float64(jobs.Total)
	}
	dlqRate := 0.0
	if video.Discovered > 0 {
		dlqRate = float64(errs.Total) / float64(video.Discovered)
	}
	meanQuota := (quota.YouTubeUtilization + quota.AssemblyAIUtilization) / 2
	quotaFit := quotaFitness(meanQuota)

	healthScore := 100 * (0.70*successRate + 0.15*(1-dlqRate) + 0.15*quotaFit)
	if healthScore < 0 {
		healthScore = 0
	}
	if healthScore > 100 {
		healthScore = 100
	}

	return Performance{
		ProcessingEfficiency: video.ProcessingRate,
		CostEfficiency:       1 - ratioClamped(dlqRate),
		ReliabilityScore:     successRate,
		HealthScore:          healthScore,
		HealthStatus:         healthStatus(healthScore),
	}
}

func quotaFitness(meanUtilization float64) float64 {
	switch {
	case meanUtilization >= 0.70 && meanUtilization <= 0.80:
		return 1.0
	case meanUtilization < 0.90:
		return 0.67
	default:
		return 0
	}
}

func ratioClamped(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func healthStatus(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 60:
		return "fair"
	case score >= 40:
		return "poor"
	default:
		return "critical"
	}
}

func insights(video VideoMetrics, cost CostMetrics, errs ErrorMetrics) []string {
	var out []string
	if video.Discovered > 0 && video.ProcessingRate < 0.70 {
		out = append(out, fmt.Sprintf("processing rate %.0f%% is below the 70%% target", video.ProcessingRate*100))
	}
	if cost.BudgetUtilization > 0.80 {
		out = append(out, fmt.Sprintf("budget utilization %.0f%% is above the 80%% threshold", cost.BudgetUtilization*100))
	}
	if errs.Total > 10 {
		out = append(out, fmt.Sprintf("%d errors today exceeds the 10-error threshold", errs.Total))
	}
	if dominant := dominantErrorType(errs.ByType); dominant != "" {
		out = append(out, fmt.Sprintf("dominant error cluster: %s", dominant))
	}
	return out
}

func dominantErrorType(byType map[string]int) string {
	best, bestCount := "", 0
	for t, c := range byType {
		if c > bestCount {
			best, bestCount = t, c
		}
	}
	return best
}

func renderPresentation(s DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary for %s — health %.0f (%s)\n", s.Date, s.Performance.HealthScore, s.Performance.HealthStatus)
	fmt.Fprintf(&b, "videos: %d discovered, %d processed (%.0f%%)\n", s.Video.Discovered, s.Video.Processed, s.Video.ProcessingRate*100)
	fmt.Fprintf(&b, "jobs: %d total, %d failed\n", s.Jobs.Total, s.Jobs.Failures)
	fmt.Fprintf(&b, "cost: $%.2f (%.0f%% of budget)\n", s.Cost.TotalUSD, s.Cost.BudgetUtilization*100)
	if len(s.Insights) > 0 {
		b.WriteString("insights:\n")
		for _, i := range s.Insights {
			fmt.Fprintf(&b, "- %s\n", i)
		}
	}
	return b.String()
}
