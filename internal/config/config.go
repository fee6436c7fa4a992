// Package config loads and validates the Autopiloot TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "60s" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root of the Autopiloot configuration document.
type Config struct {
	Scraper       Scraper            `toml:"scraper"`
	Reliability   Reliability        `toml:"reliability"`
	Budgets       Budgets            `toml:"budgets"`
	Idempotency   Idempotency        `toml:"idempotency"`
	LLM           LLM                `toml:"llm"`
	Notifications Notifications      `toml:"notifications"`
	RAG           RAG                `toml:"rag"`
	Orchestrator  OrchestratorConfig `toml:"orchestrator"`
}

// Scraper configures channel/sheet discovery.
type Scraper struct {
	Handles              []string `toml:"handles"`
	DailyLimitPerChannel int      `toml:"daily_limit_per_channel"`
}

// Reliability configures quota ceilings and retry policy.
type Reliability struct {
	Quotas Quotas `toml:"quotas"`
	Retry  Retry  `toml:"retry"`
}

// Quotas holds per-service daily unit ceilings.
type Quotas struct {
	YouTubeDailyLimit    int `toml:"youtube_daily_limit"`
	AssemblyAIDailyLimit int `toml:"assemblyai_daily_limit"`
}

// Retry configures the policy engine's retry budget and backoff base.
type Retry struct {
	MaxAttempts   int      `toml:"max_attempts"`
	BaseDelaySec  int      `toml:"base_delay_sec"`
	QuotaThreshold float64 `toml:"quota_threshold"`
}

// Budgets configures daily USD spend ceilings.
type Budgets struct {
	TranscriptionDailyUSD float64 `toml:"transcription_daily_usd"`
	LLMDailyUSD           float64 `toml:"llm_daily_usd"`
}

// Idempotency configures business-rule thresholds.
type Idempotency struct {
	MaxVideoDurationSec int `toml:"max_video_duration_sec"`
}

// LLM configures default and per-task model parameters.
type LLM struct {
	Default DefaultLLM          `toml:"default"`
	Tasks   map[string]TaskLLM `toml:"tasks"`
}

// DefaultLLM holds fallback model parameters applied when a task doesn't
// override them.
type DefaultLLM struct {
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	PromptID    string  `toml:"prompt_id"`
}

// TaskLLM overrides model parameters for a single named task
// (e.g. "summarizer_generate_short").
type TaskLLM struct {
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	PromptID    string  `toml:"prompt_id"`
	PromptVersion string `toml:"prompt_version"`
}

// Notifications configures the operational-report delivery sink.
type Notifications struct {
	Slack Slack `toml:"slack"`
}

// Slack configures the Slack notification channel.
type Slack struct {
	Channel string `toml:"channel"`
}

// RAG configures hybrid retrieval parameters observed from the core.
type RAG struct {
	OpenSearch OpenSearch `toml:"opensearch"`
}

// OpenSearch configures hybrid retrieval tuning.
type OpenSearch struct {
	Index       string  `toml:"index"`
	HybridAlpha float64 `toml:"hybrid_alpha"`
	TopK        int     `toml:"top_k"`
}

// OrchestratorConfig configures run cadence.
type OrchestratorConfig struct {
	TickInterval Duration `toml:"tick_interval"`
	DailyCron    string   `toml:"daily_cron"`
}

// defaultSearchPath lists conventional on-disk locations checked by Load
// in order; the first existing file wins.
var defaultSearchPath = []string{
	"autopiloot.toml",
	"config/autopiloot.toml",
	"/etc/autopiloot/autopiloot.toml",
}

// Load reads and parses the configuration document at path. If path is
// empty, the first existing file in defaultSearchPath is used.
func Load(path string) (*Config, error) {
	resolved := path
	if resolved == "" {
		for _, candidate := range defaultSearchPath {
			if _, err := os.Stat(candidate); err == nil {
				resolved = candidate
				break
			}
		}
	}
	if resolved == "" {
		return nil, fmt.Errorf("config: no configuration file found in search path %v", defaultSearchPath)
	}

	cfg := defaults()
	if _, err := toml.DecodeFile(resolved, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", resolved, err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with the core's documented
// default values, overridden by whatever the TOML document sets.
func defaults() *Config {
	return &Config{
		Reliability: Reliability{
			Retry: Retry{
				MaxAttempts:    3,
				BaseDelaySec:   60,
				QuotaThreshold: 0.9,
			},
		},
		Idempotency: Idempotency{
			MaxVideoDurationSec: 4200,
		},
	}
}

// Clone returns a deep-enough copy of cfg suitable for safe concurrent
// reads (maps/slices are copied at the top level actually used by
// callers; nested struct values are copied by Go's struct assignment).
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c

	clone.Scraper.Handles = append([]string(nil), c.Scraper.Handles...)

	clone.LLM.Tasks = make(map[string]TaskLLM, len(c.LLM.Tasks))
	for k, v := range c.LLM.Tasks {
		clone.LLM.Tasks[k] = v
	}

	return &clone
}
