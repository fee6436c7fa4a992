package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validConfig = `
[scraper]
handles = ["@exampleChannel"]
daily_limit_per_channel = 10

[reliability.quotas]
youtube_daily_limit = 10000
assemblyai_daily_limit = 100

[reliability.retry]
max_attempts = 3
base_delay_sec = 60
quota_threshold = 0.9

[budgets]
transcription_daily_usd = 5.0
llm_daily_usd = 2.0

[idempotency]
max_video_duration_sec = 4200

[llm.default]
model = "gpt-4.1"
temperature = 0.3
max_tokens = 2048
prompt_id = "summarize_v1"

[llm.tasks.summarizer_generate_short]
model = "gpt-4.1-mini"
temperature = 0.2
max_tokens = 512
prompt_id = "summarize_short_v1"
prompt_version = "1"

[notifications.slack]
channel = "#autopiloot-ops"

[rag.opensearch]
index = "autopiloot-transcripts"
hybrid_alpha = 0.5
top_k = 8
`

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "autopiloot.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadPopulatesTypedTree(t *testing.T) {
	path := writeTestConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Scraper.Handles) != 1 || cfg.Scraper.Handles[0] != "@exampleChannel" {
		t.Errorf("unexpected handles: %v", cfg.Scraper.Handles)
	}
	if cfg.Reliability.Quotas.YouTubeDailyLimit != 10000 {
		t.Errorf("unexpected youtube quota: %d", cfg.Reliability.Quotas.YouTubeDailyLimit)
	}
	if cfg.Budgets.TranscriptionDailyUSD != 5.0 {
		t.Errorf("unexpected transcription budget: %v", cfg.Budgets.TranscriptionDailyUSD)
	}
	task, ok := cfg.LLM.Tasks["summarizer_generate_short"]
	if !ok {
		t.Fatal("expected summarizer_generate_short task override")
	}
	if task.Model != "gpt-4.1-mini" {
		t.Errorf("unexpected task model: %q", task.Model)
	}
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	path := writeTestConfig(t, `[scraper]
handles = ["@only"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reliability.Retry.MaxAttempts != 3 {
		t.Errorf("expected default max_attempts 3, got %d", cfg.Reliability.Retry.MaxAttempts)
	}
	if cfg.Idempotency.MaxVideoDurationSec != 4200 {
		t.Errorf("expected default max_video_duration_sec 4200, got %d", cfg.Idempotency.MaxVideoDurationSec)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := &Config{Scraper: Scraper{Handles: []string{"@a", "@b"}}}
	clone := cfg.Clone()

	clone.Scraper.Handles[0] = "@mutated"
	if cfg.Scraper.Handles[0] == "@mutated" {
		t.Fatal("Clone should not share the Handles backing array")
	}
}
