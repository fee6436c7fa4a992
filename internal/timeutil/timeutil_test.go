package timeutil

import (
	"testing"
	"time"
)

func TestFormatParseISO8601ZRoundTrip(t *testing.T) {
	now := time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC)
	s := FormatISO8601Z(now)
	if s != "2025-09-15T14:30:00Z" {
		t.Fatalf("unexpected format: %s", s)
	}

	got, err := ParseISO8601Z(s)
	if err != nil {
		t.Fatalf("ParseISO8601Z failed: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("round trip mismatch: got %v want %v", got, now)
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url with extra params", "https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ&index=2", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractVideoID(tc.input)
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestExtractVideoIDInvalid(t *testing.T) {
	if _, err := ExtractVideoID("not a url"); err == nil {
		t.Fatal("expected error for invalid input")
	}
}

func TestExtractVideoIDIdempotent(t *testing.T) {
	id, err := ExtractVideoID("https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := ExtractVideoID(CanonicalURL(id))
	if err != nil {
		t.Fatal(err)
	}
	if id != id2 {
		t.Errorf("not idempotent: %q != %q", id, id2)
	}
}

func TestComposeFilenameDeterministicAndInjective(t *testing.T) {
	at := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)

	f1, err := ComposeFilename("dQw4w9WgXcQ", at, ArtifactTranscriptText)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := ComposeFilename("dQw4w9WgXcQ", at, ArtifactTranscriptText)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Errorf("not deterministic: %q != %q", f1, f2)
	}
	if f1 != "dQw4w9WgXcQ_2025-09-15_transcript_txt.txt" {
		t.Errorf("unexpected filename: %q", f1)
	}

	f3, _ := ComposeFilename("dQw4w9WgXcQ", at, ArtifactTranscriptJSON)
	if f1 == f3 {
		t.Errorf("expected distinct filenames for distinct types")
	}
}

func TestIdempotencyKey(t *testing.T) {
	got := IdempotencyKey("dQw4w9WgXcQ", "transcribe")
	if got != "dQw4w9WgXcQ:transcribe" {
		t.Errorf("unexpected key: %q", got)
	}
}

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"PT1H30M45S", 5445},
		{"PT45S", 45},
		{"PT2H", 7200},
		{"PT90M", 5400},
	}
	for _, tc := range cases {
		got, err := ParseISODuration(tc.in)
		if err != nil {
			t.Fatalf("ParseISODuration(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseISODurationInvalid(t *testing.T) {
	if _, err := ParseISODuration("garbage"); err == nil {
		t.Fatal("expected error")
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	base := 60 * time.Second
	for attempt := 0; attempt < 40; attempt++ {
		d := BackoffDelay(attempt, base)
		if d > 24*time.Hour {
			t.Fatalf("attempt %d: delay %v exceeds 24h cap", attempt, d)
		}
	}
}

func TestBackoffDelayFormula(t *testing.T) {
	base := 60 * time.Second
	got := BackoffDelay(2, base)
	want := 240 * time.Second
	if got != want {
		t.Errorf("BackoffDelay(2, 60s) = %v, want %v", got, want)
	}
}

func TestBackoffDelayWithJitterWithinBounds(t *testing.T) {
	base := 60 * time.Second
	nominal := BackoffDelay(3, base)
	for i := 0; i < 100; i++ {
		d := BackoffDelayWithJitter(3, base)
		lower := time.Duration(float64(nominal) * 0.9)
		upper := time.Duration(float64(nominal) * 1.1)
		if d < lower || d > upper {
			t.Fatalf("jittered delay %v outside ±10%% of %v", d, nominal)
		}
	}
}

func TestSecondsUntilNextUTCMidnight(t *testing.T) {
	now := time.Date(2025, 9, 15, 23, 59, 0, 0, time.UTC)
	got := SecondsUntilNextUTCMidnight(now)
	if got != 60 {
		t.Errorf("SecondsUntilNextUTCMidnight = %d, want 60", got)
	}
}
