// Package timeutil provides UTC-normalized time handling, ISO-8601-Z
// formatting, YouTube video-ID extraction, filename composition, and
// backoff-delay computation shared by every other package in the module.
package timeutil

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const iso8601ZLayout = "2006-01-02T15:04:05Z"

// ParseError reports a failure to parse one of this package's input
// formats, carrying the offending input for diagnostics.
type ParseError struct {
	Kind  string // "iso8601", "duration", "video_id"
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timeutil: invalid %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Now returns the current instant, normalized to UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// FormatISO8601Z renders t as an ISO-8601 string with a trailing "Z",
// truncated to second precision (matching the spec's round-trip law).
func FormatISO8601Z(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(iso8601ZLayout)
}

// ParseISO8601Z parses a "...Z" UTC timestamp produced by FormatISO8601Z.
func ParseISO8601Z(s string) (time.Time, error) {
	t, err := time.Parse(iso8601ZLayout, s)
	if err != nil {
		// Accept fractional seconds too; truncate to the second on return.
		if t2, err2 := time.Parse("2006-01-02T15:04:05.999999999Z", s); err2 == nil {
			return t2.UTC().Truncate(time.Second), nil
		}
		return time.Time{}, &ParseError{Kind: "iso8601", Input: s, Err: err}
	}
	return t.UTC(), nil
}

// FormatForFilename renders t as a filename-safe "yyyy-mm-dd" date, the
// date component of the Drive-style filename convention in §6.
func FormatForFilename(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ArtifactType enumerates the fixed set of artifact kinds a filename can
// describe, each with its own extension.
type ArtifactType string

const (
	ArtifactTranscriptText ArtifactType = "transcript_txt"
	ArtifactTranscriptJSON ArtifactType = "transcript_json"
	ArtifactSummaryMD      ArtifactType = "summary_md"
	ArtifactSummaryJSON    ArtifactType = "summary_json"
)

var artifactExtensions = map[ArtifactType]string{
	ArtifactTranscriptText: "txt",
	ArtifactTranscriptJSON: "json",
	ArtifactSummaryMD:      "md",
	ArtifactSummaryJSON:    "json",
}

// ComposeFilename builds the deterministic, injective filename
// "{video_id}_{yyyy-mm-dd}_{type}.{ext}" for the given artifact.
func ComposeFilename(videoID string, at time.Time, artifactType ArtifactType) (string, error) {
	ext, ok := artifactExtensions[artifactType]
	if !ok {
		return "", fmt.Errorf("timeutil: unknown artifact type %q", artifactType)
	}
	return fmt.Sprintf("%s_%s_%s.%s", videoID, FormatForFilename(at), artifactType, ext), nil
}

// IdempotencyKey composes the "{video_id}:{operation}" key used to
// collapse duplicate work across the core.
func IdempotencyKey(videoID, operation string) string {
	return videoID + ":" + operation
}

var (
	// Matches the canonical watch URL and embed URL forms, capturing the
	// 11-character video ID.
	reWatchOrEmbed = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	// A bare 11-character ID with no surrounding URL structure.
	reBareID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID extracts the canonical 11-character YouTube video ID from
// a full watch URL, short youtu.be URL, embed URL, or a bare ID. It is
// idempotent: ExtractVideoID(CanonicalURL(ExtractVideoID(u))) == ExtractVideoID(u)
// whenever the first extraction succeeds.
func ExtractVideoID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if m := reWatchOrEmbed.FindStringSubmatch(trimmed); len(m) == 2 {
		return m[1], nil
	}
	if reBareID.MatchString(trimmed) {
		return trimmed, nil
	}
	return "", &ParseError{Kind: "video_id", Input: input, Err: fmt.Errorf("no recognizable video ID")}
}

// CanonicalURL returns the canonical "https://www.youtube.com/watch?v=..."
// URL for a video ID.
func CanonicalURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

var reISODuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration parses an ISO-8601 duration of the restricted form
// "PT#H#M#S" into total seconds (e.g. "PT1H30M45S" -> 5445).
func ParseISODuration(s string) (int, error) {
	m := reISODuration.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, &ParseError{Kind: "duration", Input: s, Err: fmt.Errorf("does not match PT#H#M#S")}
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return hours*3600 + minutes*60 + seconds, nil
}

// FormatISODuration is the inverse of ParseISODuration.
func FormatISODuration(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "PT0S"
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	var b strings.Builder
	b.WriteString("PT")
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if seconds > 0 || b.Len() == 2 {
		fmt.Fprintf(&b, "%dS", seconds)
	}
	return b.String()
}

const maxBackoff = 24 * time.Hour

// BackoffDelay computes base * 2^attempt, capped at 24h. It mirrors the
// teacher's dispatch.BackoffDelay shape but takes the attempt count
// directly (attempt 0 -> base, matching the policy engine's
// `base · 2^attempt` formula in spec §4.4 step 4).
func BackoffDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base <= 0 {
		return 0
	}

	multiplier := math.Pow(2, float64(attempt))
	if math.IsInf(multiplier, 1) || multiplier > float64(maxBackoff)/float64(base) {
		return maxBackoff
	}

	delay := base * time.Duration(multiplier)
	if delay > maxBackoff || delay < 0 {
		delay = maxBackoff
	}
	return delay
}

// BackoffDelayWithJitter applies up to ±10% symmetric jitter to
// BackoffDelay(attempt, base), capping the jittered result at 24h.
func BackoffDelayWithJitter(attempt int, base time.Duration) time.Duration {
	delay := BackoffDelay(attempt, base)
	if delay <= 0 {
		return 0
	}
	// jitterFactor in [0.9, 1.1]
	jitterFactor := 0.9 + rand.Float64()*0.2
	jittered := time.Duration(float64(delay) * jitterFactor)
	if jittered > maxBackoff {
		jittered = maxBackoff
	}
	return jittered
}

// SecondsUntilNextUTCMidnight returns the number of whole seconds between
// now and the next UTC midnight, used by the policy engine's quota-reset
// retry delay.
func SecondsUntilNextUTCMidnight(now time.Time) int {
	now = now.UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return int(nextMidnight.Sub(now).Round(time.Second).Seconds())
}
