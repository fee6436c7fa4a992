package external

import (
	"context"
	"fmt"
)

// Defining the exact wire format of any third-party API is out of
// scope here: the core only depends on the interfaces above. The
// Unconfigured* types satisfy those interfaces with a clear error so
// cmd/autopiloot can wire a complete Dependencies struct even before a
// concrete YouTube/AssemblyAI/LLM/vector-store client is plugged in —
// grounded on the teacher's DispatcherResolver.ValidateConfiguration
// idiom of failing loudly, here with an error from each call rather
// than a panic.

// UnconfiguredChannelSource reports that no channel scraper backend is
// wired in.
type UnconfiguredChannelSource struct{}

func (UnconfiguredChannelSource) ListRecentVideos(ctx context.Context, channelHandle string, limit int) ([]ChannelVideo, error) {
	return nil, fmt.Errorf("external: no channel source configured for handle %q", channelHandle)
}

func (UnconfiguredChannelSource) ListFromSheet(ctx context.Context, sheetID string) ([]ChannelVideo, error) {
	return nil, fmt.Errorf("external: no channel source configured for sheet %q", sheetID)
}

// UnconfiguredTranscription reports that no transcription backend is
// wired in.
type UnconfiguredTranscription struct{}

func (UnconfiguredTranscription) Transcribe(ctx context.Context, videoID, videoURL string) (TranscriptResult, error) {
	return TranscriptResult{}, fmt.Errorf("external: no transcription backend configured for video %q", videoID)
}

// UnconfiguredSummarization reports that no summarization backend is
// wired in.
type UnconfiguredSummarization struct{}

func (UnconfiguredSummarization) Summarize(ctx context.Context, videoID, transcriptTextPath string) (SummaryResult, error) {
	return SummaryResult{}, fmt.Errorf("external: no summarization backend configured for video %q", videoID)
}

// UnconfiguredVectorIndex reports that no vector index backend is
// wired in.
type UnconfiguredVectorIndex struct{}

func (UnconfiguredVectorIndex) Upsert(ctx context.Context, docID, videoID, text string) error {
	return fmt.Errorf("external: no vector index configured for doc %q", docID)
}

func (UnconfiguredVectorIndex) Query(ctx context.Context, query string, topK int) ([]string, error) {
	return nil, fmt.Errorf("external: no vector index configured")
}

var (
	_ ChannelSource = UnconfiguredChannelSource{}
	_ Transcription = UnconfiguredTranscription{}
	_ Summarization = UnconfiguredSummarization{}
	_ VectorIndex   = UnconfiguredVectorIndex{}
)
