package capability

import (
	"context"

	"clipsight/internal/media"
)

// TranscriptionRequest carries the extracted audio for transcription.
type TranscriptionRequest struct {
	AudioPath string
	Title     string
}

// TranscriptionResult is the capability-neutral transcription outcome.
type TranscriptionResult struct {
	Text     string
	Language string
	Segments []media.TranscriptSegment
}

// Transcriber turns an audio file into a timed transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResult, error)
}

// FrameRequest carries one keyframe still plus the narration around it.
type FrameRequest struct {
	Image            []byte
	TimestampSeconds float64
	TranscriptWindow string
	ContextNote      string
	Title            string
}

// VisionDescriber produces a textual description of a keyframe.
type VisionDescriber interface {
	Describe(ctx context.Context, req FrameRequest) (string, error)
}

// FrameDescription pairs a described keyframe with its position.
type FrameDescription struct {
	TimestampSeconds float64
	Description      string
}

// EnrichmentRequest carries a transcript for semantic analysis on the
// audio-only path.
type EnrichmentRequest struct {
	Title           string
	DurationSeconds float64
	TranscriptText  string
	Segments        []media.TranscriptSegment
}

// SynthesisRequest carries everything gathered by earlier stages for the
// final report.
type SynthesisRequest struct {
	Title             string
	Kind              media.Kind
	DurationSeconds   float64
	ContextNote       string
	TranscriptText    string
	FrameDescriptions []FrameDescription
	Enrichment        string
}

// Synthesizer produces the final analysis payload, and the intermediate
// enrichment for audio-only media. Both return capability-defined JSON.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
	Enrich(ctx context.Context, req EnrichmentRequest) (string, error)
}
