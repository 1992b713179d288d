package capability

import (
	"context"

	"clipsight/internal/media"
	"clipsight/internal/services"
	"clipsight/internal/services/transcribe"
)

// HTTPTranscriber adapts the Whisper-compatible HTTP client to the
// Transcriber capability.
type HTTPTranscriber struct {
	client *transcribe.Client
}

// NewHTTPTranscriber wraps a transcription client.
func NewHTTPTranscriber(client *transcribe.Client) *HTTPTranscriber {
	return &HTTPTranscriber{client: client}
}

// Transcribe implements Transcriber.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResult, error) {
	result, err := t.client.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrCapability, "", "transcribe", "transcription request failed", err)
	}

	segments := make([]media.TranscriptSegment, 0, len(result.Segments))
	for _, segment := range result.Segments {
		segments = append(segments, media.TranscriptSegment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}
	return &TranscriptionResult{
		Text:     result.Text,
		Language: result.Language,
		Segments: segments,
	}, nil
}
