package stages

import (
	"context"

	"clipsight/internal/capability"
	"clipsight/internal/media"
	"clipsight/internal/services"
)

// Transcribe sends the normalized audio to the transcription capability and
// persists the timed transcript for the current run.
type Transcribe struct {
	deps *Deps
}

func (s *Transcribe) Name() string { return StageTranscribe }

func (s *Transcribe) Execute(ctx context.Context, record *media.Record) error {
	result, err := s.deps.Transcriber.Transcribe(ctx, capability.TranscriptionRequest{
		AudioPath: s.deps.audioPath(record),
		Title:     record.Title,
	})
	if err != nil {
		return services.Wrap(services.ErrCapability, s.Name(), "transcriber", "transcription failed", err)
	}

	transcript := media.Transcript{
		MediaID:  record.ID,
		RunID:    record.RunID,
		Text:     result.Text,
		Segments: result.Segments,
		Language: result.Language,
	}
	if err := s.deps.Store.SaveTranscript(ctx, transcript); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "store", "persist transcript", err)
	}

	s.deps.info(ctx, record.ID, "transcribed %d segments (%s)", len(result.Segments), displayLanguage(result.Language))
	return nil
}

func displayLanguage(language string) string {
	if language == "" {
		return "language unknown"
	}
	return language
}
