package stages

import (
	"context"
	"os"

	"clipsight/internal/capability"
	"clipsight/internal/media"
	"clipsight/internal/services"
)

// Enrich runs the semantic transcript analysis for audio-only media. The
// payload is a run-scoped scratch artifact picked up by synthesis.
type Enrich struct {
	deps *Deps
}

func (s *Enrich) Name() string { return StageEnrich }

func (s *Enrich) Execute(ctx context.Context, record *media.Record) error {
	transcript, err := s.deps.Store.TranscriptForRun(ctx, record.ID, record.RunID)
	if err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "store", "load transcript", err)
	}
	if transcript == nil {
		return services.Wrap(services.ErrValidation, s.Name(), "store", "no transcript for current run", nil)
	}

	payload, err := s.deps.Synthesizer.Enrich(ctx, capability.EnrichmentRequest{
		Title:           record.Title,
		DurationSeconds: record.DurationSeconds,
		TranscriptText:  transcript.Text,
		Segments:        transcript.Segments,
	})
	if err != nil {
		return services.Wrap(services.ErrCapability, s.Name(), "synthesizer", "transcript enrichment failed", err)
	}

	if err := os.WriteFile(s.deps.enrichmentPath(record), []byte(payload), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "scratch", "persist enrichment", err)
	}
	s.deps.info(ctx, record.ID, "transcript enriched")
	return nil
}
