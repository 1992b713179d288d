package stages

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"clipsight/internal/capability"
	"clipsight/internal/media"
	"clipsight/internal/services"
)

// Synthesize combines the transcript, frame descriptions, and any
// enrichment into the final analysis report for the run.
type Synthesize struct {
	deps *Deps
}

func (s *Synthesize) Name() string { return StageSynthesize }

func (s *Synthesize) Execute(ctx context.Context, record *media.Record) error {
	transcript, err := s.deps.Store.TranscriptForRun(ctx, record.ID, record.RunID)
	if err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "store", "load transcript", err)
	}
	if transcript == nil {
		return services.Wrap(services.ErrValidation, s.Name(), "store", "no transcript for current run", nil)
	}

	var descriptions []capability.FrameDescription
	if record.Kind == media.KindVideo {
		frames, err := s.deps.Store.KeyframesForRun(ctx, record.ID, record.RunID)
		if err != nil {
			return services.Wrap(services.ErrTransient, s.Name(), "store", "load keyframes", err)
		}
		for _, frame := range frames {
			if frame.Description == "" {
				continue
			}
			descriptions = append(descriptions, capability.FrameDescription{
				TimestampSeconds: frame.TimestampSeconds,
				Description:      frame.Description,
			})
		}
	}

	enrichment, err := s.loadEnrichment(record)
	if err != nil {
		return err
	}

	payload, err := s.deps.Synthesizer.Synthesize(ctx, capability.SynthesisRequest{
		Title:             record.Title,
		Kind:              record.Kind,
		DurationSeconds:   record.DurationSeconds,
		ContextNote:       record.ContextNote,
		TranscriptText:    transcript.Text,
		FrameDescriptions: descriptions,
		Enrichment:        enrichment,
	})
	if err != nil {
		return services.Wrap(services.ErrCapability, s.Name(), "synthesizer", "synthesis failed", err)
	}

	if err := s.deps.Store.SaveAnalysis(ctx, media.Analysis{
		MediaID: record.ID,
		RunID:   record.RunID,
		Payload: payload,
	}); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "store", "persist analysis", err)
	}
	s.deps.info(ctx, record.ID, "analysis report ready")
	return nil
}

func (s *Synthesize) loadEnrichment(record *media.Record) (string, error) {
	data, err := os.ReadFile(s.deps.enrichmentPath(record))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", services.Wrap(services.ErrTransient, s.Name(), "scratch", "load enrichment", err)
	}
	return string(data), nil
}
