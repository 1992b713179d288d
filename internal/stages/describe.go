package stages

import (
	"context"
	"os"
	"strings"

	"clipsight/internal/capability"
	"clipsight/internal/media"
	"clipsight/internal/services"
)

// transcriptWindowSeconds is the narration span supplied alongside each
// keyframe when asking the vision capability to describe it.
const transcriptWindowSeconds = 15.0

// DescribeFrames sends each extracted keyframe to the vision capability
// together with the narration surrounding its timestamp.
type DescribeFrames struct {
	deps *Deps
}

func (s *DescribeFrames) Name() string { return StageDescribeFrames }

func (s *DescribeFrames) Execute(ctx context.Context, record *media.Record) error {
	frames, err := s.deps.Store.KeyframesForRun(ctx, record.ID, record.RunID)
	if err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "store", "load keyframes", err)
	}
	if len(frames) == 0 {
		s.deps.info(ctx, record.ID, "no keyframes to describe")
		return nil
	}

	transcript, err := s.deps.Store.TranscriptForRun(ctx, record.ID, record.RunID)
	if err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "store", "load transcript", err)
	}

	for _, frame := range frames {
		image, err := os.ReadFile(frame.ImagePath)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, s.Name(), "stills", "read keyframe still", err)
		}

		description, err := s.deps.Vision.Describe(ctx, capability.FrameRequest{
			Image:            image,
			TimestampSeconds: frame.TimestampSeconds,
			TranscriptWindow: transcriptWindow(transcript, frame.TimestampSeconds),
			ContextNote:      record.ContextNote,
			Title:            record.Title,
		})
		if err != nil {
			return services.Wrap(services.ErrCapability, s.Name(), "vision", "describe keyframe", err)
		}
		if err := s.deps.Store.SetKeyframeDescription(ctx, frame.ID, description); err != nil {
			return services.Wrap(services.ErrTransient, s.Name(), "store", "persist description", err)
		}
	}

	s.deps.info(ctx, record.ID, "described %d keyframes", len(frames))
	return nil
}

// transcriptWindow joins the segments within the window around a timestamp.
func transcriptWindow(transcript *media.Transcript, timestampSeconds float64) string {
	if transcript == nil {
		return ""
	}
	lo := timestampSeconds - transcriptWindowSeconds
	hi := timestampSeconds + transcriptWindowSeconds

	var parts []string
	for _, segment := range transcript.Segments {
		if segment.End < lo || segment.Start > hi {
			continue
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
