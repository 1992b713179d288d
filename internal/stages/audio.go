package stages

import (
	"context"
	"os"

	"clipsight/internal/media"
	"clipsight/internal/services"
)

// ExtractAudio pulls the audio track out of a video source as mono 16 kHz
// PCM, ready for transcription.
type ExtractAudio struct {
	deps *Deps
}

func (s *ExtractAudio) Name() string { return StageExtractAudio }

func (s *ExtractAudio) Execute(ctx context.Context, record *media.Record) error {
	return extractNormalizedAudio(ctx, s.deps, s.Name(), record)
}

// PrepareAudio normalizes an audio-only source to the same mono 16 kHz PCM
// format the transcriber expects.
type PrepareAudio struct {
	deps *Deps
}

func (s *PrepareAudio) Name() string { return StagePrepareAudio }

func (s *PrepareAudio) Execute(ctx context.Context, record *media.Record) error {
	return extractNormalizedAudio(ctx, s.deps, s.Name(), record)
}

func extractNormalizedAudio(ctx context.Context, deps *Deps, stageName string, record *media.Record) error {
	if err := os.MkdirAll(deps.runScratchDir(record), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "scratch dir", "create run scratch directory", err)
	}

	dest := deps.audioPath(record)
	if err := deps.Tools.ExtractAudio(ctx, record.SourcePath, dest); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", "audio extraction failed", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", "audio output missing", err)
	}
	deps.info(ctx, record.ID, "audio track ready (%d bytes)", info.Size())
	return nil
}
