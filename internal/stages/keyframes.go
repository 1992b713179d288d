package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clipsight/internal/ffmpeg"
	"clipsight/internal/keyframe"
	"clipsight/internal/media"
	"clipsight/internal/services"
)

// detectionFPS caps the frame sampling rate for scene detection. With a
// minimum keyframe interval measured in seconds, sampling faster than this
// only burns decode time.
const detectionFPS = 5.0

// ExtractKeyframes runs histogram scene detection over the video and
// persists each accepted keyframe as a full-resolution still.
type ExtractKeyframes struct {
	deps *Deps
}

func (s *ExtractKeyframes) Name() string { return StageExtractKeyframes }

func (s *ExtractKeyframes) Execute(ctx context.Context, record *media.Record) error {
	probe, err := s.deps.Tools.Probe(ctx, record.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "ffprobe", "probe source", err)
	}
	if !probe.HasVideo {
		return services.Wrap(services.ErrValidation, s.Name(), "probe", "source has no video stream", nil)
	}

	fps := detectionFPS
	if probe.FPS > 0 && probe.FPS < fps {
		fps = probe.FPS
	}
	width, height := ffmpeg.DetectionGeometry(probe.Width, probe.Height, s.deps.Config.Keyframes.DetectionWidth)

	source, err := s.deps.Tools.OpenFrameSource(ctx, record.SourcePath, width, height, fps)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "ffmpeg", "open frame stream", err)
	}
	defer source.Close()

	candidates, err := keyframe.Extract(ctx, source, keyframe.Config{
		Threshold:          s.deps.Config.Keyframes.Threshold,
		MaxFrames:          s.deps.Config.Keyframes.MaxFrames,
		MinIntervalSeconds: s.deps.Config.Keyframes.MinIntervalSeconds,
		DedupDistance:      s.deps.Config.Keyframes.DedupDistance,
		FPS:                fps,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "detect", "scene detection failed", err)
	}

	stillDir := s.deps.runKeyframeDir(record)
	if err := os.MkdirAll(stillDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "stills", "create keyframe directory", err)
	}

	for i, candidate := range candidates {
		stillPath := filepath.Join(stillDir, fmt.Sprintf("frame-%04d.jpg", i))
		if err := s.deps.Tools.SaveStill(ctx, record.SourcePath, candidate.TimestampSeconds, stillPath); err != nil {
			return services.Wrap(services.ErrExternalTool, s.Name(), "ffmpeg", "save keyframe still", err)
		}
		if _, err := s.deps.Store.AddKeyframe(ctx, media.Keyframe{
			MediaID:          record.ID,
			RunID:            record.RunID,
			FrameIndex:       candidate.FrameIndex,
			TimestampSeconds: candidate.TimestampSeconds,
			Score:            candidate.Score,
			Hash:             candidate.Hash.Hex(),
			ImagePath:        stillPath,
		}); err != nil {
			return services.Wrap(services.ErrTransient, s.Name(), "store", "persist keyframe", err)
		}
	}

	s.deps.info(ctx, record.ID, "accepted %d keyframes", len(candidates))
	return nil
}
