package stages

import (
	"context"

	"clipsight/internal/config"
	"clipsight/internal/ffmpeg"
)

// FFmpegTools implements MediaTools on the local ffmpeg/ffprobe binaries.
type FFmpegTools struct {
	ffmpegBinary  string
	ffprobeBinary string
}

// NewFFmpegTools builds the default toolchain from configuration.
func NewFFmpegTools(cfg *config.Config) *FFmpegTools {
	return &FFmpegTools{
		ffmpegBinary:  cfg.FFmpegBinary(),
		ffprobeBinary: cfg.FFprobeBinary(),
	}
}

func (t *FFmpegTools) ExtractAudio(ctx context.Context, source, dest string) error {
	return ffmpeg.ExtractAudio(ctx, t.ffmpegBinary, source, dest)
}

func (t *FFmpegTools) Probe(ctx context.Context, source string) (*ProbeInfo, error) {
	result, err := ffmpeg.Probe(ctx, t.ffprobeBinary, source)
	if err != nil {
		return nil, err
	}
	return &ProbeInfo{
		DurationSeconds: result.DurationSeconds,
		SizeBytes:       result.SizeBytes,
		HasVideo:        result.HasVideo,
		HasAudio:        result.HasAudio,
		Width:           result.Width,
		Height:          result.Height,
		FPS:             result.FPS,
	}, nil
}

func (t *FFmpegTools) OpenFrameSource(ctx context.Context, source string, width, height int, fps float64) (FrameSource, error) {
	return ffmpeg.NewDecoder(ctx, t.ffmpegBinary, source, width, height, fps)
}

func (t *FFmpegTools) SaveStill(ctx context.Context, source string, timestampSeconds float64, dest string) error {
	return ffmpeg.SaveStill(ctx, t.ffmpegBinary, source, timestampSeconds, dest)
}
