package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"clipsight/internal/capability"
	"clipsight/internal/config"
	"clipsight/internal/keyframe"
	"clipsight/internal/media"
)

// Stage names, as stored in media_records.current_stage and reported by the
// API.
const (
	StageExtractAudio     = "extract-audio"
	StagePrepareAudio     = "prepare-audio"
	StageTranscribe       = "transcribe"
	StageExtractKeyframes = "extract-keyframes"
	StageDescribeFrames   = "describe-frames"
	StageEnrich           = "enrich"
	StageSynthesize       = "synthesize"
)

// Handler executes one pipeline stage against a claimed record. Execute
// persists the stage's artifact and returns an error only on stage failure.
type Handler interface {
	Name() string
	Execute(ctx context.Context, record *media.Record) error
}

// FrameSource is a closeable stream of decoded detection frames.
type FrameSource interface {
	keyframe.Source
	Close() error
}

// MediaTools abstracts the external media toolchain so stage executors can
// be tested without ffmpeg installed.
type MediaTools interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	Probe(ctx context.Context, source string) (*ProbeInfo, error)
	OpenFrameSource(ctx context.Context, source string, width, height int, fps float64) (FrameSource, error)
	SaveStill(ctx context.Context, source string, timestampSeconds float64, dest string) error
}

// ProbeInfo carries the stream properties stage executors act on.
type ProbeInfo struct {
	DurationSeconds float64
	SizeBytes       int64
	HasVideo        bool
	HasAudio        bool
	Width           int
	Height          int
	FPS             float64
}

// Deps bundles everything stage executors share.
type Deps struct {
	Config      *config.Config
	Store       *media.Store
	Logger      *slog.Logger
	Tools       MediaTools
	Transcriber capability.Transcriber
	Vision      capability.VisionDescriber
	Synthesizer capability.Synthesizer
}

// SequenceFor returns the fixed stage sequence for a media kind.
func SequenceFor(kind media.Kind, deps *Deps) []Handler {
	switch kind {
	case media.KindAudio:
		return []Handler{
			&PrepareAudio{deps: deps},
			&Transcribe{deps: deps},
			&Enrich{deps: deps},
			&Synthesize{deps: deps},
		}
	default:
		return []Handler{
			&ExtractAudio{deps: deps},
			&Transcribe{deps: deps},
			&ExtractKeyframes{deps: deps},
			&DescribeFrames{deps: deps},
			&Synthesize{deps: deps},
		}
	}
}

// info appends an INFO progress log entry; failures to log never fail the
// stage.
func (d *Deps) info(ctx context.Context, mediaID int64, format string, args ...any) {
	if _, err := d.Store.AppendLog(ctx, mediaID, media.LevelInfo, fmt.Sprintf(format, args...)); err != nil {
		d.Logger.Warn("progress log append failed", "media_id", mediaID, "error", err)
	}
}

func (d *Deps) runScratchDir(record *media.Record) string {
	return filepath.Join(d.Config.ScratchDir(), fmt.Sprintf("media-%d", record.ID), record.RunID)
}

func (d *Deps) runKeyframeDir(record *media.Record) string {
	return filepath.Join(d.Config.KeyframeDir(), fmt.Sprintf("media-%d", record.ID), record.RunID)
}

func (d *Deps) audioPath(record *media.Record) string {
	return filepath.Join(d.runScratchDir(record), "audio.wav")
}

func (d *Deps) enrichmentPath(record *media.Record) string {
	return filepath.Join(d.runScratchDir(record), "enrichment.json")
}
