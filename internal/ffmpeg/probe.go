package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeResult summarizes the media properties the pipeline needs.
type ProbeResult struct {
	DurationSeconds float64
	SizeBytes       int64
	HasVideo        bool
	HasAudio        bool
	Width           int
	Height          int
	FPS             float64
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

func buildProbeArgs(source string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		source,
	}
}

// Probe inspects a media file with ffprobe.
func Probe(ctx context.Context, ffprobeBinary, source string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, ffprobeBinary, buildProbeArgs(source)...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = ": " + strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe %s: %w%s", source, err, detail)
	}

	var parsed probeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	if parsed.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			result.DurationSeconds = duration
		}
	}
	if parsed.Format.Size != "" {
		if size, err := strconv.ParseInt(parsed.Format.Size, 10, 64); err == nil {
			result.SizeBytes = size
		}
	}

	for _, stream := range parsed.Streams {
		switch stream.CodecType {
		case "video":
			if result.HasVideo {
				continue
			}
			result.HasVideo = true
			result.Width = stream.Width
			result.Height = stream.Height
			if fps, ok := parseRational(stream.AvgFrameRate); ok {
				result.FPS = fps
			} else if fps, ok := parseRational(stream.RFrameRate); ok {
				result.FPS = fps
			}
		case "audio":
			result.HasAudio = true
		}
	}

	return result, nil
}

// parseRational converts ffprobe frame-rate fractions like "30000/1001".
func parseRational(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0, false
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		f, err := strconv.ParseFloat(value, 64)
		return f, err == nil && f > 0
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	rate := n / d
	return rate, rate > 0
}
