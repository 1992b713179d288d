package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"clipsight/internal/keyframe"
)

// DetectionGeometry computes the downscaled frame size for scene detection,
// preserving aspect ratio with an even height.
func DetectionGeometry(srcWidth, srcHeight, detectionWidth int) (int, int) {
	if detectionWidth <= 0 {
		detectionWidth = 320
	}
	if srcWidth <= 0 || srcHeight <= 0 {
		return detectionWidth, detectionWidth * 9 / 16
	}
	height := detectionWidth * srcHeight / srcWidth
	if height%2 != 0 {
		height++
	}
	if height < 2 {
		height = 2
	}
	return detectionWidth, height
}

func buildDecodeArgs(source string, width, height int, fps float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d", strconv.FormatFloat(fps, 'f', -1, 64), width, height),
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	}
}

// Decoder streams downscaled gray frames from ffmpeg's stdout. It implements
// keyframe.Source; Close must be called when extraction finishes early.
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	width  int
	height int
	index  int
	waited bool
}

// NewDecoder starts an ffmpeg process decoding the source at the given
// sample rate and geometry.
func NewDecoder(ctx context.Context, ffmpegBinary, source string, width, height int, fps float64) (*Decoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid decode geometry %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid decode fps %v", fps)
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, buildDecodeArgs(source, width, height, fps)...) //nolint:gosec
	decoder := &Decoder{cmd: cmd, width: width, height: height}
	cmd.Stderr = &decoder.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	decoder.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg decode: %w", err)
	}
	return decoder, nil
}

// Next returns the next decoded frame, or io.EOF once ffmpeg exits cleanly.
func (d *Decoder) Next() (keyframe.Frame, error) {
	pixels := make([]byte, d.width*d.height)
	_, err := io.ReadFull(d.stdout, pixels)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if waitErr := d.wait(); waitErr != nil {
				return keyframe.Frame{}, waitErr
			}
			return keyframe.Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if waitErr := d.wait(); waitErr != nil {
				return keyframe.Frame{}, waitErr
			}
			return keyframe.Frame{}, fmt.Errorf("ffmpeg decode: truncated frame %d", d.index)
		}
		return keyframe.Frame{}, fmt.Errorf("ffmpeg decode: %w", err)
	}

	frame := keyframe.Frame{Index: d.index, Width: d.width, Height: d.height, Pixels: pixels}
	d.index++
	return frame, nil
}

func (d *Decoder) wait() error {
	if d.waited {
		return nil
	}
	d.waited = true
	if err := d.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode: %w: %s", err, strings.TrimSpace(d.stderr.String()))
	}
	return nil
}

// Close terminates the ffmpeg process and reaps it. Safe after EOF.
func (d *Decoder) Close() error {
	_ = d.stdout.Close()
	if d.waited {
		return nil
	}
	d.waited = true
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}
