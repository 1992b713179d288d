package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func buildStillArgs(source string, timestampSeconds float64, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(timestampSeconds, 'f', 3, 64),
		"-i", source,
		"-frames:v", "1",
		"-q:v", "2",
		dest,
	}
}

// SaveStill writes a full-color JPEG of the frame nearest the timestamp.
// Used for the stills handed to the vision capability; scene detection works
// on the downscaled gray stream instead.
func SaveStill(ctx context.Context, ffmpegBinary, source string, timestampSeconds float64, dest string) error {
	cmd := exec.CommandContext(ctx, ffmpegBinary, buildStillArgs(source, timestampSeconds, dest)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg save still: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
