package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func buildExtractAudioArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractAudio writes the source's audio stream as a mono 16kHz WAV file,
// the format transcription endpoints expect.
func ExtractAudio(ctx context.Context, ffmpegBinary, source, dest string) error {
	cmd := exec.CommandContext(ctx, ffmpegBinary, buildExtractAudioArgs(source, dest)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
