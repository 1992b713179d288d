package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorizeStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "completed":
		return ansiGreen + status + ansiReset
	case "failed":
		return ansiRed + status + ansiReset
	case "processing":
		return ansiYellow + status + ansiReset
	case "pending":
		return ansiBlue + status + ansiReset
	default:
		return status
	}
}

func colorizeLevel(level string, colorize bool) string {
	if !colorize {
		return level
	}
	switch level {
	case "SUCCESS":
		return ansiGreen + level + ansiReset
	case "ERROR":
		return ansiRed + level + ansiReset
	case "WARNING":
		return ansiYellow + level + ansiReset
	case "STEP":
		return ansiBlue + level + ansiReset
	default:
		return level
	}
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	for _, suffix := range suffixes {
		value /= unit
		if value < unit || suffix == suffixes[len(suffixes)-1] {
			return fmt.Sprintf("%.1f %s", value, suffix)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
