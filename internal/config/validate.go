package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Paths.MediaDir == "" {
		problems = append(problems, "paths.media_dir must be set")
	}
	if c.Paths.APIBind != "" {
		if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
			problems = append(problems, fmt.Sprintf("paths.api_bind %q is not host:port", c.Paths.APIBind))
		}
	}

	if c.Keyframes.Threshold <= 0 {
		problems = append(problems, "keyframes.threshold must be positive")
	}
	if c.Keyframes.MaxFrames <= 0 {
		problems = append(problems, "keyframes.max_frames must be positive")
	}
	if c.Keyframes.MinIntervalSeconds <= 0 {
		problems = append(problems, "keyframes.min_interval_seconds must be positive")
	}
	if c.Keyframes.DedupDistance < 0 {
		problems = append(problems, "keyframes.dedup_distance must not be negative")
	}
	if c.Keyframes.DetectionWidth <= 0 {
		problems = append(problems, "keyframes.detection_width must be positive")
	}

	if c.Transcriber.BaseURL == "" {
		problems = append(problems, "transcriber.base_url must be set")
	}
	if c.LLM.BaseURL == "" {
		problems = append(problems, "llm.base_url must be set")
	}

	if c.Workflow.Workers <= 0 {
		problems = append(problems, "workflow.workers must be positive")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
