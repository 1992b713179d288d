package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeKeyframes()
	c.normalizeTranscriber()
	c.normalizeLLM()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeKeyframes() {
	if c.Keyframes.Threshold == 0 {
		c.Keyframes.Threshold = defaultKeyframeThreshold
	}
	if c.Keyframes.MaxFrames == 0 {
		c.Keyframes.MaxFrames = defaultKeyframeMaxFrames
	}
	if c.Keyframes.MinIntervalSeconds == 0 {
		c.Keyframes.MinIntervalSeconds = defaultKeyframeMinInterval
	}
	if c.Keyframes.DedupDistance == 0 {
		c.Keyframes.DedupDistance = defaultKeyframeDedupDistance
	}
	if c.Keyframes.DetectionWidth == 0 {
		c.Keyframes.DetectionWidth = defaultKeyframeDetectionWidth
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.BaseURL = strings.TrimSpace(c.Transcriber.BaseURL)
	if c.Transcriber.BaseURL == "" {
		c.Transcriber.BaseURL = defaultTranscriberBaseURL
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
	c.Transcriber.Language = strings.ToLower(strings.TrimSpace(c.Transcriber.Language))
	c.Transcriber.APIKey = strings.TrimSpace(c.Transcriber.APIKey)
	if c.Transcriber.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPSIGHT_TRANSCRIBER_API_KEY"); ok {
			c.Transcriber.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Transcriber.TimeoutSeconds <= 0 {
		c.Transcriber.TimeoutSeconds = defaultTranscriberTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.VisionModel = strings.TrimSpace(c.LLM.VisionModel)
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = defaultLLMVisionModel
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPSIGHT_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkflowWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultWorkflowHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultWorkflowHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
