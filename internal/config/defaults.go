package config

const (
	defaultDataDir   = "~/.local/share/clipsight"
	defaultMediaDir  = "~/.local/share/clipsight/media"
	defaultLogDir    = "~/.local/share/clipsight/logs"
	defaultAPIBind   = "127.0.0.1:7519"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultKeyframeThreshold      = 25.0
	defaultKeyframeMaxFrames      = 10
	defaultKeyframeMinInterval    = 2.0
	defaultKeyframeDedupDistance  = 20
	defaultKeyframeDetectionWidth = 320

	defaultTranscriberBaseURL = "http://127.0.0.1:9000"
	defaultTranscriberModel   = "whisper-1"
	defaultTranscriberTimeout = 600

	defaultLLMBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel       = "gpt-4o-mini"
	defaultLLMVisionModel = "gpt-4o"
	defaultLLMTimeout     = 120

	defaultWorkflowWorkers           = 2
	defaultQueuePollInterval         = 5
	defaultErrorRetryInterval        = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Keyframes: Keyframes{
			Threshold:          defaultKeyframeThreshold,
			MaxFrames:          defaultKeyframeMaxFrames,
			MinIntervalSeconds: defaultKeyframeMinInterval,
			DedupDistance:      defaultKeyframeDedupDistance,
			DetectionWidth:     defaultKeyframeDetectionWidth,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			Model:          defaultTranscriberModel,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			VisionModel:    defaultLLMVisionModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Workflow: Workflow{
			Workers:            defaultWorkflowWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
