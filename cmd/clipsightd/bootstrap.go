package main

import (
	"log/slog"

	"clipsight/internal/capability"
	"clipsight/internal/config"
	"clipsight/internal/media"
	"clipsight/internal/services/llm"
	"clipsight/internal/services/transcribe"
	"clipsight/internal/stages"
)

// buildStageDeps wires the external capabilities and toolchain into the
// stage executor dependencies.
func buildStageDeps(cfg *config.Config, store *media.Store, logger *slog.Logger) *stages.Deps {
	transcriberClient := transcribe.NewClient(transcribe.Config{
		BaseURL:        cfg.Transcriber.BaseURL,
		APIKey:         cfg.Transcriber.APIKey,
		Model:          cfg.Transcriber.Model,
		Language:       cfg.Transcriber.Language,
		TimeoutSeconds: cfg.Transcriber.TimeoutSeconds,
	})

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		VisionModel:    cfg.LLM.VisionModel,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	analyzer := capability.NewLLMAnalyzer(llmClient)

	return &stages.Deps{
		Config:      cfg,
		Store:       store,
		Logger:      logger,
		Tools:       stages.NewFFmpegTools(cfg),
		Transcriber: capability.NewHTTPTranscriber(transcriberClient),
		Vision:      analyzer,
		Synthesizer: analyzer,
	}
}
