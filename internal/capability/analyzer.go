package capability

import (
	"context"
	"fmt"
	"strings"

	"clipsight/internal/services"
	"clipsight/internal/services/llm"
)

// LLMAnalyzer implements VisionDescriber and Synthesizer on a single chat
// completion client.
type LLMAnalyzer struct {
	client *llm.Client
}

// NewLLMAnalyzer wraps a chat completion client.
func NewLLMAnalyzer(client *llm.Client) *LLMAnalyzer {
	return &LLMAnalyzer{client: client}
}

// Describe implements VisionDescriber.
func (a *LLMAnalyzer) Describe(ctx context.Context, req FrameRequest) (string, error) {
	prompt := fmt.Sprintf(framePromptTemplate, frameContextBlock(req))
	description, err := a.client.DescribeImage(ctx, prompt, req.Image)
	if err != nil {
		return "", services.Wrap(services.ErrCapability, "", "describe frame", "vision request failed", err)
	}
	return strings.TrimSpace(description), nil
}

// Enrich implements Synthesizer for the audio-only path.
func (a *LLMAnalyzer) Enrich(ctx context.Context, req EnrichmentRequest) (string, error) {
	var segments strings.Builder
	for _, segment := range req.Segments {
		fmt.Fprintf(&segments, "[%.1f-%.1f] %s\n", segment.Start, segment.End, segment.Text)
	}
	prompt := fmt.Sprintf(enrichPromptTemplate,
		orUntitled(req.Title), req.DurationSeconds, req.TranscriptText, segments.String())

	payload, err := a.client.CompleteJSON(ctx, enrichSystemPrompt, prompt)
	if err != nil {
		return "", services.Wrap(services.ErrCapability, "", "enrich", "enrichment request failed", err)
	}
	if err := validateJSONPayload(payload); err != nil {
		return "", services.Wrap(services.ErrCapability, "", "enrich", "malformed enrichment payload", err)
	}
	return payload, nil
}

// Synthesize implements Synthesizer.
func (a *LLMAnalyzer) Synthesize(ctx context.Context, req SynthesisRequest) (string, error) {
	var contextBlock string
	if note := strings.TrimSpace(req.ContextNote); note != "" {
		contextBlock = "- Context: " + note + "\n"
	}

	var visuals strings.Builder
	if len(req.FrameDescriptions) > 0 {
		visuals.WriteString("\nKEYFRAME DESCRIPTIONS:\n")
		for _, frame := range req.FrameDescriptions {
			fmt.Fprintf(&visuals, "[%.1fs] %s\n", frame.TimestampSeconds, frame.Description)
		}
	}
	if enrichment := strings.TrimSpace(req.Enrichment); enrichment != "" {
		visuals.WriteString("\nSEMANTIC ANALYSIS:\n")
		visuals.WriteString(enrichment)
		visuals.WriteString("\n")
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate,
		orUntitled(req.Title), req.Kind, req.DurationSeconds, contextBlock,
		req.TranscriptText, visuals.String())

	payload, err := a.client.CompleteJSON(ctx, synthesisSystemPrompt, prompt)
	if err != nil {
		return "", services.Wrap(services.ErrCapability, "", "synthesize", "synthesis request failed", err)
	}
	if err := validateJSONPayload(payload); err != nil {
		return "", services.Wrap(services.ErrCapability, "", "synthesize", "malformed synthesis payload", err)
	}
	return payload, nil
}

func frameContextBlock(req FrameRequest) string {
	var block strings.Builder
	fmt.Fprintf(&block, "CONTEXT:\n- Recording: %s\n- Frame at %.1f seconds\n", orUntitled(req.Title), req.TimestampSeconds)
	if note := strings.TrimSpace(req.ContextNote); note != "" {
		fmt.Fprintf(&block, "- Application context: %s\n", note)
	}
	if window := strings.TrimSpace(req.TranscriptWindow); window != "" {
		fmt.Fprintf(&block, "- Narration around this moment: %s\n", window)
	}
	return block.String()
}

// validateJSONPayload confirms the model returned a decodable object before
// it is persisted. The decoded form is discarded; the raw payload is stored.
func validateJSONPayload(payload string) error {
	var probe map[string]any
	return llm.DecodeLLMJSON(payload, &probe)
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
