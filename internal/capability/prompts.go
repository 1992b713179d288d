package capability

// Prompts follow the structure of the analysis templates the pipeline was
// designed around: enrichment of a bare transcript, contextual frame
// description, and the final synthesis report.

const framePromptTemplate = `You are a senior UX analyst documenting a screen capture from a recorded demonstration.

%s
Describe this frame in detail:
1. What the screen shows and its purpose in the application flow.
2. Every readable text: titles, buttons, labels, menus, values.
3. The UI components present and their current state.
4. How the frame relates to the narration around this moment.

Be factual and specific. Do not speculate beyond what is visible.`

const enrichSystemPrompt = `You are an expert content analyst. You analyze transcripts of recorded media and produce detailed semantic analyses. Respond with valid JSON only.`

const enrichPromptTemplate = `Analyze this transcript of a recorded presentation.

MEDIA:
- Title: %s
- Duration: %.1f seconds

FULL TRANSCRIPT:
%s

TIMED SEGMENTS:
%s

Respond with JSON in this shape:
{
  "semantic_summary": "3-5 sentence summary of the content and its context",
  "topics": [{"topic": "...", "start_time": 0.0, "end_time": 0.0, "description": "..."}],
  "tone": "professional|informal|tutorial|presentation|conversation",
  "keywords": ["..."],
  "action_phrases": [{"timestamp": 0.0, "phrase": "...", "expected_visual": "..."}]
}

Identify every topic discussed with its timestamps and extract keywords useful for correlating with visuals.`

const synthesisSystemPrompt = `You are a senior technical analyst. You combine transcripts and visual descriptions of a recorded demonstration into a structured report. Respond with valid JSON only.`

const synthesisPromptTemplate = `Produce the final analysis report for this media.

MEDIA:
- Title: %s
- Kind: %s
- Duration: %.1f seconds
%s
TRANSCRIPT:
%s
%s
Respond with JSON in this shape:
{
  "summary": "detailed overall summary",
  "modules": [{"name": "...", "description": "...", "first_seen_seconds": 0.0}],
  "flows": [{"name": "...", "steps": ["..."]}],
  "issues": ["observed problems or gaps"],
  "recommendations": ["concrete suggestions"]
}

Ground every module and flow in the transcript or the frame descriptions; do not invent features.`
