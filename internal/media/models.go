package media

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind distinguishes the two ingest paths.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVideo:
		return KindVideo, true
	case KindAudio:
		return KindAudio, true
	default:
		return "", false
	}
}

// Status represents the lifecycle of a media record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status ends the pipeline run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// LogLevel classifies a progress log entry.
type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelStep    LogLevel = "STEP"
	LevelSuccess LogLevel = "SUCCESS"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelSystem  LogLevel = "SYSTEM"
)

// Record represents one ingested media file and its pipeline state.
type Record struct {
	ID              int64
	Kind            Kind
	Status          Status
	CurrentStage    string
	SourcePath      string
	Title           string
	ContextNote     string
	DurationSeconds float64
	SizeBytes       int64
	RunID           string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// LogEntry is one append-only progress log line. Seq increases strictly
// per media record and is the resume cursor for streaming clients.
type LogEntry struct {
	MediaID   int64
	Seq       int64
	Level     LogLevel
	Message   string
	CreatedAt time.Time
}

// Keyframe is one extracted still with its scene-change provenance.
type Keyframe struct {
	ID               int64
	MediaID          int64
	RunID            string
	FrameIndex       int
	TimestampSeconds float64
	Score            float64
	Hash             string
	ImagePath        string
	Description      string
	CreatedAt        time.Time
}

// TranscriptSegment is one timed span of transcript text.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds the full transcription for one pipeline run.
type Transcript struct {
	MediaID   int64
	RunID     string
	Text      string
	Segments  []TranscriptSegment
	Language  string
	CreatedAt time.Time
}

// Analysis holds the synthesized report for one pipeline run. Payload is
// capability-defined JSON.
type Analysis struct {
	MediaID   int64
	RunID     string
	Payload   string
	CreatedAt time.Time
}

// Summary describes aggregated record counts per lifecycle state.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

var stageTitleCaser = cases.Title(language.English)

// StageLabel renders a stage name like "extract-audio" as "Extract Audio"
// for status output.
func StageLabel(stage string) string {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ""
	}
	return stageTitleCaser.String(strings.ReplaceAll(stage, "-", " "))
}
