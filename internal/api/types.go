package api

import "time"

// IngestRequest registers a source file for analysis.
type IngestRequest struct {
	SourcePath  string `json:"source_path"`
	Kind        string `json:"kind"`
	Title       string `json:"title,omitempty"`
	ContextNote string `json:"context_note,omitempty"`
}

// MediaView is the wire form of a media record.
type MediaView struct {
	ID              int64      `json:"id"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	Stage           string     `json:"stage,omitempty"`
	StageLabel      string     `json:"stage_label,omitempty"`
	SourcePath      string     `json:"source_path"`
	Title           string     `json:"title,omitempty"`
	ContextNote     string     `json:"context_note,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	SizeBytes       int64      `json:"size_bytes"`
	RunID           string     `json:"run_id"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
}

// TranscriptSegmentView is one timed transcript span.
type TranscriptSegmentView struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptView is the wire form of a transcript artifact.
type TranscriptView struct {
	Text     string                  `json:"text"`
	Language string                  `json:"language,omitempty"`
	Segments []TranscriptSegmentView `json:"segments,omitempty"`
}

// KeyframeView is the wire form of one extracted keyframe.
type KeyframeView struct {
	ID               int64   `json:"id"`
	FrameIndex       int     `json:"frame_index"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	Score            float64 `json:"score"`
	Hash             string  `json:"hash"`
	ImagePath        string  `json:"image_path"`
	Description      string  `json:"description,omitempty"`
}

// MediaDetail is a record plus its current-run artifacts.
type MediaDetail struct {
	Media      MediaView       `json:"media"`
	Transcript *TranscriptView `json:"transcript,omitempty"`
	Keyframes  []KeyframeView  `json:"keyframes,omitempty"`
	Analysis   string          `json:"analysis,omitempty"`
}

// MediaList wraps the collection endpoint response.
type MediaList struct {
	Media []MediaView `json:"media"`
}

// LogEntryView is one progress log line.
type LogEntryView struct {
	Seq       int64     `json:"seq"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// LogBatch carries snapshot responses and SSE log events. Next is the resume
// cursor for the following request.
type LogBatch struct {
	Entries []LogEntryView `json:"entries"`
	Next    int64          `json:"next"`
}

// StreamEnd is the SSE end event payload.
type StreamEnd struct {
	Status string `json:"status"`
}

// StatusView summarizes daemon and queue state.
type StatusView struct {
	Running    bool   `json:"running"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	DBPath     string `json:"db_path"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
