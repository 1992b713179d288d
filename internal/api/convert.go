package api

import "clipsight/internal/media"

// ViewFromRecord converts a store record into its wire form.
func ViewFromRecord(record *media.Record) MediaView {
	view := MediaView{
		ID:              record.ID,
		Kind:            string(record.Kind),
		Status:          string(record.Status),
		Stage:           record.CurrentStage,
		StageLabel:      media.StageLabel(record.CurrentStage),
		SourcePath:      record.SourcePath,
		Title:           record.Title,
		ContextNote:     record.ContextNote,
		DurationSeconds: record.DurationSeconds,
		SizeBytes:       record.SizeBytes,
		RunID:           record.RunID,
		ErrorMessage:    record.ErrorMessage,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
	if record.LastHeartbeat != nil {
		hb := *record.LastHeartbeat
		view.LastHeartbeat = &hb
	}
	return view
}

// ViewFromTranscript converts a transcript artifact into its wire form.
func ViewFromTranscript(transcript *media.Transcript) *TranscriptView {
	if transcript == nil {
		return nil
	}
	view := &TranscriptView{
		Text:     transcript.Text,
		Language: transcript.Language,
	}
	for _, segment := range transcript.Segments {
		view.Segments = append(view.Segments, TranscriptSegmentView{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}
	return view
}

// ViewFromKeyframe converts one keyframe row into its wire form.
func ViewFromKeyframe(frame media.Keyframe) KeyframeView {
	return KeyframeView{
		ID:               frame.ID,
		FrameIndex:       frame.FrameIndex,
		TimestampSeconds: frame.TimestampSeconds,
		Score:            frame.Score,
		Hash:             frame.Hash,
		ImagePath:        frame.ImagePath,
		Description:      frame.Description,
	}
}

// ViewFromLogEntry converts a progress log entry into its wire form.
func ViewFromLogEntry(entry media.LogEntry) LogEntryView {
	return LogEntryView{
		Seq:       entry.Seq,
		Level:     string(entry.Level),
		Message:   entry.Message,
		CreatedAt: entry.CreatedAt,
	}
}
