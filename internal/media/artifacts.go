package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveTranscript persists the transcript for a record's current run. Written
// once per run; a retry under a new run id writes a new row.
func (s *Store) SaveTranscript(ctx context.Context, transcript Transcript) error {
	segments, err := json.Marshal(transcript.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO transcripts (media_id, run_id, full_text, segments_json, language, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		transcript.MediaID,
		transcript.RunID,
		transcript.Text,
		string(segments),
		nullableString(transcript.Language),
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// TranscriptForRun fetches the transcript for a specific run. Returns nil
// when no transcript exists for that run.
func (s *Store) TranscriptForRun(ctx context.Context, mediaID int64, runID string) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT media_id, run_id, full_text, segments_json, language, created_at
         FROM transcripts WHERE media_id = ? AND run_id = ?`,
		mediaID, runID,
	)

	var (
		transcript  Transcript
		segmentsRaw string
		language    sql.NullString
		createdRaw  string
	)
	err := row.Scan(&transcript.MediaID, &transcript.RunID, &transcript.Text, &segmentsRaw, &language, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}

	if segmentsRaw != "" {
		if err := json.Unmarshal([]byte(segmentsRaw), &transcript.Segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	}
	transcript.Language = language.String
	if created, err := parseTimeString(createdRaw); err == nil {
		transcript.CreatedAt = created
	}
	return &transcript, nil
}

// AddKeyframe persists one extracted keyframe and returns it with its
// assigned identifier.
func (s *Store) AddKeyframe(ctx context.Context, frame Keyframe) (Keyframe, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO keyframes (
            media_id, run_id, frame_index, timestamp_seconds, score, hash, image_path, description, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		frame.MediaID,
		frame.RunID,
		frame.FrameIndex,
		frame.TimestampSeconds,
		frame.Score,
		frame.Hash,
		frame.ImagePath,
		nullableString(frame.Description),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Keyframe{}, fmt.Errorf("insert keyframe: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Keyframe{}, fmt.Errorf("last insert id: %w", err)
	}
	frame.ID = id
	return frame, nil
}

// SetKeyframeDescription records the vision description for one keyframe.
// Only the describe stage mutates keyframes after extraction.
func (s *Store) SetKeyframeDescription(ctx context.Context, keyframeID int64, description string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE keyframes SET description = ? WHERE id = ?`,
		nullableString(description),
		keyframeID,
	); err != nil {
		return fmt.Errorf("set keyframe description: %w", err)
	}
	return nil
}

// KeyframesForRun returns keyframes for a specific run ordered by timestamp.
func (s *Store) KeyframesForRun(ctx context.Context, mediaID int64, runID string) ([]Keyframe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, media_id, run_id, frame_index, timestamp_seconds, score, hash, image_path, description, created_at
         FROM keyframes WHERE media_id = ? AND run_id = ? ORDER BY timestamp_seconds, id`,
		mediaID, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query keyframes: %w", err)
	}
	defer rows.Close()

	var frames []Keyframe
	for rows.Next() {
		var (
			frame       Keyframe
			description sql.NullString
			createdRaw  string
		)
		if err := rows.Scan(
			&frame.ID,
			&frame.MediaID,
			&frame.RunID,
			&frame.FrameIndex,
			&frame.TimestampSeconds,
			&frame.Score,
			&frame.Hash,
			&frame.ImagePath,
			&description,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		frame.Description = description.String
		if created, err := parseTimeString(createdRaw); err == nil {
			frame.CreatedAt = created
		}
		frames = append(frames, frame)
	}
	return frames, rows.Err()
}

// SaveAnalysis persists the synthesized report for a record's current run.
func (s *Store) SaveAnalysis(ctx context.Context, analysis Analysis) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO analyses (media_id, run_id, payload_json, created_at) VALUES (?, ?, ?, ?)`,
		analysis.MediaID,
		analysis.RunID,
		analysis.Payload,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// AnalysisForRun fetches the analysis for a specific run. Returns nil when no
// analysis exists for that run.
func (s *Store) AnalysisForRun(ctx context.Context, mediaID int64, runID string) (*Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT media_id, run_id, payload_json, created_at FROM analyses WHERE media_id = ? AND run_id = ?`,
		mediaID, runID,
	)

	var (
		analysis   Analysis
		createdRaw string
	)
	err := row.Scan(&analysis.MediaID, &analysis.RunID, &analysis.Payload, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		analysis.CreatedAt = created
	}
	return &analysis, nil
}
