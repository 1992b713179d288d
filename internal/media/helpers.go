package media

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, kind, status, current_stage, source_path, title, context_note, duration_seconds, size_bytes, run_id, error_message, created_at, updated_at, last_heartbeat"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		kind         string
		statusStr    string
		currentStage sql.NullString
		sourcePath   string
		title        sql.NullString
		contextNote  sql.NullString
		duration     sql.NullFloat64
		sizeBytes    sql.NullInt64
		runID        string
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&statusStr,
		&currentStage,
		&sourcePath,
		&title,
		&contextNote,
		&duration,
		&sizeBytes,
		&runID,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:              id,
		Kind:            Kind(kind),
		Status:          Status(statusStr),
		CurrentStage:    currentStage.String,
		SourcePath:      sourcePath,
		Title:           title.String,
		ContextNote:     contextNote.String,
		DurationSeconds: duration.Float64,
		SizeBytes:       sizeBytes.Int64,
		RunID:           runID,
		ErrorMessage:    errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			record.LastHeartbeat = &heartbeat
		}
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
