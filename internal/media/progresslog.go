package media

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AppendLog appends a progress log entry for a media record, assigning the
// next per-media sequence number inside a transaction. Entries are never
// reordered or rewritten.
func (s *Store) AppendLog(ctx context.Context, mediaID int64, level LogLevel, message string) (LogEntry, error) {
	ctx = ensureContext(ctx)
	if message == "" {
		return LogEntry{}, errors.New("log message is required")
	}

	var entry LogEntry
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin log tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var seq int64
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM media_logs WHERE media_id = ?`, mediaID)
		if err := row.Scan(&seq); err != nil {
			return fmt.Errorf("next log seq: %w", err)
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO media_logs (media_id, seq, level, message, created_at) VALUES (?, ?, ?, ?, ?)`,
			mediaID, seq, level, message, now.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert log entry: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit log entry: %w", err)
		}

		entry = LogEntry{MediaID: mediaID, Seq: seq, Level: level, Message: message, CreatedAt: now}
		return nil
	})
	if err != nil {
		return LogEntry{}, err
	}

	s.notifyLog(mediaID, entry)
	return entry, nil
}

// LogsSince returns log entries with seq greater than sinceSeq in seq order.
// Pass 0 for the full history.
func (s *Store) LogsSince(ctx context.Context, mediaID int64, sinceSeq int64) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT media_id, seq, level, message, created_at
         FROM media_logs WHERE media_id = ? AND seq > ? ORDER BY seq`,
		mediaID, sinceSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			levelStr   string
			createdRaw string
		)
		if err := rows.Scan(&entry.MediaID, &entry.Seq, &levelStr, &entry.Message, &createdRaw); err != nil {
			return nil, err
		}
		entry.Level = LogLevel(levelStr)
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LastLogSeq returns the highest sequence number appended for a media record,
// or 0 when no entries exist.
func (s *Store) LastLogSeq(ctx context.Context, mediaID int64) (int64, error) {
	var seq int64
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM media_logs WHERE media_id = ?`, mediaID)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("last log seq: %w", err)
	}
	return seq, nil
}
