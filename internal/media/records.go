package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRecordParams carries the ingest fields for a new media record.
type NewRecordParams struct {
	Kind            Kind
	SourcePath      string
	Title           string
	ContextNote     string
	DurationSeconds float64
	SizeBytes       int64
}

// NewRecord inserts a pending media record with a fresh run identifier.
func (s *Store) NewRecord(ctx context.Context, params NewRecordParams) (*Record, error) {
	if params.SourcePath == "" {
		return nil, errors.New("source path is required")
	}
	if _, ok := ParseKind(string(params.Kind)); !ok {
		return nil, fmt.Errorf("unknown media kind %q", params.Kind)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO media_records (
            kind, status, source_path, title, context_note,
            duration_seconds, size_bytes, run_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Kind,
		StatusPending,
		params.SourcePath,
		nullableString(params.Title),
		nullableString(params.ContextNote),
		params.DurationSeconds,
		params.SizeBytes,
		uuid.NewString(),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a media record by identifier. Returns ErrNotFound when the
// record does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM media_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// List returns media records filtered by status set (or all records when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM media_records`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ClaimNextPending atomically moves the oldest pending record to processing
// and returns it. Returns nil when nothing is pending. The claim is the only
// pending-to-processing path, so at most one worker owns a record.
func (s *Store) ClaimNextPending(ctx context.Context) (*Record, error) {
	ctx = ensureContext(ctx)
	var claimedID int64

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var id int64
		row := tx.QueryRowContext(ctx,
			`SELECT id FROM media_records WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			StatusPending,
		)
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				claimedID = 0
				return nil
			}
			return fmt.Errorf("select pending: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := tx.ExecContext(ctx,
			`UPDATE media_records
             SET status = ?, error_message = NULL, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusProcessing, now, now, id, StatusPending,
		)
		if err != nil {
			return fmt.Errorf("claim record: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 0 {
			claimedID = 0
			return nil
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit claim: %w", err)
		}
		claimedID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimedID == 0 {
		return nil, nil
	}

	record, err := s.GetByID(ctx, claimedID)
	if err != nil {
		return nil, err
	}
	s.notifyStatus(record)
	return record, nil
}

// SetStage updates the current stage of a processing record.
func (s *Store) SetStage(ctx context.Context, id int64, stage string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE media_records SET current_stage = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set stage: %w", err)
	}
	return nil
}

// Finish moves a processing record to a terminal status. The error message is
// recorded on failure and cleared on completion.
func (s *Store) Finish(ctx context.Context, id int64, status Status, errorMessage string) (*Record, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: finish to %s", ErrInvalidTransition, status)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_records
         SET status = ?, error_message = ?, current_stage = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		status,
		nullableString(errorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("finish record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("finish rows affected: %w", err)
	}
	if affected == 0 {
		record, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, record.Status, status)
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyStatus(record)
	return record, nil
}

// Retry moves a failed record back to pending under a fresh run identifier.
// Artifacts of earlier runs stay in place; queries scope to the current run id.
func (s *Store) Retry(ctx context.Context, id int64) (*Record, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_records
         SET status = ?, run_id = ?, error_message = NULL, current_stage = NULL,
             last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("retry record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("retry rows affected: %w", err)
	}
	if affected == 0 {
		record, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: retry from %s", ErrInvalidTransition, record.Status)
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyStatus(record)
	return record, nil
}

// Remove deletes a record and its artifacts. Processing records cannot be
// removed; callers must wait for a terminal state.
func (s *Store) Remove(ctx context.Context, id int64) error {
	record, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record.Status == StatusProcessing {
		return fmt.Errorf("%w: remove while processing", ErrInvalidTransition)
	}
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM media_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight record.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE media_records SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// RecoverInterrupted fails any record left in processing by a previous daemon
// run. Called once at startup, before workers begin claiming.
func (s *Store) RecoverInterrupted(ctx context.Context, message string) (int64, error) {
	if message == "" {
		message = "interrupted by daemon restart"
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_records
         SET status = ?, error_message = ?, current_stage = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusFailed,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("recover interrupted records: %w", err)
	}
	return res.RowsAffected()
}

// Summarize returns aggregated record counts for the daemon status endpoint.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM media_records GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize records: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}
