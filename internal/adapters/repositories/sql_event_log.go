package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/platform/obs"
)

// SQLEventLog is the Postgres-backed shipment log.
type SQLEventLog struct {
	DB *sql.DB
}

func NewSQLEventLog(db *sql.DB) *SQLEventLog {
	return &SQLEventLog{DB: db}
}

// Append writes events to the shipment log in a single transaction.
func (s *SQLEventLog) Append(ctx context.Context, events ...domain.Event) (err error) {
	defer obs.Time(ctx, "shipment_log.sql.Append")(&err)

	if s.DB == nil {
		return errors.New("sql event log: db is nil")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append shipment log: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO shipment_log (event_type, tracking_id, bin_id, payload, recorded_at)
	VALUES ($1, $2, $3, $4::jsonb, $5);
	`)
	if err != nil {
		return fmt.Errorf("append shipment log: db prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ev := range events {
		payload, err := encodePayload(ev)
		if err != nil {
			return fmt.Errorf("append shipment log: %w", err)
		}

		_, err = stmt.ExecContext(ctx, string(ev.Type), nullableTrackingID(ev), nullableBinID(ev), payload, now)
		if err != nil {
			return fmt.Errorf("append shipment log type=%s tracking_id=%q: %w", ev.Type, ev.TrackingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append shipment log commit: %w", err)
	}
	return nil
}

// List returns every event in sequence order.
func (s *SQLEventLog) List(ctx context.Context) (_ []domain.Event, err error) {
	defer obs.Time(ctx, "shipment_log.sql.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql event log: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT seq, payload::text, recorded_at
	FROM shipment_log
	ORDER BY seq;
	`)
	if err != nil {
		return nil, fmt.Errorf("list shipment log: query shipment_log table: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0, 256)
	for rows.Next() {
		var seq int64
		var payload string
		var recordedAt time.Time
		if err := rows.Scan(&seq, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("list shipment log: scan rows: %w", err)
		}

		ev, err := decodePayload(seq, payload)
		if err != nil {
			return nil, fmt.Errorf("list shipment log: %w", err)
		}
		ev.RecordedAt = recordedAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shipment log: row iteration: %w", err)
	}

	return events, nil
}

// Truncate deletes the whole shipment log and restarts its sequence.
func (s *SQLEventLog) Truncate(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("sql event log: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `TRUNCATE shipment_log RESTART IDENTITY;`); err != nil {
		return fmt.Errorf("truncate shipment log: %w", err)
	}
	return nil
}
