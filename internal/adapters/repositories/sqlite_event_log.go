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

// SQLite-backed implementation of the EventLog port.
type SqliteEventLog struct{ DB *sql.DB }

func NewSqliteEventLog(db *sql.DB) *SqliteEventLog {
	return &SqliteEventLog{DB: db}
}

// Append writes events to the shipment log in a single transaction.
func (s *SqliteEventLog) Append(ctx context.Context, events ...domain.Event) (err error) {
	defer obs.Time(ctx, "shipment_log.sqlite.Append")(&err)

	if s.DB == nil {
		return errors.New("sqlite event log: DB is nil")
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
	VALUES (?, ?, ?, ?, ?);
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

		_, err = stmt.ExecContext(ctx,
			string(ev.Type),
			nullableTrackingID(ev),
			nullableBinID(ev),
			payload,
			now.Format(time.RFC3339Nano),
		)
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
func (s *SqliteEventLog) List(ctx context.Context) (_ []domain.Event, err error) {
	defer obs.Time(ctx, "shipment_log.sqlite.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite event log: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT seq, payload, recorded_at
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
		var payload, recordedAt string
		if err := rows.Scan(&seq, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("list shipment log: scan row: %w", err)
		}

		ev, err := decodePayload(seq, payload)
		if err != nil {
			return nil, fmt.Errorf("list shipment log: %w", err)
		}
		ev.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("list shipment log: parse recorded_at seq=%d: %w", seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shipment log: row iteration: %w", err)
	}

	return events, nil
}

// Truncate deletes the whole shipment log.
func (s *SqliteEventLog) Truncate(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("sqlite event log: DB is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM shipment_log;`); err != nil {
		return fmt.Errorf("truncate shipment log: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'shipment_log';`); err != nil {
		return fmt.Errorf("truncate shipment log: reset sequence: %w", err)
	}
	return nil
}
