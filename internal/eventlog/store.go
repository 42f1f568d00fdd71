package eventlog

import (
	"context"
	"fmt"

	"github.com/burl-vcs/burl/internal/storage"
)

// Log reads and appends events in the durable event log. The log is
// append-only: rows are never updated or deleted, and rowid order is
// the authoritative order of history.
type Log struct {
	store *storage.Store
}

// NewLog wraps an open storage handle.
func NewLog(store *storage.Store) *Log {
	return &Log{store: store}
}

// Append writes the given events to the end of the log, atomically.
func (l *Log) Append(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := l.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_log (timestamp, transaction_id, type, old_ref, new_ref, ref_name, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		r := eventToRow(event)
		_, err := stmt.ExecContext(ctx,
			r.timestamp, r.transactionID, r.typ,
			r.oldRef, r.newRef, r.refName, r.message)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// Events returns every event in the log, oldest first.
func (l *Log) Events(ctx context.Context) ([]Event, error) {
	rows, err := l.store.DB().QueryContext(ctx, `
		SELECT timestamp, transaction_id, type, old_ref, new_ref, ref_name, message
		FROM event_log
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query event log: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.timestamp, &r.transactionID, &r.typ,
			&r.oldRef, &r.newRef, &r.refName, &r.message); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event, err := eventFromRow(r)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}
