// Package sqlite persists snapshots into a SQLite database using the pure
// Go driver, so deployments need no cgo toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	title TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	purchased_hours REAL NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS shift_requirements (
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	workers_needed INTEGER NOT NULL,
	PRIMARY KEY (event_id, position)
);
`

// Store implements persistence.Store on a SQLite file.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens the database at the given DSN and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load reads the persisted event set. An empty database yields an empty
// snapshot.
func (s *Store) Load(ctx context.Context) (persistence.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return persistence.Snapshot{}, persistence.ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, title, start_time, end_time, purchased_hours, status, created_at, updated_at
		FROM events ORDER BY start_time, id`)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("select events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []persistence.Record
	index := make(map[string]int)
	for rows.Next() {
		var (
			event                                    calendar.Event
			start, end, status, createdAt, updatedAt string
		)
		if err := rows.Scan(&event.ID, &event.RoomID, &event.Title, &start, &end,
			&event.PurchasedHours, &status, &createdAt, &updatedAt); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan event: %w", err)
		}
		if event.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("parse start for %s: %w", event.ID, err)
		}
		if event.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("parse end for %s: %w", event.ID, err)
		}
		if event.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("parse created_at for %s: %w", event.ID, err)
		}
		if event.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("parse updated_at for %s: %w", event.ID, err)
		}
		event.Status = calendar.EventStatus(status)
		index[event.ID] = len(records)
		records = append(records, persistence.Record{Event: event})
	}
	if err := rows.Err(); err != nil {
		return persistence.Snapshot{}, err
	}

	shiftRows, err := s.db.QueryContext(ctx, `
		SELECT event_id, start_time, end_time, workers_needed
		FROM shift_requirements ORDER BY event_id, position`)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("select shifts: %w", err)
	}
	defer func() { _ = shiftRows.Close() }()

	for shiftRows.Next() {
		var (
			shift      calendar.ShiftRequirement
			start, end string
		)
		if err := shiftRows.Scan(&shift.EventID, &start, &end, &shift.WorkersNeeded); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan shift: %w", err)
		}
		if shift.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("parse shift start for %s: %w", shift.EventID, err)
		}
		if shift.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("parse shift end for %s: %w", shift.EventID, err)
		}
		if i, ok := index[shift.EventID]; ok {
			records[i].Shifts = append(records[i].Shifts, shift)
		}
	}
	if err := shiftRows.Err(); err != nil {
		return persistence.Snapshot{}, err
	}

	return persistence.Snapshot{Records: records}, nil
}

// Save replaces the persisted state with the snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return persistence.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := saveTx(ctx, tx, snapshot); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("save failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func saveTx(ctx context.Context, tx *sql.Tx, snapshot persistence.Snapshot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_requirements`); err != nil {
		return fmt.Errorf("clear shifts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	for _, rec := range snapshot.Records {
		event := rec.Event
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, room_id, title, start_time, end_time, purchased_hours, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.RoomID, event.Title,
			event.Start.Format(time.RFC3339Nano), event.End.Format(time.RFC3339Nano),
			event.PurchasedHours, string(event.Status),
			event.CreatedAt.Format(time.RFC3339Nano), event.UpdatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", event.ID, err)
		}

		for position, shift := range rec.Shifts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shift_requirements (event_id, position, start_time, end_time, workers_needed)
				VALUES (?, ?, ?, ?, ?)`,
				shift.EventID, position,
				shift.Start.Format(time.RFC3339Nano), shift.End.Format(time.RFC3339Nano),
				shift.WorkersNeeded,
			); err != nil {
				return fmt.Errorf("insert shift %d for %s: %w", position, shift.EventID, err)
			}
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
