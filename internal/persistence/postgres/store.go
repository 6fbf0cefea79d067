// Package postgres persists snapshots into PostgreSQL through the pgx
// driver, for deployments where the calendar is shared between hosts.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	title TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	purchased_hours DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS shift_requirements (
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	workers_needed INTEGER NOT NULL,
	PRIMARY KEY (event_id, position)
);
`

// Store implements persistence.Store on a PostgreSQL database.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load reads the persisted event set.
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
			event  calendar.Event
			status string
		)
		if err := rows.Scan(&event.ID, &event.RoomID, &event.Title, &event.Start, &event.End,
			&event.PurchasedHours, &status, &event.CreatedAt, &event.UpdatedAt); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan event: %w", err)
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
		var shift calendar.ShiftRequirement
		if err := shiftRows.Scan(&shift.EventID, &shift.Start, &shift.End, &shift.WorkersNeeded); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan shift: %w", err)
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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			event.ID, event.RoomID, event.Title, event.Start.UTC(), event.End.UTC(),
			event.PurchasedHours, string(event.Status), event.CreatedAt.UTC(), event.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", event.ID, err)
		}

		for position, shift := range rec.Shifts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shift_requirements (event_id, position, start_time, end_time, workers_needed)
				VALUES ($1, $2, $3, $4, $5)`,
				shift.EventID, position, shift.Start.UTC(), shift.End.UTC(), shift.WorkersNeeded,
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
