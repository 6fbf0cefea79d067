// Package file implements snapshot stores backed by flat files, one record
// per line, suitable for small single-host deployments and spreadsheets.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/persistence"
)

type jsonShift struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Workers int       `json:"workers"`
}

type jsonRecord struct {
	ID             string      `json:"id"`
	RoomID         string      `json:"room_id"`
	Title          string      `json:"title"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	PurchasedHours float64     `json:"purchased_hours"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Shifts         []jsonShift `json:"shifts,omitempty"`
}

// JSONStore persists snapshots as JSON Lines: one event record per line.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore builds a store writing to the given path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the event set. A missing file yields an empty snapshot.
func (s *JSONStore) Load(ctx context.Context) (persistence.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return persistence.Snapshot{}, nil
	}
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	var records []persistence.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec jsonRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("decode line %d: %w", line, err)
		}
		records = append(records, fromJSONRecord(rec))
	}
	if err := scanner.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	return persistence.Snapshot{Records: records}, nil
}

// Save writes the snapshot to a temporary file and renames it into place,
// so a crash mid-write never truncates the previous state.
func (s *JSONStore) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".events-*.jsonl")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	writer := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(writer)
	for _, rec := range snapshot.Records {
		if err := encoder.Encode(toJSONRecord(rec)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encode event %s: %w", rec.Event.ID, err)
		}
	}
	if err := writer.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *JSONStore) Close() error {
	return nil
}

func toJSONRecord(rec persistence.Record) jsonRecord {
	out := jsonRecord{
		ID:             rec.Event.ID,
		RoomID:         rec.Event.RoomID,
		Title:          rec.Event.Title,
		Start:          rec.Event.Start,
		End:            rec.Event.End,
		PurchasedHours: rec.Event.PurchasedHours,
		Status:         string(rec.Event.Status),
		CreatedAt:      rec.Event.CreatedAt,
		UpdatedAt:      rec.Event.UpdatedAt,
	}
	for _, shift := range rec.Shifts {
		out.Shifts = append(out.Shifts, jsonShift{
			Start:   shift.Start,
			End:     shift.End,
			Workers: shift.WorkersNeeded,
		})
	}
	return out
}

func fromJSONRecord(rec jsonRecord) persistence.Record {
	out := persistence.Record{
		Event: calendar.Event{
			ID:             rec.ID,
			RoomID:         rec.RoomID,
			Title:          rec.Title,
			Start:          rec.Start,
			End:            rec.End,
			PurchasedHours: rec.PurchasedHours,
			Status:         calendar.EventStatus(rec.Status),
			CreatedAt:      rec.CreatedAt,
			UpdatedAt:      rec.UpdatedAt,
		},
	}
	for _, shift := range rec.Shifts {
		out.Shifts = append(out.Shifts, calendar.ShiftRequirement{
			EventID:       rec.ID,
			Start:         shift.Start,
			End:           shift.End,
			WorkersNeeded: shift.Workers,
		})
	}
	return out
}
