package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/persistence"
)

var csvHeader = []string{
	"record", "event_id", "room_id", "title", "start", "end",
	"purchased_hours", "status", "created_at", "updated_at", "workers",
}

const (
	recordKindEvent = "event"
	recordKindShift = "shift"
)

// CSVStore persists snapshots as a flat CSV file: one row per event plus one
// row per shift, so the file opens directly in a spreadsheet.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore builds a store writing to the given path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads the event set. A missing file yields an empty snapshot.
func (s *CSVStore) Load(ctx context.Context) (persistence.Snapshot, error) {
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

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(csvHeader)

	rows, err := reader.ReadAll()
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return persistence.Snapshot{}, nil
	}

	var records []persistence.Record
	index := make(map[string]int)
	for i, row := range rows[1:] {
		switch row[0] {
		case recordKindEvent:
			event, err := eventFromRow(row)
			if err != nil {
				return persistence.Snapshot{}, fmt.Errorf("row %d: %w", i+2, err)
			}
			index[event.ID] = len(records)
			records = append(records, persistence.Record{Event: event})
		case recordKindShift:
			shift, err := shiftFromRow(row)
			if err != nil {
				return persistence.Snapshot{}, fmt.Errorf("row %d: %w", i+2, err)
			}
			pos, ok := index[shift.EventID]
			if !ok {
				return persistence.Snapshot{}, fmt.Errorf("row %d: shift references unknown event %s", i+2, shift.EventID)
			}
			records[pos].Shifts = append(records[pos].Shifts, shift)
		default:
			return persistence.Snapshot{}, fmt.Errorf("row %d: unknown record kind %q", i+2, row[0])
		}
	}

	return persistence.Snapshot{Records: records}, nil
}

// Save writes the snapshot to a temporary file and renames it into place.
func (s *CSVStore) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".events-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range snapshot.Records {
		if err := writer.Write(eventToRow(rec.Event)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write event %s: %w", rec.Event.ID, err)
		}
		for _, shift := range rec.Shifts {
			if err := writer.Write(shiftToRow(shift)); err != nil {
				_ = tmp.Close()
				return fmt.Errorf("write shift for %s: %w", shift.EventID, err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
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
func (s *CSVStore) Close() error {
	return nil
}

func eventToRow(event calendar.Event) []string {
	return []string{
		recordKindEvent,
		event.ID,
		event.RoomID,
		event.Title,
		event.Start.Format(time.RFC3339Nano),
		event.End.Format(time.RFC3339Nano),
		strconv.FormatFloat(event.PurchasedHours, 'g', -1, 64),
		string(event.Status),
		event.CreatedAt.Format(time.RFC3339Nano),
		event.UpdatedAt.Format(time.RFC3339Nano),
		"",
	}
}

func shiftToRow(shift calendar.ShiftRequirement) []string {
	return []string{
		recordKindShift,
		shift.EventID,
		"", "",
		shift.Start.Format(time.RFC3339Nano),
		shift.End.Format(time.RFC3339Nano),
		"", "", "", "",
		strconv.Itoa(shift.WorkersNeeded),
	}
}

func eventFromRow(row []string) (calendar.Event, error) {
	event := calendar.Event{
		ID:     row[1],
		RoomID: row[2],
		Title:  row[3],
		Status: calendar.EventStatus(row[7]),
	}
	var err error
	if event.Start, err = time.Parse(time.RFC3339Nano, row[4]); err != nil {
		return calendar.Event{}, fmt.Errorf("parse start: %w", err)
	}
	if event.End, err = time.Parse(time.RFC3339Nano, row[5]); err != nil {
		return calendar.Event{}, fmt.Errorf("parse end: %w", err)
	}
	if event.PurchasedHours, err = strconv.ParseFloat(row[6], 64); err != nil {
		return calendar.Event{}, fmt.Errorf("parse purchased_hours: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339Nano, row[8]); err != nil {
		return calendar.Event{}, fmt.Errorf("parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339Nano, row[9]); err != nil {
		return calendar.Event{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return event, nil
}

func shiftFromRow(row []string) (calendar.ShiftRequirement, error) {
	shift := calendar.ShiftRequirement{EventID: row[1]}
	var err error
	if shift.Start, err = time.Parse(time.RFC3339Nano, row[4]); err != nil {
		return calendar.ShiftRequirement{}, fmt.Errorf("parse shift start: %w", err)
	}
	if shift.End, err = time.Parse(time.RFC3339Nano, row[5]); err != nil {
		return calendar.ShiftRequirement{}, fmt.Errorf("parse shift end: %w", err)
	}
	if shift.WorkersNeeded, err = strconv.Atoi(row[10]); err != nil {
		return calendar.ShiftRequirement{}, fmt.Errorf("parse workers: %w", err)
	}
	return shift, nil
}
