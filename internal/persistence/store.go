// Package persistence defines the snapshot boundary between the in-memory
// event set and durable storage. The core never blocks on these stores; the
// Autosaver feeds them from committed state in the background.
package persistence

import (
	"context"
	"errors"

	"github.com/example/roomsched/internal/calendar"
)

// ErrClosed is returned when a store is used after Close.
var ErrClosed = errors.New("persistence: store closed")

// Record pairs an event with its derived shift set.
type Record struct {
	Event  calendar.Event
	Shifts []calendar.ShiftRequirement
}

// Snapshot is the full persisted state: every event, tombstones included.
type Snapshot struct {
	Records []Record
}

// Store loads the event set at startup and replaces the persisted state
// after commits. Implementations must tolerate an empty backing medium and
// return an empty snapshot from Load in that case.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// SplitSnapshot converts a snapshot into the shape the event store loads.
func SplitSnapshot(snapshot Snapshot) ([]calendar.Event, map[string][]calendar.ShiftRequirement) {
	events := make([]calendar.Event, 0, len(snapshot.Records))
	shifts := make(map[string][]calendar.ShiftRequirement, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		events = append(events, rec.Event)
		if len(rec.Shifts) > 0 {
			shifts[rec.Event.ID] = calendar.CloneShifts(rec.Shifts)
		}
	}
	return events, shifts
}

// JoinSnapshot builds a snapshot from the event store's export shape.
func JoinSnapshot(events []calendar.Event, shifts map[string][]calendar.ShiftRequirement) Snapshot {
	records := make([]Record, 0, len(events))
	for _, event := range events {
		records = append(records, Record{
			Event:  event,
			Shifts: calendar.CloneShifts(shifts[event.ID]),
		})
	}
	return Snapshot{Records: records}
}
