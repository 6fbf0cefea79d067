// Package eventstore holds the authoritative in-memory event set. Mutations
// are serialized per room so overlap detection never races, while reads
// observe consistent committed snapshots of an event and its shift set.
package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/roomsched/internal/calendar"
)

type record struct {
	event  calendar.Event
	shifts []calendar.ShiftRequirement
}

// Store owns the mapping of event id to event record plus derived shifts.
// The zero value is not usable; construct with New.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
	locks   map[string]*sync.Mutex
}

// New returns an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]record),
		locks:   make(map[string]*sync.Mutex),
	}
}

// roomLock returns the mutex serializing mutations for the given room,
// creating it on first use.
func (s *Store) roomLock(roomID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[roomID] = lock
	}
	return lock
}

// Mutate runs fn inside the exclusive critical section of every listed room.
// Locks are acquired in sorted order so concurrent cross-room mutations
// cannot deadlock, and released on every exit path. Changes staged by fn
// become visible atomically, and only when fn returns nil.
func (s *Store) Mutate(ctx context.Context, roomIDs []string, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ordered := uniqueSorted(roomIDs)
	for _, roomID := range ordered {
		lock := s.roomLock(roomID)
		lock.Lock()
		defer lock.Unlock()
	}

	tx := &Tx{store: s, staged: make(map[string]record)}
	if err := fn(tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for id, rec := range tx.staged {
		s.records[id] = rec
	}
	s.mu.Unlock()
	return nil
}

// Tx stages mutations against the store. It is only valid for the duration
// of the Mutate callback that created it.
type Tx struct {
	store  *Store
	staged map[string]record
}

// Get returns the event and shifts visible to the transaction.
func (t *Tx) Get(id string) (calendar.Event, []calendar.ShiftRequirement, bool) {
	if rec, ok := t.staged[id]; ok {
		return rec.event, calendar.CloneShifts(rec.shifts), true
	}
	t.store.mu.RLock()
	rec, ok := t.store.records[id]
	t.store.mu.RUnlock()
	if !ok {
		return calendar.Event{}, nil, false
	}
	return rec.event, calendar.CloneShifts(rec.shifts), true
}

// ActiveInRoom returns the active events currently booked in the room,
// including any staged but uncommitted changes.
func (t *Tx) ActiveInRoom(roomID string) []calendar.Event {
	events := make([]calendar.Event, 0)

	t.store.mu.RLock()
	for id, rec := range t.store.records {
		if _, overridden := t.staged[id]; overridden {
			continue
		}
		if rec.event.RoomID == roomID && rec.event.Active() {
			events = append(events, rec.event)
		}
	}
	t.store.mu.RUnlock()

	for _, rec := range t.staged {
		if rec.event.RoomID == roomID && rec.event.Active() {
			events = append(events, rec.event)
		}
	}

	sortEvents(events)
	return events
}

// Put stages an event together with its derived shift set.
func (t *Tx) Put(event calendar.Event, shifts []calendar.ShiftRequirement) {
	t.staged[event.ID] = record{event: event, shifts: calendar.CloneShifts(shifts)}
}

// Get returns the committed event and its shift set.
func (s *Store) Get(ctx context.Context, id string) (calendar.Event, []calendar.ShiftRequirement, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return calendar.Event{}, nil, calendar.ErrEventNotFound
	}
	return rec.event, calendar.CloneShifts(rec.shifts), nil
}

// Query narrows ListByRoom results.
type Query struct {
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
}

// ListByRoom returns the room's events ordered by start ascending, ties
// broken by id ascending. Tombstoned events are excluded unless requested.
func (s *Store) ListByRoom(ctx context.Context, roomID string, query Query) []calendar.Event {
	s.mu.RLock()
	events := make([]calendar.Event, 0)
	for _, rec := range s.records {
		event := rec.event
		if event.RoomID != roomID {
			continue
		}
		if !query.IncludeDeleted && !event.Active() {
			continue
		}
		if query.From != nil && !event.End.After(*query.From) {
			continue
		}
		if query.To != nil && !event.Start.Before(*query.To) {
			continue
		}
		events = append(events, event)
	}
	s.mu.RUnlock()

	sortEvents(events)
	return events
}

// Snapshot returns a consistent copy of every record, including tombstones,
// for the persistence boundary.
func (s *Store) Snapshot() ([]calendar.Event, map[string][]calendar.ShiftRequirement) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]calendar.Event, 0, len(s.records))
	shifts := make(map[string][]calendar.ShiftRequirement, len(s.records))
	for id, rec := range s.records {
		events = append(events, rec.event)
		if len(rec.shifts) > 0 {
			shifts[id] = calendar.CloneShifts(rec.shifts)
		}
	}

	sortEvents(events)
	return events, shifts
}

// Load replaces the store contents with a previously persisted state. It is
// intended for startup only, before concurrent callers exist.
func (s *Store) Load(events []calendar.Event, shifts map[string][]calendar.ShiftRequirement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]record, len(events))
	for _, event := range events {
		s.records[event.ID] = record{
			event:  event,
			shifts: calendar.CloneShifts(shifts[event.ID]),
		}
	}
}

// ActiveCount reports how many events are currently active.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, rec := range s.records {
		if rec.event.Active() {
			count++
		}
	}
	return count
}

func sortEvents(events []calendar.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
