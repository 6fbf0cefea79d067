package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/eventstore"
	"github.com/example/roomsched/internal/labor"
	"github.com/example/roomsched/internal/metrics"
	"github.com/example/roomsched/internal/rooms"
)

// errStaleRoom signals that an event moved rooms between the pre-read and
// the acquisition of the room locks; the operation is retried.
var errStaleRoom = errors.New("application: event room changed concurrently")

const maxStaleRetries = 3

// EventService orchestrates event mutations against the store. Every
// mutation re-derives the event's shift requirements inside the store's
// critical section so the event and its shifts commit as one visible unit.
type EventService struct {
	store       *eventstore.Store
	rooms       rooms.Directory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	derive      DeriveFunc
	cache       *laborCache
	hooks       []CommitFunc
}

// NewEventService wires dependencies for event operations.
func NewEventService(store *eventstore.Store, directory rooms.Directory, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(store, directory, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires dependencies and attaches a base logger.
func NewEventServiceWithLogger(store *eventstore.Store, directory rooms.Directory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	svc := &EventService{
		store:       store,
		rooms:       directory,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		cache:       newLaborCache(0, 0, now),
	}
	svc.derive = func(event calendar.Event, room calendar.Room) ([]calendar.ShiftRequirement, []calendar.CapacityWarning, error) {
		shifts, warnings := labor.Compute(event, room)
		return shifts, warnings, nil
	}
	return svc
}

// SetMetrics attaches an operation metrics collector.
func (s *EventService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// OnCommitted registers a hook invoked after every successful mutation.
func (s *EventService) OnCommitted(fn CommitFunc) {
	if fn != nil {
		s.hooks = append(s.hooks, fn)
	}
}

// AddEvent validates and books a new event, deriving its shift set.
func (s *EventService) AddEvent(ctx context.Context, params AddEventParams) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("event service not configured")
	}
	started := s.now()
	logger := serviceLogger(ctx, s.logger, "events", "add", "room_id", params.RoomID)

	room, err := s.resolveRoom(ctx, params.RoomID)
	if err != nil {
		return s.finish(logger, "add", started, Result{}, err)
	}

	candidate := calendar.Event{
		ID:             s.idGenerator(),
		RoomID:         params.RoomID,
		Title:          strings.TrimSpace(params.Title),
		Start:          params.Start,
		End:            params.End,
		PurchasedHours: params.PurchasedHours,
		Status:         calendar.StatusActive,
		CreatedAt:      started,
		UpdatedAt:      started,
	}

	if vErr := calendar.ValidateEvent(candidate); vErr != nil {
		return s.finish(logger, "add", started, Result{}, vErr)
	}

	result, err := s.commit(ctx, []string{room.ID}, candidate, room)
	return s.finish(logger, "add", started, result, err)
}

// EditEvent applies a partial update to an existing event. The change is
// all-or-nothing: a rejected edit leaves the stored event untouched.
func (s *EventService) EditEvent(ctx context.Context, params EditEventParams) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("event service not configured")
	}
	started := s.now()
	logger := serviceLogger(ctx, s.logger, "events", "edit", "event_id", params.EventID)

	var result Result
	var err error
	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		result, err = s.editOnce(ctx, params, started)
		if !errors.Is(err, errStaleRoom) {
			break
		}
	}
	return s.finish(logger, "edit", started, result, err)
}

func (s *EventService) editOnce(ctx context.Context, params EditEventParams, now time.Time) (Result, error) {
	existing, _, err := s.store.Get(ctx, params.EventID)
	if err != nil {
		return Result{}, err
	}
	if !existing.Active() {
		return Result{}, calendar.ErrEventNotFound
	}

	updated := params.Patch.apply(existing)
	updated.Title = strings.TrimSpace(updated.Title)
	updated.UpdatedAt = now

	if vErr := calendar.ValidateEvent(updated); vErr != nil {
		return Result{}, vErr
	}

	room, err := s.resolveRoom(ctx, updated.RoomID)
	if err != nil {
		return Result{}, err
	}

	lockSet := []string{existing.RoomID, updated.RoomID}
	var result Result
	mErr := s.store.Mutate(ctx, lockSet, func(tx *eventstore.Tx) error {
		current, _, ok := tx.Get(params.EventID)
		if !ok || !current.Active() {
			return calendar.ErrEventNotFound
		}
		if current.RoomID != existing.RoomID {
			return errStaleRoom
		}

		proposed := params.Patch.apply(current)
		proposed.Title = strings.TrimSpace(proposed.Title)
		proposed.UpdatedAt = now

		if conflict := calendar.FindConflict(tx.ActiveInRoom(proposed.RoomID), proposed); conflict != nil {
			return conflict
		}

		shifts, warnings, err := s.deriveShifts(proposed, room)
		if err != nil {
			return err
		}

		tx.Put(proposed, shifts)
		result = Result{Event: proposed, Shifts: shifts, Warnings: warnings}
		return nil
	})
	if mErr != nil {
		return Result{}, mErr
	}

	s.afterCommit(result)
	return result, nil
}

// CopyEvent clones an event's shape under a fresh identity, applying any
// overrides, and books it through the same validation path as AddEvent.
func (s *EventService) CopyEvent(ctx context.Context, params CopyEventParams) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("event service not configured")
	}
	started := s.now()
	logger := serviceLogger(ctx, s.logger, "events", "copy", "source_event_id", params.SourceEventID)

	source, _, err := s.store.Get(ctx, params.SourceEventID)
	if err != nil {
		return s.finish(logger, "copy", started, Result{}, err)
	}

	candidate := params.Overrides.apply(source)
	candidate.ID = s.idGenerator()
	candidate.Title = strings.TrimSpace(candidate.Title)
	candidate.Status = calendar.StatusActive
	candidate.CreatedAt = started
	candidate.UpdatedAt = started

	if vErr := calendar.ValidateEvent(candidate); vErr != nil {
		return s.finish(logger, "copy", started, Result{}, vErr)
	}

	room, err := s.resolveRoom(ctx, candidate.RoomID)
	if err != nil {
		return s.finish(logger, "copy", started, Result{}, err)
	}

	result, err := s.commit(ctx, []string{room.ID}, candidate, room)
	return s.finish(logger, "copy", started, result, err)
}

// DeleteEvent tombstones an event and discards its shift set. Deleting a
// missing or already deleted event is a no-op success so retries are safe.
func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("event service not configured")
	}
	started := s.now()
	logger := serviceLogger(ctx, s.logger, "events", "delete", "event_id", eventID)

	existing, _, err := s.store.Get(ctx, eventID)
	if errors.Is(err, calendar.ErrEventNotFound) {
		logger.Info("delete ignored for unknown event")
		s.observe("delete", "ok", started)
		return nil
	}
	if err != nil {
		s.observe("delete", ErrorKind(err), started)
		return err
	}
	if !existing.Active() {
		logger.Info("delete ignored for tombstoned event")
		s.observe("delete", "ok", started)
		return nil
	}

	var tombstone calendar.Event
	mErr := s.store.Mutate(ctx, []string{existing.RoomID}, func(tx *eventstore.Tx) error {
		current, _, ok := tx.Get(eventID)
		if !ok || !current.Active() {
			return nil
		}
		tombstone = current
		tombstone.Status = calendar.StatusDeleted
		tombstone.UpdatedAt = started
		tx.Put(tombstone, nil)
		return nil
	})
	if mErr != nil {
		s.observe("delete", ErrorKind(mErr), started)
		return mErr
	}

	if tombstone.ID != "" {
		s.afterCommit(Result{Event: tombstone})
		logger.Info("event deleted", "room_id", tombstone.RoomID)
	}
	s.observe("delete", "ok", started)
	return nil
}

// GetEvent returns a committed event together with its shift set.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("event service not configured")
	}
	event, shifts, err := s.store.Get(ctx, eventID)
	if err != nil {
		return Result{}, err
	}
	return Result{Event: event, Shifts: shifts}, nil
}

// ListEvents enumerates one room's events ordered by start, then id.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Result, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("event service not configured")
	}
	if _, err := s.resolveRoom(ctx, params.RoomID); err != nil {
		return nil, err
	}

	events := s.store.ListByRoom(ctx, params.RoomID, eventstore.Query{
		From:           params.From,
		To:             params.To,
		IncludeDeleted: params.IncludeDeleted,
	})

	results := make([]Result, 0, len(events))
	for _, event := range events {
		_, shifts, err := s.store.Get(ctx, event.ID)
		if err != nil {
			continue
		}
		results = append(results, Result{Event: event, Shifts: shifts})
	}
	return results, nil
}

// commit books a validated candidate under the given room locks. It is the
// single shared path behind add and copy.
func (s *EventService) commit(ctx context.Context, lockSet []string, candidate calendar.Event, room calendar.Room) (Result, error) {
	var result Result
	err := s.store.Mutate(ctx, lockSet, func(tx *eventstore.Tx) error {
		if conflict := calendar.FindConflict(tx.ActiveInRoom(candidate.RoomID), candidate); conflict != nil {
			return conflict
		}

		shifts, warnings, err := s.deriveShifts(candidate, room)
		if err != nil {
			return err
		}

		tx.Put(candidate, shifts)
		result = Result{Event: candidate, Shifts: shifts, Warnings: warnings}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.afterCommit(result)
	return result, nil
}

func (s *EventService) deriveShifts(event calendar.Event, room calendar.Room) ([]calendar.ShiftRequirement, []calendar.CapacityWarning, error) {
	if cached, ok := s.cache.Get(event, room); ok {
		return cached.shifts, cached.warnings, nil
	}
	shifts, warnings, err := s.derive(event, room)
	if err != nil {
		return nil, nil, err
	}
	s.cache.Store(event, room, shifts, warnings)
	return shifts, warnings, nil
}

func (s *EventService) resolveRoom(ctx context.Context, roomID string) (calendar.Room, error) {
	if s.rooms == nil {
		return calendar.Room{}, fmt.Errorf("room directory not configured")
	}
	room, err := s.rooms.Resolve(ctx, roomID)
	if errors.Is(err, calendar.ErrRoomNotFound) {
		return calendar.Room{}, calendar.NewValidationError("room_id", "room does not exist")
	}
	if err != nil {
		return calendar.Room{}, err
	}
	return room, nil
}

func (s *EventService) afterCommit(result Result) {
	for _, hook := range s.hooks {
		hook(result.Event, calendar.CloneShifts(result.Shifts))
	}
	if s.metrics != nil {
		s.metrics.SetActiveEvents(s.store.ActiveCount())
	}
}

func (s *EventService) finish(logger *slog.Logger, op string, started time.Time, result Result, err error) (Result, error) {
	if err != nil {
		logger.Warn("operation rejected", "error_kind", ErrorKind(err), "error", err)
		s.observe(op, ErrorKind(err), started)
		return Result{}, err
	}
	logger.Info("operation committed",
		"event_id", result.Event.ID,
		"shift_count", len(result.Shifts),
		"warning_count", len(result.Warnings))
	s.observe(op, "ok", started)
	return result, nil
}

func (s *EventService) observe(op, outcome string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOperation(op, outcome, s.now().Sub(started))
}
