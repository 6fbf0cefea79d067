package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/eventstore"
	"github.com/example/roomsched/internal/testfixtures"
)

type directoryStub struct {
	mu    sync.Mutex
	rooms map[string]calendar.Room
	err   error
}

func newDirectoryStub(list ...calendar.Room) *directoryStub {
	rooms := make(map[string]calendar.Room, len(list))
	for _, room := range list {
		rooms[room.ID] = room
	}
	return &directoryStub{rooms: rooms}
}

func (d *directoryStub) Resolve(ctx context.Context, roomID string) (calendar.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return calendar.Room{}, d.err
	}
	room, ok := d.rooms[roomID]
	if !ok {
		return calendar.Room{}, calendar.ErrRoomNotFound
	}
	return room, nil
}

func (d *directoryStub) set(room calendar.Room) {
	d.mu.Lock()
	d.rooms[room.ID] = room
	d.mu.Unlock()
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
}

func newService(t *testing.T) (*EventService, *eventstore.Store, *directoryStub) {
	t.Helper()
	store := eventstore.New()
	directory := newDirectoryStub(testfixtures.ConferenceRoom(), testfixtures.SmallRoom())
	ids := testfixtures.NewIDGenerator("event")
	clock := testfixtures.NewClock(time.Time{})
	svc := NewEventService(store, directory, ids.NextFunc(), clock.NowFunc())
	return svc, store, directory
}

func addParams(roomID string, startHour, endHour int, hours float64) AddEventParams {
	return AddEventParams{
		RoomID:         roomID,
		Title:          "Planning Meeting",
		Start:          at(startHour),
		End:            at(endHour),
		PurchasedHours: hours,
	}
}

func TestAddEventDerivesCoveringShifts(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	result, err := svc.AddEvent(context.Background(), addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if result.Event.ID == "" {
		t.Fatal("expected an assigned event id")
	}
	if len(result.Shifts) == 0 {
		t.Fatal("expected derived shifts")
	}
	if !result.Shifts[0].Start.Equal(at(9)) {
		t.Fatalf("first shift starts at %v, want 09:00", result.Shifts[0].Start)
	}
	if !result.Shifts[len(result.Shifts)-1].End.Equal(at(12)) {
		t.Fatalf("last shift ends at %v, want 12:00", result.Shifts[len(result.Shifts)-1].End)
	}
}

func TestAddEventRejectsOverlap(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	first, err := svc.AddEvent(context.Background(), addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err = svc.AddEvent(context.Background(), addParams("room-a", 11, 13, 2))
	var conflict *calendar.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.WithEventID != first.Event.ID {
		t.Fatalf("conflict must reference %s, got %s", first.Event.ID, conflict.WithEventID)
	}
	if !conflict.ConflictStart.Equal(at(9)) || !conflict.ConflictEnd.Equal(at(12)) {
		t.Fatalf("conflict must carry the existing window, got %v - %v", conflict.ConflictStart, conflict.ConflictEnd)
	}
}

func TestAddEventBackToBackWindowsDoNotConflict(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	if _, err := svc.AddEvent(context.Background(), addParams("room-a", 9, 12, 2)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := svc.AddEvent(context.Background(), addParams("room-a", 12, 13, 2)); err != nil {
		t.Fatalf("back-to-back add must succeed, got %v", err)
	}
}

func TestEditEventReplacesShifts(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	newStart, newEnd := at(13), at(15)
	edited, err := svc.EditEvent(ctx, EditEventParams{
		EventID: created.Event.ID,
		Patch:   EventPatch{Start: &newStart, End: &newEnd},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	for _, shift := range edited.Shifts {
		if shift.Start.Before(newStart) || shift.End.After(newEnd) {
			t.Fatalf("shift %v - %v outside the edited window", shift.Start, shift.End)
		}
	}
	if !edited.Shifts[0].Start.Equal(newStart) {
		t.Fatalf("shifts must start at the new window, got %v", edited.Shifts[0].Start)
	}
	if !edited.Shifts[len(edited.Shifts)-1].End.Equal(newEnd) {
		t.Fatalf("shifts must end at the new window, got %v", edited.Shifts[len(edited.Shifts)-1].End)
	}

	// The freed morning slot can be rebooked immediately.
	if _, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 2)); err != nil {
		t.Fatalf("rebooking the vacated window must succeed, got %v", err)
	}
}

func TestEditEventRejectionLeavesEventUntouched(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t)
	ctx := context.Background()

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	blocker, err := svc.AddEvent(ctx, addParams("room-a", 13, 15, 2))
	if err != nil {
		t.Fatalf("add blocker: %v", err)
	}

	newStart, newEnd := at(14), at(16)
	_, err = svc.EditEvent(ctx, EditEventParams{
		EventID: created.Event.ID,
		Patch:   EventPatch{Start: &newStart, End: &newEnd},
	})
	var conflict *calendar.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.WithEventID != blocker.Event.ID {
		t.Fatalf("conflict must reference %s, got %s", blocker.Event.ID, conflict.WithEventID)
	}

	current, shifts, err := store.Get(ctx, created.Event.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !current.Start.Equal(at(9)) || !current.End.Equal(at(12)) {
		t.Fatalf("rejected edit mutated the event: %v - %v", current.Start, current.End)
	}
	if len(shifts) != len(created.Shifts) {
		t.Fatalf("rejected edit mutated the shifts: %d != %d", len(shifts), len(created.Shifts))
	}
}

func TestEditEventDerivationFailureRollsBack(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t)
	ctx := context.Background()

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	boom := errors.New("labor derivation unavailable")
	svc.derive = func(calendar.Event, calendar.Room) ([]calendar.ShiftRequirement, []calendar.CapacityWarning, error) {
		return nil, nil, boom
	}

	newStart, newEnd := at(13), at(15)
	_, err = svc.EditEvent(ctx, EditEventParams{
		EventID: created.Event.ID,
		Patch:   EventPatch{Start: &newStart, End: &newEnd},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected derivation error, got %v", err)
	}

	current, shifts, err := store.Get(ctx, created.Event.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !current.Start.Equal(at(9)) || !current.End.Equal(at(12)) {
		t.Fatalf("failed derivation mutated the event: %v - %v", current.Start, current.End)
	}
	if len(shifts) != len(created.Shifts) {
		t.Fatalf("failed derivation left partial shifts: %d != %d", len(shifts), len(created.Shifts))
	}
}

func TestEditEventMovesRooms(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	target := "room-b"
	moved, err := svc.EditEvent(ctx, EditEventParams{
		EventID: created.Event.ID,
		Patch:   EventPatch{RoomID: &target},
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Event.RoomID != "room-b" {
		t.Fatalf("event still in %s", moved.Event.RoomID)
	}

	// The old room's slot is free again; the new room's slot is taken.
	if _, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 2)); err != nil {
		t.Fatalf("vacated room must accept bookings, got %v", err)
	}
	if _, err := svc.AddEvent(ctx, addParams("room-b", 9, 12, 2)); err == nil {
		t.Fatal("occupied target room must reject overlapping bookings")
	}
}

func TestAddEventZeroHoursYieldsNoShifts(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	result, err := svc.AddEvent(context.Background(), addParams("room-a", 9, 12, 0))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(result.Shifts) != 0 {
		t.Fatalf("expected no shifts for a zero budget, got %d", len(result.Shifts))
	}
}

func TestDeleteEventIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	if err := svc.DeleteEvent(ctx, "no-such-event"); err != nil {
		t.Fatalf("deleting an unknown event must be a no-op success, got %v", err)
	}

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.DeleteEvent(ctx, created.Event.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteEvent(ctx, created.Event.ID); err != nil {
		t.Fatalf("repeated delete must be a no-op success, got %v", err)
	}

	// The tombstone frees the window and its shifts are discarded.
	result, err := svc.GetEvent(ctx, created.Event.ID)
	if err != nil {
		t.Fatalf("get tombstone: %v", err)
	}
	if result.Event.Status != calendar.StatusDeleted {
		t.Fatalf("expected tombstone, got %s", result.Event.Status)
	}
	if len(result.Shifts) != 0 {
		t.Fatalf("tombstone must not retain shifts, got %d", len(result.Shifts))
	}
	if _, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 2)); err != nil {
		t.Fatalf("tombstoned window must be bookable, got %v", err)
	}
}

func TestEditDeletedEventFails(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.DeleteEvent(ctx, created.Event.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	title := "Rescheduled"
	_, err = svc.EditEvent(ctx, EditEventParams{EventID: created.Event.ID, Patch: EventPatch{Title: &title}})
	if !errors.Is(err, calendar.ErrEventNotFound) {
		t.Fatalf("tombstones must be immutable, got %v", err)
	}
}

func TestCopyEventIsIndependent(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	source, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	newStart, newEnd := at(13), at(16)
	copied, err := svc.CopyEvent(ctx, CopyEventParams{
		SourceEventID: source.Event.ID,
		Overrides:     EventPatch{Start: &newStart, End: &newEnd},
	})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied.Event.ID == source.Event.ID {
		t.Fatal("copy must receive a fresh identity")
	}
	if copied.Event.Title != source.Event.Title || copied.Event.PurchasedHours != source.Event.PurchasedHours {
		t.Fatalf("copy must inherit unoverridden fields: %+v", copied.Event)
	}

	// Mutating the copy must never touch the source.
	laterStart, laterEnd := at(17), at(19)
	if _, err := svc.EditEvent(ctx, EditEventParams{
		EventID: copied.Event.ID,
		Patch:   EventPatch{Start: &laterStart, End: &laterEnd},
	}); err != nil {
		t.Fatalf("edit copy: %v", err)
	}

	reread, err := svc.GetEvent(ctx, source.Event.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if !reread.Event.Start.Equal(at(9)) || !reread.Event.End.Equal(at(12)) {
		t.Fatalf("editing the copy mutated the source: %v - %v", reread.Event.Start, reread.Event.End)
	}
	if len(reread.Shifts) != len(source.Shifts) {
		t.Fatalf("editing the copy mutated the source shifts: %d != %d", len(reread.Shifts), len(source.Shifts))
	}
}

func TestCopyEventIntoSameWindowConflicts(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	source, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = svc.CopyEvent(ctx, CopyEventParams{SourceEventID: source.Event.ID})
	var conflict *calendar.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("copy into the same window must conflict with its source, got %v", err)
	}
	if conflict.WithEventID != source.Event.ID {
		t.Fatalf("conflict must reference the source, got %s", conflict.WithEventID)
	}
}

func TestCopyEventWarnsOnUndersizedRoom(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	// 6 purchased hours over 3 hours needs 2 workers; room-b allows 1.
	source, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	target := "room-b"
	copied, err := svc.CopyEvent(ctx, CopyEventParams{
		SourceEventID: source.Event.ID,
		Overrides:     EventPatch{RoomID: &target},
	})
	if err != nil {
		t.Fatalf("copy must commit despite the warning, got %v", err)
	}
	if len(copied.Warnings) == 0 {
		t.Fatal("expected a capacity warning")
	}
	if copied.Warnings[0].Kind != calendar.WarningWorkersClamped {
		t.Fatalf("expected workers_clamped, got %s", copied.Warnings[0].Kind)
	}
}

func TestAddEventUnknownRoom(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.AddEvent(context.Background(), addParams("room-x", 9, 12, 2))
	var vErr *calendar.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for an unknown room, got %v", err)
	}
	if _, ok := vErr.FieldErrors["room_id"]; !ok {
		t.Fatalf("expected room_id field error, got %v", vErr.FieldErrors)
	}
}

func TestAddEventValidatesBeforeBooking(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t)

	params := addParams("room-a", 12, 9, 2)
	_, err := svc.AddEvent(context.Background(), params)
	var vErr *calendar.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := store.ListByRoom(context.Background(), "room-a", eventstore.Query{}); len(got) != 0 {
		t.Fatalf("rejected add must not book anything, got %d events", len(got))
	}
}

func TestPolicyChangesApplyOnNextOperation(t *testing.T) {
	t.Parallel()

	svc, _, directory := newService(t)
	ctx := context.Background()

	created, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 6))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.Shifts[0].WorkersNeeded != 2 {
		t.Fatalf("expected 2 workers before the policy change, got %d", created.Shifts[0].WorkersNeeded)
	}

	// Tighten the per-shift worker cap out-of-band; the next edit must pick
	// it up because policies are never cached across operations.
	tightened := testfixtures.ConferenceRoom()
	tightened.Policy.MaxWorkersPerShift = 1
	directory.set(tightened)

	title := "Planning Meeting (renamed)"
	edited, err := svc.EditEvent(ctx, EditEventParams{EventID: created.Event.ID, Patch: EventPatch{Title: &title}})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Shifts[0].WorkersNeeded != 1 {
		t.Fatalf("edit must use the fresh policy, got %d workers", edited.Shifts[0].WorkersNeeded)
	}
	if len(edited.Warnings) == 0 {
		t.Fatal("expected a clamp warning under the tightened policy")
	}
}

func TestCommitHookReceivesCommittedState(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	var mu sync.Mutex
	var notified []string
	svc.OnCommitted(func(event calendar.Event, shifts []calendar.ShiftRequirement) {
		mu.Lock()
		notified = append(notified, event.ID+":"+string(event.Status))
		mu.Unlock()
	})

	created, err := svc.AddEvent(context.Background(), addParams("room-a", 9, 12, 2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.DeleteEvent(context.Background(), created.Event.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notified))
	}
	if notified[0] != created.Event.ID+":active" || notified[1] != created.Event.ID+":deleted" {
		t.Fatalf("unexpected notifications: %v", notified)
	}
}

func TestListEventsOrdering(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.AddEvent(ctx, addParams("room-a", 13, 15, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddEvent(ctx, addParams("room-a", 9, 12, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := svc.ListEvents(ctx, ListEventsParams{RoomID: "room-a"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 events, got %d", len(results))
	}
	if !results[0].Event.Start.Equal(at(9)) || !results[1].Event.Start.Equal(at(13)) {
		t.Fatalf("events out of order: %v, %v", results[0].Event.Start, results[1].Event.Start)
	}
}
