package application

import (
	"time"

	"github.com/example/roomsched/internal/calendar"
)

// AddEventParams captures caller provided fields for a new event.
type AddEventParams struct {
	RoomID         string
	Title          string
	Start          time.Time
	End            time.Time
	PurchasedHours float64
}

// EventPatch describes a partial update. Nil fields keep the current value.
type EventPatch struct {
	Title          *string
	RoomID         *string
	Start          *time.Time
	End            *time.Time
	PurchasedHours *float64
}

func (p EventPatch) apply(event calendar.Event) calendar.Event {
	if p.Title != nil {
		event.Title = *p.Title
	}
	if p.RoomID != nil {
		event.RoomID = *p.RoomID
	}
	if p.Start != nil {
		event.Start = *p.Start
	}
	if p.End != nil {
		event.End = *p.End
	}
	if p.PurchasedHours != nil {
		event.PurchasedHours = *p.PurchasedHours
	}
	return event
}

// EditEventParams wraps the data required to edit an existing event.
type EditEventParams struct {
	EventID string
	Patch   EventPatch
}

// CopyEventParams wraps the data required to clone an event. Overrides are
// applied on top of the source event's fields; identity is always fresh.
type CopyEventParams struct {
	SourceEventID string
	Overrides     EventPatch
}

// ListEventsParams narrows event listings for one room.
type ListEventsParams struct {
	RoomID         string
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
}

// Result is the committed outcome of a mutating operation: the event, its
// freshly derived shift set and any capacity warnings raised while deriving.
type Result struct {
	Event    calendar.Event
	Shifts   []calendar.ShiftRequirement
	Warnings []calendar.CapacityWarning
}

// CommitFunc receives committed state after a successful mutation. It runs
// outside the store's critical section and must not block; the persistence
// collaborator hands the pair to a background writer.
type CommitFunc func(event calendar.Event, shifts []calendar.ShiftRequirement)

// DeriveFunc computes the shift set for an event under a room policy.
type DeriveFunc func(event calendar.Event, room calendar.Room) ([]calendar.ShiftRequirement, []calendar.CapacityWarning, error)
