package calendar

import "time"

// EventStatus tracks the lifecycle state of an event.
type EventStatus string

const (
	// StatusActive marks an event that occupies its room window.
	StatusActive EventStatus = "active"
	// StatusDeleted marks a tombstoned event kept for history only.
	StatusDeleted EventStatus = "deleted"
)

// RoomPolicy captures the per-room parameters that govern shift derivation.
type RoomPolicy struct {
	MinShiftLength     time.Duration
	MaxShiftSpan       time.Duration
	MaxHoursPerShift   float64
	MaxWorkersPerShift int
}

// Room represents a bookable room together with its staffing policy.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Policy   RoomPolicy
}

// Event represents a scheduled occupation of a room. The time window is
// half-open: an event ending exactly when another begins does not conflict.
type Event struct {
	ID             string
	RoomID         string
	Title          string
	Start          time.Time
	End            time.Time
	PurchasedHours float64
	Status         EventStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Duration returns the length of the event window.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Active reports whether the event participates in conflict checks.
func (e Event) Active() bool {
	return e.Status == StatusActive
}

// ShiftRequirement is a staffing interval derived from an event's window and
// purchased labor budget. It is always regenerated alongside its owning
// event and never edited independently.
type ShiftRequirement struct {
	EventID       string
	Start         time.Time
	End           time.Time
	WorkersNeeded int
}

// CapacityWarning signals that a derived staffing demand exceeds what the
// room policy or capacity allows. It is informational; the operation that
// produced it still commits.
type CapacityWarning struct {
	EventID       string
	ShiftStart    time.Time
	ShiftEnd      time.Time
	WorkersNeeded int
	Limit         int
	Kind          CapacityWarningKind
}

// CapacityWarningKind distinguishes which bound the demand exceeded.
type CapacityWarningKind string

const (
	// WarningWorkersClamped indicates workers were clamped to the policy's
	// per-shift maximum.
	WarningWorkersClamped CapacityWarningKind = "workers_clamped"
	// WarningRoomCapacity indicates the demand exceeds the room capacity.
	WarningRoomCapacity CapacityWarningKind = "room_capacity"
)

// Overlaps reports whether two half-open intervals [s1,e1) and [s2,e2)
// intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// CloneShifts returns an independent copy of the given shift slice.
func CloneShifts(shifts []ShiftRequirement) []ShiftRequirement {
	if len(shifts) == 0 {
		return nil
	}
	out := make([]ShiftRequirement, len(shifts))
	copy(out, shifts)
	return out
}
