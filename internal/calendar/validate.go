package calendar

import "strings"

// ValidateEvent checks the structural invariants every proposed event state
// must satisfy before it may be committed. Add, edit and copy all pass their
// candidate post-state through this single path.
func ValidateEvent(event Event) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(event.Title) == "" {
		vErr.Add("title", "title is required")
	}

	if event.RoomID == "" {
		vErr.Add("room_id", "room is required")
	}

	if event.Start.IsZero() {
		vErr.Add("start", "start is required")
	}

	if event.End.IsZero() {
		vErr.Add("end", "end is required")
	}

	if !event.Start.IsZero() && !event.End.IsZero() && !event.Start.Before(event.End) {
		vErr.Add("time", "start must be before end")
	}

	if event.PurchasedHours < 0 {
		vErr.Add("purchased_hours", "purchased hours must not be negative")
	}

	if !vErr.HasErrors() {
		return nil
	}
	return vErr
}

// FindConflict scans existing active events in the same room and returns the
// first one whose window overlaps the candidate. The candidate itself is
// excluded by id so an edit never conflicts with its own previous window.
func FindConflict(existing []Event, candidate Event) *ConflictError {
	for _, other := range existing {
		if other.ID == candidate.ID || !other.Active() {
			continue
		}
		if other.RoomID != candidate.RoomID {
			continue
		}
		if Overlaps(candidate.Start, candidate.End, other.Start, other.End) {
			return &ConflictError{
				RoomID:        candidate.RoomID,
				WithEventID:   other.ID,
				ConflictStart: other.Start,
				ConflictEnd:   other.End,
			}
		}
	}
	return nil
}
