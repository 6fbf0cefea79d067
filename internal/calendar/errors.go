package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEventNotFound is returned when the requested event does not exist.
	ErrEventNotFound = errors.New("calendar: event not found")
	// ErrRoomNotFound is returned when a room id cannot be resolved.
	ErrRoomNotFound = errors.New("calendar: room not found")
)

// ValidationError captures the first invariant violated by a proposed
// operation. The field map allows callers to surface the failing input.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	for field, msg := range v.FieldErrors {
		return fmt.Sprintf("validation failed: %s: %s", field, msg)
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// ConflictError reports an overlapping active event in the same room. It
// carries the conflicting event's identity and window so callers can decide
// how to resolve the collision.
type ConflictError struct {
	RoomID        string
	WithEventID   string
	ConflictStart time.Time
	ConflictEnd   time.Time
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	return fmt.Sprintf("calendar: window overlaps event %s in room %s (%s - %s)",
		c.WithEventID, c.RoomID,
		c.ConflictStart.Format(time.RFC3339), c.ConflictEnd.Format(time.RFC3339))
}
