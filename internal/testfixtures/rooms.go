package testfixtures

import (
	"time"

	"github.com/example/roomsched/internal/calendar"
)

// ConferenceRoom returns the standard room used across test suites: a
// ten-seat room with four-hour shift spans and a five-worker shift cap.
func ConferenceRoom() calendar.Room {
	return calendar.Room{
		ID:       "room-a",
		Name:     "Conference Room",
		Capacity: 10,
		Policy: calendar.RoomPolicy{
			MinShiftLength:     time.Hour,
			MaxShiftSpan:       4 * time.Hour,
			MaxHoursPerShift:   8,
			MaxWorkersPerShift: 5,
		},
	}
}

// SmallRoom returns a two-seat room whose policy caps shifts at one worker,
// useful for exercising capacity warnings.
func SmallRoom() calendar.Room {
	return calendar.Room{
		ID:       "room-b",
		Name:     "Meeting Room 1",
		Capacity: 2,
		Policy: calendar.RoomPolicy{
			MinShiftLength:     time.Hour,
			MaxShiftSpan:       4 * time.Hour,
			MaxHoursPerShift:   8,
			MaxWorkersPerShift: 1,
		},
	}
}
