// Package export serializes room calendars to iCalendar documents so other
// calendar tooling can subscribe to the booked events.
package export

import (
	"fmt"
	"io"

	ical "github.com/arran4/golang-ical"

	"github.com/example/roomsched/internal/calendar"
)

const prodID = "-//roomsched//room calendar//EN"

// BuildCalendar converts a room's active events into an iCalendar document.
// Tombstoned events are skipped; shift requirements are folded into the
// event description since iCalendar has no staffing concept.
func BuildCalendar(room calendar.Room, entries []Entry) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)
	cal.SetXWRCalName(room.Name)

	for _, entry := range entries {
		event := entry.Event
		if !event.Active() {
			continue
		}
		ve := cal.AddEvent(fmt.Sprintf("%s@roomsched", event.ID))
		ve.SetSummary(event.Title)
		ve.SetLocation(room.Name)
		ve.SetStartAt(event.Start)
		ve.SetEndAt(event.End)
		ve.SetDtStampTime(event.UpdatedAt)
		if desc := describeShifts(event, entry.Shifts); desc != "" {
			ve.SetDescription(desc)
		}
	}
	return cal
}

// Entry pairs an event with its derived shift requirements.
type Entry struct {
	Event  calendar.Event
	Shifts []calendar.ShiftRequirement
}

// WriteICS serializes the room calendar to the writer.
func WriteICS(w io.Writer, room calendar.Room, entries []Entry) error {
	return BuildCalendar(room, entries).SerializeTo(w)
}

func describeShifts(event calendar.Event, shifts []calendar.ShiftRequirement) string {
	if len(shifts) == 0 {
		return ""
	}
	desc := fmt.Sprintf("Purchased labor: %g hours across %d shift(s).", event.PurchasedHours, len(shifts))
	for i, shift := range shifts {
		desc += fmt.Sprintf("\nShift %d: %s - %s, %d worker(s)",
			i+1,
			shift.Start.Format("2006-01-02 15:04"),
			shift.End.Format("15:04"),
			shift.WorkersNeeded,
		)
	}
	return desc
}
