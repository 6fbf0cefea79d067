package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/roomsched/internal/calendar"
)

const timeLayout = "2006-01-02 15:04"

// Entry pairs an event with its derived shift requirements for rendering.
type Entry struct {
	Event  calendar.Event
	Shifts []calendar.ShiftRequirement
}

// WriteEvents renders an aligned table of events for one room.
func WriteEvents(w io.Writer, room calendar.Room, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "EVENT\tTITLE\tSTART\tEND\tHOURS\tSTATUS\tSHIFTS\n")
	for _, entry := range entries {
		event := entry.Event
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%s\t%d\n",
			event.ID,
			event.Title,
			event.Start.Format(timeLayout),
			event.End.Format(timeLayout),
			event.PurchasedHours,
			event.Status,
			len(entry.Shifts),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(w, "no events in %s\n", room.Name)
	}
	return nil
}

// WriteShifts renders the shift requirement table for one event.
func WriteShifts(w io.Writer, event calendar.Event, shifts []calendar.ShiftRequirement) error {
	if len(shifts) == 0 {
		_, err := fmt.Fprintf(w, "event %s requires no labor\n", event.ID)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SHIFT\tSTART\tEND\tWORKERS\n")
	for i, shift := range shifts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n",
			i+1,
			shift.Start.Format(timeLayout),
			shift.End.Format(timeLayout),
			shift.WorkersNeeded,
		)
	}
	return tw.Flush()
}

// WriteWarnings renders capacity warnings, one per line.
func WriteWarnings(w io.Writer, warnings []calendar.CapacityWarning) error {
	for _, warning := range warnings {
		var reason string
		switch warning.Kind {
		case calendar.WarningWorkersClamped:
			reason = fmt.Sprintf("needs %d workers, shift cap is %d", warning.WorkersNeeded, warning.Limit)
		case calendar.WarningRoomCapacity:
			reason = fmt.Sprintf("needs %d workers, room capacity is %d", warning.WorkersNeeded, warning.Limit)
		default:
			reason = string(warning.Kind)
		}
		if _, err := fmt.Fprintf(w, "warning: shift %s-%s: %s\n",
			warning.ShiftStart.Format(timeLayout),
			warning.ShiftEnd.Format(timeLayout),
			reason,
		); err != nil {
			return err
		}
	}
	return nil
}

// Title returns the heading line for a room listing over a period.
func Title(room calendar.Room, period Period, from, to time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(room.Name)
	if period != PeriodNone {
		builder.WriteString(" (")
		builder.WriteString(string(period))
		builder.WriteString(")")
	}
	if !from.IsZero() && !to.IsZero() {
		builder.WriteString(" ")
		builder.WriteString(from.Format("2006-01-02"))
		builder.WriteString(" .. ")
		builder.WriteString(to.Format("2006-01-02"))
	}
	return builder.String()
}
