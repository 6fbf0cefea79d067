// Package labor derives staffing shift requirements from an event's time
// window and purchased labor budget. All computations are pure: identical
// inputs always yield identical output, which callers rely on when replacing
// a shift set after an event mutation.
package labor

import (
	"math"
	"time"

	"github.com/example/roomsched/internal/calendar"
)

// Compute partitions the event window into contiguous shifts and sizes the
// worker demand for each shift from the purchased labor hours.
//
// The shift count is the larger of the count implied by the labor budget and
// the count needed to keep every shift within the policy's maximum span. It
// is then capped so no shift falls below the policy minimum length, with the
// division remainder assigned to the final shift. A zero labor budget yields
// no shifts.
func Compute(event calendar.Event, room calendar.Room) ([]calendar.ShiftRequirement, []calendar.CapacityWarning) {
	if event.PurchasedHours <= 0 {
		return nil, nil
	}

	duration := event.Duration()
	if duration <= 0 {
		return nil, nil
	}

	count := shiftCount(event.PurchasedHours, duration, room.Policy)

	base := duration / time.Duration(count)
	remainder := duration - base*time.Duration(count)

	hoursPerShift := event.PurchasedHours / float64(count)

	shifts := make([]calendar.ShiftRequirement, 0, count)
	var warnings []calendar.CapacityWarning

	cursor := event.Start
	for i := 0; i < count; i++ {
		length := base
		if i == count-1 {
			length += remainder
		}
		end := cursor.Add(length)

		workers := int(math.Ceil(hoursPerShift / length.Hours()))
		if workers < 1 {
			workers = 1
		}

		if limit := room.Policy.MaxWorkersPerShift; limit > 0 && workers > limit {
			warnings = append(warnings, calendar.CapacityWarning{
				EventID:       event.ID,
				ShiftStart:    cursor,
				ShiftEnd:      end,
				WorkersNeeded: workers,
				Limit:         limit,
				Kind:          calendar.WarningWorkersClamped,
			})
			workers = limit
		}

		if room.Capacity > 0 && workers > room.Capacity {
			warnings = append(warnings, calendar.CapacityWarning{
				EventID:       event.ID,
				ShiftStart:    cursor,
				ShiftEnd:      end,
				WorkersNeeded: workers,
				Limit:         room.Capacity,
				Kind:          calendar.WarningRoomCapacity,
			})
		}

		shifts = append(shifts, calendar.ShiftRequirement{
			EventID:       event.ID,
			Start:         cursor,
			End:           end,
			WorkersNeeded: workers,
		})
		cursor = end
	}

	return shifts, warnings
}

func shiftCount(purchasedHours float64, duration time.Duration, policy calendar.RoomPolicy) int {
	count := 1

	if policy.MaxHoursPerShift > 0 {
		byBudget := int(math.Ceil(purchasedHours / policy.MaxHoursPerShift))
		if byBudget > count {
			count = byBudget
		}
	}

	if policy.MaxShiftSpan > 0 {
		bySpan := int((duration + policy.MaxShiftSpan - 1) / policy.MaxShiftSpan)
		if bySpan > count {
			count = bySpan
		}
	}

	if policy.MinShiftLength > 0 {
		most := int(duration / policy.MinShiftLength)
		if most < 1 {
			most = 1
		}
		if count > most {
			count = most
		}
	}

	return count
}
