package scheduling

import (
	"fmt"
	"time"
)

// SlotRange is a half-open bookable time range [Start, End).
type SlotRange struct {
	Start time.Time
	End   time.Time
}

// SlotsForDay expands a working window on a single date into discrete slots.
// startOfDay and endOfDay are wall-clock times in "15:04" form interpreted in
// the date's location. A cursor starts at startOfDay and emits
// [cursor, cursor+duration) until the next slot would cross endOfDay; a
// partial trailing slot is dropped, not truncated.
func SlotsForDay(date time.Time, startOfDay, endOfDay string, durationMinutes int) ([]SlotRange, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("slot duration must be a positive number of minutes, got %d", durationMinutes)
	}

	start, err := atTimeOfDay(date, startOfDay)
	if err != nil {
		return nil, err
	}
	end, err := atTimeOfDay(date, endOfDay)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end of day %s must be after start of day %s", endOfDay, startOfDay)
	}

	return splitIntoSlots(start, end, durationMinutes), nil
}

// SplitRange converts a dragged time range into slots. With split set the
// range is walked with the same cursor algorithm as SlotsForDay; otherwise a
// single slot spanning the whole range is returned.
func SplitRange(start, end time.Time, durationMinutes int, split bool) ([]SlotRange, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("range end must be after range start")
	}
	if !split {
		return []SlotRange{{Start: start, End: end}}, nil
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("slot duration must be a positive number of minutes, got %d", durationMinutes)
	}
	return splitIntoSlots(start, end, durationMinutes), nil
}

// RecurringDates expands a recurrence selection into concrete dates. For each
// selected weekday the series is anchored to the first occurrence on or after
// the base date, then repeated weekly for the requested number of weeks.
func RecurringDates(base time.Time, weekdays []time.Weekday, weeks int) []time.Time {
	var dates []time.Time
	for _, weekday := range weekdays {
		offset := (int(weekday) - int(base.Weekday()) + 7) % 7
		first := base.AddDate(0, 0, offset)
		for week := 0; week < weeks; week++ {
			dates = append(dates, first.AddDate(0, 0, week*7))
		}
	}
	return dates
}

func splitIntoSlots(start, end time.Time, durationMinutes int) []SlotRange {
	duration := time.Duration(durationMinutes) * time.Minute

	var slots []SlotRange
	for cursor := start; ; cursor = cursor.Add(duration) {
		slotEnd := cursor.Add(duration)
		if slotEnd.After(end) {
			break
		}
		slots = append(slots, SlotRange{Start: cursor, End: slotEnd})
	}
	return slots
}

func atTimeOfDay(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q, expected HH:MM", clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
