package shift

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"oee-tracker/internal/storage"
)

// TimeOfDay is an offset from local midnight.
type TimeOfDay time.Duration

const endOfDay = TimeOfDay(24 * time.Hour)

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS". "24:00" is accepted as the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	const op = "shift.ParseTimeOfDay"

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%s: invalid time of day %q", op, s)
	}

	if isEndOfDay(parts) {
		return endOfDay, nil
	}

	limits := []int{23, 59, 59}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("%s: invalid time of day %q", op, s)
		}
		total += time.Duration(v) * units[i]
	}

	return TimeOfDay(total), nil
}

func isEndOfDay(parts []string) bool {
	if parts[0] != "24" {
		return false
	}
	for _, p := range parts[1:] {
		if v, err := strconv.Atoi(p); err != nil || v != 0 {
			return false
		}
	}
	return true
}

// on returns the wall-clock time tod on the calendar day of date, so DST days keep their
// configured local times.
func (tod TimeOfDay) on(date time.Time) time.Time {
	d := time.Duration(tod)
	y, m, day := date.Date()
	h := int(d / time.Hour)
	mi := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return time.Date(y, m, day, h, mi, sec, 0, date.Location())
}

func timeOfDay(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(t.Nanosecond()))
}

// Context is the result of resolving an instant against a shift table.
type Context struct {
	Shift          storage.ShiftDefinition `json:"shift"`
	ProductionDate time.Time               `json:"production_date"`
	Overnight      bool                    `json:"overnight"`
	StartsAt       time.Time               `json:"starts_at"`
	EndsAt         time.Time               `json:"ends_at"`
}

// SelectSchedule prefers the machine's own shift table over the plant table.
func SelectSchedule(machineShifts, plantShifts []storage.ShiftDefinition) []storage.ShiftDefinition {
	if len(machineShifts) > 0 {
		return machineShifts
	}
	return plantShifts
}

// ResolveShift returns the first shift in list order containing instant.
// Overlaps and gaps in the table are not validated. Shifts whose times cannot be parsed never match.
func ResolveShift(shifts []storage.ShiftDefinition, instant time.Time) (Context, bool) {
	t := timeOfDay(instant)

	for _, s := range shifts {
		start, err := ParseTimeOfDay(s.StartTime)
		if err != nil {
			continue
		}
		end, err := ParseTimeOfDay(s.EndTime)
		if err != nil || start == endOfDay {
			continue
		}

		overnight := start >= end
		var matched bool
		if overnight {
			matched = t >= start || t < end
		} else {
			matched = t >= start && t < end
		}
		if !matched {
			continue
		}

		date := dayStart(instant)
		if overnight && t < end {
			// early-morning tail of a shift that began the previous day
			date = date.AddDate(0, 0, -1)
		}

		startsAt := start.on(date)
		endsAt := end.on(date)
		if overnight {
			endsAt = end.on(date.AddDate(0, 0, 1))
		}

		return Context{
			Shift:          s,
			ProductionDate: date,
			Overnight:      overnight,
			StartsAt:       startsAt,
			EndsAt:         endsAt,
		}, true
	}

	return Context{}, false
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
