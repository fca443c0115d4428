// Package recurrence translates chore frequency rules into concrete weekday
// sets and answers whether a schedule is due on a given date.
package recurrence

import (
	"time"

	"github.com/oakhollow/hearth/internal/model"
)

// DateLayout is the wire format for chore instance dates.
const DateLayout = "2006-01-02"

var (
	everyDay = []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
	weekdays = []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}
)

// DaysFor resolves the weekday set a template runs on. An explicit day set on
// the template wins; otherwise the frequency decides:
//
//	daily, asNeeded -> every day
//	weekdays        -> Monday through Friday
//	weekly          -> Monday
func DaysFor(freq model.Frequency, explicit []time.Weekday) []time.Weekday {
	if len(explicit) > 0 {
		out := make([]time.Weekday, len(explicit))
		copy(out, explicit)
		return out
	}

	switch freq {
	case model.FreqWeekdays:
		out := make([]time.Weekday, len(weekdays))
		copy(out, weekdays)
		return out
	case model.FreqWeekly:
		return []time.Weekday{time.Monday}
	default:
		out := make([]time.Weekday, len(everyDay))
		copy(out, everyDay)
		return out
	}
}

// DueOn reports whether a schedule with the given day set runs on date.
func DueOn(days []time.Weekday, date time.Time) bool {
	wd := date.Weekday()
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// FormatDate renders a time as a chore instance date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a chore instance date in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
