// Package dates normalizes the date shapes accepted by the event API into a
// single start/end pair. The recognized set is closed: RFC 3339 strings,
// date-only strings, unix second/millisecond wrappers, and native times.
// Anything else is a parse error, never a silent default.
package dates

import (
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
)

// DefaultDuration is applied when the end is absent.
const DefaultDuration = time.Hour

// Input is one date-like value from the wire. At most one of the fields is
// set; which one decides the variant.
type Input struct {
	// RFC3339 or YYYY-MM-DD string.
	Text string `json:"text,omitempty"`
	// Legacy timestamp wrapper: seconds plus optional nanos.
	Seconds int64 `json:"seconds,omitempty"`
	Nanos   int64 `json:"nanos,omitempty"`
	// Unix milliseconds, the other legacy shape.
	Millis int64 `json:"millis,omitempty"`
	// Already-parsed time, used by in-process callers.
	Time *time.Time `json:"-"`
}

// IsZero reports whether no variant is set.
func (in Input) IsZero() bool {
	return in.Text == "" && in.Seconds == 0 && in.Millis == 0 && in.Time == nil
}

// Span is a normalized start/end pair with its IANA timezone label.
type Span struct {
	Start    time.Time
	End      time.Time
	Timezone string
}

// Parse resolves one Input to an instant in the given location.
func Parse(in Input, loc *time.Location) (time.Time, error) {
	switch {
	case in.Time != nil:
		return in.Time.In(loc), nil
	case in.Seconds != 0:
		return time.Unix(in.Seconds, in.Nanos).In(loc), nil
	case in.Millis != 0:
		return time.UnixMilli(in.Millis).In(loc), nil
	case in.Text != "":
		if t, err := time.Parse(time.RFC3339, in.Text); err == nil {
			return t.In(loc), nil
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", in.Text, loc); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation("2006-01-02", in.Text, loc); err == nil {
			return t, nil
		}
		return time.Time{}, apperr.Validation("date", "unrecognized date format: "+in.Text)
	}
	return time.Time{}, apperr.Validation("date", "no date value supplied")
}

// Normalize resolves a start and optional end into a Span. A missing end
// defaults to start plus one hour. An unknown timezone label is a validation
// error. A start after the supplied end is stored as given; callers that care
// about ordering check it themselves.
func Normalize(start, end Input, timezone string) (Span, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Span{}, apperr.Validation("timezone", "unknown timezone: "+timezone)
	}

	if start.IsZero() {
		return Span{}, apperr.Validation("start", "start time is required")
	}
	s, err := Parse(start, loc)
	if err != nil {
		return Span{}, err
	}

	e := s.Add(DefaultDuration)
	if !end.IsZero() {
		e, err = Parse(end, loc)
		if err != nil {
			return Span{}, err
		}
	}

	return Span{Start: s, End: e, Timezone: timezone}, nil
}
