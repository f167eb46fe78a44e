// Package display renders instants in the configured display zone. It is the
// only place timestamps leave UTC.
package display

import "time"

const (
	TimeLayout      = "03:04 PM"
	DateLayout      = "02 Jan 2006"
	FormValueLayout = "2006-01-02T15:04"
	DayLayout       = "2006-01-02"
)

// Formatter formats instants in one location.
type Formatter struct {
	loc *time.Location
}

// NewFormatter returns a Formatter for loc; nil means UTC.
func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{loc: loc}
}

func (f Formatter) Location() *time.Location { return f.loc }

func (f Formatter) Local(t time.Time) time.Time { return t.In(f.loc) }

func (f Formatter) Time(t time.Time) string { return t.In(f.loc).Format(TimeLayout) }

func (f Formatter) Date(t time.Time) string { return t.In(f.loc).Format(DateLayout) }

func (f Formatter) FormValue(t time.Time) string { return t.In(f.loc).Format(FormValueLayout) }

func (f Formatter) Day(t time.Time) string { return t.In(f.loc).Format(DayLayout) }

// OptionalTime, OptionalDate and OptionalFormValue render nil as "".
func (f Formatter) OptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.Time(*t)
}

func (f Formatter) OptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.Date(*t)
}

func (f Formatter) OptionalFormValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.FormValue(*t)
}
