package leave

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date without a time component
// =============================================================================

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// MinYear is the earliest year ParseDate accepts.
const MinYear = 1900

// Date is a calendar day normalized to UTC midnight.
// The zero value means "not provided".
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate reads a YYYY-MM-DD date. Years before MinYear are refused so a
// parsed date can never collide with the zero value.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	if t.Year() < MinYear {
		return Date{}, fmt.Errorf("invalid date %q: year must be %d or later", s, MinYear)
	}
	return DateOf(t), nil
}

// MustParseDate panics on malformed input. Intended for fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) IsZero() bool    { return d.t.IsZero() }
func (d Date) Time() time.Time { return d.t }

// MonthKey returns the YYYY-MM bucket the date belongs to.
func (d Date) MonthKey() string { return d.t.Format("2006-01") }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DAY COUNTING
// =============================================================================

// DaysBetween returns the number of whole days from `from` to `to`.
// Works on Unix seconds since time.Duration overflows past ~292 years.
func DaysBetween(from, to Date) int {
	return int((to.t.Unix() - from.t.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// InclusiveDays counts calendar days in [start, end], both ends included.
// A single-day leave is 1 day. Returns 0 when end precedes start or either
// date is unset.
func InclusiveDays(start, end Date) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return DaysBetween(start, end) + 1
}
