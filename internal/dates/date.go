// Package dates provides the canonical YYYY-MM-DD calendar-date type used
// throughout the service. A Date carries no time zone and no clock component.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the canonical wire and storage format for calendar dates.
const Layout = "2006-01-02"

// ErrInvalidDate is returned when a string cannot be parsed as YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Date is a calendar date with day precision.
type Date struct {
	year  int
	month time.Month
	day   int
}

// Parse converts a YYYY-MM-DD string into a Date.
func Parse(value string) (Date, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return FromTime(t), nil
}

// FromTime truncates a time.Time to its UTC calendar date.
func FromTime(t time.Time) Date {
	t = t.UTC()
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Today returns the current UTC calendar date.
func Today() Date {
	return FromTime(time.Now())
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// String renders the date in canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.Time().Format(Layout)
}

// Compare returns -1, 0, or 1 depending on whether d is before, equal to,
// or after other.
func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
