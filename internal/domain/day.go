package domain

import (
	"time"

	"example.com/daytrack/internal/dates"
)

// MaxDayMinutes is the daily capacity cap: one calendar day holds 1440 minutes.
const MaxDayMinutes = 1440

// Day aggregates all activities a user logged on one calendar date. TotalMinutes
// is a denormalized cache of the sum of the linked activities' durations and is
// written only by the repository, in the same transaction as the activity change.
type Day struct {
	ID           string
	UserID       string
	Date         dates.Date
	TotalMinutes int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RemainingMinutes reports the unallocated capacity for the day.
func (d Day) RemainingMinutes() int {
	return MaxDayMinutes - d.TotalMinutes
}

// Activity is a single logged time entry belonging to exactly one Day.
type Activity struct {
	ID              string
	DayID           string
	Title           string
	Category        string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
