// Package events defines the payloads emitted through the transactional outbox.
package events

import "time"

// ActivityLogged is emitted whenever an activity is created, updated, or
// deleted.
type ActivityLogged struct {
	ActivityID      string    `json:"activity_id"`
	UserID          string    `json:"user_id"`
	Date            string    `json:"date"`
	Title           string    `json:"title"`
	Category        string    `json:"category,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Action          string    `json:"action"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Actions carried by ActivityLogged.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// DayTotalChanged tracks movements of a day's cached total for downstream
// consumers (audit log, optimistic UI refresh).
type DayTotalChanged struct {
	DayID            string    `json:"day_id"`
	UserID           string    `json:"user_id"`
	Date             string    `json:"date"`
	TotalMinutes     int       `json:"total_minutes"`
	RemainingMinutes int       `json:"remaining_minutes"`
	OccurredAt       time.Time `json:"occurred_at"`
}
