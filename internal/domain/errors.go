package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDailyCapExceeded is returned when a mutation would push a day's total
	// past MaxDayMinutes. The store rejects the whole transaction, so existing
	// activities and totals are left untouched.
	ErrDailyCapExceeded = errors.New("daily limit of 1440 minutes exceeded")
	// ErrActivityNotFound is returned when an activity cannot be located for
	// the requesting user.
	ErrActivityNotFound = errors.New("activity not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
