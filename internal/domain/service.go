// Package domain owns the daily-total business invariant: after every
// successful mutation a day's cached total_minutes equals the sum of its
// activities' durations and never exceeds MaxDayMinutes.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/daytrack/internal/dates"
)

// Repository captures persistence operations. Implementations must apply each
// mutation and the matching day-total adjustment atomically, enforcing the
// MaxDayMinutes cap inside the store, and must scope every lookup to the
// owning user.
type Repository interface {
	InsertActivity(ctx context.Context, userID string, date dates.Date, activity Activity) (*Activity, int, error)
	FindDay(ctx context.Context, userID string, date dates.Date) (*Day, error)
	ListActivities(ctx context.Context, userID, dayID string) ([]Activity, error)
	UpdateActivity(ctx context.Context, userID, activityID string, patch ActivityPatch) (*Activity, int, error)
	DeleteActivity(ctx context.Context, userID, activityID string) (int, error)
}

// Service orchestrates day/activity workflows.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddActivityInput captures the payload from the API layer.
type AddActivityInput struct {
	Title           string
	Category        string
	DurationMinutes int
}

// ActivityPatch describes a partial update. Nil fields retain their prior
// value.
type ActivityPatch struct {
	Title           *string
	Category        *string
	DurationMinutes *int
}

// ActivityResult reports the affected activity together with the day totals
// after the mutation.
type ActivityResult struct {
	Activity         *Activity
	TotalMinutes     int
	RemainingMinutes int
}

// DayData is the read model for one user-day.
type DayData struct {
	Day              *Day
	Activities       []Activity
	TotalMinutes     int
	RemainingMinutes int
}

// AddActivity records a new activity for (userID, date), creating the day
// lazily. The day creation rolls back together with the activity when the cap
// rejects the insert.
func (s *Service) AddActivity(ctx context.Context, userID string, date dates.Date, input AddActivityInput) (*ActivityResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidField("user", "is required")
	}
	if date.IsZero() {
		return nil, invalidField("date", "is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, invalidField("title", "is required")
	}
	if input.DurationMinutes <= 0 {
		return nil, invalidField("duration_minutes", "must be greater than 0")
	}
	if input.DurationMinutes > MaxDayMinutes {
		return nil, ErrDailyCapExceeded
	}

	now := time.Now().UTC()
	activity := Activity{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(input.Title),
		Category:        strings.TrimSpace(input.Category),
		DurationMinutes: input.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, total, err := s.repo.InsertActivity(ctx, userID, date, activity)
	if err != nil {
		return nil, err
	}

	return &ActivityResult{
		Activity:         stored,
		TotalMinutes:     total,
		RemainingMinutes: MaxDayMinutes - total,
	}, nil
}

// GetDayData returns the day, its activities ordered by creation time, and the
// cached totals. A missing day is a valid empty state, not an error.
func (s *Service) GetDayData(ctx context.Context, userID string, date dates.Date) (*DayData, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidField("user", "is required")
	}
	if date.IsZero() {
		return nil, invalidField("date", "is required")
	}

	day, err := s.repo.FindDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return &DayData{
			Activities:       []Activity{},
			RemainingMinutes: MaxDayMinutes,
		}, nil
	}

	activities, err := s.repo.ListActivities(ctx, userID, day.ID)
	if err != nil {
		return nil, err
	}

	return &DayData{
		Day:              day,
		Activities:       activities,
		TotalMinutes:     day.TotalMinutes,
		RemainingMinutes: day.RemainingMinutes(),
	}, nil
}

// UpdateActivity applies a partial update, re-validating the daily cap against
// the duration delta.
func (s *Service) UpdateActivity(ctx context.Context, userID, activityID string, patch ActivityPatch) (*ActivityResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidField("user", "is required")
	}
	if strings.TrimSpace(activityID) == "" {
		return nil, invalidField("activity id", "is required")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, invalidField("title", "must not be empty")
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes <= 0 {
		return nil, invalidField("duration_minutes", "must be greater than 0")
	}

	updated, total, err := s.repo.UpdateActivity(ctx, userID, activityID, patch)
	if err != nil {
		return nil, err
	}

	return &ActivityResult{
		Activity:         updated,
		TotalMinutes:     total,
		RemainingMinutes: MaxDayMinutes - total,
	}, nil
}

// DeleteActivity removes an activity and releases its minutes back to the day.
func (s *Service) DeleteActivity(ctx context.Context, userID, activityID string) (*ActivityResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidField("user", "is required")
	}
	if strings.TrimSpace(activityID) == "" {
		return nil, invalidField("activity id", "is required")
	}

	total, err := s.repo.DeleteActivity(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}

	return &ActivityResult{
		TotalMinutes:     total,
		RemainingMinutes: MaxDayMinutes - total,
	}, nil
}
