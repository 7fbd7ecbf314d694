// Package analytics derives read-only daily statistics from the activity set
// of one user-day: category breakdown, percentages, and a heuristic
// productivity score.
package analytics

import (
	"context"
	"math"
	"strings"

	"example.com/daytrack/internal/dates"
	"example.com/daytrack/internal/domain"
)

// UncategorizedLabel buckets activities whose category is empty.
const UncategorizedLabel = "Uncategorized"

// Category labels the productivity score is sensitive to. Categories are
// free-form text; only these four influence the score.
const (
	categoryWork     = "Work"
	categoryStudy    = "Study"
	categoryExercise = "Exercise"
	categoryLeisure  = "Leisure"
)

// DayReader is the read-only slice of the repository the aggregator needs.
type DayReader interface {
	FindDay(ctx context.Context, userID string, date dates.Date) (*domain.Day, error)
	ListActivities(ctx context.Context, userID, dayID string) ([]domain.Activity, error)
}

// Aggregator computes daily analytics.
type Aggregator struct {
	reader DayReader
}

// NewAggregator constructs an Aggregator.
func NewAggregator(reader DayReader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Report is the analytics shape for one user-day.
type Report struct {
	TotalMinutes        int          `json:"totalMinutes"`
	TotalHours          float64      `json:"totalHours"`
	RemainingMinutes    int          `json:"remainingMinutes"`
	ActivityCount       int          `json:"activityCount"`
	CategoryBreakdown   *Breakdown   `json:"categoryBreakdown"`
	CategoryPercentages *Percentages `json:"categoryPercentages"`
	ProductivityScore   int          `json:"productivityScore"`
}

// GetDailyAnalytics builds the report for (userID, date). A missing day yields
// the fixed zero-valued shape, not an error.
func (a *Aggregator) GetDailyAnalytics(ctx context.Context, userID string, date dates.Date) (*Report, error) {
	day, err := a.reader.FindDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return emptyReport(), nil
	}

	activities, err := a.reader.ListActivities(ctx, userID, day.ID)
	if err != nil {
		return nil, err
	}

	breakdown := NewBreakdown()
	for _, activity := range activities {
		category := strings.TrimSpace(activity.Category)
		if category == "" {
			category = UncategorizedLabel
		}
		breakdown.Add(category, activity.DurationMinutes)
	}

	return &Report{
		TotalMinutes:        day.TotalMinutes,
		TotalHours:          round2(float64(day.TotalMinutes) / 60),
		RemainingMinutes:    day.RemainingMinutes(),
		ActivityCount:       len(activities),
		CategoryBreakdown:   breakdown,
		CategoryPercentages: percentagesOf(breakdown, day.TotalMinutes),
		ProductivityScore:   productivityScore(breakdown),
	}, nil
}

func emptyReport() *Report {
	return &Report{
		RemainingMinutes:    domain.MaxDayMinutes,
		CategoryBreakdown:   NewBreakdown(),
		CategoryPercentages: &Percentages{shares: make(map[string]float64)},
	}
}

// percentagesOf divides by the day's cached total rather than re-summing the
// breakdown: the cached value is the authoritative one.
func percentagesOf(breakdown *Breakdown, totalMinutes int) *Percentages {
	p := &Percentages{shares: make(map[string]float64, breakdown.Len())}
	if totalMinutes <= 0 {
		return p
	}
	for _, category := range breakdown.keys {
		p.keys = append(p.keys, category)
		p.shares[category] = round2(float64(breakdown.minutes[category]) / float64(totalMinutes) * 100)
	}
	return p
}

// productivityScore maps the category split onto a 0-100 heuristic:
// base 50, plus up to 30 for Work/Study time, plus up to 10 for Exercise,
// minus up to 20 for Leisure.
func productivityScore(breakdown *Breakdown) int {
	work := float64(breakdown.Minutes(categoryWork) + breakdown.Minutes(categoryStudy))
	exercise := float64(breakdown.Minutes(categoryExercise))
	leisure := float64(breakdown.Minutes(categoryLeisure))

	score := 50.0
	score += math.Min(work/30, 30)
	score += math.Min(exercise/15, 10)
	score -= math.Min(leisure/30, 20)

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
