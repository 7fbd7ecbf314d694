// Package postgres provides the pgx-backed repository for days and activities.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/daytrack/internal/dates"
	"example.com/daytrack/internal/domain"
	"example.com/daytrack/internal/events"
	"example.com/daytrack/internal/observability"
)

// Repository provides Postgres-backed persistence for days, activities, and
// outbox events. Every mutation runs in a single transaction: the day upsert,
// the conditional cap check, the activity write, the day-total adjustment, and
// the outbox inserts commit or roll back together.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `a.activity_id, a.day_id, a.title, a.category, a.duration_minutes, a.created_at, a.updated_at`

// InsertActivity creates the day lazily and inserts the activity, enforcing
// the 1440-minute cap inside the store. The conditional UPDATE is the cap
// check: zero rows updated means the insert would overflow the day, and the
// whole transaction (lazily created day included) rolls back.
func (r *Repository) InsertActivity(ctx context.Context, userID string, date dates.Date, activity domain.Activity) (*domain.Activity, int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return nil, 0, err
	}

	now := activity.UpdatedAt
	if _, err = tx.Exec(ctx,
		`INSERT INTO days (day_id, user_id, date, total_minutes, created_at, updated_at)
	         VALUES ($1,$2,$3,0,$4,$4)
	         ON CONFLICT (user_id, date) DO NOTHING`,
		uuid.NewString(), userID, date.Time(), now,
	); err != nil {
		return nil, 0, err
	}

	var dayID string
	var newTotal int
	err = tx.QueryRow(ctx,
		`UPDATE days SET total_minutes = total_minutes + $3, updated_at = $4
	         WHERE user_id = $1 AND date = $2 AND total_minutes + $3 <= $5
	         RETURNING day_id, total_minutes`,
		userID, date.Time(), activity.DurationMinutes, now, domain.MaxDayMinutes,
	).Scan(&dayID, &newTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrDailyCapExceeded
		}
		return nil, 0, err
	}

	activity.DayID = dayID
	if _, err = tx.Exec(ctx,
		`INSERT INTO activities (activity_id, day_id, title, category, duration_minutes, created_at, updated_at)
	         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		activity.ID, activity.DayID, activity.Title, activity.Category, activity.DurationMinutes, activity.CreatedAt, activity.UpdatedAt,
	); err != nil {
		return nil, 0, err
	}

	if err = r.insertMutationEvents(ctx, tx, userID, date, dayID, activity, events.ActionCreated, newTotal, now); err != nil {
		return nil, 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	observability.RecordActivityMutation(events.ActionCreated)
	observability.RecordActivityPersisted(now)
	return &activity, newTotal, nil
}

// FindDay returns the day for (userID, date), or nil when none exists.
func (r *Repository) FindDay(ctx context.Context, userID string, date dates.Date) (*domain.Day, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx,
		`SELECT day_id, user_id, date, total_minutes, created_at, updated_at
	         FROM days WHERE user_id = $1 AND date = $2`,
		userID, date.Time(),
	)

	day, err := scanDay(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return day, nil
}

// ListActivities returns a day's activities ordered by creation time, with a
// stable id tie-break.
func (r *Repository) ListActivities(ctx context.Context, userID, dayID string) ([]domain.Activity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT `+activityColumns+`
	         FROM activities a
	         JOIN days d ON d.day_id = a.day_id
	         WHERE a.day_id = $1 AND d.user_id = $2
	         ORDER BY a.created_at ASC, a.activity_id ASC`,
		dayID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var act domain.Activity
		if err := rows.Scan(&act.ID, &act.DayID, &act.Title, &act.Category, &act.DurationMinutes, &act.CreatedAt, &act.UpdatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, act)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return activities, nil
}

// UpdateActivity applies a partial update and adjusts the owning day's total
// through the same conditional cap check used on insert.
func (r *Repository) UpdateActivity(ctx context.Context, userID, activityID string, patch domain.ActivityPatch) (*domain.Activity, int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return nil, 0, err
	}

	current, date, err := lockActivity(ctx, tx, userID, activityID)
	if err != nil {
		return nil, 0, err
	}

	updated := *current
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.DurationMinutes != nil {
		updated.DurationMinutes = *patch.DurationMinutes
	}
	now := time.Now().UTC()
	updated.UpdatedAt = now
	delta := updated.DurationMinutes - current.DurationMinutes

	var newTotal int
	err = tx.QueryRow(ctx,
		`UPDATE days SET total_minutes = total_minutes + $2, updated_at = $3
	         WHERE day_id = $1 AND total_minutes + $2 BETWEEN 0 AND $4
	         RETURNING total_minutes`,
		current.DayID, delta, now, domain.MaxDayMinutes,
	).Scan(&newTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrDailyCapExceeded
		}
		return nil, 0, err
	}

	if _, err = tx.Exec(ctx,
		`UPDATE activities SET title = $2, category = $3, duration_minutes = $4, updated_at = $5
	         WHERE activity_id = $1`,
		updated.ID, updated.Title, updated.Category, updated.DurationMinutes, now,
	); err != nil {
		return nil, 0, err
	}

	if err = r.insertMutationEvents(ctx, tx, userID, date, current.DayID, updated, events.ActionUpdated, newTotal, now); err != nil {
		return nil, 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	observability.RecordActivityMutation(events.ActionUpdated)
	observability.RecordActivityPersisted(now)
	return &updated, newTotal, nil
}

// DeleteActivity removes the activity and releases its minutes back to the
// day in the same transaction.
func (r *Repository) DeleteActivity(ctx context.Context, userID, activityID string) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return 0, err
	}

	current, date, err := lockActivity(ctx, tx, userID, activityID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	if _, err = tx.Exec(ctx, `DELETE FROM activities WHERE activity_id = $1`, activityID); err != nil {
		return 0, err
	}

	var newTotal int
	err = tx.QueryRow(ctx,
		`UPDATE days SET total_minutes = total_minutes - $2, updated_at = $3
	         WHERE day_id = $1 AND total_minutes - $2 >= 0
	         RETURNING total_minutes`,
		current.DayID, current.DurationMinutes, now,
	).Scan(&newTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("day total underflow for day %s", current.DayID)
		}
		return 0, err
	}

	deleted := *current
	deleted.UpdatedAt = now
	if err = r.insertMutationEvents(ctx, tx, userID, date, current.DayID, deleted, events.ActionDeleted, newTotal, now); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}

	observability.RecordActivityMutation(events.ActionDeleted)
	observability.RecordActivityPersisted(now)
	return newTotal, nil
}

// lockActivity fetches an activity scoped to its owner and locks both the
// activity and the owning day row for the remainder of the transaction.
func lockActivity(ctx context.Context, tx pgx.Tx, userID, activityID string) (*domain.Activity, dates.Date, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+activityColumns+`, d.date
	         FROM activities a
	         JOIN days d ON d.day_id = a.day_id
	         WHERE a.activity_id = $1 AND d.user_id = $2
	         FOR UPDATE`,
		activityID, userID,
	)

	var act domain.Activity
	var date time.Time
	if err := row.Scan(&act.ID, &act.DayID, &act.Title, &act.Category, &act.DurationMinutes, &act.CreatedAt, &act.UpdatedAt, &date); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dates.Date{}, domain.ErrActivityNotFound
		}
		return nil, dates.Date{}, err
	}
	return &act, dates.FromTime(date), nil
}

func scanDay(row pgx.Row) (*domain.Day, error) {
	var day domain.Day
	var date time.Time
	if err := row.Scan(&day.ID, &day.UserID, &date, &day.TotalMinutes, &day.CreatedAt, &day.UpdatedAt); err != nil {
		return nil, err
	}
	day.Date = dates.FromTime(date)
	return &day, nil
}

// insertMutationEvents records the activity.logged and day.total_changed
// outbox rows inside the mutation's transaction.
func (r *Repository) insertMutationEvents(ctx context.Context, tx pgx.Tx, userID string, date dates.Date, dayID string, activity domain.Activity, action string, newTotal int, occurredAt time.Time) error {
	if err := r.insertOutbox(ctx, tx, outboxRecord{
		UserID:        userID,
		AggregateType: "activity",
		AggregateID:   activity.ID,
		EventType:     "activity.logged",
		PartitionKey:  fmt.Sprintf("%s:%s", userID, date),
		OccurredAt:    occurredAt,
	}, events.ActivityLogged{
		ActivityID:      activity.ID,
		UserID:          userID,
		Date:            date.String(),
		Title:           activity.Title,
		Category:        activity.Category,
		DurationMinutes: activity.DurationMinutes,
		Action:          action,
		OccurredAt:      occurredAt,
	}); err != nil {
		return err
	}

	return r.insertOutbox(ctx, tx, outboxRecord{
		UserID:        userID,
		AggregateType: "day",
		AggregateID:   dayID,
		EventType:     "day.total_changed",
		PartitionKey:  fmt.Sprintf("%s:%s", userID, date),
		OccurredAt:    occurredAt,
	}, events.DayTotalChanged{
		DayID:            dayID,
		UserID:           userID,
		Date:             date.String(),
		TotalMinutes:     newTotal,
		RemainingMinutes: domain.MaxDayMinutes - newTotal,
		OccurredAt:       occurredAt,
	})
}

type outboxRecord struct {
	UserID        string
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	OccurredAt    time.Time
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, record outboxRecord, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[record.EventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", record.EventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", record.AggregateID, record.EventType, record.OccurredAt.UnixNano())

	const stmt = `INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
	        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		record.UserID,
		record.AggregateType,
		record.AggregateID,
		record.EventType,
		meta.Topic,
		meta.SchemaSubject,
		record.PartitionKey,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"activity.logged": {
		Topic:         "activity_log_events",
		SchemaSubject: "activity_log_events-value",
	},
	"day.total_changed": {
		Topic:         "day_total_events",
		SchemaSubject: "day_total_events-value",
	},
}
