//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/daytrack/internal/dates"
	"example.com/daytrack/internal/domain"
)

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()

	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	userID := uuid.NewString()
	date, err := dates.Parse("2025-03-10")
	require.NoError(t, err)

	created, total, err := repo.InsertActivity(ctx, userID, date, newActivity("Morning run", "Exercise", 30))
	require.NoError(t, err)
	require.Equal(t, 30, total)
	require.NotEmpty(t, created.DayID)

	day, err := repo.FindDay(ctx, userID, date)
	require.NoError(t, err)
	require.NotNil(t, day)
	require.Equal(t, 30, day.TotalMinutes)

	newDuration := 45
	updated, total, err := repo.UpdateActivity(ctx, userID, created.ID, domain.ActivityPatch{DurationMinutes: &newDuration})
	require.NoError(t, err)
	require.Equal(t, 45, total)
	require.Equal(t, 45, updated.DurationMinutes)

	activities, err := repo.ListActivities(ctx, userID, created.DayID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, created.ID, activities[0].ID)

	total, err = repo.DeleteActivity(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, 0, total)

	_, err = repo.DeleteActivity(ctx, userID, created.ID)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestRepositoryEnforcesDailyCap(t *testing.T) {
	ctx := context.Background()

	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	userID := uuid.NewString()
	date, err := dates.Parse("2025-03-11")
	require.NoError(t, err)

	_, total, err := repo.InsertActivity(ctx, userID, date, newActivity("Deep work", "Work", 1400))
	require.NoError(t, err)
	require.Equal(t, 1400, total)

	_, _, err = repo.InsertActivity(ctx, userID, date, newActivity("Late reading", "Study", 41))
	require.ErrorIs(t, err, domain.ErrDailyCapExceeded)

	day, err := repo.FindDay(ctx, userID, date)
	require.NoError(t, err)
	require.Equal(t, 1400, day.TotalMinutes)

	// Rejected first activity must not leave an empty day behind.
	otherDate, err := dates.Parse("2025-03-12")
	require.NoError(t, err)
	_, _, err = repo.InsertActivity(ctx, userID, otherDate, newActivity("Marathon", "Exercise", 1441))
	require.Error(t, err)

	missing, err := repo.FindDay(ctx, userID, otherDate)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepositoryScopesActivitiesToOwner(t *testing.T) {
	ctx := context.Background()

	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	owner := uuid.NewString()
	intruder := uuid.NewString()
	date, err := dates.Parse("2025-03-13")
	require.NoError(t, err)

	created, _, err := repo.InsertActivity(ctx, owner, date, newActivity("Standup", "Work", 15))
	require.NoError(t, err)

	_, _, err = repo.UpdateActivity(ctx, intruder, created.ID, domain.ActivityPatch{})
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	_, err = repo.DeleteActivity(ctx, intruder, created.ID)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	foreign, err := repo.FindDay(ctx, intruder, date)
	require.NoError(t, err)
	require.Nil(t, foreign)
}

func newActivity(title, category string, minutes int) domain.Activity {
	now := time.Now().UTC()
	return domain.Activity{
		ID:              uuid.NewString(),
		Title:           title,
		Category:        category,
		DurationMinutes: minutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("daytrack"),
		postgrescontainer.WithUsername("daytrack"),
		postgrescontainer.WithPassword("daytrack"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
		"../../../db/postgres/migrations/0002_outbox.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
