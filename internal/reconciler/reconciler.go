// Package reconciler repairs denormalised day totals that drifted from the
// sum of their activities.
package reconciler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daytrack",
		Subsystem: "reconciler",
		Name:      "days_checked_total",
		Help:      "Number of day rows examined for total drift.",
	})

	repairedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daytrack",
		Subsystem: "reconciler",
		Name:      "days_repaired_total",
		Help:      "Number of day rows whose cached total was corrected.",
	})

	driftGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daytrack",
		Subsystem: "reconciler",
		Name:      "last_pass_drifted_days",
		Help:      "Drifted day rows found in the most recent reconciliation pass.",
	})

	passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "daytrack",
		Subsystem: "reconciler",
		Name:      "pass_duration_seconds",
		Help:      "Time spent scanning and repairing a reconciliation batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(checkedCounter, repairedCounter, driftGauge, passDuration)
}

// Reconciler recomputes day totals from activity rows in batches.
type Reconciler struct {
	pool         *pgxpool.Pool
	pollInterval time.Duration
	batchSize    int
}

// New constructs a Reconciler.
func New(pool *pgxpool.Pool, pollInterval time.Duration, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{pool: pool, pollInterval: pollInterval, batchSize: batchSize}
}

// Run executes reconciliation passes until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reconciler error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce scans a batch of recently updated days and repairs any whose cached
// total disagrees with the sum of their activities. It returns the number of
// rows repaired.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		passDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const query = `SELECT d.day_id, d.total_minutes,
            COALESCE((SELECT SUM(a.duration_minutes) FROM activities a WHERE a.day_id = d.day_id), 0)
        FROM days d
        ORDER BY d.updated_at DESC
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, r.batchSize)
	if err != nil {
		return 0, err
	}

	type drifted struct {
		dayID  string
		actual int
	}

	checked := 0
	toRepair := make([]drifted, 0)
	for rows.Next() {
		var dayID string
		var cached, actual int
		if scanErr := rows.Scan(&dayID, &cached, &actual); scanErr != nil {
			rows.Close()
			return 0, scanErr
		}
		checked++
		if cached != actual {
			toRepair = append(toRepair, drifted{dayID: dayID, actual: actual})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	rows.Close()

	for _, day := range toRepair {
		if _, err := tx.Exec(ctx,
			`UPDATE days SET total_minutes = $1, updated_at = NOW() WHERE day_id = $2`,
			day.actual, day.dayID,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	checkedCounter.Add(float64(checked))
	repairedCounter.Add(float64(len(toRepair)))
	driftGauge.Set(float64(len(toRepair)))

	if len(toRepair) > 0 {
		log.Printf("reconciler: repaired %d of %d day rows", len(toRepair), checked)
	}
	return len(toRepair), nil
}
