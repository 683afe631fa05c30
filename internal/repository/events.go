package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/badixth/chip-in-backend/internal/reconcile"
)

const (
	reserveEventSQL = `INSERT INTO processed_events (event_id, status)
		VALUES ($1, 'pending')
		ON CONFLICT (event_id) DO NOTHING`

	getEventStatusSQL = `SELECT status FROM processed_events WHERE event_id = $1`

	// A pending claim older than the takeover window belongs to a crashed
	// worker and may be re-claimed.
	takeOverEventSQL = `UPDATE processed_events
		SET reserved_at = now()
		WHERE event_id = $1
		  AND status = 'pending'
		  AND reserved_at < now() - interval '5 minutes'`

	completeEventSQL = `UPDATE processed_events
		SET status = 'completed', completed_at = now()
		WHERE event_id = $1`

	releaseEventSQL = `DELETE FROM processed_events
		WHERE event_id = $1 AND status = 'pending'`
)

var _ reconcile.Store = (*EventRepository)(nil)

// EventRepository implements reconcile.Store backed by PostgreSQL, making
// webhook dedup survive restarts and hold across replicas.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository returns an EventRepository that uses the given pool.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Reserve claims the event key. A key already completed reports as such; a
// fresh pending claim held by another worker reports pending unless it is
// stale, in which case this caller takes it over.
func (r *EventRepository) Reserve(ctx context.Context, key string) (reconcile.ReserveState, error) {
	tag, err := r.pool.Exec(ctx, reserveEventSQL, key)
	if err != nil {
		return 0, fmt.Errorf("reserving event %q: %w", key, err)
	}
	if tag.RowsAffected() == 1 {
		return reconcile.ReserveNew, nil
	}

	var status string
	if err := r.pool.QueryRow(ctx, getEventStatusSQL, key).Scan(&status); err != nil {
		return 0, fmt.Errorf("reading event %q status: %w", key, err)
	}
	if status == "completed" {
		return reconcile.ReserveCompleted, nil
	}

	tag, err = r.pool.Exec(ctx, takeOverEventSQL, key)
	if err != nil {
		return 0, fmt.Errorf("taking over event %q: %w", key, err)
	}
	if tag.RowsAffected() == 1 {
		return reconcile.ReserveNew, nil
	}
	return reconcile.ReservePending, nil
}

// Complete marks the event as processed.
func (r *EventRepository) Complete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, completeEventSQL, key); err != nil {
		return fmt.Errorf("completing event %q: %w", key, err)
	}
	return nil
}

// Release frees a pending claim after a failed attempt. Completed events are
// never released.
func (r *EventRepository) Release(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, releaseEventSQL, key); err != nil {
		return fmt.Errorf("releasing event %q: %w", key, err)
	}
	return nil
}
