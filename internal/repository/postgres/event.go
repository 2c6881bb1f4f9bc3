package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

type eventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	props := e.Properties
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encode event properties: %w", err)
	}
	query := `INSERT INTO events (id, user_id, bike_id, dock_id, event_type, properties, occurred_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (id) DO NOTHING`
	_, err = r.db.ExecContext(ctx, query, e.ID, e.UserID, e.BikeID, e.DockID, e.Type, raw, e.OccurredAt)
	return err
}

func (r *eventRepository) CountDistinctUsers(ctx context.Context, eventType domain.EventType, from, to time.Time) (int64, error) {
	var n int64
	query := `SELECT count(DISTINCT user_id) FROM events WHERE event_type = $1 AND occurred_at >= $2 AND occurred_at < $3`
	err := r.db.QueryRowContext(ctx, query, eventType, from, to).Scan(&n)
	return n, err
}

// CountByDock groups events of one type by the dock they were recorded at.
func (r *eventRepository) CountByDock(ctx context.Context, eventType domain.EventType, from, to time.Time) ([]domain.DockTrips, error) {
	query := `SELECT e.dock_id, COALESCE(d.name, ''), count(*) AS trips
	          FROM events e
	          LEFT JOIN docks d ON d.id = e.dock_id
	          WHERE e.event_type = $1 AND e.dock_id IS NOT NULL AND e.occurred_at >= $2 AND e.occurred_at < $3
	          GROUP BY e.dock_id, d.name
	          ORDER BY trips DESC, e.dock_id`
	rows, err := r.db.QueryContext(ctx, query, eventType, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DockTrips{}
	for rows.Next() {
		var t domain.DockTrips
		if err := rows.Scan(&t.DockID, &t.DockName, &t.Trips); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
