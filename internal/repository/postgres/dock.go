package postgres

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

type dockRepository struct {
	db DBTX
}

func NewDockRepository(db DBTX) repository.DockRepository {
	return &dockRepository{db: db}
}

func (r *dockRepository) Create(ctx context.Context, d *domain.Dock) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	query := `INSERT INTO docks (id, name, lat, lng, location, capacity, created_at)
	          VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($4, $3), 4326)::geography, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.Name, d.Lat, d.Lng, d.Capacity, d.CreatedAt)
	return err
}

func (r *dockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dock, error) {
	d := &domain.Dock{}
	query := `SELECT id, name, lat, lng, capacity, created_at FROM docks WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.Lat, &d.Lng, &d.Capacity, &d.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "dock_not_found", "dock does not exist")
	}
	return d, nil
}

func (r *dockRepository) List(ctx context.Context, page, pageSize int32) ([]domain.Dock, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM docks`).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, lat, lng, capacity, created_at FROM docks ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docks := []domain.Dock{}
	for rows.Next() {
		var d domain.Dock
		if err := rows.Scan(&d.ID, &d.Name, &d.Lat, &d.Lng, &d.Capacity, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		docks = append(docks, d)
	}
	return docks, count, rows.Err()
}

// Nearby leaves distance math to PostGIS.
func (r *dockRepository) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int32) ([]domain.NearbyDock, error) {
	query := `SELECT d.id, d.name, d.lat, d.lng, d.capacity, d.created_at,
	                 ST_Distance(d.location, p.pt) / 1000.0 AS distance_km,
	                 (SELECT count(*) FROM bikes b WHERE b.dock_id = d.id AND b.status = 'available') AS available_bikes
	          FROM docks d, (SELECT ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography AS pt) p
	          WHERE ST_DWithin(d.location, p.pt, $3 * 1000.0)
	          ORDER BY distance_km
	          LIMIT $4`
	rows, err := r.db.QueryContext(ctx, query, lat, lng, radiusKm, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docks := []domain.NearbyDock{}
	for rows.Next() {
		var d domain.NearbyDock
		if err := rows.Scan(&d.ID, &d.Name, &d.Lat, &d.Lng, &d.Capacity, &d.CreatedAt, &d.DistanceKm, &d.AvailableBikes); err != nil {
			return nil, err
		}
		docks = append(docks, d)
	}
	return docks, rows.Err()
}

func (r *dockRepository) Update(ctx context.Context, d *domain.Dock) error {
	query := `UPDATE docks SET name=$1, lat=$2, lng=$3, location=ST_SetSRID(ST_MakePoint($3, $2), 4326)::geography, capacity=$4
	          WHERE id=$5`
	logger.DatabaseCall("UPDATE", "docks", "dockID", d.ID)
	res, err := r.db.ExecContext(ctx, query, d.Name, d.Lat, d.Lng, d.Capacity, d.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "dockID", d.ID)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil, "dockID", d.ID)
	if n == 0 {
		return domain.NotFound("dock_not_found", "dock does not exist")
	}
	return nil
}

func (r *dockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	logger.DatabaseCall("DELETE", "docks", "dockID", id)
	res, err := r.db.ExecContext(ctx, `DELETE FROM docks WHERE id = $1`, id)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err, "dockID", id)
		if isForeignKeyViolation(err) {
			return domain.Conflict("dock_not_empty", "bikes are still assigned to this dock")
		}
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("DELETE", n, nil, "dockID", id)
	if n == 0 {
		return domain.NotFound("dock_not_found", "dock does not exist")
	}
	return nil
}
