package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const bikeColumns = `id, owner_id, type, condition, hourly_rate, dock_id, status, photos, rented_at, returned_at, created_at, updated_at`

type bikeRepository struct {
	db DBTX
}

func NewBikeRepository(db DBTX) repository.BikeRepository {
	return &bikeRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBike(row rowScanner) (*domain.Bike, error) {
	b := &domain.Bike{}
	var ownerID, dockID uuid.NullUUID
	err := row.Scan(&b.ID, &ownerID, &b.Type, &b.Condition, &b.HourlyRate, &dockID, &b.Status,
		pq.Array(&b.Photos), &b.RentedAt, &b.ReturnedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.OwnerID = uuidPtr(ownerID)
	b.DockID = uuidPtr(dockID)
	if b.Photos == nil {
		b.Photos = []string{}
	}
	return b, nil
}

func (r *bikeRepository) Create(ctx context.Context, b *domain.Bike) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Photos == nil {
		b.Photos = []string{}
	}
	query := `INSERT INTO bikes (id, owner_id, type, condition, hourly_rate, dock_id, status, photos, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	logger.DatabaseCall("INSERT", "bikes", "bikeID", b.ID)
	_, err := r.db.ExecContext(ctx, query, b.ID, b.OwnerID, b.Type, b.Condition, b.HourlyRate, b.DockID, b.Status,
		pq.Array(b.Photos), b.CreatedAt, b.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "bikeID", b.ID)
	return err
}

func (r *bikeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bike, error) {
	query := `SELECT ` + bikeColumns + ` FROM bikes WHERE id = $1`
	b, err := scanBike(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "bike_not_found", "bike does not exist")
	}
	return b, nil
}

func (r *bikeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bike, error) {
	query := `SELECT ` + bikeColumns + ` FROM bikes WHERE id = $1 FOR UPDATE`
	b, err := scanBike(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "bike_not_found", "bike does not exist")
	}
	return b, nil
}

func (r *bikeRepository) Update(ctx context.Context, b *domain.Bike) error {
	b.UpdatedAt = time.Now().UTC()
	query := `UPDATE bikes SET type=$1, condition=$2, hourly_rate=$3, dock_id=$4, status=$5, updated_at=$6 WHERE id=$7`
	_, err := r.db.ExecContext(ctx, query, b.Type, b.Condition, b.HourlyRate, b.DockID, b.Status, b.UpdatedAt, b.ID)
	return err
}

func (r *bikeRepository) MarkRented(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE bikes SET status='rented', rented_at=$1, updated_at=now() WHERE id=$2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

func (r *bikeRepository) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE bikes SET status='available', returned_at=$1, updated_at=now() WHERE id=$2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

func (r *bikeRepository) AddPhoto(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE bikes SET photos = array_append(photos, $1), updated_at=now() WHERE id=$2`
	res, err := r.db.ExecContext(ctx, query, url, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("bike_not_found", "bike does not exist")
	}
	return nil
}

func (r *bikeRepository) List(ctx context.Context, f domain.BikeFilter, page, pageSize int32) ([]domain.Bike, int32, error) {
	where := ` FROM bikes WHERE 1=1`
	var args []any
	if f.DockID != nil {
		args = append(args, *f.DockID)
		where += fmt.Sprintf(" AND dock_id = $%d", len(args))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, "SELECT count(*)"+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + bikeColumns + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bikes := []domain.Bike{}
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, 0, err
		}
		bikes = append(bikes, *b)
	}
	return bikes, count, rows.Err()
}

func (r *bikeRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bikes WHERE owner_id = $1 AND status <> 'inactive'`, ownerID).Scan(&n)
	return n, err
}

func (r *bikeRepository) RemovePhoto(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE bikes SET photos = array_remove(photos, $1), updated_at=now() WHERE id=$2 AND $1 = ANY(photos)`
	res, err := r.db.ExecContext(ctx, query, url, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("photo_not_found", "bike has no such photo")
	}
	return nil
}

func (r *bikeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	logger.DatabaseCall("DELETE", "bikes", "bikeID", id)
	res, err := r.db.ExecContext(ctx, `DELETE FROM bikes WHERE id = $1`, id)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err, "bikeID", id)
		if isForeignKeyViolation(err) {
			return domain.Conflict("bike_has_rentals", "bike has rental history; set its status to inactive instead")
		}
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("DELETE", n, nil, "bikeID", id)
	if n == 0 {
		return domain.NotFound("bike_not_found", "bike does not exist")
	}
	return nil
}

func (r *bikeRepository) NearbyAvailable(ctx context.Context, lat, lng, radiusKm float64, limit int32) ([]domain.Bike, error) {
	query := `SELECT ` + qualified("b", bikeColumns) + `
	          FROM bikes b
	          JOIN docks d ON d.id = b.dock_id,
	               (SELECT ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography AS pt) p
	          WHERE b.status = 'available' AND ST_DWithin(d.location, p.pt, $3 * 1000.0)
	          ORDER BY ST_Distance(d.location, p.pt), b.id
	          LIMIT $4`
	return r.queryBikes(ctx, query, lat, lng, radiusKm, limit)
}

func (r *bikeRepository) RandomAvailable(ctx context.Context, limit int32) ([]domain.Bike, error) {
	query := `SELECT ` + bikeColumns + ` FROM bikes WHERE status = 'available' ORDER BY random() LIMIT $1`
	return r.queryBikes(ctx, query, limit)
}

func (r *bikeRepository) queryBikes(ctx context.Context, query string, args ...any) ([]domain.Bike, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bikes := []domain.Bike{}
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, err
		}
		bikes = append(bikes, *b)
	}
	return bikes, rows.Err()
}

// qualified prefixes each column in a comma-separated list with alias.
func qualified(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
