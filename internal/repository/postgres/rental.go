package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const rentalColumns = `id, client_rental_id, bike_id, user_id, start_at, end_at, minute_rate_snapshot,
	minutes_client, amount, status, path_sample, created_at, updated_at`

type rentalRepository struct {
	db DBTX
}

func NewRentalRepository(db DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var amount decimal.NullDecimal
	var minutes *int64
	var path []byte
	err := row.Scan(&rt.ID, &rt.ClientRentalID, &rt.BikeID, &rt.UserID, &rt.StartAt, &rt.EndAt,
		&rt.MinuteRateSnapshot, &minutes, &amount, &rt.Status, &path, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		a := amount.Decimal
		rt.Amount = &a
	}
	if minutes != nil {
		m := int(*minutes)
		rt.MinutesClient = &m
	}
	if len(path) > 0 {
		if err := json.Unmarshal(path, &rt.PathSample); err != nil {
			return nil, fmt.Errorf("decode path_sample: %w", err)
		}
	}
	return rt, nil
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	now := time.Now().UTC()
	rt.CreatedAt = now
	rt.UpdatedAt = now

	query := `INSERT INTO rentals (id, client_rental_id, bike_id, user_id, start_at, minute_rate_snapshot, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("INSERT", "rentals", "rentalID", rt.ID, "bikeID", rt.BikeID)
	_, err := r.db.ExecContext(ctx, query, rt.ID, rt.ClientRentalID, rt.BikeID, rt.UserID, rt.StartAt,
		rt.MinuteRateSnapshot, rt.Status, rt.CreatedAt, rt.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "rentalID", rt.ID)
	if isUniqueViolation(err) {
		return domain.Conflict("duplicate_client_rental_id", "a rental with this client id already exists")
	}
	return err
}

func (r *rentalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "rental_not_found", "rental does not exist")
	}
	return rt, nil
}

func (r *rentalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "rental_not_found", "rental does not exist")
	}
	return rt, nil
}

func (r *rentalRepository) GetByClientID(ctx context.Context, userID uuid.UUID, clientRentalID string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE user_id = $1 AND client_rental_id = $2`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, userID, clientRentalID))
	if err != nil {
		return nil, notFoundOr(err, "rental_not_found", "rental does not exist")
	}
	return rt, nil
}

func (r *rentalRepository) GetByClientIDForUpdate(ctx context.Context, userID uuid.UUID, clientRentalID string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE user_id = $1 AND client_rental_id = $2 FOR UPDATE`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, userID, clientRentalID))
	if err != nil {
		return nil, notFoundOr(err, "rental_not_found", "rental does not exist")
	}
	return rt, nil
}

// Close persists the end-of-ride fields. Only open rentals are updated.
func (r *rentalRepository) Close(ctx context.Context, rt *domain.Rental) error {
	var path []byte
	if rt.PathSample != nil {
		var err error
		if path, err = json.Marshal(rt.PathSample); err != nil {
			return fmt.Errorf("encode path_sample: %w", err)
		}
	}
	rt.UpdatedAt = time.Now().UTC()

	query := `UPDATE rentals SET end_at=$1, minutes_client=$2, amount=$3, status=$4, path_sample=$5, updated_at=$6
	          WHERE id=$7 AND status='open'`
	logger.DatabaseCall("UPDATE", "rentals", "rentalID", rt.ID)
	res, err := r.db.ExecContext(ctx, query, rt.EndAt, rt.MinutesClient, rt.Amount, rt.Status, path, rt.UpdatedAt, rt.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "rentalID", rt.ID)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil, "rentalID", rt.ID)
	if n == 0 {
		return domain.Conflict("rental_already_ended", "rental is not open")
	}
	return nil
}

func (r *rentalRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Rental, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rentals WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE user_id = $1 ORDER BY start_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	rentals := []domain.Rental{}
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, 0, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, count, rows.Err()
}

func (r *rentalRepository) ListOpenStartedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE status = 'open' AND start_at < $1 AND reminded_at IS NULL
	          ORDER BY start_at LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

func (r *rentalRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE rentals SET reminded_at=$1 WHERE id=$2`, at, id)
	return err
}
