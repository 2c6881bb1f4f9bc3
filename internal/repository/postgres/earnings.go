package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const earningsColumns = `id, owner_id, rental_id, amount, owner_share, cycle_share, owner_amount, cycle_amount, created_at`

type earningsRepository struct {
	db DBTX
}

func NewEarningsRepository(db DBTX) repository.EarningsRepository {
	return &earningsRepository{db: db}
}

func scanEarnings(row rowScanner) (*domain.OwnerEarnings, error) {
	e := &domain.OwnerEarnings{}
	err := row.Scan(&e.ID, &e.OwnerID, &e.RentalID, &e.Amount, &e.OwnerShare, &e.CycleShare,
		&e.OwnerAmount, &e.CycleAmount, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *earningsRepository) Create(ctx context.Context, e *domain.OwnerEarnings) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()

	query := `INSERT INTO owner_earnings (id, owner_id, rental_id, amount, owner_share, cycle_share, owner_amount, cycle_amount, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (rental_id) DO NOTHING
	          RETURNING id`
	logger.DatabaseCall("INSERT", "owner_earnings", "rentalID", e.RentalID, "ownerID", e.OwnerID)
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query, e.ID, e.OwnerID, e.RentalID, e.Amount, e.OwnerShare, e.CycleShare,
		e.OwnerAmount, e.CycleAmount, e.CreatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("INSERT", 0, nil, "rentalID", e.RentalID)
		return false, nil
	}
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err, "rentalID", e.RentalID)
		return false, err
	}
	logger.DatabaseResult("INSERT", 1, nil, "earningsID", id)
	return true, nil
}

func (r *earningsRepository) GetByRental(ctx context.Context, rentalID uuid.UUID) (*domain.OwnerEarnings, error) {
	query := `SELECT ` + earningsColumns + ` FROM owner_earnings WHERE rental_id = $1`
	e, err := scanEarnings(r.db.QueryRowContext(ctx, query, rentalID))
	if err != nil {
		return nil, notFoundOr(err, "earnings_not_found", "no earnings recorded for rental")
	}
	return e, nil
}

func (r *earningsRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]domain.OwnerEarnings, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM owner_earnings WHERE owner_id = $1`, ownerID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + earningsColumns + ` FROM owner_earnings WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, ownerID, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []domain.OwnerEarnings{}
	for rows.Next() {
		e, err := scanEarnings(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *e)
	}
	return list, count, rows.Err()
}

func (r *earningsRepository) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.EarningsSummary, error) {
	s := &domain.EarningsSummary{OwnerID: ownerID}
	query := `SELECT count(*), COALESCE(SUM(amount), 0), COALESCE(SUM(owner_amount), 0)
	          FROM owner_earnings WHERE owner_id = $1`
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&s.TotalRides, &s.TotalRevenue, &s.TotalEarnings); err != nil {
		return nil, err
	}
	s.AveragePerRide = decimal.Zero
	if s.TotalRides > 0 {
		s.AveragePerRide = s.TotalEarnings.DivRound(decimal.NewFromInt(int64(s.TotalRides)), 2)
	}
	return s, nil
}
