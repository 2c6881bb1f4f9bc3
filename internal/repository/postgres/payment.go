package postgres

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

const paymentColumns = `id, rental_id, user_id, amount, method, provider_ref, status, created_at, updated_at`

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.RentalID, &p.UserID, &p.Amount, &p.Method, &p.ProviderRef, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	query := `INSERT INTO payments (id, rental_id, user_id, amount, method, provider_ref, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("INSERT", "payments", "paymentID", p.ID, "rentalID", p.RentalID)
	_, err := r.db.ExecContext(ctx, query, p.ID, p.RentalID, p.UserID, p.Amount, p.Method, p.ProviderRef, p.Status, p.CreatedAt, p.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "paymentID", p.ID)
	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "payment_not_found", "payment does not exist")
	}
	return p, nil
}

func (r *paymentRepository) GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_ref = $1 FOR UPDATE`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, providerRef))
	if err != nil {
		return nil, notFoundOr(err, "payment_not_found", "no payment for provider reference")
	}
	return p, nil
}

func (r *paymentRepository) SetProviderRef(ctx context.Context, id uuid.UUID, providerRef string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payments SET provider_ref=$1, updated_at=now() WHERE id=$2`, providerRef, id)
	return err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	return err
}

func (r *paymentRepository) HasSuccessfulForRental(ctx context.Context, rentalID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE rental_id = $1 AND status = 'success')`
	err := r.db.QueryRowContext(ctx, query, rentalID).Scan(&exists)
	return exists, err
}

func (r *paymentRepository) ListSuccessfulWithoutEarnings(ctx context.Context, limit int32) ([]domain.Payment, error) {
	query := `SELECT p.id, p.rental_id, p.user_id, p.amount, p.method, p.provider_ref, p.status, p.created_at, p.updated_at
	          FROM payments p
	          JOIN rentals rt ON rt.id = p.rental_id
	          JOIN bikes b ON b.id = rt.bike_id
	          LEFT JOIN owner_earnings e ON e.rental_id = p.rental_id
	          WHERE p.status = 'success' AND e.id IS NULL AND b.owner_id IS NOT NULL
	          ORDER BY p.updated_at LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) FailPendingCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE payments SET status='failed', updated_at=now() WHERE status='pending' AND created_at < $1`
	logger.DatabaseCall("UPDATE", "payments", "cutoff", cutoff)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return 0, err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil)
	return n, nil
}
