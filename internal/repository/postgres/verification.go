package postgres

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

const verificationColumns = `id, user_id, storage_key, status, notes, reviewed_by, reviewed_at, created_at`

type verificationRepository struct {
	db DBTX
}

func NewVerificationRepository(db DBTX) repository.VerificationRepository {
	return &verificationRepository{db: db}
}

func scanVerification(row rowScanner) (*domain.VerificationDoc, error) {
	d := &domain.VerificationDoc{}
	var reviewer uuid.NullUUID
	if err := row.Scan(&d.ID, &d.UserID, &d.StorageKey, &d.Status, &d.Notes, &reviewer, &d.ReviewedAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.ReviewedBy = uuidPtr(reviewer)
	return d, nil
}

func (r *verificationRepository) Create(ctx context.Context, d *domain.VerificationDoc) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	query := `INSERT INTO verification_docs (id, user_id, storage_key, status, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.UserID, d.StorageKey, d.Status, d.Notes, d.CreatedAt)
	return err
}

func (r *verificationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.VerificationDoc, error) {
	query := `SELECT ` + verificationColumns + ` FROM verification_docs WHERE id = $1 FOR UPDATE`
	d, err := scanVerification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "verification_not_found", "verification document does not exist")
	}
	return d, nil
}

func (r *verificationRepository) Update(ctx context.Context, d *domain.VerificationDoc) error {
	query := `UPDATE verification_docs SET status=$1, notes=$2, reviewed_by=$3, reviewed_at=$4 WHERE id=$5`
	_, err := r.db.ExecContext(ctx, query, d.Status, d.Notes, d.ReviewedBy, d.ReviewedAt, d.ID)
	return err
}

func (r *verificationRepository) ListPending(ctx context.Context, page, pageSize int32) ([]domain.VerificationDoc, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM verification_docs WHERE status = 'pending'`).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + verificationColumns + ` FROM verification_docs WHERE status = 'pending' ORDER BY created_at LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := []domain.VerificationDoc{}
	for rows.Next() {
		d, err := scanVerification(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *d)
	}
	return docs, count, rows.Err()
}
