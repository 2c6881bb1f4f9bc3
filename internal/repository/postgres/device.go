package postgres

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

type deviceRepository struct {
	db DBTX
}

func NewDeviceRepository(db DBTX) repository.DeviceRepository {
	return &deviceRepository{db: db}
}

// Upsert registers a push token; a token moving to another account follows the latest user.
func (r *deviceRepository) Upsert(ctx context.Context, d *domain.Device) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	query := `INSERT INTO devices (id, user_id, token, platform, created_at) VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	          RETURNING id`
	return r.db.QueryRowContext(ctx, query, d.ID, d.UserID, d.Token, d.Platform, d.CreatedAt).Scan(&d.ID)
}

func (r *deviceRepository) ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM devices WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *deviceRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE token = $1`, token)
	return err
}
