package postgres

import (
	"context"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

const userColumns = `id, email, email_verified, phone, password_hash, name, role, verified_status, owner_max_bikes, eco_points, created_at, updated_at`

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.EmailVerified, &u.Phone, &u.PasswordHash, &u.Name, &u.Role, &u.VerifiedStatus,
		&u.OwnerMaxBikes, &u.EcoPoints, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	query := `INSERT INTO users (id, email, email_verified, phone, password_hash, name, role, verified_status, owner_max_bikes, eco_points, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	logger.DatabaseCall("INSERT", "users", "userID", u.ID)
	_, err := r.db.ExecContext(ctx, query, u.ID, strings.ToLower(u.Email), u.EmailVerified, u.Phone, u.PasswordHash, u.Name, u.Role,
		u.VerifiedStatus, u.OwnerMaxBikes, u.EcoPoints, u.CreatedAt, u.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "userID", u.ID)
	if isUniqueViolation(err) {
		return domain.Conflict("email_taken", "an account with this email already exists")
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "user_not_found", "user does not exist")
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFoundOr(err, "user_not_found", "user does not exist")
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET phone=$1, name=$2, updated_at=$3 WHERE id=$4`
	_, err := r.db.ExecContext(ctx, query, u.Phone, u.Name, u.UpdatedAt, u.ID)
	return err
}

func (r *userRepository) UpdateVerifiedStatus(ctx context.Context, id uuid.UUID, status domain.VerifiedStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET verified_status=$1, updated_at=now() WHERE id=$2`, status, id)
	return err
}

func (r *userRepository) UpdateOwnerMaxBikes(ctx context.Context, id uuid.UUID, maxBikes int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET owner_max_bikes=$1, updated_at=now() WHERE id=$2`, maxBikes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("user_not_found", "user does not exist")
	}
	return nil
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	logger.DatabaseCall("UPDATE", "users", "userID", id)
	res, err := r.db.ExecContext(ctx, `UPDATE users SET email_verified=TRUE, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "userID", id)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil, "userID", id)
	if n == 0 {
		return domain.NotFound("user_not_found", "user does not exist")
	}
	return nil
}
