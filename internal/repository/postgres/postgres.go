package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	users         repository.UserRepository
	devices       repository.DeviceRepository
	bikes         repository.BikeRepository
	docks         repository.DockRepository
	rentals       repository.RentalRepository
	earnings      repository.EarningsRepository
	payments      repository.PaymentRepository
	policies      repository.PolicyRepository
	events        repository.EventRepository
	notifications repository.NotificationRepository
	verifications repository.VerificationRepository
	zones         repository.ZoneRepository
}

func newRepos(db DBTX) *repos {
	return &repos{
		users:         NewUserRepository(db),
		devices:       NewDeviceRepository(db),
		bikes:         NewBikeRepository(db),
		docks:         NewDockRepository(db),
		rentals:       NewRentalRepository(db),
		earnings:      NewEarningsRepository(db),
		payments:      NewPaymentRepository(db),
		policies:      NewPolicyRepository(db),
		events:        NewEventRepository(db),
		notifications: NewNotificationRepository(db),
		verifications: NewVerificationRepository(db),
		zones:         NewZoneRepository(db),
	}
}

func (r *repos) Users() repository.UserRepository                 { return r.users }
func (r *repos) Devices() repository.DeviceRepository             { return r.devices }
func (r *repos) Bikes() repository.BikeRepository                 { return r.bikes }
func (r *repos) Docks() repository.DockRepository                 { return r.docks }
func (r *repos) Rentals() repository.RentalRepository             { return r.rentals }
func (r *repos) Earnings() repository.EarningsRepository          { return r.earnings }
func (r *repos) Payments() repository.PaymentRepository           { return r.payments }
func (r *repos) Policies() repository.PolicyRepository            { return r.policies }
func (r *repos) Events() repository.EventRepository               { return r.events }
func (r *repos) Notifications() repository.NotificationRepository { return r.notifications }
func (r *repos) Verifications() repository.VerificationRepository { return r.verifications }
func (r *repos) Zones() repository.ZoneRepository                 { return r.zones }

// Store exposes repositories bound to the connection pool and opens transactions.
type Store struct {
	*repos
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{repos: newRepos(db), db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newRepos(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.Info("Applying database schema")
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func notFoundOr(err error, reason, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(reason, message)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func offset(page, pageSize int32) int32 {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
