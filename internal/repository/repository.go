package repository

import (
	"context"
	"time"

	"cycle-backend/internal/domain"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateVerifiedStatus(ctx context.Context, id uuid.UUID, status domain.VerifiedStatus) error
	UpdateOwnerMaxBikes(ctx context.Context, id uuid.UUID, maxBikes int) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

type DeviceRepository interface {
	Upsert(ctx context.Context, device *domain.Device) error
	ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteByToken(ctx context.Context, token string) error
}

type BikeRepository interface {
	Create(ctx context.Context, bike *domain.Bike) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bike, error)
	// GetForUpdate locks the bike row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bike, error)
	Update(ctx context.Context, bike *domain.Bike) error
	MarkRented(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) error
	AddPhoto(ctx context.Context, id uuid.UUID, url string) error
	RemovePhoto(ctx context.Context, id uuid.UUID, url string) error
	// Delete fails with a Conflict when rentals still reference the bike.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter domain.BikeFilter, page, pageSize int32) ([]domain.Bike, int32, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	// NearbyAvailable returns available bikes docked within radiusKm, closest dock first.
	NearbyAvailable(ctx context.Context, lat, lng, radiusKm float64, limit int32) ([]domain.Bike, error)
	RandomAvailable(ctx context.Context, limit int32) ([]domain.Bike, error)
}

type DockRepository interface {
	Create(ctx context.Context, dock *domain.Dock) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dock, error)
	List(ctx context.Context, page, pageSize int32) ([]domain.Dock, int32, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int32) ([]domain.NearbyDock, error)
	Update(ctx context.Context, dock *domain.Dock) error
	// Delete fails with a Conflict while bikes are still docked there.
	Delete(ctx context.Context, id uuid.UUID) error
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Rental, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Rental, error)
	GetByClientID(ctx context.Context, userID uuid.UUID, clientRentalID string) (*domain.Rental, error)
	GetByClientIDForUpdate(ctx context.Context, userID uuid.UUID, clientRentalID string) (*domain.Rental, error)
	Close(ctx context.Context, rental *domain.Rental) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Rental, int32, error)
	// ListOpenStartedBefore returns open rentals that have not been reminded yet.
	ListOpenStartedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Rental, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

type EarningsRepository interface {
	// Create inserts unless earnings already exist for the rental; created reports which happened.
	Create(ctx context.Context, earnings *domain.OwnerEarnings) (created bool, err error)
	GetByRental(ctx context.Context, rentalID uuid.UUID) (*domain.OwnerEarnings, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]domain.OwnerEarnings, int32, error)
	Summary(ctx context.Context, ownerID uuid.UUID) (*domain.EarningsSummary, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*domain.Payment, error)
	SetProviderRef(ctx context.Context, id uuid.UUID, providerRef string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
	HasSuccessfulForRental(ctx context.Context, rentalID uuid.UUID) (bool, error)
	ListSuccessfulWithoutEarnings(ctx context.Context, limit int32) ([]domain.Payment, error)
	FailPendingCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PolicyRepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}

type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	CountDistinctUsers(ctx context.Context, eventType domain.EventType, from, to time.Time) (int64, error)
	CountByDock(ctx context.Context, eventType domain.EventType, from, to time.Time) ([]domain.DockTrips, error)
}

type ZoneRepository interface {
	Create(ctx context.Context, zone *domain.Zone) error
	// List returns zones updated after since, or every zone when since is nil.
	List(ctx context.Context, since *time.Time) ([]domain.Zone, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	ListPending(ctx context.Context, limit int32) ([]domain.Notification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NotificationStatus, sentAt *time.Time) error
}

type VerificationRepository interface {
	Create(ctx context.Context, doc *domain.VerificationDoc) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.VerificationDoc, error)
	Update(ctx context.Context, doc *domain.VerificationDoc) error
	ListPending(ctx context.Context, page, pageSize int32) ([]domain.VerificationDoc, int32, error)
}

// Repositories groups every repository bound to the same connection or transaction.
type Repositories interface {
	Users() UserRepository
	Devices() DeviceRepository
	Bikes() BikeRepository
	Docks() DockRepository
	Rentals() RentalRepository
	Earnings() EarningsRepository
	Payments() PaymentRepository
	Policies() PolicyRepository
	Events() EventRepository
	Notifications() NotificationRepository
	Verifications() VerificationRepository
	Zones() ZoneRepository
}

// Transactor runs fn inside a single database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
