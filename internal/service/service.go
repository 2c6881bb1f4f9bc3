package service

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ResendVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)
}

type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, phone string) (*domain.User, error)
	RegisterDevice(ctx context.Context, userID uuid.UUID, token string, platform domain.DevicePlatform) (*domain.Device, error)
	SetOwnerMaxBikes(ctx context.Context, userID uuid.UUID, maxBikes int) error
}

type PolicyService interface {
	GetPolicy(ctx context.Context) (domain.Policy, error)
	UpdatePolicy(ctx context.Context, values map[string]string) (domain.Policy, error)
}

type RentalService interface {
	StartRide(ctx context.Context, in StartRideInput) (rental *domain.Rental, replayed bool, err error)
	EndRide(ctx context.Context, in EndRideInput) (*domain.Rental, error)
	GetRental(ctx context.Context, userID, rentalID uuid.UUID) (*domain.Rental, error)
	ListRentals(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Rental, int32, error)
}

type EarningsService interface {
	// Allocate runs inside the caller's transaction; repos must be transaction-bound.
	Allocate(ctx context.Context, repos repository.Repositories, in AllocateInput, policy domain.Policy) (*domain.OwnerEarnings, bool, error)
	ListEarnings(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]domain.OwnerEarnings, int32, error)
	Summary(ctx context.Context, ownerID uuid.UUID) (*domain.EarningsSummary, error)
}

type BikeService interface {
	CreateBike(ctx context.Context, ownerID uuid.UUID, in CreateBikeInput) (*domain.Bike, error)
	UpdateBike(ctx context.Context, actor Actor, bikeID uuid.UUID, in UpdateBikeInput) (*domain.Bike, error)
	GetBike(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error)
	ListBikes(ctx context.Context, filter domain.BikeFilter, page, pageSize int32) ([]domain.Bike, int32, error)
	RequestPhotoUpload(ctx context.Context, actor Actor, bikeID uuid.UUID, contentType string) (*UploadTicket, error)
	ConfirmPhoto(ctx context.Context, actor Actor, bikeID uuid.UUID, key string) (*domain.Bike, error)
	DeletePhoto(ctx context.Context, actor Actor, bikeID uuid.UUID, url string) (*domain.Bike, error)
	DeleteBike(ctx context.Context, actor Actor, bikeID uuid.UUID) error
	// NearbyBikes falls back to random available bikes when none are in range.
	NearbyBikes(ctx context.Context, lat, lng, radiusKm float64) (*domain.NearbyBikes, error)
}

type DockService interface {
	CreateDock(ctx context.Context, dock *domain.Dock) error
	GetDock(ctx context.Context, id uuid.UUID) (*domain.Dock, error)
	ListDocks(ctx context.Context, page, pageSize int32) ([]domain.Dock, int32, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyDock, error)
	UpdateDock(ctx context.Context, id uuid.UUID, in UpdateDockInput) (*domain.Dock, error)
	DeleteDock(ctx context.Context, id uuid.UUID) error
}

type ZoneService interface {
	ListZones(ctx context.Context, since *time.Time) ([]domain.Zone, error)
	CreateZone(ctx context.Context, actor Actor, in CreateZoneInput) (*domain.Zone, error)
}

// EventSyncService stores analytics events batched by offline clients.
type EventSyncService interface {
	SyncEvents(ctx context.Context, userID uuid.UUID, events []domain.Event) (int, error)
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, userID, rentalID uuid.UUID, method domain.PaymentMethod) (*PaymentInitiation, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error
	HandleMpesaCallback(ctx context.Context, payload []byte) error
	MarkSucceeded(ctx context.Context, providerRef string) error
	MarkFailed(ctx context.Context, providerRef string) error
	ReconcileEarnings(ctx context.Context, limit int32) (int, error)
	ExpireStalePayments(ctx context.Context, olderThan time.Duration) (int64, error)
}

type NotificationService interface {
	Enqueue(ctx context.Context, note *domain.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
	DispatchPending(ctx context.Context, limit int32) (sent, failed int, err error)
}

type VerificationService interface {
	RequestUpload(ctx context.Context, userID uuid.UUID, contentType string) (*UploadTicket, error)
	Submit(ctx context.Context, userID uuid.UUID, storageKey string) (*domain.VerificationDoc, error)
	Review(ctx context.Context, reviewerID, docID uuid.UUID, approve bool, notes string) (*domain.VerificationDoc, error)
	ListPending(ctx context.Context, page, pageSize int32) ([]domain.VerificationDoc, int32, error)
}

type AnalyticsService interface {
	DailyActiveUsers(ctx context.Context, day time.Time) (int64, error)
	TripsPerDock(ctx context.Context, from, to time.Time) ([]domain.DockTrips, error)
}

// EventTracker records analytics events. Tracking never fails the caller.
type EventTracker interface {
	Track(ctx context.Context, event domain.Event)
}

type EmailService interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, body string) error
}

type PushSender interface {
	// Send returns the tokens the provider reported as no longer registered.
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (invalid []string, err error)
}

// Actor is the authenticated caller of an owner-or-admin operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type StartRideInput struct {
	BikeID         uuid.UUID
	UserID         uuid.UUID
	ClientStartAt  time.Time
	ClientRentalID *string
	// ClientMinuteRate is what the app displayed; it is compared but never billed.
	ClientMinuteRate *decimal.Decimal
}

type EndRideInput struct {
	RentalID       *uuid.UUID
	ClientRentalID *string
	UserID         uuid.UUID
	ClientEndAt    time.Time
	MinutesClient  int
	PathSample     []domain.PathPoint
}

type AllocateInput struct {
	RentalID    uuid.UUID
	OwnerID     uuid.UUID
	TotalAmount decimal.Decimal
}

type CreateBikeInput struct {
	Type       domain.BikeType
	Condition  domain.BikeCondition
	HourlyRate int
	DockID     *uuid.UUID
}

type UpdateBikeInput struct {
	Type       *domain.BikeType
	Condition  *domain.BikeCondition
	HourlyRate *int
	DockID     *uuid.UUID
	Status     *domain.BikeStatus
}

type UpdateDockInput struct {
	Name     *string
	Capacity *int
	Lat      *float64
	Lng      *float64
}

type CreateZoneInput struct {
	Kind    domain.ZoneKind
	Polygon domain.Polygon
	Label   *string
}

type UploadTicket struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PaymentInitiation struct {
	Payment      *domain.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
}
