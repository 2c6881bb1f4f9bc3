package http

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockRentalService struct{ mock.Mock }

func (m *MockRentalService) StartRide(ctx context.Context, in service.StartRideInput) (*domain.Rental, bool, error) {
	args := m.Called(ctx, in)
	rental, _ := args.Get(0).(*domain.Rental)
	return rental, args.Bool(1), args.Error(2)
}

func (m *MockRentalService) EndRide(ctx context.Context, in service.EndRideInput) (*domain.Rental, error) {
	args := m.Called(ctx, in)
	rental, _ := args.Get(0).(*domain.Rental)
	return rental, args.Error(1)
}

func (m *MockRentalService) GetRental(ctx context.Context, userID, rentalID uuid.UUID) (*domain.Rental, error) {
	args := m.Called(ctx, userID, rentalID)
	rental, _ := args.Get(0).(*domain.Rental)
	return rental, args.Error(1)
}

func (m *MockRentalService) ListRentals(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Rental, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	rentals, _ := args.Get(0).([]domain.Rental)
	return rentals, int32(args.Int(1)), args.Error(2)
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Signup(ctx context.Context, in service.SignupInput) (*domain.User, *service.TokenPair, error) {
	args := m.Called(ctx, in)
	user, _ := args.Get(0).(*domain.User)
	tokens, _ := args.Get(1).(*service.TokenPair)
	return user, tokens, args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.User, *service.TokenPair, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	tokens, _ := args.Get(1).(*service.TokenPair)
	return user, tokens, args.Error(2)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	tokens, _ := args.Get(0).(*service.TokenPair)
	return tokens, args.Error(1)
}

func (m *MockAuthService) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) InitiatePayment(ctx context.Context, userID, rentalID uuid.UUID, method domain.PaymentMethod) (*service.PaymentInitiation, error) {
	args := m.Called(ctx, userID, rentalID, method)
	out, _ := args.Get(0).(*service.PaymentInitiation)
	return out, args.Error(1)
}

func (m *MockPaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *MockPaymentService) HandleMpesaCallback(ctx context.Context, payload []byte) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockPaymentService) MarkSucceeded(ctx context.Context, providerRef string) error {
	return m.Called(ctx, providerRef).Error(0)
}

func (m *MockPaymentService) MarkFailed(ctx context.Context, providerRef string) error {
	return m.Called(ctx, providerRef).Error(0)
}

func (m *MockPaymentService) ReconcileEarnings(ctx context.Context, limit int32) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentService) ExpireStalePayments(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockDockService struct{ mock.Mock }

func (m *MockDockService) CreateDock(ctx context.Context, dock *domain.Dock) error {
	return m.Called(ctx, dock).Error(0)
}

func (m *MockDockService) GetDock(ctx context.Context, id uuid.UUID) (*domain.Dock, error) {
	args := m.Called(ctx, id)
	dock, _ := args.Get(0).(*domain.Dock)
	return dock, args.Error(1)
}

func (m *MockDockService) ListDocks(ctx context.Context, page, pageSize int32) ([]domain.Dock, int32, error) {
	args := m.Called(ctx, page, pageSize)
	docks, _ := args.Get(0).([]domain.Dock)
	return docks, int32(args.Int(1)), args.Error(2)
}

func (m *MockDockService) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyDock, error) {
	args := m.Called(ctx, lat, lng, radiusKm)
	docks, _ := args.Get(0).([]domain.NearbyDock)
	return docks, args.Error(1)
}

func (m *MockDockService) UpdateDock(ctx context.Context, id uuid.UUID, in service.UpdateDockInput) (*domain.Dock, error) {
	args := m.Called(ctx, id, in)
	dock, _ := args.Get(0).(*domain.Dock)
	return dock, args.Error(1)
}

func (m *MockDockService) DeleteDock(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockAnalyticsService struct{ mock.Mock }

func (m *MockAnalyticsService) DailyActiveUsers(ctx context.Context, day time.Time) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsService) TripsPerDock(ctx context.Context, from, to time.Time) ([]domain.DockTrips, error) {
	args := m.Called(ctx, from, to)
	trips, _ := args.Get(0).([]domain.DockTrips)
	return trips, args.Error(1)
}

type MockBikeService struct{ mock.Mock }

func (m *MockBikeService) CreateBike(ctx context.Context, ownerID uuid.UUID, in service.CreateBikeInput) (*domain.Bike, error) {
	args := m.Called(ctx, ownerID, in)
	bike, _ := args.Get(0).(*domain.Bike)
	return bike, args.Error(1)
}

func (m *MockBikeService) UpdateBike(ctx context.Context, actor service.Actor, bikeID uuid.UUID, in service.UpdateBikeInput) (*domain.Bike, error) {
	args := m.Called(ctx, actor, bikeID, in)
	bike, _ := args.Get(0).(*domain.Bike)
	return bike, args.Error(1)
}

func (m *MockBikeService) GetBike(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error) {
	args := m.Called(ctx, bikeID)
	bike, _ := args.Get(0).(*domain.Bike)
	return bike, args.Error(1)
}

func (m *MockBikeService) ListBikes(ctx context.Context, filter domain.BikeFilter, page, pageSize int32) ([]domain.Bike, int32, error) {
	args := m.Called(ctx, filter, page, pageSize)
	bikes, _ := args.Get(0).([]domain.Bike)
	return bikes, int32(args.Int(1)), args.Error(2)
}

func (m *MockBikeService) RequestPhotoUpload(ctx context.Context, actor service.Actor, bikeID uuid.UUID, contentType string) (*service.UploadTicket, error) {
	args := m.Called(ctx, actor, bikeID, contentType)
	ticket, _ := args.Get(0).(*service.UploadTicket)
	return ticket, args.Error(1)
}

func (m *MockBikeService) ConfirmPhoto(ctx context.Context, actor service.Actor, bikeID uuid.UUID, key string) (*domain.Bike, error) {
	args := m.Called(ctx, actor, bikeID, key)
	bike, _ := args.Get(0).(*domain.Bike)
	return bike, args.Error(1)
}

func (m *MockBikeService) DeletePhoto(ctx context.Context, actor service.Actor, bikeID uuid.UUID, url string) (*domain.Bike, error) {
	args := m.Called(ctx, actor, bikeID, url)
	bike, _ := args.Get(0).(*domain.Bike)
	return bike, args.Error(1)
}

func (m *MockBikeService) DeleteBike(ctx context.Context, actor service.Actor, bikeID uuid.UUID) error {
	return m.Called(ctx, actor, bikeID).Error(0)
}

func (m *MockBikeService) NearbyBikes(ctx context.Context, lat, lng, radiusKm float64) (*domain.NearbyBikes, error) {
	args := m.Called(ctx, lat, lng, radiusKm)
	out, _ := args.Get(0).(*domain.NearbyBikes)
	return out, args.Error(1)
}

type MockZoneService struct{ mock.Mock }

func (m *MockZoneService) ListZones(ctx context.Context, since *time.Time) ([]domain.Zone, error) {
	args := m.Called(ctx, since)
	zones, _ := args.Get(0).([]domain.Zone)
	return zones, args.Error(1)
}

func (m *MockZoneService) CreateZone(ctx context.Context, actor service.Actor, in service.CreateZoneInput) (*domain.Zone, error) {
	args := m.Called(ctx, actor, in)
	zone, _ := args.Get(0).(*domain.Zone)
	return zone, args.Error(1)
}

type MockEventSyncService struct{ mock.Mock }

func (m *MockEventSyncService) SyncEvents(ctx context.Context, userID uuid.UUID, events []domain.Event) (int, error) {
	args := m.Called(ctx, userID, events)
	return args.Int(0), args.Error(1)
}
