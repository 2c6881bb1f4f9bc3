package service_test

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// fakeStore hands out the same mocks inside and outside transactions.
type fakeStore struct {
	users         *MockUserRepo
	devices       *MockDeviceRepo
	bikes         *MockBikeRepo
	docks         *MockDockRepo
	rentals       *MockRentalRepo
	earnings      *MockEarningsRepo
	payments      *MockPaymentRepo
	policies      *MockPolicyRepo
	events        *MockEventRepo
	notifications *MockNotificationRepo
	verifications *MockVerificationRepo
	zones         *MockZoneRepo

	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         new(MockUserRepo),
		devices:       new(MockDeviceRepo),
		bikes:         new(MockBikeRepo),
		docks:         new(MockDockRepo),
		rentals:       new(MockRentalRepo),
		earnings:      new(MockEarningsRepo),
		payments:      new(MockPaymentRepo),
		policies:      new(MockPolicyRepo),
		events:        new(MockEventRepo),
		notifications: new(MockNotificationRepo),
		verifications: new(MockVerificationRepo),
		zones:         new(MockZoneRepo),
	}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := fn(ctx, s); err != nil {
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *fakeStore) Users() repository.UserRepository                 { return s.users }
func (s *fakeStore) Devices() repository.DeviceRepository             { return s.devices }
func (s *fakeStore) Bikes() repository.BikeRepository                 { return s.bikes }
func (s *fakeStore) Docks() repository.DockRepository                 { return s.docks }
func (s *fakeStore) Rentals() repository.RentalRepository             { return s.rentals }
func (s *fakeStore) Earnings() repository.EarningsRepository          { return s.earnings }
func (s *fakeStore) Payments() repository.PaymentRepository           { return s.payments }
func (s *fakeStore) Policies() repository.PolicyRepository            { return s.policies }
func (s *fakeStore) Events() repository.EventRepository               { return s.events }
func (s *fakeStore) Notifications() repository.NotificationRepository { return s.notifications }
func (s *fakeStore) Verifications() repository.VerificationRepository { return s.verifications }
func (s *fakeStore) Zones() repository.ZoneRepository                 { return s.zones }

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) UpdateVerifiedStatus(ctx context.Context, id uuid.UUID, status domain.VerifiedStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockUserRepo) UpdateOwnerMaxBikes(ctx context.Context, id uuid.UUID, maxBikes int) error {
	args := m.Called(ctx, id, maxBikes)
	return args.Error(0)
}
func (m *MockUserRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDeviceRepo
type MockDeviceRepo struct {
	mock.Mock
}

func (m *MockDeviceRepo) Upsert(ctx context.Context, device *domain.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}
func (m *MockDeviceRepo) ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockDeviceRepo) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockBikeRepo
type MockBikeRepo struct {
	mock.Mock
}

func (m *MockBikeRepo) Create(ctx context.Context, bike *domain.Bike) error {
	args := m.Called(ctx, bike)
	return args.Error(0)
}
func (m *MockBikeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bike, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bike), args.Error(1)
}
func (m *MockBikeRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bike, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bike), args.Error(1)
}
func (m *MockBikeRepo) Update(ctx context.Context, bike *domain.Bike) error {
	args := m.Called(ctx, bike)
	return args.Error(0)
}
func (m *MockBikeRepo) MarkRented(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockBikeRepo) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockBikeRepo) AddPhoto(ctx context.Context, id uuid.UUID, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}
func (m *MockBikeRepo) List(ctx context.Context, filter domain.BikeFilter, page, pageSize int32) ([]domain.Bike, int32, error) {
	args := m.Called(ctx, filter, page, pageSize)
	return args.Get(0).([]domain.Bike), args.Get(1).(int32), args.Error(2)
}
func (m *MockBikeRepo) RemovePhoto(ctx context.Context, id uuid.UUID, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}
func (m *MockBikeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockBikeRepo) NearbyAvailable(ctx context.Context, lat, lng, radiusKm float64, limit int32) ([]domain.Bike, error) {
	args := m.Called(ctx, lat, lng, radiusKm, limit)
	return args.Get(0).([]domain.Bike), args.Error(1)
}
func (m *MockBikeRepo) RandomAvailable(ctx context.Context, limit int32) ([]domain.Bike, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Bike), args.Error(1)
}
func (m *MockBikeRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

// MockDockRepo
type MockDockRepo struct {
	mock.Mock
}

func (m *MockDockRepo) Create(ctx context.Context, dock *domain.Dock) error {
	args := m.Called(ctx, dock)
	return args.Error(0)
}
func (m *MockDockRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dock, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dock), args.Error(1)
}
func (m *MockDockRepo) List(ctx context.Context, page, pageSize int32) ([]domain.Dock, int32, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.Dock), args.Get(1).(int32), args.Error(2)
}
func (m *MockDockRepo) Update(ctx context.Context, dock *domain.Dock) error {
	args := m.Called(ctx, dock)
	return args.Error(0)
}
func (m *MockDockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockDockRepo) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int32) ([]domain.NearbyDock, error) {
	args := m.Called(ctx, lat, lng, radiusKm, limit)
	return args.Get(0).([]domain.NearbyDock), args.Error(1)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, rental *domain.Rental) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) GetByClientID(ctx context.Context, userID uuid.UUID, clientRentalID string) (*domain.Rental, error) {
	args := m.Called(ctx, userID, clientRentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) GetByClientIDForUpdate(ctx context.Context, userID uuid.UUID, clientRentalID string) (*domain.Rental, error) {
	args := m.Called(ctx, userID, clientRentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) Close(ctx context.Context, rental *domain.Rental) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockRentalRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Rental, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Rental), args.Get(1).(int32), args.Error(2)
}
func (m *MockRentalRepo) ListOpenStartedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Rental, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockEarningsRepo
type MockEarningsRepo struct {
	mock.Mock
}

func (m *MockEarningsRepo) Create(ctx context.Context, earnings *domain.OwnerEarnings) (bool, error) {
	args := m.Called(ctx, earnings)
	return args.Bool(0), args.Error(1)
}
func (m *MockEarningsRepo) GetByRental(ctx context.Context, rentalID uuid.UUID) (*domain.OwnerEarnings, error) {
	args := m.Called(ctx, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OwnerEarnings), args.Error(1)
}
func (m *MockEarningsRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]domain.OwnerEarnings, int32, error) {
	args := m.Called(ctx, ownerID, page, pageSize)
	return args.Get(0).([]domain.OwnerEarnings), args.Get(1).(int32), args.Error(2)
}
func (m *MockEarningsRepo) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.EarningsSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarningsSummary), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*domain.Payment, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) SetProviderRef(ctx context.Context, id uuid.UUID, providerRef string) error {
	args := m.Called(ctx, id, providerRef)
	return args.Error(0)
}
func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockPaymentRepo) HasSuccessfulForRental(ctx context.Context, rentalID uuid.UUID) (bool, error) {
	args := m.Called(ctx, rentalID)
	return args.Bool(0), args.Error(1)
}
func (m *MockPaymentRepo) ListSuccessfulWithoutEarnings(ctx context.Context, limit int32) ([]domain.Payment, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) FailPendingCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockPolicyRepo
type MockPolicyRepo struct {
	mock.Mock
}

func (m *MockPolicyRepo) GetAll(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}
func (m *MockPolicyRepo) Upsert(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockEventRepo
type MockEventRepo struct {
	mock.Mock
}

func (m *MockEventRepo) Create(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
func (m *MockEventRepo) CountDistinctUsers(ctx context.Context, eventType domain.EventType, from, to time.Time) (int64, error) {
	args := m.Called(ctx, eventType, from, to)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockEventRepo) CountByDock(ctx context.Context, eventType domain.EventType, from, to time.Time) ([]domain.DockTrips, error) {
	args := m.Called(ctx, eventType, from, to)
	return args.Get(0).([]domain.DockTrips), args.Error(1)
}

// MockZoneRepo
type MockZoneRepo struct {
	mock.Mock
}

func (m *MockZoneRepo) Create(ctx context.Context, zone *domain.Zone) error {
	args := m.Called(ctx, zone)
	return args.Error(0)
}
func (m *MockZoneRepo) List(ctx context.Context, since *time.Time) ([]domain.Zone, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]domain.Zone), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
func (m *MockNotificationRepo) ListPending(ctx context.Context, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *MockNotificationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NotificationStatus, sentAt *time.Time) error {
	args := m.Called(ctx, id, status, sentAt)
	return args.Error(0)
}

// MockVerificationRepo
type MockVerificationRepo struct {
	mock.Mock
}

func (m *MockVerificationRepo) Create(ctx context.Context, doc *domain.VerificationDoc) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}
func (m *MockVerificationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.VerificationDoc, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationDoc), args.Error(1)
}
func (m *MockVerificationRepo) Update(ctx context.Context, doc *domain.VerificationDoc) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}
func (m *MockVerificationRepo) ListPending(ctx context.Context, page, pageSize int32) ([]domain.VerificationDoc, int32, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.VerificationDoc), args.Get(1).(int32), args.Error(2)
}

// recordingTracker keeps tracked events in memory.
type recordingTracker struct {
	events []domain.Event
}

func (r *recordingTracker) Track(ctx context.Context, event domain.Event) {
	r.events = append(r.events, event)
}

func (r *recordingTracker) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendEmail(ctx context.Context, toEmail, toName, subject, body string) error {
	args := m.Called(ctx, toEmail, toName, subject, body)
	return args.Error(0)
}

// MockPushSender
type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	args := m.Called(ctx, tokens, title, body, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockCardGateway
type MockCardGateway struct {
	mock.Mock
}

func (m *MockCardGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*service.CardIntent, error) {
	args := m.Called(ctx, amountMinor, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CardIntent), args.Error(1)
}
func (m *MockCardGateway) ParseWebhook(payload []byte, signature string) (*service.CardEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CardEvent), args.Error(1)
}

// MockStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Error(1)
}
func (m *MockStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Error(1)
}
func (m *MockStorage) FileExists(ctx context.Context, key string) (bool, int64, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}
func (m *MockStorage) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
func (m *MockStorage) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func defaultPolicyValues() map[string]string {
	return domain.DefaultPolicy().Values()
}
