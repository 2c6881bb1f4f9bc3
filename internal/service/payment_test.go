package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	store   *fakeStore
	tracker *recordingTracker
	card    *MockCardGateway
	svc     service.PaymentService
}

func newPaymentFixture() *paymentFixture {
	store := newFakeStore()
	tracker := &recordingTracker{}
	card := new(MockCardGateway)
	policies := service.NewPolicyService(store.policies, store)
	notifications := service.NewNotificationService(store.notifications, store.devices, store.users, new(MockPushSender), new(MockEmailService))
	svc := service.NewPaymentService(service.PaymentServiceDeps{
		PaymentRepo:       store.payments,
		RentalRepo:        store.rentals,
		Tx:                store,
		Earnings:          service.NewEarningsService(store.earnings),
		Policies:          policies,
		Notifications:     notifications,
		Events:            tracker,
		Card:              card,
		Currency:          "kes",
		MpesaInstructions: "Pay via M-Pesa",
	})
	store.policies.On("GetAll", mock.Anything).Return(defaultPolicyValues(), nil)
	return &paymentFixture{store: store, tracker: tracker, card: card, svc: svc}
}

func closedRental(userID, bikeID uuid.UUID, amount string) *domain.Rental {
	a := decimal.RequireFromString(amount)
	end := time.Now().UTC()
	return &domain.Rental{
		ID:     uuid.New(),
		UserID: userID,
		BikeID: bikeID,
		Amount: &a,
		EndAt:  &end,
		Status: domain.RentalStatusClosed,
	}
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Card", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, uuid.New(), "52.50")
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.payments.On("HasSuccessfulForRental", mock.Anything, rental.ID).Return(false, nil)
		f.store.payments.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
		f.card.On("CreateIntent", mock.Anything, int64(5250), "kes", mock.Anything).
			Return(&service.CardIntent{ID: "pi_123", ClientSecret: "secret"}, nil)
		f.store.payments.On("SetProviderRef", mock.Anything, mock.Anything, "pi_123").Return(nil)

		out, err := f.svc.InitiatePayment(ctx, userID, rental.ID, domain.PaymentMethodCard)
		require.NoError(t, err)
		assert.Equal(t, "secret", out.ClientSecret)
		assert.Equal(t, "pi_123", *out.Payment.ProviderRef)
		assert.Equal(t, domain.PaymentStatusPending, out.Payment.Status)
		f.card.AssertExpectations(t)
	})

	t.Run("Mpesa", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, uuid.New(), "10.00")
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.payments.On("HasSuccessfulForRental", mock.Anything, rental.ID).Return(false, nil)
		f.store.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.store.payments.On("SetProviderRef", mock.Anything, mock.Anything, mock.AnythingOfType("string")).Return(nil)

		out, err := f.svc.InitiatePayment(ctx, userID, rental.ID, domain.PaymentMethodMpesa)
		require.NoError(t, err)
		assert.Equal(t, "Pay via M-Pesa", out.Instructions)
		assert.Contains(t, *out.Payment.ProviderRef, "ws_CO_")
		f.card.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Wallet Unsupported", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.InitiatePayment(ctx, userID, uuid.New(), domain.PaymentMethodWallet)
		assert.Equal(t, "unsupported_method", domain.ReasonOf(err))
	})

	t.Run("Already Paid", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, uuid.New(), "10.00")
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.payments.On("HasSuccessfulForRental", mock.Anything, rental.ID).Return(true, nil)

		_, err := f.svc.InitiatePayment(ctx, userID, rental.ID, domain.PaymentMethodMpesa)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, "rental_already_paid", domain.ReasonOf(err))
	})

	t.Run("Open Rental", func(t *testing.T) {
		f := newPaymentFixture()
		rental := &domain.Rental{ID: uuid.New(), UserID: userID, Status: domain.RentalStatusOpen}
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)

		_, err := f.svc.InitiatePayment(ctx, userID, rental.ID, domain.PaymentMethodCard)
		assert.Equal(t, "rental_not_closed", domain.ReasonOf(err))
	})

	t.Run("Card Failure Marks Payment Failed", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, uuid.New(), "10.00")
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.payments.On("HasSuccessfulForRental", mock.Anything, rental.ID).Return(false, nil)
		f.store.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.card.On("CreateIntent", mock.Anything, int64(1000), "kes", mock.Anything).Return(nil, errors.New("card declined"))
		f.store.payments.On("UpdateStatus", mock.Anything, mock.Anything, domain.PaymentStatusFailed).Return(nil)

		_, err := f.svc.InitiatePayment(ctx, userID, rental.ID, domain.PaymentMethodCard)
		assert.Error(t, err)
		f.store.payments.AssertCalled(t, "UpdateStatus", mock.Anything, mock.Anything, domain.PaymentStatusFailed)
	})
}

func TestPaymentService_MarkSucceeded(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	ownerID := uuid.New()
	bikeID := uuid.New()

	t.Run("Allocates Owner Earnings", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, bikeID, "100.00")
		payment := &domain.Payment{ID: uuid.New(), RentalID: rental.ID, UserID: userID, Amount: *rental.Amount, Status: domain.PaymentStatusPending}
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "pi_1").Return(payment, nil)
		f.store.payments.On("UpdateStatus", mock.Anything, payment.ID, domain.PaymentStatusSuccess).Return(nil)
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.bikes.On("GetByID", mock.Anything, bikeID).Return(&domain.Bike{ID: bikeID, OwnerID: &ownerID}, nil)
		f.store.earnings.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.OwnerEarnings) bool {
			return e.OwnerID == ownerID && e.OwnerAmount.Equal(decimal.RequireFromString("80")) &&
				e.CycleAmount.Equal(decimal.RequireFromString("20"))
		})).Return(true, nil)
		f.store.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.UserID == ownerID && n.Status == domain.NotificationStatusPending
		})).Return(nil)

		require.NoError(t, f.svc.MarkSucceeded(ctx, "pi_1"))
		assert.Equal(t, 1, f.store.commits)
		assert.Equal(t, []domain.EventType{domain.EventPaymentSuccess}, f.tracker.types())
		f.store.earnings.AssertExpectations(t)
		f.store.notifications.AssertExpectations(t)
	})

	t.Run("Duplicate Delivery Is A No-op", func(t *testing.T) {
		f := newPaymentFixture()
		payment := &domain.Payment{ID: uuid.New(), RentalID: uuid.New(), UserID: userID, Status: domain.PaymentStatusSuccess}
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "pi_1").Return(payment, nil)

		require.NoError(t, f.svc.MarkSucceeded(ctx, "pi_1"))
		assert.Empty(t, f.tracker.events)
		f.store.earnings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.store.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Platform Bike Skips Allocation", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, bikeID, "30.00")
		payment := &domain.Payment{ID: uuid.New(), RentalID: rental.ID, UserID: userID, Status: domain.PaymentStatusPending}
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "pi_2").Return(payment, nil)
		f.store.payments.On("UpdateStatus", mock.Anything, payment.ID, domain.PaymentStatusSuccess).Return(nil)
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.bikes.On("GetByID", mock.Anything, bikeID).Return(&domain.Bike{ID: bikeID}, nil)

		require.NoError(t, f.svc.MarkSucceeded(ctx, "pi_2"))
		f.store.earnings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.store.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Allocation Failure Rolls Back", func(t *testing.T) {
		f := newPaymentFixture()
		rental := closedRental(userID, bikeID, "30.00")
		payment := &domain.Payment{ID: uuid.New(), RentalID: rental.ID, UserID: userID, Status: domain.PaymentStatusPending}
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "pi_3").Return(payment, nil)
		f.store.payments.On("UpdateStatus", mock.Anything, payment.ID, domain.PaymentStatusSuccess).Return(nil)
		f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
		f.store.bikes.On("GetByID", mock.Anything, bikeID).Return(&domain.Bike{ID: bikeID, OwnerID: &ownerID}, nil)
		f.store.earnings.On("Create", mock.Anything, mock.Anything).Return(false, errors.New("deadlock"))

		assert.Error(t, f.svc.MarkSucceeded(ctx, "pi_3"))
		assert.Equal(t, 1, f.store.rollbacks)
		assert.Empty(t, f.tracker.events)
	})
}

func TestPaymentService_Callbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("Stripe Failed Intent", func(t *testing.T) {
		f := newPaymentFixture()
		payment := &domain.Payment{ID: uuid.New(), Status: domain.PaymentStatusPending}
		f.card.On("ParseWebhook", []byte("{}"), "sig").Return(&service.CardEvent{Type: service.CardEventFailed, IntentID: "pi_9"}, nil)
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "pi_9").Return(payment, nil)
		f.store.payments.On("UpdateStatus", mock.Anything, payment.ID, domain.PaymentStatusFailed).Return(nil)

		require.NoError(t, f.svc.HandleStripeWebhook(ctx, []byte("{}"), "sig"))
		assert.Equal(t, []domain.EventType{domain.EventPaymentFailed}, f.tracker.types())
	})

	t.Run("Stripe Bad Signature", func(t *testing.T) {
		f := newPaymentFixture()
		f.card.On("ParseWebhook", mock.Anything, "bad").Return(nil, errors.New("signature mismatch"))

		err := f.svc.HandleStripeWebhook(ctx, []byte("{}"), "bad")
		assert.Equal(t, "invalid_signature", domain.ReasonOf(err))
	})

	t.Run("Stripe Unknown Intent Is Acknowledged", func(t *testing.T) {
		f := newPaymentFixture()
		f.card.On("ParseWebhook", mock.Anything, "sig").Return(&service.CardEvent{Type: service.CardEventSucceeded, IntentID: "pi_x"}, nil)
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "pi_x").
			Return(nil, domain.NotFound("payment_not_found", "payment does not exist"))

		assert.NoError(t, f.svc.HandleStripeWebhook(ctx, []byte("{}"), "sig"))
	})

	t.Run("Mpesa Cancelled", func(t *testing.T) {
		f := newPaymentFixture()
		payment := &domain.Payment{ID: uuid.New(), Status: domain.PaymentStatusPending}
		f.store.payments.On("GetByProviderRefForUpdate", mock.Anything, "ws_CO_1").Return(payment, nil)
		f.store.payments.On("UpdateStatus", mock.Anything, payment.ID, domain.PaymentStatusFailed).Return(nil)

		body := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m1","CheckoutRequestID":"ws_CO_1","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`)
		require.NoError(t, f.svc.HandleMpesaCallback(ctx, body))
		f.store.payments.AssertExpectations(t)
	})
}

func TestParseMpesaCallback(t *testing.T) {
	cb, err := service.ParseMpesaCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_2","ResultCode":0,"ResultDesc":"ok"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_2", cb.CheckoutRequestID)
	assert.Equal(t, int64(0), cb.ResultCode)

	_, err = service.ParseMpesaCallback([]byte(`{"Body":{}}`))
	assert.Equal(t, "invalid_callback", domain.ReasonOf(err))

	_, err = service.ParseMpesaCallback([]byte(`not json`))
	assert.Equal(t, "invalid_callback", domain.ReasonOf(err))
}

func TestPaymentService_ReconcileEarnings(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	userID, ownerID, bikeID := uuid.New(), uuid.New(), uuid.New()
	rental := closedRental(userID, bikeID, "50.00")
	payments := []domain.Payment{{ID: uuid.New(), RentalID: rental.ID, UserID: userID, Status: domain.PaymentStatusSuccess}}

	f.store.payments.On("ListSuccessfulWithoutEarnings", mock.Anything, int32(10)).Return(payments, nil)
	f.store.rentals.On("GetByID", mock.Anything, rental.ID).Return(rental, nil)
	f.store.bikes.On("GetByID", mock.Anything, bikeID).Return(&domain.Bike{ID: bikeID, OwnerID: &ownerID}, nil)
	f.store.earnings.On("Create", mock.Anything, mock.Anything).Return(true, nil)
	f.store.notifications.On("Create", mock.Anything, mock.Anything).Return(nil)

	n, err := f.svc.ReconcileEarnings(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPaymentService_ExpireStalePayments(t *testing.T) {
	f := newPaymentFixture()
	f.store.payments.On("FailPendingCreatedBefore", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= 24*time.Hour && time.Since(cutoff) < 25*time.Hour
	})).Return(int64(3), nil)

	n, err := f.svc.ExpireStalePayments(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
