package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type paymentService struct {
	paymentRepo   repository.PaymentRepository
	rentalRepo    repository.RentalRepository
	tx            repository.Transactor
	earnings      EarningsService
	policies      PolicyService
	notifications NotificationService
	events        EventTracker
	card          CardGateway
	currency      string
	mpesaNote     string
	now           func() time.Time
}

type PaymentServiceDeps struct {
	PaymentRepo       repository.PaymentRepository
	RentalRepo        repository.RentalRepository
	Tx                repository.Transactor
	Earnings          EarningsService
	Policies          PolicyService
	Notifications     NotificationService
	Events            EventTracker
	Card              CardGateway // nil disables card payments
	Currency          string
	MpesaInstructions string
}

func NewPaymentService(deps PaymentServiceDeps) PaymentService {
	return &paymentService{
		paymentRepo:   deps.PaymentRepo,
		rentalRepo:    deps.RentalRepo,
		tx:            deps.Tx,
		earnings:      deps.Earnings,
		policies:      deps.Policies,
		notifications: deps.Notifications,
		events:        deps.Events,
		card:          deps.Card,
		currency:      deps.Currency,
		mpesaNote:     deps.MpesaInstructions,
		now:           time.Now,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, userID, rentalID uuid.UUID, method domain.PaymentMethod) (*PaymentInitiation, error) {
	logger.EnterMethod("paymentService.InitiatePayment", "userID", userID, "rentalID", rentalID, "method", method)

	switch method {
	case domain.PaymentMethodCard:
		if s.card == nil {
			return nil, domain.Validation("unsupported_method", "card payments are not configured")
		}
	case domain.PaymentMethodMpesa:
	case domain.PaymentMethodWallet:
		return nil, domain.Validation("unsupported_method", "wallet payments are not supported")
	default:
		return nil, domain.Validation("invalid_payment_method", "method must be mpesa, card or wallet")
	}

	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		return nil, domain.Forbidden("rental_not_owned", "rental belongs to another user")
	}
	if rental.Status != domain.RentalStatusClosed || rental.Amount == nil {
		return nil, domain.Conflict("rental_not_closed", "only ended rides can be paid")
	}
	paid, err := s.paymentRepo.HasSuccessfulForRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, domain.Conflict("rental_already_paid", "rental has already been paid")
	}
	if !rental.Amount.IsPositive() {
		return nil, domain.Validation("nothing_to_pay", "rental amount is zero")
	}

	payment := &domain.Payment{
		RentalID: rental.ID,
		UserID:   userID,
		Amount:   *rental.Amount,
		Method:   method,
		Status:   domain.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err)
		return nil, err
	}

	out := &PaymentInitiation{Payment: payment}
	switch method {
	case domain.PaymentMethodCard:
		intent, err := s.card.CreateIntent(ctx, utils.ToMinorUnits(payment.Amount), s.currency, map[string]string{
			"payment_id": payment.ID.String(),
			"rental_id":  rental.ID.String(),
		})
		if err != nil {
			if updErr := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed); updErr != nil {
				logger.WarnContext(ctx, "Failed to mark payment failed", "paymentID", payment.ID, "error", updErr)
			}
			logger.ExitMethodWithError("paymentService.InitiatePayment", err)
			return nil, err
		}
		ref := intent.ID
		if err := s.paymentRepo.SetProviderRef(ctx, payment.ID, ref); err != nil {
			return nil, err
		}
		payment.ProviderRef = &ref
		out.ClientSecret = intent.ClientSecret
	case domain.PaymentMethodMpesa:
		// The STK push itself happens outside this service; the callback quotes this id.
		ref := "ws_CO_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		if err := s.paymentRepo.SetProviderRef(ctx, payment.ID, ref); err != nil {
			return nil, err
		}
		payment.ProviderRef = &ref
		out.Instructions = s.mpesaNote
	}

	logger.ExitMethod("paymentService.InitiatePayment", "paymentID", payment.ID)
	return out, nil
}

func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.card == nil {
		return domain.Validation("unsupported_method", "card payments are not configured")
	}
	event, err := s.card.ParseWebhook(payload, signature)
	if err != nil {
		logger.WarnContext(ctx, "Rejected card webhook", "error", err)
		return domain.Validation("invalid_signature", "webhook signature verification failed")
	}

	switch event.Type {
	case CardEventSucceeded:
		return ignoreUnknownPayment(ctx, s.MarkSucceeded(ctx, event.IntentID), event.IntentID)
	case CardEventFailed:
		return ignoreUnknownPayment(ctx, s.MarkFailed(ctx, event.IntentID), event.IntentID)
	default:
		logger.DebugContext(ctx, "Ignoring card webhook", "type", event.Type)
		return nil
	}
}

// MpesaCallback is the part of the STK callback settlement depends on.
type MpesaCallback struct {
	CheckoutRequestID string
	ResultCode        int64
	ResultDesc        string
}

// ParseMpesaCallback reads Body.stkCallback from an M-Pesa result callback.
func ParseMpesaCallback(payload []byte) (*MpesaCallback, error) {
	if !gjson.ValidBytes(payload) {
		return nil, domain.Validation("invalid_callback", "callback body is not valid JSON")
	}
	cb := gjson.GetBytes(payload, "Body.stkCallback")
	id := cb.Get("CheckoutRequestID")
	code := cb.Get("ResultCode")
	if !id.Exists() || id.String() == "" || !code.Exists() {
		return nil, domain.Validation("invalid_callback", "callback is missing CheckoutRequestID or ResultCode")
	}
	return &MpesaCallback{
		CheckoutRequestID: id.String(),
		ResultCode:        code.Int(),
		ResultDesc:        cb.Get("ResultDesc").String(),
	}, nil
}

func (s *paymentService) HandleMpesaCallback(ctx context.Context, payload []byte) error {
	cb, err := ParseMpesaCallback(payload)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "M-Pesa callback", "checkoutRequestID", cb.CheckoutRequestID, "resultCode", cb.ResultCode, "resultDesc", cb.ResultDesc)

	if cb.ResultCode == 0 {
		return ignoreUnknownPayment(ctx, s.MarkSucceeded(ctx, cb.CheckoutRequestID), cb.CheckoutRequestID)
	}
	return ignoreUnknownPayment(ctx, s.MarkFailed(ctx, cb.CheckoutRequestID), cb.CheckoutRequestID)
}

// Providers retry on errors; a reference we never issued will not start matching later.
func ignoreUnknownPayment(ctx context.Context, err error, ref string) error {
	if errors.Is(err, domain.ErrNotFound) {
		logger.WarnContext(ctx, "Callback for unknown payment", "providerRef", ref)
		return nil
	}
	return err
}

type settlement struct {
	payment  *domain.Payment
	earnings *domain.OwnerEarnings
	ownerID  *uuid.UUID
	changed  bool
}

// MarkSucceeded settles a payment and allocates the owner's share in the same transaction.
// Repeated deliveries for the same reference are no-ops.
func (s *paymentService) MarkSucceeded(ctx context.Context, providerRef string) error {
	logger.EnterMethod("paymentService.MarkSucceeded", "providerRef", providerRef)

	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return err
	}

	var res settlement
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		payment, err := repos.Payments().GetByProviderRefForUpdate(ctx, providerRef)
		if err != nil {
			return err
		}
		res.payment = payment
		if payment.Status == domain.PaymentStatusSuccess {
			return nil
		}
		if err := repos.Payments().UpdateStatus(ctx, payment.ID, domain.PaymentStatusSuccess); err != nil {
			return err
		}
		payment.Status = domain.PaymentStatusSuccess
		res.changed = true

		res.earnings, res.ownerID, err = s.allocateFor(ctx, repos, payment, policy)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.MarkSucceeded", err, "providerRef", providerRef)
		return err
	}
	if !res.changed {
		logger.ExitMethod("paymentService.MarkSucceeded", "providerRef", providerRef, "duplicate", true)
		return nil
	}

	userID := res.payment.UserID
	s.events.Track(ctx, domain.Event{
		UserID: &userID,
		Type:   domain.EventPaymentSuccess,
		Properties: map[string]any{
			"payment_id": res.payment.ID.String(),
			"rental_id":  res.payment.RentalID.String(),
			"amount":     res.payment.Amount.StringFixed(2),
			"method":     string(res.payment.Method),
		},
	})
	if res.earnings != nil && res.ownerID != nil {
		s.notifyOwner(ctx, *res.ownerID, res.earnings)
	}

	logger.ExitMethod("paymentService.MarkSucceeded", "paymentID", res.payment.ID)
	return nil
}

// allocateFor credits the bike owner for a settled payment. Platform bikes have no owner.
func (s *paymentService) allocateFor(ctx context.Context, repos repository.Repositories, payment *domain.Payment, policy domain.Policy) (*domain.OwnerEarnings, *uuid.UUID, error) {
	rental, err := repos.Rentals().GetByID(ctx, payment.RentalID)
	if err != nil {
		return nil, nil, fmt.Errorf("load rental for payment %s: %w", payment.ID, err)
	}
	if rental.Amount == nil {
		return nil, nil, domain.Conflict("rental_inconsistent", "paid rental has no amount")
	}
	bike, err := repos.Bikes().GetByID(ctx, rental.BikeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "Bike missing at settlement", "rentalID", rental.ID, "bikeID", rental.BikeID)
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if bike.OwnerID == nil {
		return nil, nil, nil
	}

	earnings, created, err := s.earnings.Allocate(ctx, repos, AllocateInput{
		RentalID:    rental.ID,
		OwnerID:     *bike.OwnerID,
		TotalAmount: *rental.Amount,
	}, policy)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		return nil, nil, nil
	}
	return earnings, bike.OwnerID, nil
}

func (s *paymentService) notifyOwner(ctx context.Context, ownerID uuid.UUID, e *domain.OwnerEarnings) {
	note := &domain.Notification{
		UserID:  ownerID,
		Channel: domain.NotificationChannelPush,
		Title:   "You earned from a ride",
		Body:    fmt.Sprintf("%s %s has been added to your earnings.", strings.ToUpper(s.currency), e.OwnerAmount.StringFixed(2)),
		Data: map[string]string{
			"type":      "earnings",
			"rental_id": e.RentalID.String(),
		},
	}
	if err := s.notifications.Enqueue(ctx, note); err != nil {
		logger.WarnContext(ctx, "Failed to enqueue earnings notification", "ownerID", ownerID, "error", err)
	}
}

func (s *paymentService) MarkFailed(ctx context.Context, providerRef string) error {
	logger.EnterMethod("paymentService.MarkFailed", "providerRef", providerRef)

	var payment *domain.Payment
	var changed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if payment, err = repos.Payments().GetByProviderRefForUpdate(ctx, providerRef); err != nil {
			return err
		}
		switch payment.Status {
		case domain.PaymentStatusPending:
		case domain.PaymentStatusSuccess:
			logger.WarnContext(ctx, "Ignoring failure for settled payment", "paymentID", payment.ID)
			return nil
		case domain.PaymentStatusFailed:
			return nil
		default:
			return fmt.Errorf("payment %s has unknown status %q", payment.ID, payment.Status)
		}
		changed = true
		payment.Status = domain.PaymentStatusFailed
		return repos.Payments().UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed)
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.MarkFailed", err, "providerRef", providerRef)
		return err
	}

	if changed {
		userID := payment.UserID
		s.events.Track(ctx, domain.Event{
			UserID: &userID,
			Type:   domain.EventPaymentFailed,
			Properties: map[string]any{
				"payment_id": payment.ID.String(),
				"rental_id":  payment.RentalID.String(),
				"method":     string(payment.Method),
			},
		})
	}
	logger.ExitMethod("paymentService.MarkFailed", "paymentID", payment.ID, "changed", changed)
	return nil
}

// ReconcileEarnings allocates earnings for settled payments that missed allocation.
func (s *paymentService) ReconcileEarnings(ctx context.Context, limit int32) (int, error) {
	payments, err := s.paymentRepo.ListSuccessfulWithoutEarnings(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(payments) == 0 {
		return 0, nil
	}
	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return 0, err
	}

	allocated := 0
	for i := range payments {
		payment := &payments[i]
		var earnings *domain.OwnerEarnings
		var ownerID *uuid.UUID
		err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			var err error
			earnings, ownerID, err = s.allocateFor(ctx, repos, payment, policy)
			return err
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to reconcile earnings", "paymentID", payment.ID, "error", err)
			continue
		}
		if earnings != nil && ownerID != nil {
			allocated++
			s.notifyOwner(ctx, *ownerID, earnings)
		}
	}
	return allocated, nil
}

func (s *paymentService) ExpireStalePayments(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	n, err := s.paymentRepo.FailPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending payments: %w", err)
	}
	return n, nil
}
