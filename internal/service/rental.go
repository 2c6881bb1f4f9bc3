package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/utils"

	"github.com/google/uuid"
)

type rentalService struct {
	rentalRepo repository.RentalRepository
	tx         repository.Transactor
	events     EventTracker
	now        func() time.Time
}

func NewRentalService(rentalRepo repository.RentalRepository, tx repository.Transactor, events EventTracker) RentalService {
	return &rentalService{
		rentalRepo: rentalRepo,
		tx:         tx,
		events:     events,
		now:        time.Now,
	}
}

func (s *rentalService) StartRide(ctx context.Context, in StartRideInput) (*domain.Rental, bool, error) {
	logger.EnterMethod("rentalService.StartRide", "bikeID", in.BikeID, "userID", in.UserID)

	if in.ClientRentalID != nil && *in.ClientRentalID == "" {
		in.ClientRentalID = nil
	}
	if in.ClientRentalID != nil {
		existing, err := s.rentalRepo.GetByClientID(ctx, in.UserID, *in.ClientRentalID)
		if err == nil {
			logger.ExitMethod("rentalService.StartRide", "rentalID", existing.ID, "replayed", true)
			return existing, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, fmt.Errorf("lookup rental by client id: %w", err)
		}
	}

	var rental *domain.Rental
	var replayed bool
	var dockID *uuid.UUID
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		bike, err := repos.Bikes().GetForUpdate(ctx, in.BikeID)
		if err != nil {
			return err
		}

		// A concurrent replay may have committed while we waited for the bike lock.
		if in.ClientRentalID != nil {
			existing, err := repos.Rentals().GetByClientID(ctx, in.UserID, *in.ClientRentalID)
			if err == nil {
				rental, replayed = existing, true
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		switch bike.Status {
		case domain.BikeStatusAvailable:
		case domain.BikeStatusRented, domain.BikeStatusMaintenance, domain.BikeStatusInactive:
			return domain.Conflict("bike_unavailable", fmt.Sprintf("bike is %s", bike.Status))
		default:
			return fmt.Errorf("bike %s has unknown status %q", bike.ID, bike.Status)
		}

		rate := utils.MinuteRateFromHourly(bike.HourlyRate)
		if in.ClientMinuteRate != nil && !in.ClientMinuteRate.Equal(rate) {
			logger.WarnContext(ctx, "Client minute rate differs from bike rate",
				"bikeID", bike.ID, "clientRate", in.ClientMinuteRate.String(), "serverRate", rate.String())
		}

		rental = &domain.Rental{
			ClientRentalID:     in.ClientRentalID,
			BikeID:             bike.ID,
			UserID:             in.UserID,
			StartAt:            in.ClientStartAt,
			MinuteRateSnapshot: rate,
			Status:             domain.RentalStatusOpen,
		}
		dockID = bike.DockID
		if err := repos.Rentals().Create(ctx, rental); err != nil {
			return err
		}
		return repos.Bikes().MarkRented(ctx, bike.ID, s.now().UTC())
	})

	if err != nil && in.ClientRentalID != nil && domain.ReasonOf(err) == "duplicate_client_rental_id" {
		existing, lookupErr := s.rentalRepo.GetByClientID(ctx, in.UserID, *in.ClientRentalID)
		if lookupErr == nil {
			logger.ExitMethod("rentalService.StartRide", "rentalID", existing.ID, "replayed", true)
			return existing, true, nil
		}
	}
	if err != nil {
		logger.ExitMethodWithError("rentalService.StartRide", err, "bikeID", in.BikeID)
		return nil, false, err
	}

	if !replayed {
		userID, bikeID := rental.UserID, rental.BikeID
		s.events.Track(ctx, domain.Event{
			UserID:     &userID,
			BikeID:     &bikeID,
			DockID:     dockID,
			Type:       domain.EventRideStart,
			Properties: map[string]any{"rental_id": rental.ID.String()},
		})
	}

	logger.ExitMethod("rentalService.StartRide", "rentalID", rental.ID, "replayed", replayed)
	return rental, replayed, nil
}

func (s *rentalService) EndRide(ctx context.Context, in EndRideInput) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.EndRide", "userID", in.UserID, "minutes", in.MinutesClient)

	if (in.RentalID == nil) == (in.ClientRentalID == nil || *in.ClientRentalID == "") {
		return nil, domain.Validation("rental_ref_required", "exactly one of rental_id or client_rental_id is required")
	}
	if in.MinutesClient < 0 || in.MinutesClient > domain.MaxRideMinutes {
		return nil, domain.Validation("invalid_minutes",
			fmt.Sprintf("minutes_client must be between 0 and %d", domain.MaxRideMinutes))
	}

	var rental *domain.Rental
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if in.RentalID != nil {
			rental, err = repos.Rentals().GetForUpdate(ctx, *in.RentalID)
		} else {
			rental, err = repos.Rentals().GetByClientIDForUpdate(ctx, in.UserID, *in.ClientRentalID)
		}
		if err != nil {
			return err
		}
		if rental.UserID != in.UserID {
			return domain.Forbidden("rental_not_owned", "rental belongs to another user")
		}

		switch rental.Status {
		case domain.RentalStatusOpen:
		case domain.RentalStatusEndPending, domain.RentalStatusClosed:
			return domain.Conflict("rental_already_ended", fmt.Sprintf("rental is %s", rental.Status))
		default:
			return fmt.Errorf("rental %s has unknown status %q", rental.ID, rental.Status)
		}

		if in.ClientEndAt.Before(rental.StartAt) {
			return domain.Validation("end_before_start", "end_at must not be before start_at")
		}

		amount, err := utils.RideAmount(rental.MinuteRateSnapshot, in.MinutesClient)
		if err != nil {
			return err
		}
		endAt := in.ClientEndAt
		minutes := in.MinutesClient
		if elapsed := utils.ElapsedMinutes(rental.StartAt, endAt); elapsed-minutes > 1 || minutes-elapsed > 1 {
			logger.WarnContext(ctx, "Client minutes differ from elapsed time",
				"rentalID", rental.ID, "minutesClient", minutes, "elapsed", elapsed)
		}
		rental.EndAt = &endAt
		rental.MinutesClient = &minutes
		rental.Amount = &amount
		rental.PathSample = in.PathSample
		rental.Status = domain.RentalStatusClosed
		if err := rental.CheckInvariants(); err != nil {
			return err
		}
		if err := repos.Rentals().Close(ctx, rental); err != nil {
			return err
		}

		if _, err := repos.Bikes().GetForUpdate(ctx, rental.BikeID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.WarnContext(ctx, "Bike missing at ride end", "rentalID", rental.ID, "bikeID", rental.BikeID)
				return nil
			}
			return err
		}
		return repos.Bikes().MarkReturned(ctx, rental.BikeID, s.now().UTC())
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.EndRide", err)
		return nil, err
	}

	userID, bikeID := rental.UserID, rental.BikeID
	s.events.Track(ctx, domain.Event{
		UserID: &userID,
		BikeID: &bikeID,
		Type:   domain.EventRideEnd,
		Properties: map[string]any{
			"rental_id": rental.ID.String(),
			"minutes":   *rental.MinutesClient,
			"amount":    rental.Amount.StringFixed(2),
		},
	})

	logger.ExitMethod("rentalService.EndRide", "rentalID", rental.ID, "amount", rental.Amount.StringFixed(2))
	return rental, nil
}

func (s *rentalService) GetRental(ctx context.Context, userID, rentalID uuid.UUID) (*domain.Rental, error) {
	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		// Do not reveal other users' rentals.
		return nil, domain.NotFound("rental_not_found", "rental does not exist")
	}
	return rental, nil
}

func (s *rentalService) ListRentals(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Rental, int32, error) {
	return s.rentalRepo.ListByUser(ctx, userID, page, pageSize)
}
