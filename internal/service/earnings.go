package service

import (
	"context"
	"fmt"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/utils"

	"github.com/google/uuid"
)

type earningsService struct {
	earningsRepo repository.EarningsRepository
}

func NewEarningsService(earningsRepo repository.EarningsRepository) EarningsService {
	return &earningsService{earningsRepo: earningsRepo}
}

// Allocate splits a paid rental between its owner and the platform. At most one row
// exists per rental; a repeated call returns the stored split with created=false.
func (s *earningsService) Allocate(ctx context.Context, repos repository.Repositories, in AllocateInput, policy domain.Policy) (*domain.OwnerEarnings, bool, error) {
	logger.EnterMethod("earningsService.Allocate", "rentalID", in.RentalID, "ownerID", in.OwnerID, "total", in.TotalAmount.String())

	split, err := utils.SplitEarnings(in.TotalAmount, policy.OwnerShare, policy.CycleShare)
	if err != nil {
		logger.ExitMethodWithError("earningsService.Allocate", err)
		return nil, false, err
	}

	earnings := &domain.OwnerEarnings{
		ID:          uuid.New(),
		OwnerID:     in.OwnerID,
		RentalID:    in.RentalID,
		Amount:      split.Total,
		OwnerShare:  policy.OwnerShare,
		CycleShare:  policy.CycleShare,
		OwnerAmount: split.OwnerAmount,
		CycleAmount: split.CycleAmount,
	}

	created, err := repos.Earnings().Create(ctx, earnings)
	if err != nil {
		logger.ExitMethodWithError("earningsService.Allocate", err)
		return nil, false, fmt.Errorf("store earnings: %w", err)
	}
	if !created {
		existing, err := repos.Earnings().GetByRental(ctx, in.RentalID)
		if err != nil {
			return nil, false, fmt.Errorf("load existing earnings: %w", err)
		}
		logger.ExitMethod("earningsService.Allocate", "rentalID", in.RentalID, "created", false)
		return existing, false, nil
	}

	logger.ExitMethod("earningsService.Allocate", "earningsID", earnings.ID, "ownerAmount", split.OwnerAmount.String())
	return earnings, true, nil
}

func (s *earningsService) ListEarnings(ctx context.Context, ownerID uuid.UUID, page, pageSize int32) ([]domain.OwnerEarnings, int32, error) {
	return s.earningsRepo.ListByOwner(ctx, ownerID, page, pageSize)
}

func (s *earningsService) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.EarningsSummary, error) {
	return s.earningsRepo.Summary(ctx, ownerID)
}
