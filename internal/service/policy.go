package service

import (
	"context"
	"fmt"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/utils"
)

type policyService struct {
	policyRepo repository.PolicyRepository
	tx         repository.Transactor
}

func NewPolicyService(policyRepo repository.PolicyRepository, tx repository.Transactor) PolicyService {
	return &policyService{policyRepo: policyRepo, tx: tx}
}

func (s *policyService) GetPolicy(ctx context.Context) (domain.Policy, error) {
	values, err := s.policyRepo.GetAll(ctx)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("load policy: %w", err)
	}
	return domain.PolicyFromValues(values)
}

// UpdatePolicy applies all values or none; the merged policy must stay coherent.
func (s *policyService) UpdatePolicy(ctx context.Context, values map[string]string) (domain.Policy, error) {
	logger.EnterMethod("policyService.UpdatePolicy", "keys", len(values))

	current, err := s.GetPolicy(ctx)
	if err != nil {
		return domain.Policy{}, err
	}
	next := current
	for key, raw := range values {
		if next, err = next.With(key, raw); err != nil {
			return domain.Policy{}, err
		}
	}
	if err := validatePolicy(next); err != nil {
		return domain.Policy{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		for key, raw := range values {
			if err := repos.Policies().Upsert(ctx, key, raw); err != nil {
				return fmt.Errorf("store policy %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("policyService.UpdatePolicy", err)
		return domain.Policy{}, err
	}

	logger.ExitMethod("policyService.UpdatePolicy")
	return next, nil
}

func validatePolicy(p domain.Policy) error {
	if p.HourlyRateMin <= 0 || p.HourlyRateMin > p.HourlyRateMax {
		return domain.Validation("invalid_rate_range", "hourly_rate_min must be positive and not exceed hourly_rate_max")
	}
	if p.OwnerMaxBikesDefault < 0 {
		return domain.Validation("invalid_policy_value", "owner_max_bikes_default must not be negative")
	}
	if p.EcoPointsCouponPct < 0 || p.EcoPointsCouponPct > 100 {
		return domain.Validation("invalid_policy_value", "eco_points_coupon_pct must be between 0 and 100")
	}
	return utils.ValidateShares(p.OwnerShare, p.CycleShare)
}
