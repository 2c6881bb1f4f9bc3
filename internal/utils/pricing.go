package utils

import (
	"fmt"
	"time"

	"cycle-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	minutesPerHour = decimal.NewFromInt(60)
	// ShareTolerance bounds |owner_share + cycle_share - 1|.
	ShareTolerance = decimal.RequireFromString("0.0001")
)

// Split is the rounded division of a rental amount between owner and platform.
type Split struct {
	Total       decimal.Decimal
	OwnerAmount decimal.Decimal
	CycleAmount decimal.Decimal
}

// MinuteRateFromHourly converts a whole hourly rate to a per-minute rate at 4 decimal places.
// decimal.Round rounds half away from zero, which is half-up for the non-negative rates used here.
func MinuteRateFromHourly(hourlyRate int) decimal.Decimal {
	return decimal.NewFromInt(int64(hourlyRate)).DivRound(minutesPerHour, 4)
}

// RideAmount bills minutes at the snapshot rate, rounded to cents.
func RideAmount(minuteRate decimal.Decimal, minutes int) (decimal.Decimal, error) {
	if minutes < 0 {
		return decimal.Zero, domain.Validation("invalid_minutes", "minutes must not be negative")
	}
	return minuteRate.Mul(decimal.NewFromInt(int64(minutes))).Round(2), nil
}

// ValidateShares checks that the two shares are non-negative and sum to one.
func ValidateShares(ownerShare, cycleShare decimal.Decimal) error {
	if ownerShare.IsNegative() || cycleShare.IsNegative() {
		return domain.Validation("invalid_share_split", "shares must not be negative")
	}
	diff := ownerShare.Add(cycleShare).Sub(decimal.NewFromInt(1)).Abs()
	if diff.GreaterThan(ShareTolerance) {
		return domain.Validation("invalid_share_split",
			fmt.Sprintf("owner share %s and cycle share %s must sum to 1", ownerShare, cycleShare))
	}
	return nil
}

// SplitEarnings rounds the owner side and gives the remainder to the platform,
// so OwnerAmount + CycleAmount == Total exactly.
func SplitEarnings(total, ownerShare, cycleShare decimal.Decimal) (Split, error) {
	if err := ValidateShares(ownerShare, cycleShare); err != nil {
		return Split{}, err
	}
	if total.IsNegative() {
		return Split{}, domain.Validation("invalid_amount", "amount must not be negative")
	}
	total = total.Round(2)
	owner := total.Mul(ownerShare).Round(2)
	return Split{
		Total:       total,
		OwnerAmount: owner,
		CycleAmount: total.Sub(owner),
	}, nil
}

// ToMinorUnits converts an amount to integer cents for card processors.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ElapsedMinutes returns whole minutes between start and end, rounded up.
// Used for reporting only; billing uses the client-reported minutes.
func ElapsedMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	d := end.Sub(start)
	m := int(d / time.Minute)
	if d%time.Minute > 0 {
		m++
	}
	return m
}
