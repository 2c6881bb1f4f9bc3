package domain

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Admin policy keys as stored in admin_policies.
const (
	PolicyHourlyRateMin            = "hourly_rate_min"
	PolicyHourlyRateMax            = "hourly_rate_max"
	PolicyEcoPointsCouponPct       = "eco_points_coupon_pct"
	PolicyOwnerMaxBikesDefault     = "owner_max_bikes_default"
	PolicyEcoPointsRedeemThreshold = "eco_points_redeem_threshold"
	PolicyOwnerShare               = "owner_share"
	PolicyCycleShare               = "cycle_share"
)

// SharePlaces matches the NUMERIC(5,4) share columns.
const SharePlaces = 4

// Policy is a typed snapshot of the admin policy table. Load it once per request.
type Policy struct {
	HourlyRateMin            int             `json:"hourly_rate_min"`
	HourlyRateMax            int             `json:"hourly_rate_max"`
	EcoPointsCouponPct       int             `json:"eco_points_coupon_pct"`
	OwnerMaxBikesDefault     int             `json:"owner_max_bikes_default"`
	EcoPointsRedeemThreshold int             `json:"eco_points_redeem_threshold"`
	OwnerShare               decimal.Decimal `json:"owner_share"`
	CycleShare               decimal.Decimal `json:"cycle_share"`
}

func DefaultPolicy() Policy {
	return Policy{
		HourlyRateMin:            50,
		HourlyRateMax:            70,
		EcoPointsCouponPct:       20,
		OwnerMaxBikesDefault:     1,
		EcoPointsRedeemThreshold: 1000,
		OwnerShare:               decimal.RequireFromString("0.8"),
		CycleShare:               decimal.RequireFromString("0.2"),
	}
}

// PolicyFromValues overlays stored key/value pairs on the defaults.
// Unknown keys are ignored; malformed values are an error.
func PolicyFromValues(values map[string]string) (Policy, error) {
	p := DefaultPolicy()
	for key, raw := range values {
		if err := p.set(key, raw); err != nil {
			return Policy{}, err
		}
	}
	return p, nil
}

// With returns a copy of p with key set to raw.
func (p Policy) With(key, raw string) (Policy, error) {
	if err := p.set(key, raw); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p *Policy) set(key, raw string) error {
	switch key {
	case PolicyHourlyRateMin, PolicyHourlyRateMax, PolicyEcoPointsCouponPct,
		PolicyOwnerMaxBikesDefault, PolicyEcoPointsRedeemThreshold:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Validation("invalid_policy_value", fmt.Sprintf("%s must be an integer", key))
		}
		switch key {
		case PolicyHourlyRateMin:
			p.HourlyRateMin = n
		case PolicyHourlyRateMax:
			p.HourlyRateMax = n
		case PolicyEcoPointsCouponPct:
			p.EcoPointsCouponPct = n
		case PolicyOwnerMaxBikesDefault:
			p.OwnerMaxBikesDefault = n
		case PolicyEcoPointsRedeemThreshold:
			p.EcoPointsRedeemThreshold = n
		}
	case PolicyOwnerShare, PolicyCycleShare:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Validation("invalid_policy_value", fmt.Sprintf("%s must be a decimal", key))
		}
		if !d.Equal(d.Truncate(SharePlaces)) {
			return Validation("invalid_share_precision",
				fmt.Sprintf("%s allows at most %d decimal places", key, SharePlaces))
		}
		if key == PolicyOwnerShare {
			p.OwnerShare = d
		} else {
			p.CycleShare = d
		}
	default:
		return Validation("unknown_policy_key", "unknown policy key "+key)
	}
	return nil
}

// ValidateHourlyRate rejects rates outside [HourlyRateMin, HourlyRateMax]. It never clamps.
func (p Policy) ValidateHourlyRate(rate int) error {
	if rate < p.HourlyRateMin || rate > p.HourlyRateMax {
		return Validation("rate_out_of_range",
			fmt.Sprintf("hourly rate %d must be between %d and %d", rate, p.HourlyRateMin, p.HourlyRateMax))
	}
	return nil
}

// Values renders the policy as stored key/value pairs.
func (p Policy) Values() map[string]string {
	return map[string]string{
		PolicyHourlyRateMin:            strconv.Itoa(p.HourlyRateMin),
		PolicyHourlyRateMax:            strconv.Itoa(p.HourlyRateMax),
		PolicyEcoPointsCouponPct:       strconv.Itoa(p.EcoPointsCouponPct),
		PolicyOwnerMaxBikesDefault:     strconv.Itoa(p.OwnerMaxBikesDefault),
		PolicyEcoPointsRedeemThreshold: strconv.Itoa(p.EcoPointsRedeemThreshold),
		PolicyOwnerShare:               p.OwnerShare.String(),
		PolicyCycleShare:               p.CycleShare.String(),
	}
}
