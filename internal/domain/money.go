package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire scales for decimal values. decimal's own MarshalJSON trims trailing zeros.
const (
	MoneyPlaces = 2
	RatePlaces  = 4
)

func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(RatePlaces)
}

func (r Rental) MarshalJSON() ([]byte, error) {
	type alias Rental
	out := struct {
		alias
		MinuteRateSnapshot string  `json:"minute_rate_snapshot"`
		Amount             *string `json:"amount,omitempty"`
	}{alias: alias(r), MinuteRateSnapshot: FormatRate(r.MinuteRateSnapshot)}
	if r.Amount != nil {
		amount := FormatMoney(*r.Amount)
		out.Amount = &amount
	}
	return json.Marshal(out)
}

func (e OwnerEarnings) MarshalJSON() ([]byte, error) {
	type alias OwnerEarnings
	return json.Marshal(struct {
		alias
		Amount      string `json:"amount"`
		OwnerShare  string `json:"owner_share"`
		CycleShare  string `json:"cycle_share"`
		OwnerAmount string `json:"owner_amount"`
		CycleAmount string `json:"cycle_amount"`
	}{
		alias:       alias(e),
		Amount:      FormatMoney(e.Amount),
		OwnerShare:  FormatRate(e.OwnerShare),
		CycleShare:  FormatRate(e.CycleShare),
		OwnerAmount: FormatMoney(e.OwnerAmount),
		CycleAmount: FormatMoney(e.CycleAmount),
	})
}

func (s EarningsSummary) MarshalJSON() ([]byte, error) {
	type alias EarningsSummary
	return json.Marshal(struct {
		alias
		TotalRevenue   string `json:"total_revenue"`
		TotalEarnings  string `json:"total_earnings"`
		AveragePerRide string `json:"average_per_ride"`
	}{
		alias:          alias(s),
		TotalRevenue:   FormatMoney(s.TotalRevenue),
		TotalEarnings:  FormatMoney(s.TotalEarnings),
		AveragePerRide: FormatMoney(s.AveragePerRide),
	})
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type alias Payment
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{alias: alias(p), Amount: FormatMoney(p.Amount)})
}
