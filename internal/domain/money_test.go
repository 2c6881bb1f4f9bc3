package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentalJSON_FixedScale(t *testing.T) {
	end := time.Date(2026, 3, 1, 10, 45, 0, 0, time.UTC)
	amount := decimal.RequireFromString("52.5")
	minutes := 45
	r := Rental{
		ID:                 uuid.New(),
		StartAt:            end.Add(-45 * time.Minute),
		EndAt:              &end,
		MinuteRateSnapshot: decimal.RequireFromString("1"),
		MinutesClient:      &minutes,
		Amount:             &amount,
		Status:             RentalStatusClosed,
	}

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"52.50"`)
	assert.Contains(t, string(raw), `"minute_rate_snapshot":"1.0000"`)
	assert.Contains(t, string(raw), `"status":"closed"`)

	var back Rental
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, amount.Equal(*back.Amount))

	open := Rental{ID: uuid.New(), MinuteRateSnapshot: decimal.RequireFromString("0.9167"), Status: RentalStatusOpen}
	raw, err = json.Marshal(open)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"amount"`)
}

func TestEarningsJSON_FixedScale(t *testing.T) {
	raw, err := json.Marshal(OwnerEarnings{
		Amount:      decimal.RequireFromString("50"),
		OwnerShare:  decimal.RequireFromString("0.8"),
		CycleShare:  decimal.RequireFromString("0.2"),
		OwnerAmount: decimal.RequireFromString("40"),
		CycleAmount: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"50.00"`)
	assert.Contains(t, string(raw), `"owner_share":"0.8000"`)
	assert.Contains(t, string(raw), `"owner_amount":"40.00"`)
	assert.Contains(t, string(raw), `"cycle_amount":"10.00"`)

	raw, err = json.Marshal(EarningsSummary{TotalRides: 2, TotalRevenue: decimal.RequireFromString("105"),
		TotalEarnings: decimal.RequireFromString("84"), AveragePerRide: decimal.RequireFromString("42")})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_earnings":"84.00"`)
	assert.Contains(t, string(raw), `"total_rides":2`)

	raw, err = json.Marshal(Payment{Amount: decimal.RequireFromString("7.1"), Method: PaymentMethodMpesa})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"7.10"`)
	assert.Contains(t, string(raw), `"method":"mpesa"`)
}
