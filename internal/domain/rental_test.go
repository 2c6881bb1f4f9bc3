package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRentalStatus(t *testing.T) {
	assert.True(t, RentalStatusOpen.CanEnd())
	assert.False(t, RentalStatusEndPending.CanEnd())
	assert.False(t, RentalStatusClosed.CanEnd())
	assert.False(t, RentalStatus("cancelled").Valid())
	assert.False(t, RentalStatus("cancelled").CanEnd())
}

func TestRentalCheckInvariants(t *testing.T) {
	now := time.Now()
	amount := decimal.RequireFromString("52.50")

	open := &Rental{Status: RentalStatusOpen}
	assert.NoError(t, open.CheckInvariants())

	closed := &Rental{Status: RentalStatusClosed, EndAt: &now, Amount: &amount}
	assert.NoError(t, closed.CheckInvariants())

	closedNoAmount := &Rental{Status: RentalStatusClosed, EndAt: &now}
	assert.True(t, errors.Is(closedNoAmount.CheckInvariants(), ErrConflict))

	openWithAmount := &Rental{Status: RentalStatusOpen, Amount: &amount}
	assert.Error(t, openWithAmount.CheckInvariants())

	unknown := &Rental{Status: "lost"}
	assert.True(t, errors.Is(unknown.CheckInvariants(), ErrValidation))
}

func TestErrorWrapping(t *testing.T) {
	err := NotFound("bike_not_found", "bike does not exist")
	wrapped := errors.Join(errors.New("start ride"), err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "bike_not_found", ReasonOf(wrapped))
	assert.Equal(t, "", ReasonOf(errors.New("plain")))
}
