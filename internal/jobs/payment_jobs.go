package jobs

import (
	"context"
	"time"

	"cycle-backend/internal/logger"
)

// ReconcileEarnings allocates owner earnings for successful payments that have none
func (jr *JobRunner) ReconcileEarnings() {
	jr.runWithRecovery("ReconcileEarnings", func() {
		ctx := context.Background()

		allocated, err := jr.services.Payments.ReconcileEarnings(ctx, int32(jr.config.Jobs.DispatchBatchSize))
		if err != nil {
			logger.Error("Failed to reconcile earnings", "error", err)
			return
		}
		logger.Info("Reconciled earnings", "allocated", allocated)
	})
}

// ExpireStalePayments fails pending payments the provider never confirmed
func (jr *JobRunner) ExpireStalePayments() {
	jr.runWithRecovery("ExpireStalePayments", func() {
		ctx := context.Background()
		olderThan := time.Duration(jr.config.Jobs.PaymentExpiryHours) * time.Hour

		expired, err := jr.services.Payments.ExpireStalePayments(ctx, olderThan)
		if err != nil {
			logger.Error("Failed to expire stale payments", "error", err)
			return
		}
		logger.Info("Expired stale payments", "count", expired)
	})
}
