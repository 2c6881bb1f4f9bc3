package jobs

import (
	"context"
	"fmt"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
)

// DispatchNotifications delivers queued notifications through their channels
func (jr *JobRunner) DispatchNotifications() {
	jr.runWithRecovery("DispatchNotifications", func() {
		ctx := context.Background()

		sent, failed, err := jr.services.Notifications.DispatchPending(ctx, int32(jr.config.Jobs.DispatchBatchSize))
		if err != nil {
			logger.Error("Failed to dispatch notifications", "sent", sent, "failed", failed, "error", err)
			return
		}
		logger.Info("Dispatched notifications", "sent", sent, "failed", failed)
	})
}

// RemindLongRides nudges riders whose ride has been open longer than the configured threshold.
// Each rental is reminded at most once.
func (jr *JobRunner) RemindLongRides() {
	jr.runWithRecovery("RemindLongRides", func() {
		ctx := context.Background()
		now := jr.now().UTC()
		threshold := time.Duration(jr.config.Jobs.LongRideHours) * time.Hour

		rentals, err := jr.rentals.ListOpenStartedBefore(ctx, now.Add(-threshold), int32(jr.config.Jobs.DispatchBatchSize))
		if err != nil {
			logger.Error("Failed to list long rides", "error", err)
			return
		}

		reminded := 0
		for _, rental := range rentals {
			hours := int(now.Sub(rental.StartAt).Hours())
			note := &domain.Notification{
				UserID:  rental.UserID,
				Channel: domain.NotificationChannelPush,
				Title:   "Your ride is still running",
				Body:    fmt.Sprintf("Your ride started %d hours ago. Remember to end it at a dock.", hours),
				Data:    map[string]string{"rental_id": rental.ID.String(), "type": "long_ride"},
			}
			if err := jr.services.Notifications.Enqueue(ctx, note); err != nil {
				logger.Error("Failed to enqueue long ride reminder", "rental_id", rental.ID, "error", err)
				continue
			}
			if err := jr.rentals.MarkReminded(ctx, rental.ID, now); err != nil {
				logger.Error("Failed to mark rental reminded", "rental_id", rental.ID, "error", err)
				continue
			}
			reminded++
		}

		logger.Info("Sent long ride reminders", "count", reminded, "candidates", len(rentals))
	})
}
