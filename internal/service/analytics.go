package service

import (
	"context"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"
)

const maxAnalyticsRange = 366 * 24 * time.Hour

type analyticsService struct {
	eventRepo repository.EventRepository
}

func NewAnalyticsService(eventRepo repository.EventRepository) AnalyticsService {
	return &analyticsService{eventRepo: eventRepo}
}

// DailyActiveUsers counts distinct riders who started a ride on the given UTC day.
func (s *analyticsService) DailyActiveUsers(ctx context.Context, day time.Time) (int64, error) {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.eventRepo.CountDistinctUsers(ctx, domain.EventRideStart, from, from.AddDate(0, 0, 1))
}

// TripsPerDock ranks docks by rides started there in [from, to).
func (s *analyticsService) TripsPerDock(ctx context.Context, from, to time.Time) ([]domain.DockTrips, error) {
	if !to.After(from) {
		return nil, domain.Validation("invalid_range", "to must be after from")
	}
	if to.Sub(from) > maxAnalyticsRange {
		return nil, domain.Validation("invalid_range", "range must be at most 366 days")
	}
	return s.eventRepo.CountByDock(ctx, domain.EventRideStart, from.UTC(), to.UTC())
}
