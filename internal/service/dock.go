package service

import (
	"context"
	"strings"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	maxNearbyRadiusKm = 50
	nearbyLimit       = 50
)

type dockService struct {
	dockRepo repository.DockRepository
	events   EventTracker
}

func NewDockService(dockRepo repository.DockRepository, events EventTracker) DockService {
	return &dockService{dockRepo: dockRepo, events: events}
}

func (s *dockService) CreateDock(ctx context.Context, dock *domain.Dock) error {
	dock.Name = strings.TrimSpace(dock.Name)
	if dock.Name == "" {
		return domain.Validation("invalid_dock_name", "dock name is required")
	}
	if err := validateCoordinates(dock.Lat, dock.Lng); err != nil {
		return err
	}
	if dock.Capacity <= 0 {
		return domain.Validation("invalid_capacity", "capacity must be positive")
	}
	return s.dockRepo.Create(ctx, dock)
}

func (s *dockService) GetDock(ctx context.Context, id uuid.UUID) (*domain.Dock, error) {
	return s.dockRepo.GetByID(ctx, id)
}

func (s *dockService) ListDocks(ctx context.Context, page, pageSize int32) ([]domain.Dock, int32, error) {
	return s.dockRepo.List(ctx, page, pageSize)
}

func (s *dockService) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyDock, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 || radiusKm > maxNearbyRadiusKm {
		return nil, domain.Validation("invalid_radius", "radius_km must be greater than 0 and at most 50")
	}
	return s.dockRepo.Nearby(ctx, lat, lng, radiusKm, nearbyLimit)
}

func (s *dockService) UpdateDock(ctx context.Context, id uuid.UUID, in UpdateDockInput) (*domain.Dock, error) {
	logger.EnterMethod("dockService.UpdateDock", "dockID", id)

	if (in.Lat == nil) != (in.Lng == nil) {
		return nil, domain.Validation("invalid_coordinates", "lat and lng must be updated together")
	}
	dock, err := s.dockRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Validation("invalid_dock_name", "dock name is required")
		}
		dock.Name = name
	}
	if in.Lat != nil {
		if err := validateCoordinates(*in.Lat, *in.Lng); err != nil {
			return nil, err
		}
		dock.Lat, dock.Lng = *in.Lat, *in.Lng
	}
	if in.Capacity != nil {
		if *in.Capacity <= 0 {
			return nil, domain.Validation("invalid_capacity", "capacity must be positive")
		}
		dock.Capacity = *in.Capacity
	}

	if err := s.dockRepo.Update(ctx, dock); err != nil {
		logger.ExitMethodWithError("dockService.UpdateDock", err)
		return nil, err
	}
	s.events.Track(ctx, domain.Event{
		DockID:     &dock.ID,
		Type:       domain.EventDockUpdated,
		Properties: map[string]any{"capacity": dock.Capacity},
	})
	logger.ExitMethod("dockService.UpdateDock", "dockID", id)
	return dock, nil
}

// DeleteDock refuses while bikes are still assigned to the dock.
func (s *dockService) DeleteDock(ctx context.Context, id uuid.UUID) error {
	if err := s.dockRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Track(ctx, domain.Event{Type: domain.EventDockDeleted, Properties: map[string]any{"dock_id": id.String()}})
	return nil
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.Validation("invalid_coordinates", "lat must be within ±90 and lng within ±180")
	}
	return nil
}
