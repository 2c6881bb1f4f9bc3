package service

import (
	"context"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
)

const maxZoneLabelLength = 120

type zoneService struct {
	zoneRepo repository.ZoneRepository
	events   EventTracker
}

func NewZoneService(zoneRepo repository.ZoneRepository, events EventTracker) ZoneService {
	return &zoneService{zoneRepo: zoneRepo, events: events}
}

// ListZones returns zones changed after since so the app can refresh its offline copy.
func (s *zoneService) ListZones(ctx context.Context, since *time.Time) ([]domain.Zone, error) {
	return s.zoneRepo.List(ctx, since)
}

func (s *zoneService) CreateZone(ctx context.Context, actor Actor, in CreateZoneInput) (*domain.Zone, error) {
	logger.EnterMethod("zoneService.CreateZone", "kind", in.Kind, "rings", len(in.Polygon))

	if !actor.Admin {
		return nil, domain.Forbidden("admin_required", "only admins may draw zones")
	}
	if !in.Kind.Valid() {
		return nil, domain.Validation("invalid_zone_kind", "kind must be green or red")
	}
	if err := in.Polygon.Validate(); err != nil {
		return nil, err
	}
	if in.Label != nil {
		label := strings.TrimSpace(*in.Label)
		if len(label) > maxZoneLabelLength {
			return nil, domain.Validation("invalid_zone_label", "label must be at most 120 characters")
		}
		if label == "" {
			in.Label = nil
		} else {
			in.Label = &label
		}
	}

	createdBy := actor.UserID
	zone := &domain.Zone{
		Kind:      in.Kind,
		Polygon:   in.Polygon,
		Label:     in.Label,
		CreatedBy: &createdBy,
	}
	if err := s.zoneRepo.Create(ctx, zone); err != nil {
		logger.ExitMethodWithError("zoneService.CreateZone", err)
		return nil, err
	}

	s.events.Track(ctx, domain.Event{
		UserID:     &createdBy,
		Type:       domain.EventZoneCreated,
		Properties: map[string]any{"zone_id": zone.ID.String(), "kind": string(zone.Kind)},
	})

	logger.ExitMethod("zoneService.CreateZone", "zoneID", zone.ID)
	return zone, nil
}
