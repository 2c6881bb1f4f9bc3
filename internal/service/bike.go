package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/storage"

	"github.com/google/uuid"
)

const (
	defaultBikeRadiusKm = 1.0
	randomFallbackLimit = 10
)

type bikeService struct {
	bikeRepo     repository.BikeRepository
	userRepo     repository.UserRepository
	dockRepo     repository.DockRepository
	tx           repository.Transactor
	policies     PolicyService
	events       EventTracker
	store        storage.StorageInterface
	allowedTypes []string
	urlExpiry    time.Duration
}

type BikeServiceDeps struct {
	BikeRepo     repository.BikeRepository
	UserRepo     repository.UserRepository
	DockRepo     repository.DockRepository
	Tx           repository.Transactor
	Policies     PolicyService
	Events       EventTracker
	Storage      storage.StorageInterface
	AllowedTypes []string
	URLExpiry    time.Duration
}

func NewBikeService(deps BikeServiceDeps) BikeService {
	return &bikeService{
		bikeRepo:     deps.BikeRepo,
		userRepo:     deps.UserRepo,
		dockRepo:     deps.DockRepo,
		tx:           deps.Tx,
		policies:     deps.Policies,
		events:       deps.Events,
		store:        deps.Storage,
		allowedTypes: deps.AllowedTypes,
		urlExpiry:    deps.URLExpiry,
	}
}

func (s *bikeService) CreateBike(ctx context.Context, ownerID uuid.UUID, in CreateBikeInput) (*domain.Bike, error) {
	logger.EnterMethod("bikeService.CreateBike", "ownerID", ownerID, "hourlyRate", in.HourlyRate)

	if !in.Type.Valid() {
		return nil, domain.Validation("invalid_bike_type", "type must be standard, premium or old")
	}
	if !in.Condition.Valid() {
		return nil, domain.Validation("invalid_condition", "condition must be A, B or C")
	}
	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateHourlyRate(in.HourlyRate); err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	count, err := s.bikeRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= owner.OwnerMaxBikes {
		return nil, domain.Forbidden("owner_bike_limit", fmt.Sprintf("owner may list at most %d bikes", owner.OwnerMaxBikes))
	}
	if in.DockID != nil {
		if _, err := s.dockRepo.GetByID(ctx, *in.DockID); err != nil {
			return nil, err
		}
	}

	bike := &domain.Bike{
		OwnerID:    &ownerID,
		Type:       in.Type,
		Condition:  in.Condition,
		HourlyRate: in.HourlyRate,
		DockID:     in.DockID,
		Status:     domain.BikeStatusAvailable,
	}
	if err := s.bikeRepo.Create(ctx, bike); err != nil {
		logger.ExitMethodWithError("bikeService.CreateBike", err)
		return nil, err
	}

	bikeID := bike.ID
	s.events.Track(ctx, domain.Event{
		UserID:     &ownerID,
		BikeID:     &bikeID,
		DockID:     bike.DockID,
		Type:       domain.EventBikeCreated,
		Properties: map[string]any{"hourly_rate": bike.HourlyRate, "type": string(bike.Type)},
	})

	logger.ExitMethod("bikeService.CreateBike", "bikeID", bike.ID)
	return bike, nil
}

func (s *bikeService) UpdateBike(ctx context.Context, actor Actor, bikeID uuid.UUID, in UpdateBikeInput) (*domain.Bike, error) {
	var policy domain.Policy
	if in.HourlyRate != nil {
		var err error
		if policy, err = s.policies.GetPolicy(ctx); err != nil {
			return nil, err
		}
		if err := policy.ValidateHourlyRate(*in.HourlyRate); err != nil {
			return nil, err
		}
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, domain.Validation("invalid_bike_type", "type must be standard, premium or old")
	}
	if in.Condition != nil && !in.Condition.Valid() {
		return nil, domain.Validation("invalid_condition", "condition must be A, B or C")
	}
	if in.DockID != nil {
		if _, err := s.dockRepo.GetByID(ctx, *in.DockID); err != nil {
			return nil, err
		}
	}

	var bike *domain.Bike
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if bike, err = repos.Bikes().GetForUpdate(ctx, bikeID); err != nil {
			return err
		}
		if err := authorizeBike(actor, bike); err != nil {
			return err
		}

		if in.Status != nil && *in.Status != bike.Status {
			if err := checkStatusChange(bike.Status, *in.Status); err != nil {
				return err
			}
			bike.Status = *in.Status
		}
		if in.Type != nil {
			bike.Type = *in.Type
		}
		if in.Condition != nil {
			bike.Condition = *in.Condition
		}
		if in.HourlyRate != nil {
			bike.HourlyRate = *in.HourlyRate
		}
		if in.DockID != nil {
			bike.DockID = in.DockID
		}
		return repos.Bikes().Update(ctx, bike)
	})
	if err != nil {
		return nil, err
	}

	userID := actor.UserID
	s.events.Track(ctx, domain.Event{
		UserID:     &userID,
		BikeID:     &bike.ID,
		Type:       domain.EventBikeUpdated,
		Properties: map[string]any{"status": string(bike.Status), "hourly_rate": bike.HourlyRate},
	})
	return bike, nil
}

// checkStatusChange allows manual moves between available, maintenance and inactive only.
// Rides own the rented state.
func checkStatusChange(from, to domain.BikeStatus) error {
	if !to.Valid() {
		return domain.Validation("invalid_bike_status", "unknown bike status "+string(to))
	}
	switch from {
	case domain.BikeStatusRented:
		return domain.Conflict("bike_rented", "bike is on an open ride")
	case domain.BikeStatusAvailable, domain.BikeStatusMaintenance, domain.BikeStatusInactive:
	default:
		return fmt.Errorf("bike has unknown status %q", from)
	}
	switch to {
	case domain.BikeStatusRented:
		return domain.Conflict("bike_rented", "bikes become rented only by starting a ride")
	case domain.BikeStatusAvailable, domain.BikeStatusMaintenance, domain.BikeStatusInactive:
		return nil
	}
	return nil
}

func authorizeBike(actor Actor, bike *domain.Bike) error {
	if actor.Admin {
		return nil
	}
	if bike.OwnerID == nil || *bike.OwnerID != actor.UserID {
		return domain.Forbidden("not_bike_owner", "only the bike owner may change this bike")
	}
	return nil
}

func (s *bikeService) GetBike(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error) {
	return s.bikeRepo.GetByID(ctx, bikeID)
}

func (s *bikeService) ListBikes(ctx context.Context, filter domain.BikeFilter, page, pageSize int32) ([]domain.Bike, int32, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, domain.Validation("invalid_bike_type", "type must be standard, premium or old")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.Validation("invalid_bike_status", "unknown bike status "+string(filter.Status))
	}
	return s.bikeRepo.List(ctx, filter, page, pageSize)
}

func (s *bikeService) RequestPhotoUpload(ctx context.Context, actor Actor, bikeID uuid.UUID, contentType string) (*UploadTicket, error) {
	if !s.allowedType(contentType) {
		return nil, domain.Validation("unsupported_content_type", "content type "+contentType+" is not allowed")
	}
	bike, err := s.bikeRepo.GetByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBike(actor, bike); err != nil {
		return nil, err
	}

	key := storage.ObjectKey("bikes", bikeID.String(), uuid.NewString(), contentType)
	uploadURL, err := s.store.GeneratePresignedUploadURL(ctx, key, contentType, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &UploadTicket{Key: key, UploadURL: uploadURL, ExpiresAt: time.Now().Add(s.urlExpiry).UTC()}, nil
}

func (s *bikeService) ConfirmPhoto(ctx context.Context, actor Actor, bikeID uuid.UUID, key string) (*domain.Bike, error) {
	if !strings.HasPrefix(key, "bikes/"+bikeID.String()+"/") {
		return nil, domain.Validation("invalid_storage_key", "key does not belong to this bike")
	}
	bike, err := s.bikeRepo.GetByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBike(actor, bike); err != nil {
		return nil, err
	}

	exists, _, err := s.store.FileExists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check upload: %w", err)
	}
	if !exists {
		return nil, domain.Validation("upload_missing", "no file has been uploaded for this key")
	}

	url := s.store.PublicURL(key)
	if err := s.bikeRepo.AddPhoto(ctx, bikeID, url); err != nil {
		return nil, err
	}
	bike.Photos = append(bike.Photos, url)

	userID := actor.UserID
	s.events.Track(ctx, domain.Event{
		UserID:     &userID,
		BikeID:     &bike.ID,
		Type:       domain.EventBikePhotoUploaded,
		Properties: map[string]any{"url": url},
	})
	return bike, nil
}

func (s *bikeService) DeletePhoto(ctx context.Context, actor Actor, bikeID uuid.UUID, photoURL string) (*domain.Bike, error) {
	logger.EnterMethod("bikeService.DeletePhoto", "bikeID", bikeID)

	bike, err := s.bikeRepo.GetByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBike(actor, bike); err != nil {
		return nil, err
	}
	if err := s.bikeRepo.RemovePhoto(ctx, bikeID, photoURL); err != nil {
		logger.ExitMethodWithError("bikeService.DeletePhoto", err)
		return nil, err
	}

	if key, ok := photoKey(bikeID, photoURL); ok {
		if err := s.store.DeleteFile(ctx, key); err != nil {
			logger.WarnContext(ctx, "Failed to delete photo object", "bikeID", bikeID, "key", key, "error", err)
		}
	}

	photos := make([]string, 0, len(bike.Photos))
	for _, p := range bike.Photos {
		if p != photoURL {
			photos = append(photos, p)
		}
	}
	bike.Photos = photos

	userID := actor.UserID
	s.events.Track(ctx, domain.Event{
		UserID:     &userID,
		BikeID:     &bike.ID,
		Type:       domain.EventBikePhotoDeleted,
		Properties: map[string]any{"url": photoURL},
	})
	logger.ExitMethod("bikeService.DeletePhoto", "bikeID", bikeID, "remaining", len(bike.Photos))
	return bike, nil
}

// photoKey recovers the object key from a stored photo URL. Keys always start with bikes/<id>/.
func photoKey(bikeID uuid.UUID, photoURL string) (string, bool) {
	raw, err := url.QueryUnescape(photoURL)
	if err != nil {
		raw = photoURL
	}
	prefix := "bikes/" + bikeID.String() + "/"
	i := strings.Index(raw, prefix)
	if i < 0 {
		return "", false
	}
	key, err := storage.CleanKey(raw[i:])
	if err != nil {
		return "", false
	}
	return key, true
}

// DeleteBike removes a bike that never carried a rider. Bikes with history are retired with status inactive.
func (s *bikeService) DeleteBike(ctx context.Context, actor Actor, bikeID uuid.UUID) error {
	logger.EnterMethod("bikeService.DeleteBike", "bikeID", bikeID, "actor", actor.UserID)

	var photos []string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		bike, err := repos.Bikes().GetForUpdate(ctx, bikeID)
		if err != nil {
			return err
		}
		if err := authorizeBike(actor, bike); err != nil {
			return err
		}
		if bike.Status == domain.BikeStatusRented {
			return domain.Conflict("bike_rented", "bike is on an open ride")
		}
		photos = bike.Photos
		return repos.Bikes().Delete(ctx, bikeID)
	})
	if err != nil {
		logger.ExitMethodWithError("bikeService.DeleteBike", err)
		return err
	}

	for _, p := range photos {
		if key, ok := photoKey(bikeID, p); ok {
			if err := s.store.DeleteFile(ctx, key); err != nil {
				logger.WarnContext(ctx, "Failed to delete photo object", "bikeID", bikeID, "key", key, "error", err)
			}
		}
	}

	userID := actor.UserID
	s.events.Track(ctx, domain.Event{
		UserID: &userID,
		BikeID: &bikeID,
		Type:   domain.EventBikeDeleted,
	})
	logger.ExitMethod("bikeService.DeleteBike", "bikeID", bikeID)
	return nil
}

func (s *bikeService) NearbyBikes(ctx context.Context, lat, lng, radiusKm float64) (*domain.NearbyBikes, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm == 0 {
		radiusKm = defaultBikeRadiusKm
	}
	if radiusKm < 0 || radiusKm > maxNearbyRadiusKm {
		return nil, domain.Validation("invalid_radius", "radius_km must be greater than 0 and at most 50")
	}

	bikes, err := s.bikeRepo.NearbyAvailable(ctx, lat, lng, radiusKm, nearbyLimit)
	if err != nil {
		return nil, err
	}
	if len(bikes) > 0 {
		return &domain.NearbyBikes{Bikes: bikes, Count: len(bikes)}, nil
	}

	bikes, err = s.bikeRepo.RandomAvailable(ctx, randomFallbackLimit)
	if err != nil {
		return nil, err
	}
	return &domain.NearbyBikes{
		Bikes:        bikes,
		Count:        len(bikes),
		FallbackUsed: true,
		Message:      "No bikes nearby. Showing random available bikes.",
	}, nil
}

func (s *bikeService) allowedType(contentType string) bool {
	if len(s.allowedTypes) == 0 {
		return strings.HasPrefix(contentType, "image/")
	}
	for _, t := range s.allowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}
