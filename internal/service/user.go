package service

import (
	"context"
	"strings"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

type userService struct {
	userRepo   repository.UserRepository
	deviceRepo repository.DeviceRepository
}

func NewUserService(userRepo repository.UserRepository, deviceRepo repository.DeviceRepository) UserService {
	return &userService{userRepo: userRepo, deviceRepo: deviceRepo}
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, phone string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		user.Phone = phone
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) RegisterDevice(ctx context.Context, userID uuid.UUID, token string, platform domain.DevicePlatform) (*domain.Device, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.Validation("invalid_device_token", "device token is required")
	}
	if !platform.Valid() {
		return nil, domain.Validation("invalid_platform", "platform must be android, ios or web")
	}
	device := &domain.Device{UserID: userID, Token: token, Platform: platform}
	if err := s.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *userService) SetOwnerMaxBikes(ctx context.Context, userID uuid.UUID, maxBikes int) error {
	if maxBikes < 0 {
		return domain.Validation("invalid_owner_max_bikes", "owner_max_bikes must not be negative")
	}
	return s.userRepo.UpdateOwnerMaxBikes(ctx, userID, maxBikes)
}
