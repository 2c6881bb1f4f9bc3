package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
)

var errNoDevices = errors.New("user has no registered devices")

type notificationService struct {
	noteRepo   repository.NotificationRepository
	deviceRepo repository.DeviceRepository
	userRepo   repository.UserRepository
	push       PushSender
	email      EmailService
	now        func() time.Time
}

func NewNotificationService(noteRepo repository.NotificationRepository, deviceRepo repository.DeviceRepository, userRepo repository.UserRepository, push PushSender, email EmailService) NotificationService {
	return &notificationService{
		noteRepo:   noteRepo,
		deviceRepo: deviceRepo,
		userRepo:   userRepo,
		push:       push,
		email:      email,
		now:        time.Now,
	}
}

func (s *notificationService) Enqueue(ctx context.Context, note *domain.Notification) error {
	if !note.Channel.Valid() {
		return domain.Validation("invalid_channel", "unknown notification channel "+string(note.Channel))
	}
	if strings.TrimSpace(note.Title) == "" {
		return domain.Validation("invalid_notification", "title is required")
	}
	note.Status = domain.NotificationStatusPending
	note.SentAt = nil
	return s.noteRepo.Create(ctx, note)
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int32) ([]domain.Notification, int32, error) {
	return s.noteRepo.List(ctx, userID, page, pageSize)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// DispatchPending delivers up to limit pending notifications. A delivery failure marks
// that notification failed and moves on; only storage errors abort the batch.
func (s *notificationService) DispatchPending(ctx context.Context, limit int32) (int, int, error) {
	logger.EnterMethod("notificationService.DispatchPending", "limit", limit)

	pending, err := s.noteRepo.ListPending(ctx, limit)
	if err != nil {
		logger.ExitMethodWithError("notificationService.DispatchPending", err)
		return 0, 0, err
	}

	sent, failed := 0, 0
	for i := range pending {
		note := &pending[i]
		status := domain.NotificationStatusSent
		var sentAt *time.Time
		if err := s.deliver(ctx, note); err != nil {
			logger.WarnContext(ctx, "Notification delivery failed",
				"notificationID", note.ID, "channel", note.Channel, "error", err)
			status = domain.NotificationStatusFailed
			failed++
		} else {
			at := s.now().UTC()
			sentAt = &at
			sent++
		}
		if err := s.noteRepo.UpdateStatus(ctx, note.ID, status, sentAt); err != nil {
			logger.ExitMethodWithError("notificationService.DispatchPending", err)
			return sent, failed, err
		}
	}

	logger.ExitMethod("notificationService.DispatchPending", "sent", sent, "failed", failed)
	return sent, failed, nil
}

func (s *notificationService) deliver(ctx context.Context, note *domain.Notification) error {
	switch note.Channel {
	case domain.NotificationChannelInApp:
		return nil
	case domain.NotificationChannelPush:
		return s.deliverPush(ctx, note)
	case domain.NotificationChannelEmail:
		user, err := s.userRepo.GetByID(ctx, note.UserID)
		if err != nil {
			return err
		}
		return s.email.SendEmail(ctx, user.Email, user.Name, note.Title, note.Body)
	case domain.NotificationChannelSMS:
		return errors.New("no sms provider configured")
	default:
		return errors.New("unknown channel " + string(note.Channel))
	}
}

func (s *notificationService) deliverPush(ctx context.Context, note *domain.Notification) error {
	tokens, err := s.deviceRepo.ListTokensByUser(ctx, note.UserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return errNoDevices
	}

	invalid, err := s.push.Send(ctx, tokens, note.Title, note.Body, note.Data)
	for _, token := range invalid {
		if delErr := s.deviceRepo.DeleteByToken(ctx, token); delErr != nil {
			logger.WarnContext(ctx, "Failed to prune device token", "userID", note.UserID, "error", delErr)
		}
	}
	return err
}
