package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/storage"

	"github.com/google/uuid"
)

var verificationContentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

type verificationService struct {
	verifRepo     repository.VerificationRepository
	userRepo      repository.UserRepository
	tx            repository.Transactor
	store         storage.StorageInterface
	notifications NotificationService
	events        EventTracker
	urlExpiry     time.Duration
	now           func() time.Time
}

func NewVerificationService(verifRepo repository.VerificationRepository, userRepo repository.UserRepository, tx repository.Transactor,
	store storage.StorageInterface, notifications NotificationService, events EventTracker, urlExpiry time.Duration) VerificationService {
	return &verificationService{
		verifRepo:     verifRepo,
		userRepo:      userRepo,
		tx:            tx,
		store:         store,
		notifications: notifications,
		events:        events,
		urlExpiry:     urlExpiry,
		now:           time.Now,
	}
}

func (s *verificationService) RequestUpload(ctx context.Context, userID uuid.UUID, contentType string) (*UploadTicket, error) {
	allowed := false
	for _, t := range verificationContentTypes {
		if strings.EqualFold(t, contentType) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domain.Validation("unsupported_content_type", "verification documents must be JPEG, PNG or PDF")
	}

	key := storage.ObjectKey("verification", userID.String(), uuid.NewString(), contentType)
	uploadURL, err := s.store.GeneratePresignedUploadURL(ctx, key, contentType, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &UploadTicket{Key: key, UploadURL: uploadURL, ExpiresAt: s.now().Add(s.urlExpiry).UTC()}, nil
}

func (s *verificationService) Submit(ctx context.Context, userID uuid.UUID, storageKey string) (*domain.VerificationDoc, error) {
	logger.EnterMethod("verificationService.Submit", "userID", userID)

	if !strings.HasPrefix(storageKey, "verification/"+userID.String()+"/") {
		return nil, domain.Validation("invalid_storage_key", "key does not belong to this user")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.VerifiedStatus == domain.VerifiedStatusVerified {
		return nil, domain.Conflict("already_verified", "user is already verified")
	}
	exists, _, err := s.store.FileExists(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("check upload: %w", err)
	}
	if !exists {
		return nil, domain.Validation("upload_missing", "no file has been uploaded for this key")
	}

	doc := &domain.VerificationDoc{
		UserID:     userID,
		StorageKey: storageKey,
		Status:     domain.VerificationStatusPending,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Verifications().Create(ctx, doc); err != nil {
			return err
		}
		return repos.Users().UpdateVerifiedStatus(ctx, userID, domain.VerifiedStatusPending)
	})
	if err != nil {
		logger.ExitMethodWithError("verificationService.Submit", err)
		return nil, err
	}

	s.events.Track(ctx, domain.Event{
		UserID:     &userID,
		Type:       domain.EventVerificationSubmitted,
		Properties: map[string]any{"doc_id": doc.ID.String()},
	})
	logger.ExitMethod("verificationService.Submit", "docID", doc.ID)
	return doc, nil
}

// Review settles a pending document and the owner's verified status together.
func (s *verificationService) Review(ctx context.Context, reviewerID, docID uuid.UUID, approve bool, notes string) (*domain.VerificationDoc, error) {
	logger.EnterMethod("verificationService.Review", "docID", docID, "approve", approve)

	docStatus, userStatus := domain.VerificationStatusRejected, domain.VerifiedStatusRejected
	if approve {
		docStatus, userStatus = domain.VerificationStatusApproved, domain.VerifiedStatusVerified
	}

	var doc *domain.VerificationDoc
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if doc, err = repos.Verifications().GetForUpdate(ctx, docID); err != nil {
			return err
		}
		if doc.Status != domain.VerificationStatusPending {
			return domain.Conflict("verification_already_reviewed", fmt.Sprintf("document is %s", doc.Status))
		}
		at := s.now().UTC()
		doc.Status = docStatus
		doc.Notes = notes
		doc.ReviewedBy = &reviewerID
		doc.ReviewedAt = &at
		if err := repos.Verifications().Update(ctx, doc); err != nil {
			return err
		}
		return repos.Users().UpdateVerifiedStatus(ctx, doc.UserID, userStatus)
	})
	if err != nil {
		logger.ExitMethodWithError("verificationService.Review", err)
		return nil, err
	}

	body := "Your verification documents were approved."
	if !approve {
		body = "Your verification documents were rejected."
		if notes != "" {
			body += " " + notes
		}
	}
	if err := s.notifications.Enqueue(ctx, &domain.Notification{
		UserID:  doc.UserID,
		Channel: domain.NotificationChannelInApp,
		Title:   "Verification reviewed",
		Body:    body,
		Data:    map[string]string{"type": "verification", "status": string(doc.Status)},
	}); err != nil {
		logger.WarnContext(ctx, "Failed to enqueue verification notification", "userID", doc.UserID, "error", err)
	}

	logger.ExitMethod("verificationService.Review", "docID", doc.ID, "status", doc.Status)
	return doc, nil
}

func (s *verificationService) ListPending(ctx context.Context, page, pageSize int32) ([]domain.VerificationDoc, int32, error) {
	return s.verifRepo.ListPending(ctx, page, pageSize)
}
