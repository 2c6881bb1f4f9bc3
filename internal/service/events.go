package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const trackTimeout = 3 * time.Second

// EventPublisher fans analytics events out to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

type eventTracker struct {
	eventRepo repository.EventRepository
	publisher EventPublisher
}

// NewEventTracker builds a tracker; publisher may be nil when no stream is configured.
func NewEventTracker(eventRepo repository.EventRepository, publisher EventPublisher) EventTracker {
	return &eventTracker{eventRepo: eventRepo, publisher: publisher}
}

func (t *eventTracker) Track(ctx context.Context, event domain.Event) {
	// Outlive the request so a client disconnect right after commit still records the event.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackTimeout)
	defer cancel()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := t.eventRepo.Create(ctx, &event); err != nil {
		logger.WarnContext(ctx, "Failed to record event", "eventType", event.Type, "error", err)
	}
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(ctx, &event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "eventType", event.Type, "error", err)
	}
}

const (
	// MaxSyncBatch bounds one offline event upload.
	MaxSyncBatch  = 500
	maxClientSkew = 5 * time.Minute
)

type eventSyncService struct {
	tx        repository.Transactor
	publisher EventPublisher
	now       func() time.Time
}

// NewEventSyncService builds the bulk sync path; publisher may be nil.
func NewEventSyncService(tx repository.Transactor, publisher EventPublisher) EventSyncService {
	return &eventSyncService{tx: tx, publisher: publisher, now: time.Now}
}

// SyncEvents stores a client batch atomically. Events replayed with a known id are skipped by the store.
func (s *eventSyncService) SyncEvents(ctx context.Context, userID uuid.UUID, events []domain.Event) (int, error) {
	logger.EnterMethod("eventSyncService.SyncEvents", "userID", userID, "count", len(events))

	if len(events) == 0 {
		return 0, domain.Validation("empty_batch", "events must not be empty")
	}
	if len(events) > MaxSyncBatch {
		return 0, domain.Validation("batch_too_large", fmt.Sprintf("at most %d events per sync", MaxSyncBatch))
	}

	now := s.now().UTC()
	for i := range events {
		e := &events[i]
		if e.Type == "" || len(e.Type) > domain.MaxEventTypeLength {
			return 0, domain.Validation("invalid_event_type",
				fmt.Sprintf("events[%d].event_type must be 1-%d characters", i, domain.MaxEventTypeLength))
		}
		if e.UserID == nil {
			e.UserID = &userID
		} else if *e.UserID != userID {
			return 0, domain.Forbidden("event_not_owned", fmt.Sprintf("events[%d] belongs to another user", i))
		}
		if e.OccurredAt.IsZero() {
			e.OccurredAt = now
		} else if e.OccurredAt.After(now.Add(maxClientSkew)) {
			return 0, domain.Validation("invalid_occurred_at", fmt.Sprintf("events[%d].occurred_at is in the future", i))
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		for i := range events {
			if err := repos.Events().Create(ctx, &events[i]); err != nil {
				return fmt.Errorf("store event %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("eventSyncService.SyncEvents", err)
		return 0, err
	}

	if s.publisher != nil {
		for i := range events {
			if err := s.publisher.Publish(ctx, &events[i]); err != nil {
				logger.WarnContext(ctx, "Failed to publish synced event", "eventType", events[i].Type, "error", err)
			}
		}
	}

	logger.ExitMethod("eventSyncService.SyncEvents", "stored", len(events))
	return len(events), nil
}

// RedisEventPublisher appends events to a capped Redis stream.
type RedisEventPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisEventPublisher(client *redis.Client, stream string, maxLen int64) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	props, err := json.Marshal(event.Properties)
	if err != nil {
		return fmt.Errorf("encode event properties: %w", err)
	}
	values := map[string]interface{}{
		"id":          event.ID.String(),
		"event_type":  string(event.Type),
		"properties":  string(props),
		"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
	}
	if event.UserID != nil {
		values["user_id"] = event.UserID.String()
	}
	if event.BikeID != nil {
		values["bike_id"] = event.BikeID.String()
	}
	if event.DockID != nil {
		values["dock_id"] = event.DockID.String()
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}
