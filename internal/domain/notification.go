package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationChannel string

const (
	NotificationChannelPush  NotificationChannel = "push"
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelInApp NotificationChannel = "in-app"
	NotificationChannelSMS   NotificationChannel = "sms"
)

func (c NotificationChannel) Valid() bool {
	switch c {
	case NotificationChannelPush, NotificationChannelEmail, NotificationChannelInApp, NotificationChannelSMS:
		return true
	}
	return false
}

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

type Notification struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"user_id"`
	Channel   NotificationChannel `json:"channel"`
	Title     string              `json:"title"`
	Body      string              `json:"body"`
	Data      map[string]string   `json:"data,omitempty"`
	Status    NotificationStatus  `json:"status"`
	IsRead    bool                `json:"is_read"`
	SentAt    *time.Time          `json:"sent_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}
