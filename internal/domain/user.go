package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type VerifiedStatus string

const (
	VerifiedStatusNone     VerifiedStatus = "none"
	VerifiedStatusPending  VerifiedStatus = "pending"
	VerifiedStatusVerified VerifiedStatus = "verified"
	VerifiedStatusRejected VerifiedStatus = "rejected"
)

type User struct {
	ID             uuid.UUID      `json:"id"`
	Email          string         `json:"email"`
	EmailVerified  bool           `json:"email_verified"`
	Phone          string         `json:"phone,omitempty"`
	PasswordHash   string         `json:"-"`
	Name           string         `json:"name"`
	Role           UserRole       `json:"role"`
	VerifiedStatus VerifiedStatus `json:"verified_status"`
	OwnerMaxBikes  int            `json:"owner_max_bikes"`
	EcoPoints      int            `json:"eco_points"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

type DevicePlatform string

const (
	DevicePlatformAndroid DevicePlatform = "android"
	DevicePlatformIOS     DevicePlatform = "ios"
	DevicePlatformWeb     DevicePlatform = "web"
)

func (p DevicePlatform) Valid() bool {
	switch p {
	case DevicePlatformAndroid, DevicePlatformIOS, DevicePlatformWeb:
		return true
	}
	return false
}

type Device struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Token     string         `json:"token"`
	Platform  DevicePlatform `json:"platform"`
	CreatedAt time.Time      `json:"created_at"`
}
