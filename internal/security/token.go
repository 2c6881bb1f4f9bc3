package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess      TokenType = "access"
	TokenTypeRefresh     TokenType = "refresh"
	TokenTypeEmailVerify TokenType = "email_verify"
)

const emailVerifyTTL = 24 * time.Hour

const issuer = "cycle-auth"

// UserClaims defines the claims carried by access and refresh tokens
type UserClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Type   TokenType `json:"type"`
	Roles  []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *UserClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, email string, roles []string) (string, error)
	GenerateRefreshToken(userID uuid.UUID, email string, roles []string) (string, error)
	// GenerateEmailVerificationToken binds the token to the address it was mailed to.
	GenerateEmailVerificationToken(userID uuid.UUID, email string) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) TokenManager {
	return &tokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *tokenManager) GenerateAccessToken(userID uuid.UUID, email string, roles []string) (string, error) {
	return m.sign(userID, email, roles, TokenTypeAccess, m.accessTTL, "api-access")
}

func (m *tokenManager) GenerateRefreshToken(userID uuid.UUID, email string, roles []string) (string, error) {
	return m.sign(userID, email, roles, TokenTypeRefresh, m.refreshTTL, "token-refresh")
}

func (m *tokenManager) GenerateEmailVerificationToken(userID uuid.UUID, email string) (string, error) {
	return m.sign(userID, email, nil, TokenTypeEmailVerify, emailVerifyTTL, "email-verify")
}

func (m *tokenManager) sign(userID uuid.UUID, email string, roles []string, typ TokenType, ttl time.Duration, audience string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Type:   typ,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		if claims.UserID == uuid.Nil {
			uid, err := uuid.Parse(claims.Subject)
			if err != nil {
				return nil, ErrInvalidToken
			}
			claims.UserID = uid
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}
