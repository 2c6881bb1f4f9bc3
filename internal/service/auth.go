package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/security"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var errInvalidCredentials = domain.Unauthorized("invalid_credentials", "invalid email or password")

var errInvalidVerifyToken = domain.Unauthorized("invalid_token", "verification link is invalid or expired")

type authService struct {
	userRepo  repository.UserRepository
	policies  PolicyService
	tokens    security.TokenManager
	events    EventTracker
	emails    EmailService
	verifyURL string
}

// NewAuthService builds the auth flows. publicURL is the externally reachable base used in verification links.
func NewAuthService(userRepo repository.UserRepository, policies PolicyService, tokens security.TokenManager,
	events EventTracker, emails EmailService, publicURL string) AuthService {
	return &authService{
		userRepo:  userRepo,
		policies:  policies,
		tokens:    tokens,
		events:    events,
		emails:    emails,
		verifyURL: strings.TrimRight(publicURL, "/") + "/api/v1/auth/verify-email",
	}
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (*domain.User, *TokenPair, error) {
	logger.EnterMethod("authService.Signup", "email", in.Email)

	if len(in.Password) < minPasswordLength {
		return nil, nil, domain.Validation("weak_password", "password must be at least 8 characters")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, nil, domain.Conflict("email_taken", "an account with this email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Email:          email,
		Phone:          in.Phone,
		PasswordHash:   string(hash),
		Name:           in.Name,
		Role:           domain.UserRoleUser,
		VerifiedStatus: domain.VerifiedStatusNone,
		OwnerMaxBikes:  policy.OwnerMaxBikesDefault,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		logger.ExitMethodWithError("authService.Signup", err)
		return nil, nil, err
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		logger.WarnContext(ctx, "Failed to send verification email", "userID", user.ID, "error", err)
	}

	userID := user.ID
	s.events.Track(ctx, domain.Event{UserID: &userID, Type: domain.EventUserSignup})

	logger.ExitMethod("authService.Signup", "userID", user.ID)
	return user, pair, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, errInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	userID := user.ID
	s.events.Track(ctx, domain.Event{UserID: &userID, Type: domain.EventUserLogin})
	return user, pair, nil
}

func (s *authService) RefreshToken(ctx context.Context, refresh string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refresh)
	if err != nil || claims.Type != security.TokenTypeRefresh {
		return nil, domain.Unauthorized("invalid_token", "refresh token is invalid or expired")
	}

	// Reload so role changes take effect on refresh.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized("invalid_token", "refresh token is invalid or expired")
		}
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *authService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return domain.Validation("email_already_verified", "email is already verified")
	}
	return s.sendVerification(ctx, user)
}

func (s *authService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	logger.EnterMethod("authService.VerifyEmail")

	claims, err := s.tokens.ValidateToken(token)
	if err != nil || claims.Type != security.TokenTypeEmailVerify {
		return nil, errInvalidVerifyToken
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidVerifyToken
		}
		return nil, err
	}
	// A link mailed before an address change must not verify the new address.
	if !strings.EqualFold(user.Email, claims.Email) {
		return nil, errInvalidVerifyToken
	}
	if user.EmailVerified {
		logger.ExitMethod("authService.VerifyEmail", "userID", user.ID, "alreadyVerified", true)
		return user, nil
	}

	if err := s.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
		logger.ExitMethodWithError("authService.VerifyEmail", err)
		return nil, err
	}
	user.EmailVerified = true

	userID := user.ID
	s.events.Track(ctx, domain.Event{UserID: &userID, Type: domain.EventEmailVerified})
	logger.ExitMethod("authService.VerifyEmail", "userID", user.ID)
	return user, nil
}

func (s *authService) sendVerification(ctx context.Context, user *domain.User) error {
	token, err := s.tokens.GenerateEmailVerificationToken(user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("sign verification token: %w", err)
	}
	link := s.verifyURL + "?token=" + url.QueryEscape(token)
	body := fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening this link within 24 hours:\n%s\n", user.Name, link)
	return s.emails.SendEmail(ctx, user.Email, user.Name, "Verify your email", body)
}

func (s *authService) issueTokens(user *domain.User) (*TokenPair, error) {
	roles := []string{string(user.Role)}
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email, roles)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
