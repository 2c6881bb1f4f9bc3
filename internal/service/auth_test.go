package service_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/security"
	"cycle-backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newAuthFixture() (*fakeStore, *recordingTracker, security.TokenManager, service.AuthService) {
	emails := new(MockEmailService)
	emails.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	store, tracker, tokens, svc := newAuthFixtureWithEmail(emails)
	return store, tracker, tokens, svc
}

func newAuthFixtureWithEmail(emails *MockEmailService) (*fakeStore, *recordingTracker, security.TokenManager, service.AuthService) {
	store := newFakeStore()
	tracker := &recordingTracker{}
	tokens := security.NewTokenManager(testSecret, 15*time.Minute, time.Hour)
	store.policies.On("GetAll", mock.Anything).Return(defaultPolicyValues(), nil)
	svc := service.NewAuthService(store.users, service.NewPolicyService(store.policies, store), tokens, tracker,
		emails, "https://api.example.com/")
	return store, tracker, tokens, svc
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()
	notFound := domain.NotFound("user_not_found", "user does not exist")

	t.Run("Success", func(t *testing.T) {
		store, tracker, tokens, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "rider@example.com").Return(nil, notFound)
		store.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			u.ID = uuid.New()
			return u.Email == "rider@example.com" && u.OwnerMaxBikes == 1 && u.Role == domain.UserRoleUser
		})).Return(nil)

		user, pair, err := svc.Signup(ctx, service.SignupInput{Email: " Rider@Example.com ", Password: "longenough", Name: "Ann"})
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("longenough")))

		claims, err := tokens.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, []domain.EventType{domain.EventUserSignup}, tracker.types())
	})

	t.Run("Weak Password", func(t *testing.T) {
		_, _, _, svc := newAuthFixture()
		_, _, err := svc.Signup(ctx, service.SignupInput{Email: "a@b.c", Password: "short"})
		assert.Equal(t, "weak_password", domain.ReasonOf(err))
	})

	t.Run("Email Taken", func(t *testing.T) {
		store, _, _, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "taken@example.com").Return(&domain.User{ID: uuid.New()}, nil)

		_, _, err := svc.Signup(ctx, service.SignupInput{Email: "taken@example.com", Password: "longenough"})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, "email_taken", domain.ReasonOf(err))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{ID: uuid.New(), Email: "rider@example.com", PasswordHash: string(hash), Role: domain.UserRoleAdmin}

	t.Run("Success", func(t *testing.T) {
		store, tracker, tokens, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "rider@example.com").Return(user, nil)

		_, pair, err := svc.Login(ctx, "rider@example.com", "correct-horse")
		require.NoError(t, err)
		claims, err := tokens.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.True(t, claims.HasRole("admin"))
		assert.Equal(t, []domain.EventType{domain.EventUserLogin}, tracker.types())
	})

	t.Run("Wrong Password", func(t *testing.T) {
		store, _, _, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "rider@example.com").Return(user, nil)

		_, _, err := svc.Login(ctx, "rider@example.com", "wrong")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, "invalid_credentials", domain.ReasonOf(err))
	})

	t.Run("Unknown Email", func(t *testing.T) {
		store, _, _, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.NotFound("user_not_found", "missing"))

		_, _, err := svc.Login(ctx, "nobody@example.com", "whatever1")
		assert.Equal(t, "invalid_credentials", domain.ReasonOf(err))
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	store, _, tokens, svc := newAuthFixture()
	user := &domain.User{ID: uuid.New(), Email: "rider@example.com", Role: domain.UserRoleUser}
	store.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	refresh, err := tokens.GenerateRefreshToken(user.ID, user.Email, []string{"user"})
	require.NoError(t, err)
	pair, err := svc.RefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	access, err := tokens.GenerateAccessToken(user.ID, user.Email, []string{"user"})
	require.NoError(t, err)
	_, err = svc.RefreshToken(ctx, access)
	assert.Equal(t, "invalid_token", domain.ReasonOf(err))
}

// tokenFromBody pulls the token query parameter out of the verification link in an email body.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "https://api.example.com/api/v1/auth/verify-email?")
	require.GreaterOrEqual(t, i, 0, "verification link missing from %q", body)
	link := strings.Fields(body[i:])[0]
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestAuthService_EmailVerification(t *testing.T) {
	ctx := context.Background()
	notFound := domain.NotFound("user_not_found", "user does not exist")

	t.Run("Signup Mails A Working Link", func(t *testing.T) {
		var body string
		emails := new(MockEmailService)
		emails.On("SendEmail", mock.Anything, "rider@example.com", "Ann", "Verify your email",
			mock.MatchedBy(func(b string) bool { body = b; return true })).Return(nil).Once()
		store, tracker, _, svc := newAuthFixtureWithEmail(emails)

		var created *domain.User
		store.users.On("GetByEmail", mock.Anything, "rider@example.com").Return(nil, notFound)
		store.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			u.ID = uuid.New()
			created = u
			return true
		})).Return(nil)

		_, _, err := svc.Signup(ctx, service.SignupInput{Email: "rider@example.com", Password: "longenough", Name: "Ann"})
		require.NoError(t, err)
		emails.AssertExpectations(t)
		assert.False(t, created.EmailVerified)

		store.users.On("GetByID", mock.Anything, created.ID).Return(created, nil)
		store.users.On("MarkEmailVerified", mock.Anything, created.ID).Return(nil).Once()

		user, err := svc.VerifyEmail(ctx, tokenFromBody(t, body))
		require.NoError(t, err)
		assert.True(t, user.EmailVerified)
		assert.Equal(t, []domain.EventType{domain.EventUserSignup, domain.EventEmailVerified}, tracker.types())
	})

	t.Run("Signup Survives Mail Failure", func(t *testing.T) {
		emails := new(MockEmailService)
		emails.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("sendgrid down"))
		store, _, _, svc := newAuthFixtureWithEmail(emails)
		store.users.On("GetByEmail", mock.Anything, "rider@example.com").Return(nil, notFound)
		store.users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		_, pair, err := svc.Signup(ctx, service.SignupInput{Email: "rider@example.com", Password: "longenough"})
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("Access Token Is Not A Verification Link", func(t *testing.T) {
		store, _, tokens, svc := newAuthFixture()
		access, err := tokens.GenerateAccessToken(uuid.New(), "rider@example.com", []string{"user"})
		require.NoError(t, err)

		_, err = svc.VerifyEmail(ctx, access)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		store.users.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)
	})

	t.Run("Link For A Previous Address", func(t *testing.T) {
		store, _, tokens, svc := newAuthFixture()
		user := &domain.User{ID: uuid.New(), Email: "new@example.com"}
		store.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		token, err := tokens.GenerateEmailVerificationToken(user.ID, "old@example.com")
		require.NoError(t, err)

		_, err = svc.VerifyEmail(ctx, token)
		assert.Equal(t, "invalid_token", domain.ReasonOf(err))
		store.users.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)
	})

	t.Run("Resend", func(t *testing.T) {
		emails := new(MockEmailService)
		emails.On("SendEmail", mock.Anything, "rider@example.com", "Ann", "Verify your email", mock.Anything).Return(nil).Once()
		store, _, _, svc := newAuthFixtureWithEmail(emails)
		store.users.On("GetByEmail", mock.Anything, "rider@example.com").
			Return(&domain.User{ID: uuid.New(), Email: "rider@example.com", Name: "Ann"}, nil)

		require.NoError(t, svc.ResendVerification(ctx, " Rider@example.com"))
		emails.AssertExpectations(t)
	})

	t.Run("Resend Already Verified", func(t *testing.T) {
		store, _, _, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "done@example.com").
			Return(&domain.User{ID: uuid.New(), Email: "done@example.com", EmailVerified: true}, nil)

		err := svc.ResendVerification(ctx, "done@example.com")
		assert.Equal(t, "email_already_verified", domain.ReasonOf(err))
	})

	t.Run("Resend Unknown Email", func(t *testing.T) {
		store, _, _, svc := newAuthFixture()
		store.users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, notFound)

		err := svc.ResendVerification(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
