package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cycle-backend/internal/config"
	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/security"
	"cycle-backend/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type ctxKey int

const claimsKey ctxKey = iota

const requestIDHeader = "X-Request-ID"

// claimsFrom returns the claims the auth middleware attached, or nil on public routes.
func claimsFrom(ctx context.Context) *security.UserClaims {
	claims, _ := ctx.Value(claimsKey).(*security.UserClaims)
	return claims
}

func actorFrom(r *http.Request) (service.Actor, error) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return service.Actor{}, domain.Unauthorized("missing_token", "authorization token is not provided")
	}
	return service.Actor{UserID: claims.UserID, Admin: claims.HasRole(string(domain.UserRoleAdmin))}, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil && cur.GetName() != "" {
			route = cur.GetName()
		}
		logger.InfoContext(ctx, "HTTP request",
			"method", r.Method, "route", route, "status", rec.status, "duration", time.Since(start))
	})
}

type recoveryLog struct{}

func (recoveryLog) Println(v ...interface{}) {
	logger.Error("Handler panicked", "panic", fmt.Sprint(v...))
}

// recoverer turns handler panics into 500s and logs them through slog.
var recoverer = handlers.RecoveryHandler(
	handlers.RecoveryLogger(recoveryLog{}),
	handlers.PrintRecoveryStack(false),
)

// corsHandler answers preflight requests for the configured origins.
// An empty origin list disables CORS instead of allowing every origin.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return handlers.CORS(
		handlers.AllowedOrigins(cleaned),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}

// AuthMiddleware enforces the security level configured for each named route.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if cur := mux.CurrentRoute(r); cur != nil {
			name = cur.GetName()
		}
		level := config.GetSecurityLevel(name)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, r, domain.Unauthorized("missing_token", "authorization token is not provided"))
			return
		}
		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeError(w, r, domain.Unauthorized("invalid_token", "token is invalid or expired"))
			return
		}
		if err := checkSecurityLevel(level, claims); err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

func checkSecurityLevel(level config.SecurityLevel, claims *security.UserClaims) error {
	switch level {
	case config.SecurityAccess:
		if claims.Type != security.TokenTypeAccess {
			return domain.Unauthorized("access_token_required", "access token required")
		}
	case config.SecurityRefresh:
		if claims.Type != security.TokenTypeRefresh {
			return domain.Unauthorized("refresh_token_required", "refresh token required")
		}
	case config.SecurityAdmin:
		if claims.Type != security.TokenTypeAccess {
			return domain.Unauthorized("access_token_required", "access token required")
		}
		if !claims.HasRole(string(domain.UserRoleAdmin)) {
			return domain.Forbidden("admin_required", "admin role required")
		}
	}
	return nil
}
