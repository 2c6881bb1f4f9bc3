package http

import (
	"net/http"

	"cycle-backend/internal/security"
	"cycle-backend/internal/service"
	"cycle-backend/internal/storage"

	"github.com/gorilla/mux"
)

// Services holds everything the HTTP handlers call into.
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Rentals       service.RentalService
	Bikes         service.BikeService
	Docks         service.DockService
	Payments      service.PaymentService
	Earnings      service.EarningsService
	Notifications service.NotificationService
	Verification  service.VerificationService
	Policies      service.PolicyService
	Analytics     service.AnalyticsService
	Zones         service.ZoneService
	Sync          service.EventSyncService
}

type RouterConfig struct {
	TokenManager        security.TokenManager
	CORSOrigins         []string
	PaymentInstructions string
	AllowedTypes        []string

	// MockStorage is set when uploads are served by this process.
	MockStorage storage.LocalFiles
}

// NewRouter wires every API route. Route names key the security table in config.
func NewRouter(svc *Services, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger, recoverer, NewAuthMiddleware(cfg.TokenManager).Handler)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("health")

	api := r.PathPrefix("/api/v1").Subrouter()

	auth := &authHandler{auth: svc.Auth, users: svc.Users}
	api.HandleFunc("/auth/signup", auth.signup).Methods(http.MethodPost).Name("auth.signup")
	api.HandleFunc("/auth/login", auth.login).Methods(http.MethodPost).Name("auth.login")
	api.HandleFunc("/auth/refresh", auth.refresh).Methods(http.MethodPost).Name("auth.refresh")
	api.HandleFunc("/auth/resend-verification", auth.resendVerification).Methods(http.MethodPost).Name("auth.resend_verification")
	api.HandleFunc("/auth/verify-email", auth.verifyEmail).Methods(http.MethodGet).Name("auth.verify_email")
	api.HandleFunc("/users/me", auth.me).Methods(http.MethodGet).Name("users.me")
	api.HandleFunc("/users/me", auth.updateMe).Methods(http.MethodPatch).Name("users.me.update")
	api.HandleFunc("/users/me/devices", auth.registerDevice).Methods(http.MethodPost).Name("users.devices")

	rides := &rideHandler{rentals: svc.Rentals, paymentInstructions: cfg.PaymentInstructions}
	api.HandleFunc("/rides/start", rides.start).Methods(http.MethodPost).Name("rides.start")
	api.HandleFunc("/rides/end", rides.end).Methods(http.MethodPost).Name("rides.end")
	api.HandleFunc("/rides", rides.list).Methods(http.MethodGet).Name("rides.list")
	api.HandleFunc("/rides/{id}", rides.get).Methods(http.MethodGet).Name("rides.get")

	bikes := &bikeHandler{bikes: svc.Bikes}
	api.HandleFunc("/bikes", bikes.list).Methods(http.MethodGet).Name("bikes.list")
	api.HandleFunc("/bikes", bikes.create).Methods(http.MethodPost).Name("bikes.create")
	api.HandleFunc("/bikes/nearby", bikes.nearby).Methods(http.MethodGet).Name("bikes.nearby")
	api.HandleFunc("/bikes/{id}", bikes.get).Methods(http.MethodGet).Name("bikes.get")
	api.HandleFunc("/bikes/{id}", bikes.update).Methods(http.MethodPatch).Name("bikes.update")
	api.HandleFunc("/bikes/{id}", bikes.remove).Methods(http.MethodDelete).Name("bikes.delete")
	api.HandleFunc("/bikes/{id}/photos/upload-url", bikes.photoUploadURL).Methods(http.MethodPost).Name("bikes.photo.upload")
	api.HandleFunc("/bikes/{id}/photos", bikes.confirmPhoto).Methods(http.MethodPost).Name("bikes.photo.confirm")
	api.HandleFunc("/bikes/{id}/photos", bikes.deletePhoto).Methods(http.MethodDelete).Name("bikes.photo.delete")

	docks := &dockHandler{docks: svc.Docks}
	api.HandleFunc("/docks", docks.list).Methods(http.MethodGet).Name("docks.list")
	api.HandleFunc("/docks", docks.create).Methods(http.MethodPost).Name("docks.create")
	api.HandleFunc("/docks/nearby", docks.nearby).Methods(http.MethodGet).Name("docks.nearby")
	api.HandleFunc("/docks/{id}", docks.get).Methods(http.MethodGet).Name("docks.get")
	api.HandleFunc("/docks/{id}", docks.update).Methods(http.MethodPatch).Name("docks.update")
	api.HandleFunc("/docks/{id}", docks.remove).Methods(http.MethodDelete).Name("docks.delete")

	zones := &zoneHandler{zones: svc.Zones}
	api.HandleFunc("/zones", zones.list).Methods(http.MethodGet).Name("zones.list")
	api.HandleFunc("/admin/zones", zones.create).Methods(http.MethodPost).Name("admin.zones.create")

	sync := &syncHandler{sync: svc.Sync}
	api.HandleFunc("/sync/events", sync.events).Methods(http.MethodPost).Name("sync.events")

	payments := &paymentHandler{payments: svc.Payments, earnings: svc.Earnings}
	api.HandleFunc("/payments", payments.initiate).Methods(http.MethodPost).Name("payments.initiate")
	api.HandleFunc("/payments/webhooks/stripe", payments.stripeWebhook).Methods(http.MethodPost).Name("payments.webhook.stripe")
	api.HandleFunc("/payments/webhooks/mpesa", payments.mpesaCallback).Methods(http.MethodPost).Name("payments.webhook.mpesa")
	api.HandleFunc("/earnings", payments.listEarnings).Methods(http.MethodGet).Name("earnings.list")
	api.HandleFunc("/earnings/summary", payments.earningsSummary).Methods(http.MethodGet).Name("earnings.summary")

	notes := &notificationHandler{notifications: svc.Notifications, verification: svc.Verification}
	api.HandleFunc("/notifications", notes.list).Methods(http.MethodGet).Name("notifications.list")
	api.HandleFunc("/notifications/{id}/read", notes.markRead).Methods(http.MethodPost).Name("notifications.read")
	api.HandleFunc("/verification/upload-url", notes.verificationUploadURL).Methods(http.MethodPost).Name("verification.upload")
	api.HandleFunc("/verification", notes.submitVerification).Methods(http.MethodPost).Name("verification.submit")

	admin := &adminHandler{policies: svc.Policies, analytics: svc.Analytics, users: svc.Users, verification: svc.Verification}
	api.HandleFunc("/admin/policies", admin.getPolicies).Methods(http.MethodGet).Name("admin.policies.get")
	api.HandleFunc("/admin/policies", admin.updatePolicies).Methods(http.MethodPut).Name("admin.policies.update")
	api.HandleFunc("/admin/analytics/dau", admin.dailyActiveUsers).Methods(http.MethodGet).Name("admin.analytics.dau")
	api.HandleFunc("/admin/analytics/trips-per-dock", admin.tripsPerDock).Methods(http.MethodGet).Name("admin.analytics.trips_per_dock")
	api.HandleFunc("/admin/users/{id}/policy", admin.setUserPolicy).Methods(http.MethodPatch).Name("admin.users.policy")
	api.HandleFunc("/admin/verifications", admin.listVerifications).Methods(http.MethodGet).Name("admin.verification")
	api.HandleFunc("/admin/verifications/{id}/review", admin.reviewVerification).Methods(http.MethodPost).Name("admin.verification.review")

	if cfg.MockStorage != nil {
		RegisterMockStorageRoutes(api, cfg.MockStorage, cfg.AllowedTypes)
	}

	return corsHandler(cfg.CORSOrigins)(r)
}
