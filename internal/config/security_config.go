// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityRefresh                      // Refresh token required
	SecurityAccess                       // Access token required
	SecurityAdmin                        // Access token with admin role required
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health and auth - Public
	"health":      SecurityPublic,
	"auth.signup": SecurityPublic,
	"auth.login":  SecurityPublic,

	// Email verification links are opened without a session
	"auth.resend_verification": SecurityPublic,
	"auth.verify_email":        SecurityPublic,

	// Auth - Refresh Protected
	"auth.refresh": SecurityRefresh,

	// Payment provider callbacks carry their own signatures
	"payments.webhook.stripe": SecurityPublic,
	"payments.webhook.mpesa":  SecurityPublic,

	// Mock storage endpoints are reached through presigned URLs
	"storage.upload":   SecurityPublic,
	"storage.download": SecurityPublic,

	// Bikes and docks browsing - Public
	"bikes.list":   SecurityPublic,
	"bikes.get":    SecurityPublic,
	"docks.list":   SecurityPublic,
	"docks.get":    SecurityPublic,
	"docks.nearby": SecurityPublic,
	"bikes.nearby": SecurityPublic,
	"zones.list":   SecurityPublic,

	// Users - Access Protected
	"users.me":            SecurityAccess,
	"users.me.update":     SecurityAccess,
	"users.devices":       SecurityAccess,
	"notifications.list":  SecurityAccess,
	"notifications.read":  SecurityAccess,
	"verification.upload": SecurityAccess,
	"verification.submit": SecurityAccess,

	// Rides - Access Protected
	"rides.start": SecurityAccess,
	"rides.end":   SecurityAccess,
	"rides.get":   SecurityAccess,
	"rides.list":  SecurityAccess,

	// Bikes (owner) - Access Protected
	"bikes.create":        SecurityAccess,
	"bikes.update":        SecurityAccess,
	"bikes.photo.upload":  SecurityAccess,
	"bikes.photo.confirm": SecurityAccess,
	"bikes.photo.delete":  SecurityAccess,
	"bikes.delete":        SecurityAccess,

	// Offline analytics upload
	"sync.events": SecurityAccess,

	// Payments and earnings - Access Protected
	"payments.initiate": SecurityAccess,
	"earnings.list":     SecurityAccess,
	"earnings.summary":  SecurityAccess,

	// Admin
	"docks.create":                   SecurityAdmin,
	"docks.update":                   SecurityAdmin,
	"docks.delete":                   SecurityAdmin,
	"admin.zones.create":             SecurityAdmin,
	"admin.analytics.trips_per_dock": SecurityAdmin,
	"admin.policies.get":             SecurityAdmin,
	"admin.policies.update":          SecurityAdmin,
	"admin.analytics.dau":            SecurityAdmin,
	"admin.users.policy":             SecurityAdmin,
	"admin.verification":             SecurityAdmin,
	"admin.verification.review":      SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to access security for unknown routes
	return SecurityAccess
}
