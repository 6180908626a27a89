// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAdminAccessDenied = "admin.access_denied"

	// Users
	KeyUserNotFound = "user.not_found"

	// Products
	KeyProductNotFound = "product.not_found"
	KeyProductNoStock  = "product.out_of_stock"

	// Orders
	KeyOrderNotFound          = "order.not_found"
	KeyOrderInvalidTransition = "order.invalid_transition"

	// Search
	KeySearchQueryRequired = "search.query_required"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// System
	KeySystemError       = "system.error"
	KeyRateLimitExceeded = "system.rate_limit_exceeded"
)
