// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess       = "success"
	KeyNotFound      = "common.not_found"
	KeyInternalError = "common.internal_error"
	KeyRateLimited   = "common.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Users
	KeyUserUpdated = "user.updated"
	KeyUserDeleted = "user.deleted"

	// Products
	KeyProductCreated = "product.created"
	KeyProductUpdated = "product.updated"
	KeyProductDeleted = "product.deleted"

	// Categories
	KeyCategoryCreated = "category.created"
	KeyCategoryUpdated = "category.updated"
	KeyCategoryDeleted = "category.deleted"

	// Bids
	KeyBidCreated = "bid.created"
	KeyBidUpdated = "bid.updated"
	KeyBidDeleted = "bid.deleted"

	// Sales
	KeySaleCreated = "sale.created"
)
