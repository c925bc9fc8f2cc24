// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"

	// Users and customers
	KeyUserNotFound              = "user.not_found"
	KeyUserProfileUpdated        = "user.profile_updated"
	KeyCustomerDeleted           = "customer.deleted"
	KeyCustomerCannotDeleteAdmin = "customer.cannot_delete_admin"

	// Products
	KeyProductCreated           = "product.created"
	KeyProductUpdated           = "product.updated"
	KeyProductDeleted           = "product.deleted"
	KeyProductNotFound          = "product.not_found"
	KeyProductOutOfStock        = "product.out_of_stock"
	KeyProductInsufficientStock = "product.insufficient_stock"
	KeyProductVariantRequired   = "product.variant_required"
	KeyProductInvalidVariant    = "product.invalid_variant"
	KeyProductImagesRequired    = "product.images_required"

	// Categories
	KeyCategoryCreated  = "category.created"
	KeyCategoryUpdated  = "category.updated"
	KeyCategoryDeleted  = "category.deleted"
	KeyCategoryNotFound = "category.not_found"
	KeyCategoryExists   = "category.exists"

	// Providers
	KeyProviderCreated  = "provider.created"
	KeyProviderUpdated  = "provider.updated"
	KeyProviderDeleted  = "provider.deleted"
	KeyProviderNotFound = "provider.not_found"

	// Cart
	KeyCartItemAdded    = "cart.item_added"
	KeyCartItemUpdated  = "cart.item_updated"
	KeyCartItemRemoved  = "cart.item_removed"
	KeyCartItemNotFound = "cart_item.not_found"
	KeyCartEmpty        = "cart.empty"
	KeyCartChanged      = "cart.changed"
	KeyCartInvalidField = "cart.invalid_field"

	// Orders
	KeyOrderPlaced               = "order.placed"
	KeyOrderNotFound             = "order.not_found"
	KeyOrderStatusUpdated        = "order.status_updated"
	KeyOrderInvalidTransition    = "order.invalid_transition"
	KeyOrderStatusConflict       = "order.status_conflict"
	KeyOrderShippingIncomplete   = "order.shipping_incomplete"
	KeyOrderPaymentMethodInvalid = "order.payment_method_invalid"
	KeyOrderProofRequired        = "order.proof_required"
	KeyOrderPaymentUnverified    = "order.payment_unverified"

	// Payments
	KeyPaymentUnavailable   = "payment.unavailable"
	KeyPaymentIntentCreated = "payment.intent_created"
	KeyPaymentFailed        = "payment.failed"

	// Uploads
	KeyUploadSuccess  = "upload.success"
	KeyUploadFailed   = "upload.failed"
	KeyUploadTooLarge = "upload.too_large"
	KeyUploadMissing  = "upload.missing"
	KeyUploadInvalid  = "upload.invalid_type"
	KeyFileNotFound   = "file.not_found"

	// Validation
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationRequired = "validation.required"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Server
	KeyServerInternalError = "server.internal_error"
)
