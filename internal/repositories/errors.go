package repositories

import "storefront/internal/apperror"

// Errors returned by the repositories. Callers wrap them with context and
// compare them with errors.Is.
var (
	ErrProductNotFound = apperror.New(apperror.NotFound, "product not found")
	ErrReviewNotFound  = apperror.New(apperror.NotFound, "review not found")
	ErrUserNotFound    = apperror.New(apperror.NotFound, "user not found")
	ErrOrderNotFound   = apperror.New(apperror.NotFound, "order not found")

	ErrEmailTaken       = apperror.New(apperror.Conflict, "email is already registered")
	ErrAlreadyReviewed  = apperror.New(apperror.Conflict, "product already reviewed by this user")
	ErrAlreadyPaid      = apperror.New(apperror.Conflict, "order is already paid")
	ErrAlreadyDelivered = apperror.New(apperror.Conflict, "order is already delivered")
	ErrOrderNotPaid     = apperror.New(apperror.Conflict, "order must be paid before it is delivered")
	ErrOutOfStock       = apperror.New(apperror.Validation, "not enough stock")
	ErrInvalidQuantity  = apperror.New(apperror.Validation, "quantity must be greater than zero")

	ErrVersionConflict = apperror.ErrVersionConflict
)
