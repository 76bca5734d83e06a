package services

import (
	"storefront/internal/apperror"
	"storefront/internal/repositories"
)

// Domain errors returned by the services.
var (
	ErrInvalidQuantity  = repositories.ErrInvalidQuantity
	ErrQuantityTooLarge = apperror.New(apperror.Validation, "quantity must be at most 1000 per product")
	ErrOutOfStock       = repositories.ErrOutOfStock
	ErrAlreadyExists    = apperror.New(apperror.Conflict, "product is already in the wishlist")
	ErrNotInCart        = apperror.New(apperror.NotFound, "product is not in the cart")
	ErrVersionConflict  = repositories.ErrVersionConflict

	ErrInvalidCredentials = apperror.New(apperror.Unauthorized, "invalid email or password")
	ErrInvalidToken       = apperror.New(apperror.Unauthorized, "invalid or expired token")
	ErrNoPendingOTP       = apperror.New(apperror.Validation, "no verification code is pending, request a new one")
	ErrOTPExpired         = apperror.New(apperror.Validation, "verification code has expired, request a new one")
	ErrInvalidOTP         = apperror.New(apperror.Validation, "verification code is invalid")
	ErrAlreadyVerified    = apperror.New(apperror.Validation, "account is already verified")
	ErrEmailDelivery      = apperror.New(apperror.Upstream, "failed to send email, try again later")
	ErrWeakPassword       = apperror.New(apperror.Validation, "password must be at least 6 characters")

	ErrAddressNotFound = apperror.New(apperror.NotFound, "address not found")
	ErrNotReviewOwner  = apperror.New(apperror.Forbidden, "only the author can change this review")
	ErrNotOrderOwner   = apperror.New(apperror.Forbidden, "not allowed to access this order")
)

func invalid(message string) error {
	return apperror.New(apperror.Validation, message)
}
