package apperr

import "github.com/campusconnect/mconnect/pkg/zerror"

const (
	ValidationErrorCode     = "VALIDATION_FAILED"
	ListingNotFoundCode     = "LISTING_NOT_FOUND"
	ListingSoldCode         = "LISTING_SOLD"
	SellerEmailMismatchCode = "SELLER_EMAIL_MISMATCH"
	ImageStorageFailedCode  = "IMAGE_STORAGE_FAILED"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	ListingNotFoundErr = zerror.NewNotFound(ListingNotFoundCode, "listing not found")

	// ListingSoldErr blocks purchase requests against listings that have
	// already been marked sold.
	ListingSoldErr = zerror.NewConflict(ListingSoldCode, "listing is already sold")

	// SellerEmailMismatchErr is returned when the confirmation email given
	// to the sold transition does not match the listing's seller.
	SellerEmailMismatchErr = zerror.NewForbidden(SellerEmailMismatchCode, "seller email confirmation does not match")

	ImageStorageFailedErr = zerror.NewInternalServerError(ImageStorageFailedCode, "could not store listing image")
)
