package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. too many guests, stay shorter than the unit minimum).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrDatesUnavailable is returned when the requested date range conflicts with
// a confirmed booking or an externally-synced busy interval. This is a normal
// user-facing rejection, not a system fault. Handlers should map it to HTTP 409.
var ErrDatesUnavailable = errors.New("dates unavailable")

// ErrPaymentFailed is returned when the payment collaborator declines or fails
// the charge. No booking row exists when this is returned.
var ErrPaymentFailed = errors.New("payment failed")

// ErrRaceLost is returned when the final pre-commit availability re-check fails
// after the payment has already been captured. It must be kept distinct from
// ErrPaymentFailed: money has moved and the charge needs reconciling. The
// booking service flags the payment for refund before returning this.
var ErrRaceLost = errors.New("booking race lost after payment")

// ErrFeedUnavailable is returned by the feed fetcher when a remote calendar
// could not be retrieved. The sync orchestrator contains it per (unit, source)
// pair; it never aborts a sync batch.
var ErrFeedUnavailable = errors.New("calendar feed unavailable")

// ErrCodeTaken is returned by the booking repo when the generated confirmation
// code collides with an existing one. The service regenerates and retries.
var ErrCodeTaken = errors.New("confirmation code taken")
