package handler

import "strings"

// ErrorDetail is the machine-readable error payload.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope every error body uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller supplies the human-readable message (e.g. "booking not found")
// because the handler is the layer that knows what was being looked up.
func notFoundBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: message}}
}

// validationBody returns an ErrorResponse for a domain validation failure.
// The message is extracted from the wrapped domain.ErrValidation error.
func validationBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}}
}

// unavailableBody is the user-facing rejection for a date conflict.
func unavailableBody() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "dates_unavailable", Message: "Dates are no longer available"}}
}

// paymentFailedBody is the user-facing rejection for a declined charge.
func paymentFailedBody() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "payment_failed", Message: "Payment failed"}}
}

// bookingFailedBody is the deliberately generic message for storage or race
// faults. Internal error text must never reach a guest.
func bookingFailedBody() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "booking_failed", Message: "Booking failed, please contact us"}}
}

// unauthorizedBody rejects a guarded endpoint without a valid bearer token.
func unauthorizedBody() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "unauthorized", Message: "unauthorized"}}
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.BookingService.Create: validation error: guest name is required"
// → "guest name is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, "validation error: "); i >= 0 {
		return msg[i+len("validation error: "):]
	}
	return msg
}
