// Package handler implements the HTTP handlers for the booking API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, availability.go, booking.go, sync.go) but all share the
// same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/service"
)

// BookingServicer defines the business operations the booking handlers
// depend on. Defining the interface here (in the consumer package) follows
// the Go convention: "accept interfaces, return concrete types". It lets
// handler tests inject a mock without touching the database or payment
// collaborators.
type BookingServicer interface {
	Create(ctx context.Context, req domain.BookingRequest) (domain.Booking, error)
	GetByConfirmation(ctx context.Context, code string) (domain.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)
	Cancel(ctx context.Context, code string) (domain.Booking, error)
}

// AvailabilityServicer defines the date-availability operations the
// availability handlers depend on.
type AvailabilityServicer interface {
	IsAvailable(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error)
	ListBusyRanges(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error)
}

// SyncServicer defines the calendar-sync trigger the sync handler depends on.
type SyncServicer interface {
	SyncAll(ctx context.Context) ([]service.SyncResult, error)
}

// Server implements all API endpoints. Wire it in main.go via Routes.
type Server struct {
	bookings     BookingServicer
	availability AvailabilityServicer
	sync         SyncServicer

	// authToken guards the sync trigger and admin transitions when set.
	authToken string
}

// NewServer constructs the Server with all its dependencies.
func NewServer(bookings BookingServicer, availability AvailabilityServicer, sync SyncServicer, authToken string) *Server {
	return &Server{
		bookings:     bookings,
		availability: availability,
		sync:         sync,
		authToken:    authToken,
	}
}

// Routes registers every endpoint on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/availability/check", s.CheckAvailability)
		r.Get("/availability/busy", s.ListBusyRanges)

		r.Post("/bookings", s.CreateBooking)
		r.Get("/bookings", s.ListBookings)
		r.Get("/bookings/{code}", s.GetBooking)
		r.Post("/bookings/{code}/cancel", s.CancelBooking)

		r.Post("/calendar/sync", s.TriggerSync)
	})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseDate parses a YYYY-MM-DD value.
func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// authorized reports whether the request carries the configured bearer
// token. When no token is configured the guarded endpoints are open, which
// is the development default.
func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.authToken
}
