package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// createBookingRequest is the body of POST /api/bookings: the guest's
// checkout form. Pricing is never accepted from the client; the service
// computes the total from the unit's current rate.
type createBookingRequest struct {
	UnitID          string `json:"unitId"`
	CheckIn         string `json:"checkIn"`
	CheckOut        string `json:"checkOut"`
	NumGuests       int    `json:"numGuests"`
	GuestName       string `json:"guestName"`
	GuestEmail      string `json:"guestEmail"`
	GuestPhone      string `json:"guestPhone"`
	SpecialRequests string `json:"specialRequests"`
	PaymentToken    string `json:"paymentToken"`
}

// bookingResponse is the public shape of a booking. The payment reference
// stays internal.
type bookingResponse struct {
	ConfirmationCode string `json:"confirmationCode"`
	UnitID           string `json:"unitId"`
	UnitName         string `json:"unitName"`
	CheckIn          string `json:"checkIn"`
	CheckOut         string `json:"checkOut"`
	NumGuests        int    `json:"numGuests"`
	NumNights        int    `json:"numNights"`
	BasePrice        int64  `json:"basePrice"`
	CleaningFee      int64  `json:"cleaningFee"`
	TotalAmount      int64  `json:"totalAmount"`
	GuestName        string `json:"guestName"`
	BookingStatus    string `json:"bookingStatus"`
	PaymentStatus    string `json:"paymentStatus"`
}

// CreateBooking handles POST /api/bookings: the full commit workflow from
// availability check through payment to the persisted confirmed booking.
func (s *Server) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body"))
		return
	}

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("checkIn must be a YYYY-MM-DD date"))
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("checkOut must be a YYYY-MM-DD date"))
		return
	}

	booking, err := s.bookings.Create(r.Context(), domain.BookingRequest{
		UnitID:          req.UnitID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumGuests:       req.NumGuests,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		SpecialRequests: req.SpecialRequests,
		PaymentToken:    req.PaymentToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, notFoundBody("unit not found"))
		case errors.Is(err, domain.ErrDatesUnavailable):
			writeJSON(w, http.StatusConflict, unavailableBody())
		case errors.Is(err, domain.ErrPaymentFailed):
			writeJSON(w, http.StatusPaymentRequired, paymentFailedBody())
		case errors.Is(err, domain.ErrRaceLost):
			// The charge has been flagged for refund by the service; the
			// guest gets the generic failure, never the race detail.
			writeJSON(w, http.StatusConflict, bookingFailedBody())
		default:
			writeJSON(w, http.StatusInternalServerError, bookingFailedBody())
		}
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /api/bookings/{code}.
func (s *Server) GetBooking(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	booking, err := s.bookings.GetByConfirmation(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("booking not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, bookingFailedBody())
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

// ListBookings handles GET /api/bookings?email= — a guest's booking history.
func (s *Server) ListBookings(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("email is required"))
		return
	}

	bookings, err := s.bookings.ListByEmail(r.Context(), email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, bookingFailedBody())
		return
	}

	out := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = toBookingResponse(b)
	}
	writeJSON(w, http.StatusOK, map[string][]bookingResponse{"bookings": out})
}

// CancelBooking handles POST /api/bookings/{code}/cancel. Administrative
// action, guarded by the same bearer token as the sync trigger.
func (s *Server) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, unauthorizedBody())
		return
	}

	code := chi.URLParam(r, "code")
	booking, err := s.bookings.Cancel(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("booking not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, bookingFailedBody())
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ConfirmationCode: b.ConfirmationCode,
		UnitID:           b.UnitID,
		UnitName:         b.UnitName,
		CheckIn:          b.CheckIn.Format(time.DateOnly),
		CheckOut:         b.CheckOut.Format(time.DateOnly),
		NumGuests:        b.NumGuests,
		NumNights:        b.NumNights,
		BasePrice:        b.BasePrice,
		CleaningFee:      b.CleaningFee,
		TotalAmount:      b.TotalAmount,
		GuestName:        b.GuestName,
		BookingStatus:    string(b.BookingStatus),
		PaymentStatus:    string(b.PaymentStatus),
	}
}
