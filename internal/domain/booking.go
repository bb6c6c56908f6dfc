package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks the state of the charge backing a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// BookingStatus tracks the lifecycle of a booking. Bookings are never
// physically deleted; cancellation and completion are status transitions.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is the authoritative record of a completed direct reservation.
//
// Unit name and pricing are denormalized at commit time: the row must keep
// showing what the guest actually paid even if the unit's current rate or
// name changes later.
type Booking struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone,omitempty"`

	UnitID   string `json:"unit_id"`
	UnitName string `json:"unit_name"`

	// CheckIn is inclusive; CheckOut is exclusive. The checkout morning is
	// free for a same-day check-in by another guest.
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`

	NumGuests int `json:"num_guests"`
	NumNights int `json:"num_nights"`

	// BasePrice, CleaningFee, and TotalAmount are in cents, snapshotted at
	// booking time. TotalAmount = NumNights*BasePrice + CleaningFee.
	BasePrice   int64 `json:"base_price"`
	CleaningFee int64 `json:"cleaning_fee"`
	TotalAmount int64 `json:"total_amount"`

	PaymentID     string        `json:"payment_id,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod string        `json:"payment_method,omitempty"`

	BookingStatus BookingStatus `json:"booking_status"`

	SpecialRequests  string `json:"special_requests,omitempty"`
	ConfirmationCode string `json:"confirmation_code"`
}

// BookingRequest carries the guest's checkout form into the booking commit
// workflow. Pricing is deliberately absent: the service computes the total
// from the unit's current rate, never from client input.
type BookingRequest struct {
	UnitID          string
	CheckIn         time.Time
	CheckOut        time.Time
	NumGuests       int
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	SpecialRequests string

	// PaymentToken is the one-time card token produced by the payment
	// provider's web SDK during checkout.
	PaymentToken string
}
