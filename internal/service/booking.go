package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/repo"
)

// PaymentCharger is the opaque payment collaborator. Charge captures the
// amount and returns a payment reference; Refund reverses a captured charge.
// Implemented by payment.Client; mocked in tests.
type PaymentCharger interface {
	Charge(ctx context.Context, sourceToken string, amountCents int64, note string) (string, error)
	Refund(ctx context.Context, paymentID string, amountCents int64) error
}

// Notifier sends the guest and admin confirmation messages after a commit.
// Best-effort: the booking service logs failures and never rolls back a
// confirmed booking over them. Implemented by notify.Client; mocked in tests.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking domain.Booking) error
}

// AvailabilityChecker is the slice of AvailabilityService the booking
// workflow needs for its initial check.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error)
}

// codeRetries caps confirmation-code regeneration attempts on a collision.
const codeRetries = 3

// BookingService runs the checkout-time commit workflow:
// validate → check availability → charge → atomically re-check and persist →
// notify. Pricing is snapshotted from the unit at the start of the attempt
// and never revalidated mid-flow.
type BookingService struct {
	units        UnitSource
	availability AvailabilityChecker
	bookings     repo.BookingRepo
	charger      PaymentCharger
	notifier     Notifier
	log          *slog.Logger
}

// NewBookingService constructs a BookingService with all its collaborators.
func NewBookingService(
	units UnitSource,
	availability AvailabilityChecker,
	bookings repo.BookingRepo,
	charger PaymentCharger,
	notifier Notifier,
	log *slog.Logger,
) *BookingService {
	if log == nil {
		log = slog.Default()
	}
	return &BookingService{
		units:        units,
		availability: availability,
		bookings:     bookings,
		charger:      charger,
		notifier:     notifier,
		log:          log,
	}
}

// Create runs one booking attempt end to end and returns the confirmed
// booking.
//
// Error contract:
//   - domain.ErrValidation — bad guest input; nothing charged or stored.
//   - domain.ErrNotFound — unknown unit.
//   - domain.ErrDatesUnavailable — the range was already busy at the initial
//     check; nothing charged.
//   - domain.ErrPaymentFailed — the charge was declined; nothing stored.
//   - domain.ErrRaceLost — another commit won the range between the initial
//     check and ours, after payment was captured. The charge has been flagged
//     for refund before this returns; the caller must not retry silently.
func (s *BookingService) Create(ctx context.Context, req domain.BookingRequest) (domain.Booking, error) {
	req.CheckIn = domain.DateOnly(req.CheckIn)
	req.CheckOut = domain.DateOnly(req.CheckOut)

	unit, err := s.units.Unit(ctx, req.UnitID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	if err := validateRequest(req, unit); err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	available, err := s.availability.IsAvailable(ctx, req.UnitID, req.CheckIn, req.CheckOut)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}
	if !available {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w", domain.ErrDatesUnavailable)
	}

	// Pricing snapshot: the total is fixed here, from the unit's rate as it
	// stands now. Later rate changes must not alter this booking.
	nights := domain.Nights(req.CheckIn, req.CheckOut)
	total := int64(nights)*unit.BasePrice + unit.CleaningFee

	note := fmt.Sprintf("%s %s to %s", unit.Name,
		req.CheckIn.Format(time.DateOnly), req.CheckOut.Format(time.DateOnly))
	paymentID, err := s.charger.Charge(ctx, req.PaymentToken, total, note)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w: %w", domain.ErrPaymentFailed, err)
	}

	booking := domain.Booking{
		GuestName:       strings.TrimSpace(req.GuestName),
		GuestEmail:      strings.TrimSpace(req.GuestEmail),
		GuestPhone:      strings.TrimSpace(req.GuestPhone),
		UnitID:          unit.ID,
		UnitName:        unit.Name,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		NumGuests:       req.NumGuests,
		NumNights:       nights,
		BasePrice:       unit.BasePrice,
		CleaningFee:     unit.CleaningFee,
		TotalAmount:     total,
		PaymentID:       paymentID,
		PaymentStatus:   domain.PaymentPaid,
		PaymentMethod:   "square",
		BookingStatus:   domain.BookingConfirmed,
		SpecialRequests: req.SpecialRequests,
	}

	created, err := s.commit(ctx, booking)
	if err != nil {
		if errors.Is(err, domain.ErrDatesUnavailable) {
			// Race lost after payment: money has moved. Flag the charge for
			// refund and alert an operator; surface a distinct error so the
			// HTTP layer never reports a generic payment failure here.
			s.flagForRefund(ctx, paymentID, total, req)
			return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w", domain.ErrRaceLost)
		}
		return domain.Booking{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	// Exactly one notification attempt per successful commit, best-effort.
	if err := s.notifier.BookingConfirmed(ctx, created); err != nil {
		s.log.Error("confirmation notification failed",
			"confirmation_code", created.ConfirmationCode, "error", err)
	}

	s.log.Info("booking confirmed",
		"confirmation_code", created.ConfirmationCode,
		"unit", created.UnitID,
		"check_in", created.CheckIn.Format(time.DateOnly),
		"check_out", created.CheckOut.Format(time.DateOnly),
		"total_cents", created.TotalAmount)

	return created, nil
}

// commit persists the booking, regenerating the confirmation code on the
// rare unique-index collision.
func (s *BookingService) commit(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < codeRetries; attempt++ {
		booking.ConfirmationCode = domain.NewConfirmationCode(time.Now())
		created, err := s.bookings.CreateConfirmed(ctx, booking)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return domain.Booking{}, err
		}
		lastErr = err
	}
	return domain.Booking{}, lastErr
}

// flagForRefund reverses a charge whose booking lost the commit race. The
// refund itself is best-effort; either way the payment reference is logged
// at error level so an operator reconciles the charge.
func (s *BookingService) flagForRefund(ctx context.Context, paymentID string, amount int64, req domain.BookingRequest) {
	if err := s.charger.Refund(ctx, paymentID, amount); err != nil {
		s.log.Error("REFUND REQUIRED: booking race lost after payment and automatic refund failed",
			"payment_id", paymentID,
			"amount_cents", amount,
			"unit", req.UnitID,
			"guest_email", req.GuestEmail,
			"error", err)
		return
	}
	s.log.Error("booking race lost after payment; charge refunded",
		"payment_id", paymentID,
		"amount_cents", amount,
		"unit", req.UnitID,
		"guest_email", req.GuestEmail)
}

// GetByConfirmation returns a booking by its confirmation code.
func (s *BookingService) GetByConfirmation(ctx context.Context, code string) (domain.Booking, error) {
	booking, err := s.bookings.GetByConfirmation(ctx, code)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.GetByConfirmation: %w", err)
	}
	return booking, nil
}

// ListByEmail returns a guest's booking history.
func (s *BookingService) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	bookings, err := s.bookings.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service.BookingService.ListByEmail: %w", err)
	}
	return bookings, nil
}

// Cancel transitions a booking to cancelled. Administrative action; the row
// is kept for the audit trail.
func (s *BookingService) Cancel(ctx context.Context, code string) (domain.Booking, error) {
	booking, err := s.bookings.SetStatus(ctx, code, domain.BookingCancelled)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Cancel: %w", err)
	}
	return booking, nil
}

// validateRequest enforces the guest-input business rules against the unit's
// configured limits. Returns domain.ErrValidation-wrapped errors in the
// format the handler layer unwraps for user display.
func validateRequest(req domain.BookingRequest, unit domain.Unit) error {
	if strings.TrimSpace(req.GuestName) == "" {
		return fmt.Errorf("%w: guest name is required", domain.ErrValidation)
	}
	email := strings.TrimSpace(req.GuestEmail)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid guest email is required", domain.ErrValidation)
	}
	if !req.CheckIn.Before(req.CheckOut) {
		return fmt.Errorf("%w: check-out must be after check-in", domain.ErrValidation)
	}
	if req.CheckIn.Before(domain.DateOnly(time.Now())) {
		return fmt.Errorf("%w: check-in must not be in the past", domain.ErrValidation)
	}
	if strings.TrimSpace(req.PaymentToken) == "" {
		return fmt.Errorf("%w: payment token is required", domain.ErrValidation)
	}
	if req.NumGuests < 1 {
		return fmt.Errorf("%w: at least one guest is required", domain.ErrValidation)
	}
	if req.NumGuests > unit.MaxGuests {
		return fmt.Errorf("%w: %s sleeps at most %d guests", domain.ErrValidation, unit.Name, unit.MaxGuests)
	}
	if nights := domain.Nights(req.CheckIn, req.CheckOut); nights < unit.MinStay {
		return fmt.Errorf("%w: %s requires a minimum stay of %d nights", domain.ErrValidation, unit.Name, unit.MinStay)
	}
	return nil
}
