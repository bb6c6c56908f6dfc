package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// bookingColumns is the SELECT/RETURNING column list shared by every query
// that materializes a full domain.Booking.
const bookingColumns = `id, created_at, guest_name, guest_email, guest_phone,
	unit_id, unit_name, check_in, check_out, num_guests, num_nights,
	base_price, cleaning_fee, total_amount,
	payment_id, payment_status, payment_method, booking_status,
	special_requests, confirmation_code`

// BookingRepo defines the persistence operations for internal Bookings.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type BookingRepo interface {
	// CreateConfirmed atomically re-checks availability and inserts the
	// booking in a single transaction. The re-check covers both confirmed
	// bookings and externally-synced busy intervals.
	//
	// Returns domain.ErrDatesUnavailable if the range conflicts at commit
	// time (either via the re-check or the storage exclusion constraint),
	// and domain.ErrCodeTaken if the confirmation code collides, in which
	// case the caller should regenerate the code and retry.
	CreateConfirmed(ctx context.Context, booking domain.Booking) (domain.Booking, error)

	// GetByConfirmation retrieves a booking by its confirmation code.
	// Returns domain.ErrNotFound if no booking carries that code.
	GetByConfirmation(ctx context.Context, code string) (domain.Booking, error)

	// ListByEmail returns a guest's bookings ordered by check-in descending.
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)

	// AnyOverlapping reports whether any confirmed booking for the unit
	// overlaps the half-open range [checkIn, checkOut).
	AnyOverlapping(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error)

	// ListRangesInWindow returns the confirmed bookings for the unit that
	// intersect the window, as BusyRanges tagged "internal".
	ListRangesInWindow(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error)

	// UpdatePayment overwrites a booking's payment reference and status.
	// Returns domain.ErrNotFound if the booking does not exist.
	UpdatePayment(ctx context.Context, id uuid.UUID, paymentID string, status domain.PaymentStatus) (domain.Booking, error)

	// SetStatus transitions a booking's lifecycle status by confirmation
	// code. Bookings are never deleted; cancellation and completion are
	// status writes. Returns domain.ErrNotFound if the code is unknown.
	SetStatus(ctx context.Context, code string, status domain.BookingStatus) (domain.Booking, error)
}

// pgBookingRepo is the Postgres implementation of BookingRepo.
type pgBookingRepo struct {
	db db
}

// NewBookingRepo constructs a BookingRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewBookingRepo(db db) BookingRepo {
	return &pgBookingRepo{db: db}
}

// overlapExistsQuery checks both partitions of the unit's busy calendar with
// the canonical half-open overlap test (a < d AND c < b).
const overlapExistsQuery = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE unit_id = @unit_id
		  AND booking_status = 'confirmed'
		  AND check_in < @check_out
		  AND check_out > @check_in
	) OR EXISTS (
		SELECT 1 FROM external_bookings
		WHERE unit_id = @unit_id
		  AND check_in < @check_out
		  AND check_out > @check_in
	)`

// CreateConfirmed inserts a confirmed booking, guarding the no-overlap
// invariant three ways, strongest last:
//
//  1. a per-unit advisory lock serializes concurrent commits for the same
//     unit, so two re-check-and-insert sequences never interleave;
//  2. the availability re-check inside the lock rejects ranges taken since
//     the caller's earlier check;
//  3. the bookings_no_overlap exclusion constraint is the final authority
//     should anything bypass the lock.
func (r *pgBookingRepo) CreateConfirmed(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// hashtext collapses the unit id to the advisory lock keyspace. The lock
	// is transaction-scoped and released automatically on commit/rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(@unit_id))`,
		pgx.NamedArgs{"unit_id": booking.UnitID}); err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: lock: %w", err)
	}

	var conflict bool
	err = tx.QueryRow(ctx, overlapExistsQuery, pgx.NamedArgs{
		"unit_id":   booking.UnitID,
		"check_in":  booking.CheckIn,
		"check_out": booking.CheckOut,
	}).Scan(&conflict)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: recheck: %w", err)
	}
	if conflict {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: %w", domain.ErrDatesUnavailable)
	}

	const q = `
		INSERT INTO bookings (
			guest_name, guest_email, guest_phone,
			unit_id, unit_name, check_in, check_out,
			num_guests, num_nights,
			base_price, cleaning_fee, total_amount,
			payment_id, payment_status, payment_method,
			booking_status, special_requests, confirmation_code
		)
		VALUES (
			@guest_name, @guest_email, @guest_phone,
			@unit_id, @unit_name, @check_in, @check_out,
			@num_guests, @num_nights,
			@base_price, @cleaning_fee, @total_amount,
			@payment_id, @payment_status, @payment_method,
			@booking_status, @special_requests, @confirmation_code
		)
		RETURNING ` + bookingColumns

	row := tx.QueryRow(ctx, q, pgx.NamedArgs{
		"guest_name":        booking.GuestName,
		"guest_email":       booking.GuestEmail,
		"guest_phone":       booking.GuestPhone,
		"unit_id":           booking.UnitID,
		"unit_name":         booking.UnitName,
		"check_in":          booking.CheckIn,
		"check_out":         booking.CheckOut,
		"num_guests":        booking.NumGuests,
		"num_nights":        booking.NumNights,
		"base_price":        booking.BasePrice,
		"cleaning_fee":      booking.CleaningFee,
		"total_amount":      booking.TotalAmount,
		"payment_id":        booking.PaymentID,
		"payment_status":    string(booking.PaymentStatus),
		"payment_method":    booking.PaymentMethod,
		"booking_status":    string(booking.BookingStatus),
		"special_requests":  booking.SpecialRequests,
		"confirmation_code": booking.ConfirmationCode,
	})

	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == pgerrExclusionViolation:
				return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: %w", domain.ErrDatesUnavailable)
			case pgErr.Code == pgerrUniqueViolation && pgErr.ConstraintName == "idx_bookings_confirmation":
				return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: %w", domain.ErrCodeTaken)
			}
		}
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.CreateConfirmed: commit: %w", err)
	}
	return created, nil
}

// Postgres error codes checked by CreateConfirmed.
const (
	pgerrUniqueViolation    = "23505"
	pgerrExclusionViolation = "23P01"
)

// GetByConfirmation retrieves a booking by its confirmation code.
func (r *pgBookingRepo) GetByConfirmation(ctx context.Context, code string) (domain.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE confirmation_code = @code`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": code})
	booking, err := scanBooking(row)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.GetByConfirmation: %w", err)
	}
	return booking, nil
}

// ListByEmail returns a guest's booking history, most recent stay first.
func (r *pgBookingRepo) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE guest_email = @email
		ORDER BY check_in DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"email": email})
	if err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.ListByEmail: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.BookingRepo.ListByEmail: scan: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.ListByEmail: rows: %w", err)
	}

	return bookings, nil
}

// AnyOverlapping reports whether a confirmed booking overlaps [checkIn, checkOut).
func (r *pgBookingRepo) AnyOverlapping(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE unit_id = @unit_id
			  AND booking_status = 'confirmed'
			  AND check_in < @check_out
			  AND check_out > @check_in
		)`

	var exists bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"unit_id":   unitID,
		"check_in":  checkIn,
		"check_out": checkOut,
	}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repo.BookingRepo.AnyOverlapping: %w", err)
	}
	return exists, nil
}

// ListRangesInWindow returns confirmed bookings intersecting the window,
// tagged as internal busy ranges, ordered by check-in ascending.
func (r *pgBookingRepo) ListRangesInWindow(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error) {
	const q = `
		SELECT check_in, check_out FROM bookings
		WHERE unit_id = @unit_id
		  AND booking_status = 'confirmed'
		  AND check_in <= @window_end
		  AND check_out >= @window_start
		ORDER BY check_in`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"unit_id":      unitID,
		"window_start": windowStart,
		"window_end":   windowEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.ListRangesInWindow: %w", err)
	}
	defer rows.Close()

	var ranges []domain.BusyRange
	for rows.Next() {
		var in, out pgtype.Date
		if err := rows.Scan(&in, &out); err != nil {
			return nil, fmt.Errorf("repo.BookingRepo.ListRangesInWindow: scan: %w", err)
		}
		ranges = append(ranges, domain.BusyRange{
			CheckIn:  in.Time,
			CheckOut: out.Time,
			Source:   domain.SourceInternal,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.ListRangesInWindow: rows: %w", err)
	}

	return ranges, nil
}

// UpdatePayment overwrites the payment reference and status of a booking.
func (r *pgBookingRepo) UpdatePayment(ctx context.Context, id uuid.UUID, paymentID string, status domain.PaymentStatus) (domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET payment_id     = @payment_id,
		    payment_status = @payment_status
		WHERE id = @id
		RETURNING ` + bookingColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":             id,
		"payment_id":     paymentID,
		"payment_status": string(status),
	})
	booking, err := scanBooking(row)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.UpdatePayment: %w", err)
	}
	return booking, nil
}

// SetStatus transitions a booking's lifecycle status by confirmation code.
func (r *pgBookingRepo) SetStatus(ctx context.Context, code string, status domain.BookingStatus) (domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET booking_status = @booking_status
		WHERE confirmation_code = @code
		RETURNING ` + bookingColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"code":           code,
		"booking_status": string(status),
	})
	booking, err := scanBooking(row)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.SetStatus: %w", err)
	}
	return booking, nil
}

// scanBooking maps a single database row into a domain.Booking.
// It handles the UUID, date, and status-string conversions.
func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b             domain.Booking
		id            pgtype.UUID
		checkIn       pgtype.Date
		checkOut      pgtype.Date
		paymentStatus string
		bookingStatus string
	)

	err := s.Scan(
		&id, &b.CreatedAt, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.UnitID, &b.UnitName, &checkIn, &checkOut, &b.NumGuests, &b.NumNights,
		&b.BasePrice, &b.CleaningFee, &b.TotalAmount,
		&b.PaymentID, &paymentStatus, &b.PaymentMethod, &bookingStatus,
		&b.SpecialRequests, &b.ConfirmationCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}

	b.ID = uuid.UUID(id.Bytes)
	b.CheckIn = checkIn.Time
	b.CheckOut = checkOut.Time
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	b.BookingStatus = domain.BookingStatus(bookingStatus)

	return b, nil
}
