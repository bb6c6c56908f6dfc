package repo_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/repo"
	"github.com/BrainsyETH/dillardmill/testutil"
)

// newTestRepos opens a transaction against the test database and returns a
// BookingRepo and ExternalRepo both backed by that transaction. The
// transaction is automatically rolled back when the test finishes, giving
// free per-test isolation.
//
// CreateConfirmed begins its own transaction internally; on a pgx.Tx that
// becomes a savepoint, so the rollback isolation still holds.
func newTestRepos(t *testing.T) (repo.BookingRepo, repo.ExternalRepo) {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test — no cleanup SQL needed.
		_ = tx.Rollback(context.Background())
	})

	return repo.NewBookingRepo(tx), repo.NewExternalRepo(tx)
}

// date is shorthand for a UTC calendar date.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testCode returns a unique confirmation code for fixtures. Production codes
// come from domain.NewConfirmationCode; tests need guaranteed uniqueness even
// within the same millisecond.
func testCode() string {
	return "PV" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// bookingFixture returns a confirmed domain.Booking with sensible defaults.
// Callers can override individual fields after calling this function.
func bookingFixture(unitID string) domain.Booking {
	return domain.Booking{
		GuestName:        "Jane Camper",
		GuestEmail:       "jane@example.com",
		GuestPhone:       "+1 555 0100",
		UnitID:           unitID,
		UnitName:         "Creekside Cabin",
		CheckIn:          date(2026, 6, 1),
		CheckOut:         date(2026, 6, 5),
		NumGuests:        2,
		NumNights:        4,
		BasePrice:        15000,
		CleaningFee:      5000,
		TotalAmount:      65000,
		PaymentID:        "pay_test",
		PaymentStatus:    domain.PaymentPaid,
		PaymentMethod:    "square",
		BookingStatus:    domain.BookingConfirmed,
		SpecialRequests:  "late arrival",
		ConfirmationCode: testCode(),
	}
}

func TestBookingRepo_CreateConfirmed(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	input := bookingFixture("unit-create")
	got, err := bookings.CreateConfirmed(ctx, input)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.UUID{}, got.ID, "ID should be DB-generated UUID")
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set by DB")
	assert.Equal(t, input.GuestName, got.GuestName)
	assert.Equal(t, input.UnitName, got.UnitName)
	assert.True(t, got.CheckIn.Equal(input.CheckIn), "CheckIn mismatch")
	assert.True(t, got.CheckOut.Equal(input.CheckOut), "CheckOut mismatch")
	assert.Equal(t, input.TotalAmount, got.TotalAmount)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, domain.BookingConfirmed, got.BookingStatus)
	assert.Equal(t, input.ConfirmationCode, got.ConfirmationCode)
}

func TestBookingRepo_CreateConfirmed_OverlapRejected(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	first := bookingFixture("unit-overlap")
	_, err := bookings.CreateConfirmed(ctx, first)
	require.NoError(t, err)

	second := bookingFixture("unit-overlap")
	second.CheckIn = date(2026, 6, 3) // inside the first stay
	second.CheckOut = date(2026, 6, 8)

	_, err = bookings.CreateConfirmed(ctx, second)

	assert.ErrorIs(t, err, domain.ErrDatesUnavailable)
}

func TestBookingRepo_CreateConfirmed_BackToBackAllowed(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	first := bookingFixture("unit-backtoback")
	_, err := bookings.CreateConfirmed(ctx, first)
	require.NoError(t, err)

	// Checkout morning is free for a same-day check-in: [1,5) then [5,9).
	second := bookingFixture("unit-backtoback")
	second.CheckIn = first.CheckOut
	second.CheckOut = date(2026, 6, 9)

	_, err = bookings.CreateConfirmed(ctx, second)

	assert.NoError(t, err, "back-to-back stays must not conflict")
}

func TestBookingRepo_CreateConfirmed_ExternalIntervalBlocks(t *testing.T) {
	bookings, external := newTestRepos(t)
	ctx := context.Background()

	// A synced Airbnb stay occupies part of the requested range.
	err := external.Upsert(ctx, domain.BusyInterval{
		UnitID:   "unit-extblock",
		Source:   domain.SourceAirbnb,
		CheckIn:  date(2026, 6, 3),
		CheckOut: date(2026, 6, 6),
	})
	require.NoError(t, err)

	_, err = bookings.CreateConfirmed(ctx, bookingFixture("unit-extblock"))

	assert.ErrorIs(t, err, domain.ErrDatesUnavailable,
		"external busy interval must block the commit re-check")
}

func TestBookingRepo_CreateConfirmed_CodeCollision(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	first := bookingFixture("unit-codedup")
	_, err := bookings.CreateConfirmed(ctx, first)
	require.NoError(t, err)

	// Same code, non-overlapping dates: only the unique index can complain.
	second := bookingFixture("unit-codedup")
	second.CheckIn = date(2026, 7, 1)
	second.CheckOut = date(2026, 7, 5)
	second.ConfirmationCode = first.ConfirmationCode

	_, err = bookings.CreateConfirmed(ctx, second)

	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestBookingRepo_GetByConfirmation(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	created, err := bookings.CreateConfirmed(ctx, bookingFixture("unit-get"))
	require.NoError(t, err)

	got, err := bookings.GetByConfirmation(ctx, created.ConfirmationCode)

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.GuestEmail, got.GuestEmail)
}

func TestBookingRepo_GetByConfirmation_NotFound(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := bookings.GetByConfirmation(ctx, "PVNEVERISSUED")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingRepo_ListByEmail(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	earlier := bookingFixture("unit-history")
	earlier.GuestEmail = "history@example.com"

	later := bookingFixture("unit-history")
	later.GuestEmail = "history@example.com"
	later.CheckIn = date(2026, 8, 1)
	later.CheckOut = date(2026, 8, 4)
	later.NumNights = 3

	_, err := bookings.CreateConfirmed(ctx, earlier)
	require.NoError(t, err)
	_, err = bookings.CreateConfirmed(ctx, later)
	require.NoError(t, err)

	got, err := bookings.ListByEmail(ctx, "history@example.com")

	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ordered by check-in descending: the August stay first.
	assert.True(t, got[0].CheckIn.Equal(later.CheckIn), "most recent stay should come first")
	assert.True(t, got[1].CheckIn.Equal(earlier.CheckIn))
}

func TestBookingRepo_AnyOverlapping(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := bookings.CreateConfirmed(ctx, bookingFixture("unit-any")) // [Jun 1, Jun 5)
	require.NoError(t, err)

	cases := []struct {
		name              string
		checkIn, checkOut time.Time
		want              bool
	}{
		{"identical range", date(2026, 6, 1), date(2026, 6, 5), true},
		{"contained", date(2026, 6, 2), date(2026, 6, 3), true},
		{"straddles start", date(2026, 5, 30), date(2026, 6, 2), true},
		{"straddles end", date(2026, 6, 4), date(2026, 6, 8), true},
		{"ends at check-in", date(2026, 5, 28), date(2026, 6, 1), false},
		{"starts at check-out", date(2026, 6, 5), date(2026, 6, 9), false},
		{"disjoint", date(2026, 7, 1), date(2026, 7, 5), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bookings.AnyOverlapping(ctx, "unit-any", tc.checkIn, tc.checkOut)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBookingRepo_AnyOverlapping_IgnoresCancelled(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	created, err := bookings.CreateConfirmed(ctx, bookingFixture("unit-cancelled"))
	require.NoError(t, err)

	_, err = bookings.SetStatus(ctx, created.ConfirmationCode, domain.BookingCancelled)
	require.NoError(t, err)

	got, err := bookings.AnyOverlapping(ctx, "unit-cancelled", created.CheckIn, created.CheckOut)

	require.NoError(t, err)
	assert.False(t, got, "cancelled bookings must not block availability")
}

func TestBookingRepo_ListRangesInWindow(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	created, err := bookings.CreateConfirmed(ctx, bookingFixture("unit-window"))
	require.NoError(t, err)

	ranges, err := bookings.ListRangesInWindow(ctx, "unit-window",
		date(2026, 6, 1), date(2026, 6, 30))

	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].CheckIn.Equal(created.CheckIn))
	assert.True(t, ranges[0].CheckOut.Equal(created.CheckOut))
	assert.Equal(t, domain.SourceInternal, ranges[0].Source)
}

func TestBookingRepo_UpdatePayment(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	created, err := bookings.CreateConfirmed(ctx, bookingFixture("unit-payment"))
	require.NoError(t, err)

	updated, err := bookings.UpdatePayment(ctx, created.ID, "pay_refund_1", domain.PaymentRefunded)

	require.NoError(t, err)
	assert.Equal(t, "pay_refund_1", updated.PaymentID)
	assert.Equal(t, domain.PaymentRefunded, updated.PaymentStatus)
}

func TestBookingRepo_UpdatePayment_NotFound(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := bookings.UpdatePayment(ctx, uuid.New(), "pay_x", domain.PaymentRefunded)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingRepo_SetStatus_NotFound(t *testing.T) {
	bookings, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := bookings.SetStatus(ctx, "PVGHOST", domain.BookingCancelled)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestBookingRepo_CreateConfirmed_ConcurrentRace drives N simultaneous
// commits for the same unit and range against the live pool (transactions
// can't race each other from a single connection). Exactly one attempt must
// win; every loser must see ErrDatesUnavailable, never a raw constraint
// error or a double booking.
func TestBookingRepo_CreateConfirmed_ConcurrentRace(t *testing.T) {
	pool := testutil.NewPool(t)
	bookings := repo.NewBookingRepo(pool)
	ctx := context.Background()

	unitID := "race-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			`DELETE FROM bookings WHERE unit_id = $1`, unitID)
	})

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := bookingFixture(unitID)
			b.ConfirmationCode = testCode()
			_, errs[i] = bookings.CreateConfirmed(ctx, b)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrDatesUnavailable),
			"loser should see ErrDatesUnavailable, got: %v", err)
	}
	assert.Equal(t, 1, wins, "exactly one concurrent commit must win")
}
