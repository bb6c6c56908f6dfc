package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/handler"
	"github.com/BrainsyETH/dillardmill/internal/service"
)

// mockBookingServicer is a test double for handler.BookingServicer.
// Set only the method fields your test needs.
type mockBookingServicer struct {
	create            func(ctx context.Context, req domain.BookingRequest) (domain.Booking, error)
	getByConfirmation func(ctx context.Context, code string) (domain.Booking, error)
	listByEmail       func(ctx context.Context, email string) ([]domain.Booking, error)
	cancel            func(ctx context.Context, code string) (domain.Booking, error)
}

func (m *mockBookingServicer) Create(ctx context.Context, req domain.BookingRequest) (domain.Booking, error) {
	return m.create(ctx, req)
}
func (m *mockBookingServicer) GetByConfirmation(ctx context.Context, code string) (domain.Booking, error) {
	return m.getByConfirmation(ctx, code)
}
func (m *mockBookingServicer) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	return m.listByEmail(ctx, email)
}
func (m *mockBookingServicer) Cancel(ctx context.Context, code string) (domain.Booking, error) {
	return m.cancel(ctx, code)
}

// compile-time check: mockBookingServicer must satisfy handler.BookingServicer.
var _ handler.BookingServicer = (*mockBookingServicer)(nil)

// mockAvailabilityServicer is a test double for handler.AvailabilityServicer.
type mockAvailabilityServicer struct {
	isAvailable    func(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error)
	listBusyRanges func(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error)
}

func (m *mockAvailabilityServicer) IsAvailable(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error) {
	return m.isAvailable(ctx, unitID, checkIn, checkOut)
}
func (m *mockAvailabilityServicer) ListBusyRanges(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error) {
	return m.listBusyRanges(ctx, unitID, windowStart, windowEnd)
}

var _ handler.AvailabilityServicer = (*mockAvailabilityServicer)(nil)

// mockSyncServicer is a test double for handler.SyncServicer.
type mockSyncServicer struct {
	syncAll func(ctx context.Context) ([]service.SyncResult, error)
}

func (m *mockSyncServicer) SyncAll(ctx context.Context) ([]service.SyncResult, error) {
	return m.syncAll(ctx)
}

var _ handler.SyncServicer = (*mockSyncServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into a chi router.
// This mirrors exactly how main.go wires it in production. Nil mocks are
// fine for endpoints the test never touches.
func newHTTPHandler(bookings handler.BookingServicer, availability handler.AvailabilityServicer,
	sync handler.SyncServicer, authToken string) http.Handler {
	srv := handler.NewServer(bookings, availability, sync, authToken)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// decodeErrorCode extracts error.code from an error response body.
func decodeErrorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error.Code
}

func confirmedBooking() domain.Booking {
	return domain.Booking{
		GuestName:        "Jane Camper",
		GuestEmail:       "jane@example.com",
		UnitID:           "unit-1",
		UnitName:         "Creekside Cabin",
		CheckIn:          time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:         time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
		NumGuests:        2,
		NumNights:        4,
		BasePrice:        15000,
		CleaningFee:      5000,
		TotalAmount:      65000,
		PaymentID:        "pay_ok",
		PaymentStatus:    domain.PaymentPaid,
		BookingStatus:    domain.BookingConfirmed,
		ConfirmationCode: "PVABC123XYZ",
	}
}
