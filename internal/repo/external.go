package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// ExternalRepo defines the persistence operations for externally-synced
// BusyIntervals. Only the sync orchestrator writes through this interface;
// guest-facing code reads it via the availability resolver.
type ExternalRepo interface {
	// PruneExpired deletes intervals for the (unit, source) pair whose
	// checkout is strictly in the past. Run before each resync so stale
	// rows never accumulate. Returns the number of rows removed.
	PruneExpired(ctx context.Context, unitID string, source domain.FeedSource) (int64, error)

	// Upsert inserts the interval or, when a row already exists for the
	// same (unit, source, check-in), overwrites its checkout and guest
	// hint and stamps a fresh synced_at.
	Upsert(ctx context.Context, interval domain.BusyInterval) error

	// AnyOverlapping reports whether any interval for the unit overlaps the
	// half-open range [checkIn, checkOut), regardless of source.
	AnyOverlapping(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error)

	// ListRangesInWindow returns the intervals for the unit intersecting
	// the window, as BusyRanges tagged with their source platform.
	ListRangesInWindow(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error)
}

// pgExternalRepo is the Postgres implementation of ExternalRepo.
type pgExternalRepo struct {
	db db
}

// NewExternalRepo constructs an ExternalRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewExternalRepo(db db) ExternalRepo {
	return &pgExternalRepo{db: db}
}

// PruneExpired removes intervals whose stay has fully ended.
func (r *pgExternalRepo) PruneExpired(ctx context.Context, unitID string, source domain.FeedSource) (int64, error) {
	const q = `
		DELETE FROM external_bookings
		WHERE unit_id = @unit_id
		  AND source = @source
		  AND check_out < CURRENT_DATE`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"unit_id": unitID,
		"source":  string(source),
	})
	if err != nil {
		return 0, fmt.Errorf("repo.ExternalRepo.PruneExpired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Upsert writes one busy interval keyed by (unit, source, check_in).
func (r *pgExternalRepo) Upsert(ctx context.Context, interval domain.BusyInterval) error {
	const q = `
		INSERT INTO external_bookings (unit_id, source, check_in, check_out, guest_name, synced_at)
		VALUES (@unit_id, @source, @check_in, @check_out, @guest_name, now())
		ON CONFLICT (unit_id, source, check_in)
		DO UPDATE SET
			check_out  = EXCLUDED.check_out,
			guest_name = EXCLUDED.guest_name,
			synced_at  = now()`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"unit_id":    interval.UnitID,
		"source":     string(interval.Source),
		"check_in":   interval.CheckIn,
		"check_out":  interval.CheckOut,
		"guest_name": interval.GuestName,
	})
	if err != nil {
		return fmt.Errorf("repo.ExternalRepo.Upsert: %w", err)
	}
	return nil
}

// AnyOverlapping reports whether any synced interval overlaps [checkIn, checkOut).
func (r *pgExternalRepo) AnyOverlapping(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM external_bookings
			WHERE unit_id = @unit_id
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
		return false, fmt.Errorf("repo.ExternalRepo.AnyOverlapping: %w", err)
	}
	return exists, nil
}

// ListRangesInWindow returns synced intervals intersecting the window,
// ordered by check-in ascending.
func (r *pgExternalRepo) ListRangesInWindow(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error) {
	const q = `
		SELECT check_in, check_out, source FROM external_bookings
		WHERE unit_id = @unit_id
		  AND check_in <= @window_end
		  AND check_out >= @window_start
		ORDER BY check_in`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"unit_id":      unitID,
		"window_start": windowStart,
		"window_end":   windowEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.ExternalRepo.ListRangesInWindow: %w", err)
	}
	defer rows.Close()

	var ranges []domain.BusyRange
	for rows.Next() {
		var (
			in, out pgtype.Date
			source  string
		)
		if err := rows.Scan(&in, &out, &source); err != nil {
			return nil, fmt.Errorf("repo.ExternalRepo.ListRangesInWindow: scan: %w", err)
		}
		ranges = append(ranges, domain.BusyRange{
			CheckIn:  in.Time,
			CheckOut: out.Time,
			Source:   source,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ExternalRepo.ListRangesInWindow: rows: %w", err)
	}

	return ranges, nil
}
