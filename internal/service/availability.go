// Package service contains the business logic for the booking system.
// Services validate inputs, enforce business rules, and orchestrate repo and
// collaborator calls. No SQL lives here — services depend on repo interfaces,
// not implementations.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/repo"
)

// AvailabilityService answers date-availability questions for a unit by
// treating confirmed internal bookings and externally-synced busy intervals
// as two partitions of one logical busy calendar.
type AvailabilityService struct {
	bookings repo.BookingRepo
	external repo.ExternalRepo
}

// NewAvailabilityService constructs an AvailabilityService over both stores.
func NewAvailabilityService(bookings repo.BookingRepo, external repo.ExternalRepo) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, external: external}
}

// IsAvailable reports whether the half-open range [checkIn, checkOut) is free
// for the unit. Internal confirmed bookings are checked first, then external
// intervals; a conflict in either partition makes the range unavailable.
//
// A check-in equal to an existing checkout is not a conflict (back-to-back
// stays). Zero-night requests are a client input error rejected upstream.
func (s *AvailabilityService) IsAvailable(ctx context.Context, unitID string, checkIn, checkOut time.Time) (bool, error) {
	busy, err := s.bookings.AnyOverlapping(ctx, unitID, checkIn, checkOut)
	if err != nil {
		return false, fmt.Errorf("service.AvailabilityService.IsAvailable: %w", err)
	}
	if busy {
		return false, nil
	}

	busy, err = s.external.AnyOverlapping(ctx, unitID, checkIn, checkOut)
	if err != nil {
		return false, fmt.Errorf("service.AvailabilityService.IsAvailable: %w", err)
	}
	return !busy, nil
}

// ListBusyRanges returns the union of internal and external busy ranges
// intersecting the window, ordered by check-in ascending. Internal bookings
// are tagged "internal"; external ranges carry their platform name. The
// result is recomputed fresh per call for calendar UI rendering.
func (s *AvailabilityService) ListBusyRanges(ctx context.Context, unitID string, windowStart, windowEnd time.Time) ([]domain.BusyRange, error) {
	internal, err := s.bookings.ListRangesInWindow(ctx, unitID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("service.AvailabilityService.ListBusyRanges: %w", err)
	}

	external, err := s.external.ListRangesInWindow(ctx, unitID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("service.AvailabilityService.ListBusyRanges: %w", err)
	}

	merged := make([]domain.BusyRange, 0, len(internal)+len(external))
	merged = append(merged, internal...)
	merged = append(merged, external...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CheckIn.Before(merged[j].CheckIn)
	})

	return merged, nil
}
