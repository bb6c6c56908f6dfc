package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps_DisjointRanges(t *testing.T) {
	assert.False(t, domain.Overlaps(
		date(2025, 6, 1), date(2025, 6, 5),
		date(2025, 6, 10), date(2025, 6, 12),
	))
}

func TestOverlaps_BackToBack_NotAConflict(t *testing.T) {
	// Checkout morning is free for a same-day check-in: [1,5) vs [5,8).
	assert.False(t, domain.Overlaps(
		date(2025, 6, 1), date(2025, 6, 5),
		date(2025, 6, 5), date(2025, 6, 8),
	))
	// And the symmetric case.
	assert.False(t, domain.Overlaps(
		date(2025, 6, 5), date(2025, 6, 8),
		date(2025, 6, 1), date(2025, 6, 5),
	))
}

func TestOverlaps_PartialOverlap(t *testing.T) {
	assert.True(t, domain.Overlaps(
		date(2025, 6, 1), date(2025, 6, 5),
		date(2025, 6, 3), date(2025, 6, 6),
	))
}

func TestOverlaps_ContainedRange(t *testing.T) {
	assert.True(t, domain.Overlaps(
		date(2025, 7, 1), date(2025, 7, 10),
		date(2025, 7, 3), date(2025, 7, 4),
	))
}

func TestOverlaps_IdenticalRanges(t *testing.T) {
	assert.True(t, domain.Overlaps(
		date(2025, 6, 1), date(2025, 6, 5),
		date(2025, 6, 1), date(2025, 6, 5),
	))
}

// TestOverlaps_ShiftedByOwnLength checks the property from the availability
// design: a range never overlaps itself shifted by exactly its own length,
// in either direction. This is what makes back-to-back bookings legal.
func TestOverlaps_ShiftedByOwnLength(t *testing.T) {
	start := date(2025, 6, 1)
	for nights := 1; nights <= 30; nights++ {
		end := start.AddDate(0, 0, nights)
		shiftedStart := start.AddDate(0, 0, nights)
		shiftedEnd := end.AddDate(0, 0, nights)

		assert.False(t, domain.Overlaps(start, end, shiftedStart, shiftedEnd),
			"forward shift by %d nights should not overlap", nights)
		assert.False(t, domain.Overlaps(shiftedStart, shiftedEnd, start, end),
			"backward shift by %d nights should not overlap", nights)
	}
}

func TestNights(t *testing.T) {
	assert.Equal(t, 4, domain.Nights(date(2025, 6, 1), date(2025, 6, 5)))
	assert.Equal(t, 1, domain.Nights(date(2025, 6, 1), date(2025, 6, 2)))
	assert.Equal(t, 0, domain.Nights(date(2025, 6, 1), date(2025, 6, 1)))
}

func TestDateOnly_DiscardsTimeAndZone(t *testing.T) {
	loc := time.FixedZone("CDT", -5*3600)
	ts := time.Date(2025, 6, 1, 22, 30, 0, 0, loc) // 2025-06-02 03:30 UTC

	got := domain.DateOnly(ts)

	assert.Equal(t, date(2025, 6, 2), got)
}
