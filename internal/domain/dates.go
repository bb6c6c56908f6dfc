package domain

import "time"

// Overlaps reports whether the half-open date ranges [aStart, aEnd) and
// [bStart, bEnd) share at least one night: aStart < bEnd && bStart < aEnd.
//
// Half-open semantics mean a checkout date is free for a same-day check-in,
// so back-to-back stays never conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Nights returns the number of nights between check-in and check-out.
// Both arguments are expected to be midnight-normalized dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// DateOnly truncates t to its calendar date in UTC. Time-of-day and timezone
// carry no meaning at whole-day lodging granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
