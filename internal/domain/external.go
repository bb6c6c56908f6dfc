package domain

import "time"

// BusyInterval is one blocked date span reported by an external platform's
// iCal feed for one unit. At most one row exists per (unit, source, check-in):
// a later sync for the same start date overwrites the checkout and guest hint.
type BusyInterval struct {
	UnitID string     `json:"unit_id"`
	Source FeedSource `json:"source"`

	// CheckIn is inclusive; CheckOut is exclusive, matching Booking semantics.
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`

	// GuestName is a best-effort hint extracted from the feed event summary.
	// Empty when the platform redacts guest identity.
	GuestName string `json:"guest_name,omitempty"`

	SyncedAt time.Time `json:"synced_at"`
}

// BusyRange is one entry in the merged busy calendar for a unit, used for
// calendar UI rendering. Source is an external platform name or "internal"
// for this site's own confirmed bookings.
type BusyRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Source   string    `json:"source"`
}

// SourceInternal tags BusyRanges that come from confirmed direct bookings
// rather than an external feed.
const SourceInternal = "internal"
