// Package domain contains the core data types for the booking system.
// This package has zero heavy dependencies and is imported by every other
// internal package (repo, service, handler).
package domain

// FeedSource identifies the external platform a calendar feed or busy interval
// came from.
type FeedSource string

const (
	SourceAirbnb  FeedSource = "airbnb"
	SourceHipcamp FeedSource = "hipcamp"
	SourceVRBO    FeedSource = "vrbo"
)

// ValidSource reports whether s is one of the known external platforms.
func ValidSource(s FeedSource) bool {
	switch s {
	case SourceAirbnb, SourceHipcamp, SourceVRBO:
		return true
	}
	return false
}

// Unit is a rentable property as authored in the CMS. The booking core reads
// units but never writes them; pricing and limits are snapshotted into each
// Booking at commit time.
type Unit struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// BasePrice is the nightly rate in cents. CleaningFee is a flat per-stay
	// charge in cents. Integer cents avoid float rounding in totals.
	BasePrice   int64 `json:"base_price"`
	CleaningFee int64 `json:"cleaning_fee"`

	// MinStay is the minimum number of nights per booking.
	MinStay int `json:"min_stay"`
	// MaxGuests is the occupancy limit enforced at booking time.
	MaxGuests int `json:"max_guests"`

	// FeedURLs maps each configured external platform to its iCal feed URL.
	// Units with no feeds simply never appear in a sync run.
	FeedURLs map[FeedSource]string `json:"feed_urls,omitempty"`
}
