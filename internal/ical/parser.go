// Package ical converts raw iCal calendar documents into normalized
// whole-day stay ranges. Platform feeds (Airbnb, Hipcamp, VRBO) publish
// busy spans as VEVENTs; only the calendar dates matter for lodging
// availability, so time-of-day and timezone are discarded.
package ical

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// Stay is one normalized busy span extracted from a feed event.
// CheckIn is inclusive, CheckOut exclusive — the checkout morning is not
// itself blocked. GuestName is empty when the summary held no usable hint.
type Stay struct {
	CheckIn   time.Time
	CheckOut  time.Time
	GuestName string
}

// summaryPrefix matches the boilerplate platforms prepend to event summaries,
// e.g. "Reserved: Jane D." or "Blocked". Case-insensitive, colon optional.
var summaryPrefix = regexp.MustCompile(`(?i)^(reserved|blocked|booked):?\s*`)

// Parse reads a raw iCal document and returns one Stay per event that carries
// both a start and an end. Events missing either timestamp are skipped rather
// than failing the whole feed — platform feeds routinely contain stray
// placeholder events. Each call parses fresh; there is no shared state.
func Parse(data []byte) ([]Stay, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ical.Parse: %w", err)
	}

	var stays []Stay
	for _, ev := range cal.Events() {
		start, err := eventTime(ev.GetStartAt, ev.GetAllDayStartAt)
		if err != nil {
			continue
		}
		end, err := eventTime(ev.GetEndAt, ev.GetAllDayEndAt)
		if err != nil {
			continue
		}

		stays = append(stays, Stay{
			CheckIn:   domain.DateOnly(start),
			CheckOut:  domain.DateOnly(end),
			GuestName: guestHint(ev),
		})
	}
	return stays, nil
}

// eventTime resolves a VEVENT timestamp, falling back to the all-day
// accessor. Platform feeds use VALUE=DATE for whole-day blocks, which the
// timed accessor rejects.
func eventTime(timed, allDay func() (time.Time, error)) (time.Time, error) {
	if t, err := timed(); err == nil {
		return t, nil
	}
	return allDay()
}

// guestHint strips the known reservation prefixes from the event summary and
// returns what remains, which on most platforms is the guest's name.
func guestHint(ev *ics.VEvent) string {
	p := ev.GetProperty(ics.ComponentPropertySummary)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(summaryPrefix.ReplaceAllString(p.Value, ""))
}
