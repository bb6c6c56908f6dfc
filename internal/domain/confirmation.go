package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// confirmationAlphabet is base-36: digits then uppercase letters, matching the
// uppercased base-36 timestamp component.
const confirmationAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewConfirmationCode builds a short, guest-legible confirmation code:
// a "PV" prefix, the current unix milliseconds in base 36, and three random
// base-36 characters, all uppercase.
//
// Uniqueness is by construction (millisecond timestamp plus random suffix),
// not a guarantee; the storage layer enforces a unique index and the booking
// service retries generation on a collision. The code is shareable and
// human-readable — it is not a security token.
func NewConfirmationCode(now time.Time) string {
	var b strings.Builder
	b.WriteString("PV")
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	for i := 0; i < 3; i++ {
		b.WriteByte(confirmationAlphabet[rand.IntN(len(confirmationAlphabet))])
	}
	return b.String()
}
