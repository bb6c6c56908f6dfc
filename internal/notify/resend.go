// Package notify sends booking confirmation email through the Resend API.
// Delivery is best-effort: a failed send is logged by the caller and never
// rolls back a confirmed booking.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

const sendURL = "https://api.resend.com/emails"

// Client sends transactional mail via Resend.
type Client struct {
	httpClient *http.Client
	sendURL    string
	apiKey     string

	// from is the guest-facing sender, e.g. "Pine Valley <bookings@dillardmill.com>".
	from string
	// adminEmail receives the internal copy of every new booking.
	adminEmail string
}

// NewClient constructs a Resend client.
func NewClient(apiKey, from, adminEmail string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		sendURL:    sendURL,
		apiKey:     apiKey,
		from:       from,
		adminEmail: adminEmail,
	}
}

// newClientForTest points the client at a local server.
func newClientForTest(baseURL, apiKey, from, adminEmail string) *Client {
	c := NewClient(apiKey, from, adminEmail)
	c.sendURL = baseURL + "/emails"
	return c
}

// BookingConfirmed sends the guest confirmation and the admin notification
// for one committed booking. Exactly one attempt per message; the first
// failure is returned so the caller can log it.
func (c *Client) BookingConfirmed(ctx context.Context, b domain.Booking) error {
	guestErr := c.send(ctx, b.GuestEmail,
		fmt.Sprintf("Booking Confirmation - %s", b.UnitName),
		guestBody(b))

	adminErr := c.send(ctx, c.adminEmail,
		fmt.Sprintf("New Booking: %s - %s", b.UnitName, b.GuestName),
		adminBody(b))

	if guestErr != nil {
		return fmt.Errorf("notify.Client.BookingConfirmed: guest email: %w", guestErr)
	}
	if adminErr != nil {
		return fmt.Errorf("notify.Client.BookingConfirmed: admin email: %w", adminErr)
	}
	return nil
}

// send posts one email to the Resend API.
func (c *Client) send(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := json.Marshal(struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("resend: %s", resp.Status)
	}
	return nil
}

// dollars renders integer cents as a dollar string for email display.
func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func guestBody(b domain.Booking) string {
	return fmt.Sprintf(`<h1>Your Pine Valley Booking is Confirmed!</h1>
<p>Hi %s,</p>
<p>Thank you for booking with Pine Valley. We're excited to host you!</p>
<h2>Booking Details</h2>
<ul>
  <li><strong>Confirmation #:</strong> %s</li>
  <li><strong>Unit:</strong> %s</li>
  <li><strong>Check-in:</strong> %s</li>
  <li><strong>Check-out:</strong> %s</li>
  <li><strong>Guests:</strong> %d</li>
  <li><strong>Total Paid:</strong> %s</li>
</ul>
<h2>What's Next?</h2>
<p>You'll receive check-in instructions 48 hours before your arrival.</p>
<p>Questions? Reply to this email.</p>
<p>See you soon!<br>The Pine Valley Team</p>`,
		html.EscapeString(b.GuestName),
		b.ConfirmationCode,
		html.EscapeString(b.UnitName),
		b.CheckIn.Format("January 2, 2006"),
		b.CheckOut.Format("January 2, 2006"),
		b.NumGuests,
		dollars(b.TotalAmount))
}

func adminBody(b domain.Booking) string {
	return fmt.Sprintf(`<h1>New Booking Received</h1>
<ul>
  <li><strong>Guest:</strong> %s (%s)</li>
  <li><strong>Unit:</strong> %s</li>
  <li><strong>Check-in:</strong> %s</li>
  <li><strong>Check-out:</strong> %s</li>
  <li><strong>Guests:</strong> %d</li>
  <li><strong>Amount:</strong> %s</li>
  <li><strong>Confirmation #:</strong> %s</li>
</ul>`,
		html.EscapeString(b.GuestName),
		html.EscapeString(b.GuestEmail),
		html.EscapeString(b.UnitName),
		b.CheckIn.Format("January 2, 2006"),
		b.CheckOut.Format("January 2, 2006"),
		b.NumGuests,
		dollars(b.TotalAmount),
		b.ConfirmationCode)
}
