// Package cms reads rental units from the Sanity content API.
// Units are authored by content editors; this system treats them as
// read-only configuration and snapshots pricing into bookings at commit time.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/BrainsyETH/dillardmill/internal/domain"
)

// unitsQuery is the GROQ query for every rental unit, projecting only the
// fields the booking core reads. Prices are authored in whole dollars.
const unitsQuery = `*[_type == "rentalUnit"]{
	"id": _id, name, basePrice, cleaningFee, minStay, maxGuests,
	airbnbIcalUrl, hipcampIcalUrl, vrboIcalUrl
}`

// apiVersion pins the Sanity API date version.
const apiVersion = "2024-01-01"

// Client queries the Sanity data API for rental units.
type Client struct {
	httpClient *http.Client
	queryURL   string
	token      string
}

// NewClient constructs a Sanity client for the given project and dataset.
// The token may be empty for public datasets.
func NewClient(projectID, dataset, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queryURL: fmt.Sprintf("https://%s.api.sanity.io/v%s/data/query/%s",
			projectID, apiVersion, dataset),
		token: token,
	}
}

// newClientForTest points the client at a local server.
func newClientForTest(baseURL, token string) *Client {
	c := NewClient("test", "test", token)
	c.queryURL = baseURL
	return c
}

// sanityUnit mirrors the GROQ projection above.
type sanityUnit struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	BasePrice     float64 `json:"basePrice"`
	CleaningFee   float64 `json:"cleaningFee"`
	MinStay       int     `json:"minStay"`
	MaxGuests     int     `json:"maxGuests"`
	AirbnbIcalURL string  `json:"airbnbIcalUrl"`
	HipcampIcal   string  `json:"hipcampIcalUrl"`
	VrboIcalURL   string  `json:"vrboIcalUrl"`
}

// Units returns every rental unit in the dataset.
func (c *Client) Units(ctx context.Context) ([]domain.Unit, error) {
	raw, err := c.query(ctx, unitsQuery)
	if err != nil {
		return nil, fmt.Errorf("cms.Client.Units: %w", err)
	}

	units := make([]domain.Unit, 0, len(raw))
	for _, su := range raw {
		units = append(units, toDomain(su))
	}
	return units, nil
}

// Unit returns a single rental unit by its document id.
// Returns domain.ErrNotFound when no unit matches.
func (c *Client) Unit(ctx context.Context, id string) (domain.Unit, error) {
	units, err := c.Units(ctx)
	if err != nil {
		return domain.Unit{}, fmt.Errorf("cms.Client.Unit: %w", err)
	}
	for _, u := range units {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.Unit{}, fmt.Errorf("cms.Client.Unit: unit %q: %w", id, domain.ErrNotFound)
}

// query runs a GROQ query and decodes the result array.
func (c *Client) query(ctx context.Context, groq string) ([]sanityUnit, error) {
	u := c.queryURL + "?query=" + url.QueryEscape(groq)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sanity query: %s", resp.Status)
	}

	var body struct {
		Result []sanityUnit `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sanity response: %w", err)
	}
	return body.Result, nil
}

// toDomain converts a CMS unit into the domain type, converting the authored
// dollar prices to integer cents.
func toDomain(su sanityUnit) domain.Unit {
	feeds := make(map[domain.FeedSource]string)
	if su.AirbnbIcalURL != "" {
		feeds[domain.SourceAirbnb] = su.AirbnbIcalURL
	}
	if su.HipcampIcal != "" {
		feeds[domain.SourceHipcamp] = su.HipcampIcal
	}
	if su.VrboIcalURL != "" {
		feeds[domain.SourceVRBO] = su.VrboIcalURL
	}

	minStay := su.MinStay
	if minStay < 1 {
		minStay = 1
	}

	return domain.Unit{
		ID:          su.ID,
		Name:        su.Name,
		// Round rather than truncate: 0.29 * 100 is 28.999... in binary
		// floating point, and plain int64 conversion would lose a cent.
		BasePrice:   int64(math.Round(su.BasePrice * 100)),
		CleaningFee: int64(math.Round(su.CleaningFee * 100)),
		MinStay:     minStay,
		MaxGuests:   su.MaxGuests,
		FeedURLs:    feeds,
	}
}
