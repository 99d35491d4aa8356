// Package geocode is the reverse-geocoding client: it turns a device
// position into a human-readable address string.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jantavoice/intake/internal/core/domain"
)

// Client queries a nominatim-shaped reverse geocoding endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type reverseResponse struct {
	Address domain.Address `json:"address"`
}

// NewClient creates a reverse-geocoding client. A nil httpClient gets a
// default with a conservative timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ReverseGeocode resolves a position to its address components.
func (c *Client) ReverseGeocode(ctx context.Context, pos domain.Coordinates) (domain.Address, error) {
	endpoint := fmt.Sprintf("%s/reverse?format=json&lat=%v&lon=%v", c.baseURL, pos.Lat, pos.Lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Address{}, fmt.Errorf("reverse geocode returned HTTP %d", resp.StatusCode)
	}

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Address{}, fmt.Errorf("decode reverse geocode response: %w", err)
	}

	return decoded.Address, nil
}

// Format renders an address as display text: road, neighbourhood, suburb,
// city (or town or village), state, country, postcode. Empty components are
// skipped; parts join with ", ". An address with no components renders empty;
// callers fall back to the raw coordinate pair.
func Format(a domain.Address) string {
	settlement := a.City
	if settlement == "" {
		settlement = a.Town
	}
	if settlement == "" {
		settlement = a.Village
	}

	parts := make([]string, 0, 7)
	for _, p := range []string{a.Road, a.Neighbourhood, a.Suburb, settlement, a.State, a.Country, a.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
