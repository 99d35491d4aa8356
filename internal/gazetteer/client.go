package gazetteer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the civic directory service that publishes the state and
// city lists.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// statesResponse is the directory's GET /states shape.
type statesResponse struct {
	Status string   `json:"status"`
	States []string `json:"states"`
}

// citiesResponse is the directory's GET /cities shape.
type citiesResponse struct {
	Status string   `json:"status"`
	Cities []string `json:"cities"`
}

// NewClient creates a directory client. A nil httpClient gets a default
// with a conservative timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// States fetches the state list.
func (c *Client) States(ctx context.Context) ([]string, error) {
	var resp statesResponse
	if err := c.get(ctx, c.baseURL+"/states", &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("directory returned status %q", resp.Status)
	}
	return resp.States, nil
}

// Cities fetches the city list for one state.
func (c *Client) Cities(ctx context.Context, state string) ([]string, error) {
	var resp citiesResponse
	endpoint := c.baseURL + "/cities?state=" + url.QueryEscape(state)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("directory returned status %q", resp.Status)
	}
	return resp.Cities, nil
}

// Load fetches the complete directory: the state list, then each state's
// cities. Used once at flow start; callers fall back to Empty() on error.
func (c *Client) Load(ctx context.Context) (*Gazetteer, error) {
	states, err := c.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}

	citiesByState := make(map[string][]string, len(states))
	for _, state := range states {
		cities, err := c.Cities(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("load cities for %s: %w", state, err)
		}
		citiesByState[state] = cities
	}

	return New(states, citiesByState), nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}
