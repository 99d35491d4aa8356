// Package submit is the submission gateway: it builds the final structured
// payload from a completed session and sends it to the intake backend in a
// single attempt.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jantavoice/intake/internal/core/domain"
)

// Client posts intake submissions. One call per submission, no retry; the
// transport's timeout is the only timeout applied.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type response struct {
	Status string `json:"status"`
	Data   struct {
		ComplaintType string `json:"complaintType"`
		Address       string `json:"address"`
	} `json:"data"`
	Message string `json:"message"`
}

// NewClient creates a submission client. A nil httpClient gets a default
// with a conservative timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// BuildPayload flattens collected fields plus the caller identity into the
// wire payload. The primary field lands in description or serviceName
// depending on the flow.
func BuildPayload(flow domain.Flow, id domain.Identity, fields domain.Fields) domain.SubmissionPayload {
	p := domain.SubmissionPayload{
		Email:    id.OrAnonymous().Email,
		Details:  fields.Details,
		Location: fields.Location,
		Address:  fields.Location,
	}
	if flow == domain.FlowService {
		p.ServiceName = fields.Primary
	} else {
		p.Description = fields.Primary
	}
	return p
}

// Submit sends the payload to the flow's endpoint and maps the backend's
// structured verdict. A transport error or a non-success status both yield
// a failed result; the caller decides the dialogue consequence.
func (c *Client) Submit(ctx context.Context, flow domain.Flow, payload domain.SubmissionPayload) (domain.SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(flow), bytes.NewReader(body))
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("submission request: %w", err)
	}
	defer resp.Body.Close()

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("decode submission response: %w", err)
	}

	if decoded.Status != "success" {
		return domain.SubmissionResult{
			OK:  false,
			Err: decoded.Message,
		}, nil
	}

	return domain.SubmissionResult{
		OK:            true,
		ComplaintType: decoded.Data.ComplaintType,
		Address:       decoded.Data.Address,
	}, nil
}

func (c *Client) endpoint(flow domain.Flow) string {
	if flow == domain.FlowService {
		return c.baseURL + "/api/request-service"
	}
	return c.baseURL + "/api/report-issue"
}
