// Package sheety appends leads to a spreadsheet-backed REST endpoint.
package sheety

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hotel_finder/internal/adapters/upstream"
	"hotel_finder/internal/domain"
)

type Client struct {
	endpoint string
	up       *upstream.Client
}

// New takes the full sheet URL, e.g. https://api.sheety.co/<project>/<sheet>/leads.
func New(endpoint string, timeout time.Duration, rps int) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("sheety base URL is required")
	}
	return &Client{endpoint: endpoint, up: upstream.New("sheety", timeout, rps)}, nil
}

type row struct {
	Lead domain.LeadSubmission `json:"lead"`
}

// AppendLead posts one row and returns the service's response body.
func (c *Client) AppendLead(ctx context.Context, lead domain.LeadSubmission) ([]byte, error) {
	return c.up.Do(ctx, upstream.Call{
		Method:   http.MethodPost,
		URL:      c.endpoint,
		Body:     row{Lead: lead},
		Endpoint: "appendLead",
	})
}
