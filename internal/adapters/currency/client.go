// Package currency converts amounts with a live exchange-rate lookup (Frankfurter-style API).
package currency

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hotel_finder/internal/adapters/upstream"
)

const DefaultBaseURL = "https://api.frankfurter.app"

type Client struct {
	base string
	up   *upstream.Client
}

func New(base string, timeout time.Duration, rps int) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{base: strings.TrimSuffix(base, "/"), up: upstream.New("currency", timeout, rps)}
}

type response struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Rates  map[string]float64 `json:"rates"`
}

// Convert returns the unrounded converted amount. No caching: every call is a live lookup.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}
	var out response
	err := c.up.JSON(ctx, upstream.Call{
		URL: c.base + "/latest",
		Query: url.Values{
			"amount": {strconv.FormatFloat(amount, 'f', -1, 64)},
			"from":   {from},
			"to":     {to},
		},
		Endpoint: "latest",
	}, &out)
	if err != nil {
		return 0, err
	}
	v, ok := out.Rates[to]
	if !ok {
		return 0, fmt.Errorf("currency: no rate for %s->%s", from, to)
	}
	return v, nil
}
