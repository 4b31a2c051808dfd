// Package ipgeo looks up currency and coordinates for a client IP.
package ipgeo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"hotel_finder/internal/adapters/upstream"
	"hotel_finder/internal/domain"
)

const DefaultBaseURL = "https://api.ipgeolocation.io/ipgeo"

type Client struct {
	base string
	key  string
	up   *upstream.Client
}

// New returns nil when no key is configured; callers treat that as "feature unavailable".
func New(base, key string, timeout time.Duration, rps int) *Client {
	if key == "" {
		return nil
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{base: base, key: key, up: upstream.New("ipgeo", timeout, rps)}
}

// the upstream sends coordinates as strings
type response struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Currency  struct {
		Code string `json:"code"`
	} `json:"currency"`
}

// Locate narrows the upstream payload to currency code and coordinates.
func (c *Client) Locate(ctx context.Context, ip string) (domain.Geolocation, error) {
	q := url.Values{"apiKey": {c.key}}
	if ip != "" {
		q.Set("ip", ip)
	}
	var out response
	if err := c.up.JSON(ctx, upstream.Call{URL: c.base, Query: q, Endpoint: "ipgeo"}, &out); err != nil {
		return domain.Geolocation{}, err
	}
	lat, err := strconv.ParseFloat(out.Latitude, 64)
	if err != nil {
		return domain.Geolocation{}, fmt.Errorf("ipgeo: bad latitude %q: %w", out.Latitude, err)
	}
	lon, err := strconv.ParseFloat(out.Longitude, 64)
	if err != nil {
		return domain.Geolocation{}, fmt.Errorf("ipgeo: bad longitude %q: %w", out.Longitude, err)
	}
	return domain.Geolocation{CurrencyCode: out.Currency.Code, Latitude: lat, Longitude: lon}, nil
}
