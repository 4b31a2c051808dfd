// Package geocode resolves free-text locations through a Google-style geocoding API.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hotel_finder/internal/adapters/upstream"
	"hotel_finder/internal/domain"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

type Client struct {
	base string
	key  string
	up   *upstream.Client
}

func New(base, key string, timeout time.Duration, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("geocoding API key is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{base: base, key: key, up: upstream.New("geocode", timeout, rps)}, nil
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the first match. An empty result set is domain.ErrNotFound.
func (c *Client) Geocode(ctx context.Context, location string) (domain.Coordinates, error) {
	var out response
	err := c.up.JSON(ctx, upstream.Call{
		URL:      c.base,
		Query:    url.Values{"address": {location}, "key": {c.key}},
		Endpoint: "geocode",
	}, &out)
	if err != nil {
		return domain.Coordinates{}, err
	}

	switch out.Status {
	case "OK", "":
	case "ZERO_RESULTS":
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", location, domain.ErrNotFound)
	case "REQUEST_DENIED":
		return domain.Coordinates{}, &domain.UpstreamError{Service: "geocode", Status: http.StatusUnauthorized, Body: out.ErrorMessage}
	default:
		return domain.Coordinates{}, &domain.UpstreamError{Service: "geocode", Status: http.StatusBadGateway, Body: out.Status + ": " + out.ErrorMessage}
	}
	if len(out.Results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", location, domain.ErrNotFound)
	}
	loc := out.Results[0].Geometry.Location
	return domain.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
