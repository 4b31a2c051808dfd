// Package proxyclient drives the hotel_finder HTTP API from Go. It is the search
// backend the CLI uses, so the orchestrator runs against the proxy exactly as a browser would.
package proxyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hotel_finder/internal/adapters/upstream"
	"hotel_finder/internal/domain"
)

type Client struct {
	base string
	up   *upstream.Client
}

func New(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		up:   upstream.New("proxy", timeout, 50),
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.up.JSON(ctx, upstream.Call{URL: c.base + path, Query: q, Endpoint: path}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.up.JSON(ctx, upstream.Call{Method: http.MethodPost, URL: c.base + path, Body: body, Endpoint: path}, out)
}

func (c *Client) Geolocation(ctx context.Context) (domain.Geolocation, error) {
	var g domain.Geolocation
	return g, c.get(ctx, "/api/geolocation", nil, &g)
}

func (c *Client) Coordinates(ctx context.Context, location string) (domain.Coordinates, error) {
	var out domain.Coordinates
	err := c.get(ctx, "/api/getCoordinatesByLocation", url.Values{"location": {location}}, &out)
	return out, err
}

// HotelWire is the flat hotel entry served by /api/getHotelsByCoordinates.
type HotelWire struct {
	HotelID   string  `json:"hotelId"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c *Client) HotelsByCoordinates(ctx context.Context, at domain.Coordinates) ([]domain.HotelRef, error) {
	var out struct {
		Hotels []HotelWire `json:"hotels"`
	}
	q := url.Values{
		"latitude":  {strconv.FormatFloat(at.Latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(at.Longitude, 'f', -1, 64)},
	}
	if err := c.get(ctx, "/api/getHotelsByCoordinates", q, &out); err != nil {
		return nil, err
	}
	refs := make([]domain.HotelRef, len(out.Hotels))
	for i, h := range out.Hotels {
		refs[i] = domain.HotelRef{
			HotelID: h.HotelID,
			Name:    h.Name,
			Coords:  domain.Coordinates{Latitude: h.Latitude, Longitude: h.Longitude},
		}
	}
	return refs, nil
}

// OffersResponse is the body of /api/getHotelOffers. Message is set only for the no-offers state.
type OffersResponse struct {
	Offers  []domain.HotelOffer `json:"offers"`
	Message string              `json:"message,omitempty"`
}

func (c *Client) Offers(ctx context.Context, ids []string, q domain.OfferQuery) ([]domain.HotelOffer, error) {
	var out OffersResponse
	err := c.get(ctx, "/api/getHotelOffers", url.Values{
		"hotelIds":     {strings.Join(ids, ",")},
		"adults":       {strconv.Itoa(q.Adults)},
		"checkInDate":  {q.CheckIn},
		"checkOutDate": {q.CheckOut},
		"roomQuantity": {strconv.Itoa(q.Rooms)},
		"currency":     {q.Currency},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Offers) == 0 {
		return nil, &domain.NoOffersError{Message: out.Message}
	}
	return out.Offers, nil
}

func (c *Client) Ratings(ctx context.Context, ids []string) ([]domain.RatingRecord, error) {
	var out struct {
		Ratings []domain.RatingRecord `json:"ratings"`
	}
	if err := c.get(ctx, "/api/getHotelRatings", url.Values{"hotelIds": {strings.Join(ids, ",")}}, &out); err != nil {
		return nil, err
	}
	return out.Ratings, nil
}

// ConvertResponse is the body of /api/convertCurrency.
type ConvertResponse struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	var out ConvertResponse
	err := c.get(ctx, "/api/convertCurrency", url.Values{
		"amount": {strconv.FormatFloat(amount, 'f', -1, 64)},
		"from":   {from},
		"to":     {to},
	}, &out)
	return out.Amount, err
}

// LeadResponse is the body of /api/sendDataToSheety.
type LeadResponse struct {
	Token string          `json:"token"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) SubmitLead(ctx context.Context, lead domain.LeadSubmission) (domain.LeadReceipt, error) {
	var out LeadResponse
	if err := c.post(ctx, "/api/sendDataToSheety", lead, &out); err != nil {
		return domain.LeadReceipt{}, err
	}
	if out.Token == "" {
		return domain.LeadReceipt{}, fmt.Errorf("proxy: lead accepted without a token")
	}
	return domain.LeadReceipt{Token: out.Token, Data: out.Data}, nil
}

func (c *Client) Send(ctx context.Context, msg domain.EmailMessage) error {
	return c.post(ctx, "/api/sendEmail", msg, nil)
}
