// Package hotelapi talks to the key-authenticated hotel search API: nearby hotels,
// priced offers, sentiment ratings and the raw by-coordinates search.
package hotelapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hotel_finder/internal/adapters/upstream"
	"hotel_finder/internal/domain"
)

const (
	DefaultBaseURL = "https://booking-com15.p.rapidapi.com"
	DefaultHost    = "booking-com15.p.rapidapi.com"

	pathSearchByCoordinates = "/api/v1/hotels/searchHotelsByCoordinates"
	pathHotelsByGeocode     = "/v1/reference-data/locations/hotels/by-geocode"
	pathOffers              = "/v3/shopping/hotel-offers"
	pathSentiments          = "/v2/e-reputation/hotel-sentiments"

	defaultNoOffers = "No offers available for the selected hotels and dates."
)

type Client struct {
	base string
	up   *upstream.Client
}

func New(base, host, key string, timeout time.Duration, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("hotel API key is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if host == "" {
		host = DefaultHost
	}
	up := upstream.New("hotelapi", timeout, rps,
		upstream.WithHeader("x-rapidapi-key", key),
		upstream.WithHeader("x-rapidapi-host", host),
	)
	return &Client{base: strings.TrimSuffix(base, "/"), up: up}, nil
}

// OffersByCoordinates forwards the upstream body untouched.
func (c *Client) OffersByCoordinates(ctx context.Context, q domain.CoordinateOfferQuery) (json.RawMessage, error) {
	body, err := c.up.Do(ctx, upstream.Call{
		URL: c.base + pathSearchByCoordinates,
		Query: url.Values{
			"latitude":       {formatCoord(q.Coords.Latitude)},
			"longitude":      {formatCoord(q.Coords.Longitude)},
			"arrival_date":   {q.ArrivalDate},
			"departure_date": {q.DepartureDate},
			"adults":         {strconv.Itoa(q.Adults)},
			"room_qty":       {strconv.Itoa(q.RoomQty)},
			"currency_code":  {q.CurrencyCode},
		},
		Endpoint: "searchHotelsByCoordinates",
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("hotelapi searchHotelsByCoordinates: response is not JSON")
	}
	return json.RawMessage(body), nil
}

type hotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
		Name    string `json:"name"`
		GeoCode struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"geoCode"`
	} `json:"data"`
}

func (c *Client) HotelsByCoordinates(ctx context.Context, at domain.Coordinates) ([]domain.HotelRef, error) {
	var out hotelListResponse
	err := c.up.JSON(ctx, upstream.Call{
		URL: c.base + pathHotelsByGeocode,
		Query: url.Values{
			"latitude":  {formatCoord(at.Latitude)},
			"longitude": {formatCoord(at.Longitude)},
		},
		Endpoint: "hotelsByGeocode",
	}, &out)
	if err != nil {
		return nil, err
	}
	refs := make([]domain.HotelRef, 0, len(out.Data))
	for _, h := range out.Data {
		if h.HotelID == "" {
			continue
		}
		refs = append(refs, domain.HotelRef{
			HotelID: h.HotelID,
			Name:    h.Name,
			Coords:  domain.Coordinates{Latitude: h.GeoCode.Latitude, Longitude: h.GeoCode.Longitude},
		})
	}
	return refs, nil
}

type apiMessage struct {
	Code   int    `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type offersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID   string  `json:"hotelId"`
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"hotel"`
		Offers []struct {
			Room struct {
				TypeEstimated struct {
					Category string `json:"category"`
				} `json:"typeEstimated"`
			} `json:"room"`
			Price struct {
				Currency string `json:"currency"`
				Total    string `json:"total"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
	Errors   []apiMessage `json:"errors"`
	Warnings []apiMessage `json:"warnings"`
}

// Offers returns the first offer of every hotel that has one. An empty answer is
// reported as *domain.NoOffersError carrying the upstream message.
func (c *Client) Offers(ctx context.Context, ids []string, q domain.OfferQuery) ([]domain.HotelOffer, error) {
	var out offersResponse
	err := c.up.JSON(ctx, upstream.Call{
		URL: c.base + pathOffers,
		Query: url.Values{
			"hotelIds":     {strings.Join(ids, ",")},
			"adults":       {strconv.Itoa(q.Adults)},
			"checkInDate":  {q.CheckIn},
			"checkOutDate": {q.CheckOut},
			"roomQuantity": {strconv.Itoa(q.Rooms)},
			"currency":     {q.Currency},
		},
		Endpoint: "hotelOffers",
	}, &out)
	if err != nil {
		// the upstream answers 400 with an errors list when no hotel has availability
		var ue *domain.UpstreamError
		if errors.As(err, &ue) && ue.Status == http.StatusBadRequest {
			if msg := messageFromBody(ue.Body); msg != "" {
				return nil, &domain.NoOffersError{Message: msg}
			}
		}
		return nil, err
	}

	offers := make([]domain.HotelOffer, 0, len(out.Data))
	for _, d := range out.Data {
		if len(d.Offers) == 0 {
			continue
		}
		first := d.Offers[0]
		price, err := strconv.ParseFloat(first.Price.Total, 64)
		if err != nil {
			return nil, fmt.Errorf("hotelapi: hotel %s: bad price %q: %w", d.Hotel.HotelID, first.Price.Total, err)
		}
		offers = append(offers, domain.HotelOffer{
			HotelID:  d.Hotel.HotelID,
			Name:     d.Hotel.Name,
			RoomType: first.Room.TypeEstimated.Category,
			Price:    price,
			Currency: first.Price.Currency,
			Coords:   domain.Coordinates{Latitude: d.Hotel.Latitude, Longitude: d.Hotel.Longitude},
		})
	}
	if len(offers) == 0 {
		msg := firstMessage(out.Errors, out.Warnings)
		if msg == "" {
			msg = defaultNoOffers
		}
		return nil, &domain.NoOffersError{Message: msg}
	}
	return offers, nil
}

type sentimentsResponse struct {
	Data []struct {
		HotelID       string  `json:"hotelId"`
		OverallRating float64 `json:"overallRating"`
	} `json:"data"`
}

func (c *Client) Ratings(ctx context.Context, ids []string) ([]domain.RatingRecord, error) {
	var out sentimentsResponse
	err := c.up.JSON(ctx, upstream.Call{
		URL:      c.base + pathSentiments,
		Query:    url.Values{"hotelIds": {strings.Join(ids, ",")}},
		Endpoint: "hotelSentiments",
	}, &out)
	if err != nil {
		return nil, err
	}
	recs := make([]domain.RatingRecord, 0, len(out.Data))
	for _, d := range out.Data {
		recs = append(recs, domain.RatingRecord{HotelID: d.HotelID, OverallRating: d.OverallRating})
	}
	return recs, nil
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func messageFromBody(body string) string {
	var r offersResponse
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return ""
	}
	return firstMessage(r.Errors, r.Warnings)
}

func firstMessage(lists ...[]apiMessage) string {
	for _, l := range lists {
		for _, m := range l {
			if m.Title != "" {
				return m.Title
			}
			if m.Detail != "" {
				return m.Detail
			}
		}
	}
	return ""
}
