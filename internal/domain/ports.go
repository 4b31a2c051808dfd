package domain

import (
	"context"
	"encoding/json"
)

type Geocoder interface {
	Geocode(ctx context.Context, location string) (Coordinates, error)
}

type IPLocator interface {
	Locate(ctx context.Context, ip string) (Geolocation, error)
}

type HotelSearch interface {
	HotelsByCoordinates(ctx context.Context, c Coordinates) ([]HotelRef, error)
	Offers(ctx context.Context, ids []string, q OfferQuery) ([]HotelOffer, error)
	Ratings(ctx context.Context, ids []string) ([]RatingRecord, error)
	OffersByCoordinates(ctx context.Context, q CoordinateOfferQuery) (json.RawMessage, error)
}

type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

type LeadStore interface {
	AppendLead(ctx context.Context, lead LeadSubmission) ([]byte, error)
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type LeadLog interface {
	RecordLead(ctx context.Context, rec LeadRecord) error
	GetLead(ctx context.Context, token string) (LeadRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// SearchBackend is everything the search pipeline needs, either in-process or over the proxy.
type SearchBackend interface {
	Coordinates(ctx context.Context, location string) (Coordinates, error)
	HotelsByCoordinates(ctx context.Context, c Coordinates) ([]HotelRef, error)
	Offers(ctx context.Context, ids []string, q OfferQuery) ([]HotelOffer, error)
	Ratings(ctx context.Context, ids []string) ([]RatingRecord, error)
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

type OfferQuery struct {
	Adults   int
	Rooms    int
	CheckIn  string
	CheckOut string
	Currency string
}

type CoordinateOfferQuery struct {
	Coords        Coordinates
	ArrivalDate   string
	DepartureDate string
	Adults        int
	RoomQty       int
	CurrencyCode  string
}

// NoOffersError is the upstream's "no offers" terminal answer.
type NoOffersError struct{ Message string }

func (e *NoOffersError) Error() string { return e.Message }
func (e *NoOffersError) Unwrap() error { return ErrNoOffers }
