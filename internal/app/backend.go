package app

import (
	"context"

	"hotel_finder/internal/domain"
)

// DirectBackend serves the search pipeline in-process, straight from the upstream adapters.
type DirectBackend struct {
	locations *LocationService
	hotels    domain.HotelSearch
	fx        domain.CurrencyConverter
}

func NewDirectBackend(l *LocationService, h domain.HotelSearch, fx domain.CurrencyConverter) *DirectBackend {
	return &DirectBackend{locations: l, hotels: h, fx: fx}
}

func (b *DirectBackend) Coordinates(ctx context.Context, location string) (domain.Coordinates, error) {
	return b.locations.Coordinates(ctx, location)
}

func (b *DirectBackend) HotelsByCoordinates(ctx context.Context, c domain.Coordinates) ([]domain.HotelRef, error) {
	return b.locations.HotelsByCoordinates(ctx, c)
}

func (b *DirectBackend) Offers(ctx context.Context, ids []string, q domain.OfferQuery) ([]domain.HotelOffer, error) {
	return b.hotels.Offers(ctx, ids, q)
}

func (b *DirectBackend) Ratings(ctx context.Context, ids []string) ([]domain.RatingRecord, error) {
	return b.hotels.Ratings(ctx, ids)
}

func (b *DirectBackend) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	return b.fx.Convert(ctx, amount, from, to)
}
