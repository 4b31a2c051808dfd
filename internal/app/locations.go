package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/domain"
)

// LocationService puts a cache-aside layer in front of geocoding and the nearby-hotels list.
// Prices, ratings, exchange rates and tokens are always fetched live.
type LocationService struct {
	geo      domain.Geocoder
	hotels   domain.HotelSearch
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewLocationService(g domain.Geocoder, h domain.HotelSearch, c domain.Cache, ttl time.Duration) *LocationService {
	if c == nil {
		c = NoCache{}
	}
	return &LocationService{geo: g, hotels: h, cache: c, cacheTTL: ttl}
}

func (s *LocationService) Coordinates(ctx context.Context, location string) (domain.Coordinates, error) {
	key := "geo:" + strings.ToLower(strings.Join(strings.Fields(location), " "))
	var c domain.Coordinates
	if s.cached(ctx, key, &c) {
		return c, nil
	}
	c, err := s.geo.Geocode(ctx, location)
	if err != nil {
		return domain.Coordinates{}, err
	}
	_ = s.cache.Set(ctx, key, c, int(s.cacheTTL.Seconds()))
	return c, nil
}

func (s *LocationService) HotelsByCoordinates(ctx context.Context, at domain.Coordinates) ([]domain.HotelRef, error) {
	key := fmt.Sprintf("hotels:%.4f:%.4f", at.Latitude, at.Longitude)
	var refs []domain.HotelRef
	if s.cached(ctx, key, &refs) {
		return refs, nil
	}
	refs, err := s.hotels.HotelsByCoordinates(ctx, at)
	if err != nil {
		return nil, err
	}
	// an empty list is not worth remembering
	if len(refs) > 0 {
		_ = s.cache.Set(ctx, key, refs, int(s.cacheTTL.Seconds()))
	}
	return refs, nil
}

// cached reads key into dst. An entry that cannot be read back is evicted.
func (s *LocationService) cached(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, evicting entry")
		if derr := s.cache.Del(ctx, key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("cache evict failed")
		}
		return false
	}
	return ok
}

// NoCache is used when no Redis address is configured.
type NoCache struct{}

func (NoCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoCache) Set(context.Context, string, any, int) error    { return nil }
func (NoCache) Del(context.Context, string) error              { return nil }
