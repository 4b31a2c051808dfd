package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
)

func criteria(limit int, currency string) domain.SearchCriteria {
	in := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	return domain.SearchCriteria{
		Location: "Paris", CheckIn: in, CheckOut: in.AddDate(0, 0, 2),
		Adults: 2, Rooms: 1, Limit: limit, Currency: currency,
	}
}

func origin() domain.Coordinates { return domain.Coordinates{Latitude: 0, Longitude: 0} }

// east of the origin on the equator; ~111.19 km per degree
func at(lon float64) domain.Coordinates { return domain.Coordinates{Latitude: 0, Longitude: lon} }

func TestSearch_FullPipeline(t *testing.T) {
	b := &fakeBackend{
		coords: origin(),
		refs: []domain.HotelRef{
			{HotelID: "FAR", Coords: at(0.05)},
			{HotelID: "NEAR", Coords: at(0.01)},
			{HotelID: "MID", Coords: at(0.03)},
		},
		offers: []domain.HotelOffer{
			{HotelID: "FAR", Name: "FAR_AWAY_INN", RoomType: "DOUBLE_ROOM", Price: 200.4, Currency: "EUR", Coords: at(0.05)},
			{HotelID: "NEAR", Name: "NEAR_HOTEL", RoomType: "", Price: 100, Currency: "USD", Coords: at(0.01)},
			{HotelID: "MID", Name: "MIDDLE", RoomType: "SUITE", Price: 151, Currency: "GBP"},
		},
		ratings: []domain.RatingRecord{{HotelID: "NEAR", OverallRating: 91}},
		rate:    0.5,
	}

	res, err := app.NewSearcher(b).Search(context.Background(), criteria(10, "EUR"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusResults, res.Status)
	require.Len(t, res.Cards, 3)

	// sorted ascending by distance
	assert.Equal(t, []string{"NEAR", "MID", "FAR"}, []string{res.Cards[0].HotelID, res.Cards[1].HotelID, res.Cards[2].HotelID})
	assert.LessOrEqual(t, res.Cards[0].DistanceKm, res.Cards[1].DistanceKm)
	assert.LessOrEqual(t, res.Cards[1].DistanceKm, res.Cards[2].DistanceKm)

	near := res.Cards[0]
	assert.Equal(t, "Near Hotel", near.Name)
	assert.Equal(t, "N/A", near.RoomType)
	assert.Equal(t, 50.0, near.TotalPrice, "converted then rounded")
	assert.Equal(t, 25.0, near.PricePerNight)
	assert.Equal(t, "EUR", near.Currency)
	require.NotNil(t, near.Rating)
	assert.Equal(t, 91.0, *near.Rating)
	assert.Equal(t, int64(0), near.RevealDelayMs)

	// coordinates filled from the hotel list
	assert.InDelta(t, 3.34, res.Cards[1].DistanceKm, 0.01)

	far := res.Cards[2]
	assert.Equal(t, 200.0, far.TotalPrice, "matching currency is still rounded")
	assert.Nil(t, far.Rating)
	assert.Equal(t, int64(600), far.RevealDelayMs)

	assert.EqualValues(t, 2, b.convertCalls, "one conversion per foreign-currency offer")
}

func TestSearch_TruncatesBeforePricing(t *testing.T) {
	b := &fakeBackend{coords: origin(), rate: 1}
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		b.refs = append(b.refs, domain.HotelRef{HotelID: id})
	}
	b.offers = []domain.HotelOffer{{HotelID: "A", Price: 1, Currency: "EUR"}}

	_, err := app.NewSearcher(b).Search(context.Background(), criteria(2, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, b.offerIDs)
	assert.Equal(t, []string{"A", "B"}, b.ratingIDs)
}

func TestSearch_NoOffersIsTerminalNotError(t *testing.T) {
	b := &fakeBackend{
		coords:    origin(),
		refs:      []domain.HotelRef{{HotelID: "A"}},
		offersErr: &domain.NoOffersError{Message: "NO ROOMS AVAILABLE"},
	}
	res, err := app.NewSearcher(b).Search(context.Background(), criteria(10, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoResults, res.Status)
	assert.Equal(t, "NO ROOMS AVAILABLE", res.Message)
	assert.Empty(t, res.Cards)
	assert.Nil(t, b.ratingIDs, "ratings are not fetched after no offers")
}

func TestSearch_StepFailureDegradesToNoResults(t *testing.T) {
	tests := []struct {
		name string
		b    *fakeBackend
		step string
	}{
		{"geocode", &fakeBackend{geoErr: domain.ErrNotFound}, "geocode"},
		{"empty hotel list", &fakeBackend{coords: origin()}, "hotels"},
		{"offers", &fakeBackend{coords: origin(), refs: []domain.HotelRef{{HotelID: "A"}}, offersErr: domain.ErrTimeout}, "offers"},
		{"convert", &fakeBackend{
			coords: origin(), refs: []domain.HotelRef{{HotelID: "A"}},
			offers: []domain.HotelOffer{{HotelID: "A", Price: 10, Currency: "USD"}},
			fxErr:  errors.New("fx down"),
		}, "convert"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := app.NewSearcher(tt.b).Search(context.Background(), criteria(10, "EUR"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.step+" step failed")
			assert.Equal(t, domain.StatusNoResults, res.Status)
			assert.Equal(t, app.NoResultsMessage, res.Message)
			assert.Empty(t, res.Cards)
		})
	}
}

func TestSearch_StableSortOnEqualDistance(t *testing.T) {
	b := &fakeBackend{
		coords: origin(),
		refs:   []domain.HotelRef{{HotelID: "X"}, {HotelID: "Y"}, {HotelID: "Z"}},
		offers: []domain.HotelOffer{
			{HotelID: "X", Price: 1, Currency: "EUR", Coords: at(0.02)},
			{HotelID: "Y", Price: 1, Currency: "EUR", Coords: at(0.01)},
			{HotelID: "Z", Price: 1, Currency: "EUR", Coords: at(0.02)},
		},
	}
	res, err := app.NewSearcher(b).Search(context.Background(), criteria(10, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "Y", res.Cards[0].HotelID)
	assert.Equal(t, "X", res.Cards[1].HotelID)
	assert.Equal(t, "Z", res.Cards[2].HotelID)
}

func TestCriteriaFromStrings(t *testing.T) {
	now := time.Date(2030, 4, 30, 15, 0, 0, 0, time.UTC)

	c, err := app.CriteriaFromStrings("Paris", "2030-04-30", "2030-05-02", 2, 1, 0, "EUR", now)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Nights())
	assert.Equal(t, app.DefaultLimit, c.Limit)

	_, err = app.CriteriaFromStrings("Paris", "2030-05-02", "2030-05-02", 2, 1, 0, "EUR", now)
	assert.True(t, errors.Is(err, app.ErrInvalidDates))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = app.CriteriaFromStrings("Paris", "2030-04-29", "2030-05-02", 2, 1, 0, "EUR", now)
	assert.ErrorContains(t, err, "past")

	_, err = app.CriteriaFromStrings("Paris", "2030-5-1", "2030-05-02", 2, 1, 0, "EUR", now)
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	_, err = app.CriteriaFromStrings("Paris", "2030-05-01", "2030-05-02", 0, 1, 0, "EUR", now)
	assert.ErrorContains(t, err, "adults")
}
