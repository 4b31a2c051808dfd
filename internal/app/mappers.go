package app

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hotel_finder/internal/domain"
)

const (
	earthRadiusKm   = 6371.0
	revealStaggerMs = 300
	missingLabel    = "N/A"
)

// NormalizeLabel upper-cases, turns underscores into spaces and title-cases each word:
// "DELUXE_KING_ROOM" -> "Deluxe King Room".
func NormalizeLabel(s string) string {
	s = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "_", " ")
	// a Caser keeps state, so one per call
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}

func normalizeRoomType(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingLabel
	}
	return NormalizeLabel(s)
}

// DistanceKm is the haversine great-circle distance, rounded to 2 decimals.
func DistanceKm(a, b domain.Coordinates) float64 {
	lat1, lat2 := rad(a.Latitude), rad(b.Latitude)
	dLat := lat2 - lat1
	dLon := rad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
	return round2(d)
}

// RoundAmount rounds to the nearest whole currency unit.
func RoundAmount(v float64) float64 { return math.Round(v) }

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func toCard(o domain.HotelOffer, nights, idx int) domain.Card {
	if nights < 1 {
		nights = 1
	}
	return domain.Card{
		HotelID:       o.HotelID,
		Name:          NormalizeLabel(o.Name),
		RoomType:      normalizeRoomType(o.RoomType),
		TotalPrice:    o.Price,
		PricePerNight: RoundAmount(o.Price / float64(nights)),
		Currency:      o.Currency,
		DistanceKm:    o.DistanceKm,
		Rating:        o.Rating,
		RevealDelayMs: int64(idx * revealStaggerMs),
	}
}

// SelectedFromCard is the lead-form view of a card.
func SelectedFromCard(c domain.Card) domain.SelectedHotel {
	return domain.SelectedHotel{
		HotelID:       c.HotelID,
		Name:          c.Name,
		RoomType:      c.RoomType,
		PricePerNight: c.PricePerNight,
		TotalPrice:    c.TotalPrice,
		Currency:      c.Currency,
	}
}
