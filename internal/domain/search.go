package domain

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type SearchCriteria struct {
	Location string
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
	Rooms    int
	Limit    int
	Currency string
}

// Nights is the stay length in whole days; never less than 1.
func (c SearchCriteria) Nights() int {
	n := int(c.CheckOut.Sub(c.CheckIn).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HotelRef is one entry of the nearby-hotels list.
type HotelRef struct {
	HotelID string      `json:"hotelId"`
	Name    string      `json:"name"`
	Coords  Coordinates `json:"coordinates"`
}

type HotelOffer struct {
	HotelID    string      `json:"hotelId"`
	Name       string      `json:"name"`
	RoomType   string      `json:"roomType,omitempty"`
	Price      float64     `json:"price"`
	Currency   string      `json:"currency"`
	Coords     Coordinates `json:"coordinates"`
	DistanceKm float64     `json:"distanceKm"`
	Rating     *float64    `json:"rating,omitempty"`
}

type RatingRecord struct {
	HotelID       string  `json:"hotelId"`
	OverallRating float64 `json:"overallRating"`
}

// Card is a presentation-ready offer.
type Card struct {
	HotelID       string   `json:"hotelId"`
	Name          string   `json:"name"`
	RoomType      string   `json:"roomType"`
	TotalPrice    float64  `json:"totalPrice"`
	PricePerNight float64  `json:"pricePerNight"`
	Currency      string   `json:"currency"`
	DistanceKm    float64  `json:"distanceKm"`
	Rating        *float64 `json:"rating,omitempty"`
	RevealDelayMs int64    `json:"revealDelayMs"`
}

type SearchStatus string

const (
	StatusResults   SearchStatus = "results"
	StatusNoResults SearchStatus = "no_results"
)

type SearchResult struct {
	Status  SearchStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Origin  *Coordinates `json:"origin,omitempty"`
	Cards   []Card       `json:"cards"`
}
