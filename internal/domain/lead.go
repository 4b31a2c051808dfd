package domain

import "time"

type SelectedHotel struct {
	HotelID       string  `json:"hotelId" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	RoomType      string  `json:"roomType"`
	PricePerNight float64 `json:"pricePerNight" validate:"gte=0"`
	TotalPrice    float64 `json:"totalPrice" validate:"gte=0"`
	Currency      string  `json:"currency,omitempty"`
}

// LeadSubmission is the outbound CRM record. Token is assigned when the lead is sent.
type LeadSubmission struct {
	Location       string          `json:"location" validate:"required,max=200"`
	CheckInDate    string          `json:"checkInDate" validate:"required,isodate"`
	CheckOutDate   string          `json:"checkOutDate" validate:"required,isodate"`
	Adults         int             `json:"adults" validate:"required,gte=1"`
	NumberOfRooms  int             `json:"numberOfRooms" validate:"required,gte=1"`
	Email          string          `json:"email" validate:"required,simpleemail"`
	Currency       string          `json:"currency,omitempty"`
	SelectedHotels []SelectedHotel `json:"selectedHotels" validate:"required,min=1,dive"`
	Token          string          `json:"token,omitempty"`
}

type LeadReceipt struct {
	Token string `json:"token"`
	// Data is the spreadsheet service's response body.
	Data []byte `json:"-"`
}

type LeadStatus string

const (
	LeadSent   LeadStatus = "sent"
	LeadFailed LeadStatus = "failed"
)

// LeadRecord is one row of the submission log.
type LeadRecord struct {
	Token          string
	Email          string
	Location       string
	CheckIn        string
	CheckOut       string
	HotelCount     int
	Status         LeadStatus
	UpstreamStatus int
	CreatedAt      time.Time
}

type EmailMessage struct {
	Subject   string `json:"subject" validate:"required"`
	HTMLBody  string `json:"body" validate:"required"`
	Recipient string `json:"recipient_email" validate:"required,simpleemail"`
}

// Geolocation is the narrowed IP-geolocation payload.
type Geolocation struct {
	CurrencyCode string  `json:"currency_code"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}
