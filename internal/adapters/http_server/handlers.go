package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
	"hotel_finder/internal/validation"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Locations     *app.LocationService
	Hotels        domain.HotelSearch
	FX            domain.CurrencyConverter
	IP            domain.IPLocator // nil when no key is configured
	Leads         *app.LeadService
	Notifier      *app.Notifier
	Searcher      *app.Searcher
	Limit         int
	SearchTimeout time.Duration // bounds one /api/search pipeline; past it the answer is no_results
	Now           func() time.Time
}

const DefaultSearchTimeout = 90 * time.Second

func (s *Server) MountHandlers(h *Handlers) {
	if h.Now == nil {
		h.Now = time.Now
	}
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if h.SearchTimeout <= 0 {
		h.SearchTimeout = DefaultSearchTimeout
	}
	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/search", h.search)

		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.timeout))
			r.Get("/geolocation", h.geolocation)
			r.Get("/getCoordinatesByLocation", h.coordinatesByLocation)
			r.Get("/getHotelOffersByCoordinates", h.hotelOffersByCoordinates)
			r.Get("/getHotelsByCoordinates", h.hotelsByCoordinates)
			r.Get("/getHotelOffers", h.hotelOffers)
			r.Get("/getHotelRatings", h.hotelRatings)
			r.Get("/convertCurrency", h.convertCurrency)
			r.Post("/sendDataToSheety", h.sendDataToSheety)
			r.Post("/sendEmail", h.sendEmail)
			r.Get("/leads/{token}", h.getLead)
		})
	})
}

var (
	geoFailure     = failure{op: "geocode", message: "failed to geocode location", details: true, notFound: "location not found"}
	hotelFailure   = failure{op: "hotels", message: "failed to fetch hotel data", details: true}
	fxFailure      = failure{op: "convert", message: "failed to convert currency"}
	leadFailure    = failure{op: "lead", message: "failed to save lead", mirror5xx: true}
	leadLogFailure = failure{op: "lead_log", message: "failed to read lead", notFound: "lead not found"}
)

// geolocation never echoes upstream detail: every failure is a plain 503.
func (h *Handlers) geolocation(w http.ResponseWriter, r *http.Request) {
	if h.IP == nil {
		log.Warn().Msg("geolocation requested but no API key is configured")
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	g, err := h.IP.Locate(r.Context(), remoteIP(r))
	if err != nil {
		log.Error().Err(err).Msg("geolocation failed")
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) coordinatesByLocation(w http.ResponseWriter, r *http.Request) {
	loc := r.URL.Query().Get("location")
	if err := validation.Location(loc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.Locations.Coordinates(r.Context(), strings.TrimSpace(loc))
	if err != nil {
		fail(w, r, geoFailure, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) hotelOffersByCoordinates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coords, err := validation.Coordinates(q.Get("latitude"), q.Get("longitude"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, f := range []string{"arrival_date", "departure_date"} {
		if err := validation.Date(f, q.Get(f)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	adults, err := validation.PositiveInt("adults", q.Get("adults"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rooms, err := validation.PositiveInt("room_qty", q.Get("room_qty"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cur, err := validation.Currency("currency_code", q.Get("currency_code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := h.Hotels.OffersByCoordinates(r.Context(), domain.CoordinateOfferQuery{
		Coords:        coords,
		ArrivalDate:   q.Get("arrival_date"),
		DepartureDate: q.Get("departure_date"),
		Adults:        adults,
		RoomQty:       rooms,
		CurrencyCode:  cur,
	})
	if err != nil {
		fail(w, r, hotelFailure, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

type hotelWire struct {
	HotelID   string  `json:"hotelId"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handlers) hotelsByCoordinates(w http.ResponseWriter, r *http.Request) {
	coords, err := validation.Coordinates(r.URL.Query().Get("latitude"), r.URL.Query().Get("longitude"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	refs, err := h.Locations.HotelsByCoordinates(r.Context(), coords)
	if err != nil {
		fail(w, r, hotelFailure, err)
		return
	}
	out := make([]hotelWire, len(refs))
	for i, ref := range refs {
		out[i] = hotelWire{HotelID: ref.HotelID, Name: ref.Name, Latitude: ref.Coords.Latitude, Longitude: ref.Coords.Longitude}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hotels": out})
}

func (h *Handlers) hotelOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, err := validation.HotelIDs("hotelIds", q.Get("hotelIds"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, f := range []string{"checkInDate", "checkOutDate"} {
		if err := validation.Date(f, q.Get(f)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	adults, err := validation.PositiveInt("adults", withDefault(q.Get("adults"), "1"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rooms, err := validation.PositiveInt("roomQuantity", withDefault(q.Get("roomQuantity"), "1"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cur, err := optionalCurrency("currency", q.Get("currency"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	offers, err := h.Hotels.Offers(r.Context(), ids, domain.OfferQuery{
		Adults: adults, Rooms: rooms, CheckIn: q.Get("checkInDate"), CheckOut: q.Get("checkOutDate"), Currency: cur,
	})
	var no *domain.NoOffersError
	if errors.As(err, &no) {
		writeJSON(w, http.StatusOK, map[string]any{"offers": []domain.HotelOffer{}, "message": no.Message})
		return
	}
	if err != nil {
		fail(w, r, hotelFailure, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (h *Handlers) hotelRatings(w http.ResponseWriter, r *http.Request) {
	ids, err := validation.HotelIDs("hotelIds", r.URL.Query().Get("hotelIds"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.Hotels.Ratings(r.Context(), ids)
	if err != nil {
		fail(w, r, hotelFailure, err)
		return
	}
	if recs == nil {
		recs = []domain.RatingRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ratings": recs})
}

func (h *Handlers) convertCurrency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := validation.Amount("amount", q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := validation.Currency("from", q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := validation.Currency("to", q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.FX.Convert(r.Context(), amount, from, to)
	if err != nil {
		fail(w, r, fxFailure, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": app.RoundAmount(v), "currency": to})
}

// search runs the whole pipeline server-side under its own deadline instead of the router
// timeout. Pipeline failures, the deadline included, are still a 200 no-results answer.
func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := q.Get("location")
	if err := validation.Location(loc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	adults, err := validation.PositiveInt("adults", withDefault(q.Get("adults"), "1"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rooms, err := validation.PositiveInt("rooms", withDefault(q.Get("rooms"), "1"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := h.Limit
	if v := q.Get("limit"); v != "" {
		if limit, err = validation.PositiveInt("limit", v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	cur, err := optionalCurrency("currency", q.Get("currency"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := app.CriteriaFromStrings(strings.TrimSpace(loc), q.Get("checkInDate"), q.Get("checkOutDate"), adults, rooms, limit, cur, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.SearchTimeout)
	defer cancel()
	res, err := h.Searcher.Search(ctx, c)
	if err != nil {
		log.Warn().Err(err).Str("location", c.Location).Msg("search degraded to no results")
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) sendDataToSheety(w http.ResponseWriter, r *http.Request) {
	var lead domain.LeadSubmission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&lead); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.Email("email", lead.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	receipt, err := h.Leads.SubmitLead(r.Context(), lead)
	if err != nil {
		fail(w, r, leadFailure, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": receipt.Token, "data": rawOrString(receipt.Data)})
}

func (h *Handlers) sendEmail(w http.ResponseWriter, r *http.Request) {
	var msg domain.EmailMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.Struct(msg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Notifier.Send(r.Context(), msg); err != nil {
		log.Error().Err(err).Str("recipient", msg.Recipient).Msg("send email failed")
		writeError(w, http.StatusInternalServerError, "failed to send email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handlers) getLead(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Leads.Lead(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, leadLogFailure, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     rec.Token,
		"status":    rec.Status,
		"hotels":    rec.HotelCount,
		"createdAt": rec.CreatedAt,
	})
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func optionalCurrency(field, v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return validation.Currency(field, v)
}

func rawOrString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}
