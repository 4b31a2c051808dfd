package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_finder/internal/adapters/geocode"
	httpserver "hotel_finder/internal/adapters/http_server"
	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
)

// ---- fakes ----

type fakeGeo struct {
	c     domain.Coordinates
	err   error
	delay time.Duration
	calls int
}

func (g *fakeGeo) Geocode(ctx context.Context, loc string) (domain.Coordinates, error) {
	g.calls++
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return domain.Coordinates{}, domain.ErrTimeout
		}
	}
	return g.c, g.err
}

type fakeHotels struct {
	refs     []domain.HotelRef
	offers   []domain.HotelOffer
	ratings  []domain.RatingRecord
	raw      json.RawMessage
	err      error
	offerErr error
	calls    int
}

func (h *fakeHotels) HotelsByCoordinates(ctx context.Context, c domain.Coordinates) ([]domain.HotelRef, error) {
	h.calls++
	return h.refs, h.err
}
func (h *fakeHotels) Offers(ctx context.Context, ids []string, q domain.OfferQuery) ([]domain.HotelOffer, error) {
	h.calls++
	return h.offers, h.offerErr
}
func (h *fakeHotels) Ratings(ctx context.Context, ids []string) ([]domain.RatingRecord, error) {
	h.calls++
	return h.ratings, h.err
}
func (h *fakeHotels) OffersByCoordinates(ctx context.Context, q domain.CoordinateOfferQuery) (json.RawMessage, error) {
	h.calls++
	return h.raw, h.err
}

type fakeFX struct{ calls int }

func (f *fakeFX) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	f.calls++
	return amount * 0.9, nil
}

type fakeIP struct {
	g   domain.Geolocation
	err error
	ip  string
}

func (f *fakeIP) Locate(ctx context.Context, ip string) (domain.Geolocation, error) {
	f.ip = ip
	return f.g, f.err
}

type fakeStore struct {
	calls int
	err   error
}

func (s *fakeStore) AppendLead(ctx context.Context, lead domain.LeadSubmission) ([]byte, error) {
	s.calls++
	return []byte(`{"lead":{"id":1}}`), s.err
}

type fakeMailer struct {
	err   error
	calls int
}

func (m *fakeMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	m.calls++
	return m.err
}

type env struct {
	geo    *fakeGeo
	hotels *fakeHotels
	fx     *fakeFX
	store  *fakeStore
	mailer *fakeMailer
	ip     *fakeIP
	srv    *httptest.Server
}

type timeouts struct{ request, search time.Duration }

func newEnv(t *testing.T, withIP bool) *env {
	return newEnvWithTimeouts(t, withIP, timeouts{request: 5 * time.Second})
}

func newEnvWithTimeouts(t *testing.T, withIP bool, to timeouts) *env {
	t.Helper()
	e := &env{
		geo:    &fakeGeo{c: domain.Coordinates{Latitude: 48.85, Longitude: 2.35}},
		hotels: &fakeHotels{raw: json.RawMessage(`{"status":true,"data":[]}`)},
		fx:     &fakeFX{},
		store:  &fakeStore{},
		mailer: &fakeMailer{},
	}
	loc := app.NewLocationService(e.geo, e.hotels, nil, time.Minute)
	h := &httpserver.Handlers{
		Locations:     loc,
		Hotels:        e.hotels,
		FX:            e.fx,
		Leads:         app.NewLeadService(e.store, nil),
		Notifier:      app.NewNotifier(e.mailer),
		Searcher:      app.NewSearcher(app.NewDirectBackend(loc, e.hotels, e.fx)),
		Limit:         10,
		SearchTimeout: to.search,
		Now:           func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	if withIP {
		e.ip = &fakeIP{g: domain.Geolocation{CurrencyCode: "EUR", Latitude: 1, Longitude: 2}}
		h.IP = e.ip
	}
	s := httpserver.New(to.request)
	s.MountHandlers(h)
	e.srv = httptest.NewServer(s.Mux())
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func (e *env) post(t *testing.T, path, payload string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

const offersQS = "&arrival_date=2030-05-01&departure_date=2030-05-03&adults=2&room_qty=1&currency_code=EUR"

// ---- tests ----

func TestOffersByCoordinates_InvalidInputNeverCallsUpstream(t *testing.T) {
	e := newEnv(t, false)
	for _, qs := range []string{
		"?latitude=90.1&longitude=0" + offersQS,
		"?latitude=-91&longitude=0" + offersQS,
		"?latitude=0&longitude=180.01" + offersQS,
		"?latitude=0&longitude=-200" + offersQS,
		"?latitude=0&longitude=0&arrival_date=2030-5-01&departure_date=2030-05-03&adults=2&room_qty=1&currency_code=EUR",
		"?latitude=0&longitude=0&arrival_date=2030-05-01&departure_date=03/05/2030&adults=2&room_qty=1&currency_code=EUR",
		"?latitude=0&longitude=0&arrival_date=2030-05-01&departure_date=2030-05-03&adults=0&room_qty=1&currency_code=EUR",
		"?latitude=0&longitude=0",
		"?latitude=NaN&longitude=2" + offersQS,
		"?latitude=48.8&longitude=nan" + offersQS,
		"?latitude=Inf&longitude=2" + offersQS,
		"?latitude=48.8&longitude=-Inf" + offersQS,
	} {
		status, body := e.get(t, "/api/getHotelOffersByCoordinates"+qs)
		assert.Equal(t, http.StatusBadRequest, status, qs)
		assert.NotEmpty(t, body["error"], qs)
	}
	assert.Zero(t, e.hotels.calls)
}

func TestOffersByCoordinates_Passthrough(t *testing.T) {
	e := newEnv(t, false)
	status, body := e.get(t, "/api/getHotelOffersByCoordinates?latitude=48.8&longitude=2.3"+offersQS)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["status"])
}

func TestOffersByCoordinates_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"credentials", &domain.UpstreamError{Service: "hotelapi", Status: 401, Body: "bad key"}, 503, "service unavailable"},
		{"forbidden", &domain.UpstreamError{Service: "hotelapi", Status: 403}, 503, "service unavailable"},
		{"timeout", domain.ErrTimeout, 504, "upstream timeout"},
		{"other", &domain.UpstreamError{Service: "hotelapi", Status: 502, Body: "boom"}, 500, "failed to fetch hotel data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, false)
			e.hotels.err = tt.err
			status, body := e.get(t, "/api/getHotelOffersByCoordinates?latitude=1&longitude=1"+offersQS)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, body["error"])
			if tt.status == 503 {
				assert.NotContains(t, body, "details", "credential failures do not leak")
			}
		})
	}

	e := newEnv(t, false)
	e.hotels.err = &domain.UpstreamError{Service: "hotelapi", Status: 502, Body: "boom"}
	_, body := e.get(t, "/api/getHotelOffersByCoordinates?latitude=1&longitude=1"+offersQS)
	assert.Contains(t, body["details"], "boom")
}

func TestCoordinatesByLocation(t *testing.T) {
	e := newEnv(t, false)
	status, body := e.get(t, "/api/getCoordinatesByLocation?location=Paris")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 48.85, body["latitude"])

	status, _ = e.get(t, "/api/getCoordinatesByLocation?location=")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = e.get(t, "/api/getCoordinatesByLocation?location="+strings.Repeat("a", 201))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 1, e.geo.calls)

	e.geo.err = domain.ErrNotFound
	status, body = e.get(t, "/api/getCoordinatesByLocation?location=Atlantis")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "location not found", body["error"])

	e.geo.err = errors.New("dial tcp: refused")
	status, body = e.get(t, "/api/getCoordinatesByLocation?location=Rome")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotEmpty(t, body["details"])
}

func TestCoordinatesByLocation_NetworkErrorHidesKey(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL + "/geocode/json"
	dead.Close()

	geo, err := geocode.New(base, "SUPERSECRETKEY", time.Second, 100)
	require.NoError(t, err)
	s := httpserver.New(5 * time.Second)
	s.MountHandlers(&httpserver.Handlers{Locations: app.NewLocationService(geo, &fakeHotels{}, nil, time.Minute)})
	srv := httptest.NewServer(s.Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/getCoordinatesByLocation?location=Paris")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, body["details"])
	for _, v := range body {
		assert.NotContains(t, v, "SUPERSECRETKEY")
		assert.NotContains(t, v, base)
	}
}

func TestGeolocation(t *testing.T) {
	t.Run("no key configured", func(t *testing.T) {
		e := newEnv(t, false)
		status, body := e.get(t, "/api/geolocation")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "service unavailable", body["error"])
	})
	t.Run("narrowed payload", func(t *testing.T) {
		e := newEnv(t, true)
		status, body := e.get(t, "/api/geolocation")
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, body, 3)
		assert.Equal(t, "EUR", body["currency_code"])
		assert.NotEmpty(t, e.ip.ip)
	})
	t.Run("upstream failure hides detail", func(t *testing.T) {
		e := newEnv(t, true)
		e.ip.err = &domain.UpstreamError{Service: "ipgeo", Status: 500, Body: "secret detail"}
		status, body := e.get(t, "/api/geolocation")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.NotContains(t, body, "details")
	})
}

const leadJSON = `{"location":"Paris","checkInDate":"2030-05-01","checkOutDate":"2030-05-03",
	"adults":2,"numberOfRooms":1,"email":%q,"selectedHotels":%s}`

func lead(email, hotels string) string {
	return fmt.Sprintf(leadJSON, email, hotels)
}

func TestSendDataToSheety(t *testing.T) {
	hotels := `[{"hotelId":"H1","name":"One","roomType":"Suite","pricePerNight":50,"totalPrice":100}]`

	t.Run("ok", func(t *testing.T) {
		e := newEnv(t, false)
		status, body := e.post(t, "/api/sendDataToSheety", lead("a@b.co", hotels))
		assert.Equal(t, http.StatusOK, status)
		assert.NotEmpty(t, body["token"])
		assert.NotNil(t, body["data"])
		assert.Equal(t, 1, e.store.calls)
	})
	t.Run("empty selection rejected before upstream", func(t *testing.T) {
		e := newEnv(t, false)
		status, body := e.post(t, "/api/sendDataToSheety", lead("a@b.co", `[]`))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "selectedHotels")
		assert.Zero(t, e.store.calls)
	})
	t.Run("bad email", func(t *testing.T) {
		e := newEnv(t, false)
		for _, bad := range []string{"plain", "no-dot@host", "@x.y"} {
			status, _ := e.post(t, "/api/sendDataToSheety", lead(bad, hotels))
			assert.Equal(t, http.StatusBadRequest, status, bad)
		}
		assert.Zero(t, e.store.calls)
	})
	t.Run("upstream 5xx mirrored", func(t *testing.T) {
		e := newEnv(t, false)
		e.store.err = &domain.UpstreamError{Service: "sheety", Status: http.StatusBadGateway}
		status, _ := e.post(t, "/api/sendDataToSheety", lead("a@b.co", hotels))
		assert.Equal(t, http.StatusBadGateway, status)
	})
	t.Run("malformed JSON", func(t *testing.T) {
		e := newEnv(t, false)
		status, _ := e.post(t, "/api/sendDataToSheety", `{"location":`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestSendEmail(t *testing.T) {
	e := newEnv(t, false)
	status, body := e.post(t, "/api/sendEmail", `{"subject":"Hi","body":"<p>x</p>","recipient_email":"a@b.co"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sent", body["status"])

	status, _ = e.post(t, "/api/sendEmail", `{"subject":"Hi","body":"<p>x</p>","recipient_email":"nobody"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 1, e.mailer.calls)

	e.mailer.err = errors.New("graph down")
	status, body = e.post(t, "/api/sendEmail", `{"subject":"Hi","body":"<p>x</p>","recipient_email":"a@b.co"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "failed to send email", body["error"])
}

func TestHotelOffers_NoOffersState(t *testing.T) {
	e := newEnv(t, false)
	e.hotels.offerErr = &domain.NoOffersError{Message: "NO ROOMS"}
	status, body := e.get(t, "/api/getHotelOffers?hotelIds=A,B&checkInDate=2030-05-01&checkOutDate=2030-05-03")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "NO ROOMS", body["message"])
	assert.Empty(t, body["offers"])
}

func TestConvertCurrency(t *testing.T) {
	e := newEnv(t, false)
	status, body := e.get(t, "/api/convertCurrency?amount=100.4&from=usd&to=EUR")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 90.0, body["amount"])
	assert.Equal(t, "EUR", body["currency"])

	for _, amount := range []string{"-1", "NaN", "Inf", "-Inf", "", "ten"} {
		status, body = e.get(t, "/api/convertCurrency?amount="+amount+"&from=USD&to=EUR")
		assert.Equal(t, http.StatusBadRequest, status, amount)
		assert.Contains(t, body["error"], "amount", amount)
	}
	assert.Equal(t, 1, e.fx.calls)
}

func TestSearchEndpoint(t *testing.T) {
	e := newEnv(t, false)
	e.hotels.refs = []domain.HotelRef{{HotelID: "H1", Coords: domain.Coordinates{Latitude: 48.86, Longitude: 2.35}}}
	e.hotels.offers = []domain.HotelOffer{{HotelID: "H1", Name: "HOTEL_ONE", Price: 100, Currency: "EUR"}}
	e.hotels.ratings = []domain.RatingRecord{{HotelID: "H1", OverallRating: 80}}

	status, body := e.get(t, "/api/search?location=Paris&checkInDate=2030-05-01&checkOutDate=2030-05-03&currency=EUR")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "results", body["status"])
	cards := body["cards"].([]any)
	require.Len(t, cards, 1)
	assert.Equal(t, "Hotel One", cards[0].(map[string]any)["name"])

	status, _ = e.get(t, "/api/search?location=Paris&checkInDate=2030-05-03&checkOutDate=2030-05-01")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSearchEndpoint_DeadlineDegradesToNoResults(t *testing.T) {
	e := newEnvWithTimeouts(t, false, timeouts{request: 200 * time.Millisecond, search: 100 * time.Millisecond})
	e.geo.delay = 150 * time.Millisecond

	resp, err := http.Get(e.srv.URL + "/api/search?location=Paris&checkInDate=2030-05-01&checkOutDate=2030-05-03")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no_results", body["status"])
	assert.Equal(t, app.NoResultsMessage, body["message"])
}

func TestSearchEndpoint_NotCutByRouterTimeout(t *testing.T) {
	e := newEnvWithTimeouts(t, false, timeouts{request: 100 * time.Millisecond, search: 5 * time.Second})
	e.geo.delay = 250 * time.Millisecond
	e.hotels.refs = []domain.HotelRef{{HotelID: "H1", Coords: domain.Coordinates{Latitude: 48.86, Longitude: 2.35}}}
	e.hotels.offers = []domain.HotelOffer{{HotelID: "H1", Name: "HOTEL_ONE", Price: 100, Currency: "EUR"}}

	status, body := e.get(t, "/api/search?location=Paris&checkInDate=2030-05-01&checkOutDate=2030-05-03&currency=EUR")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "results", body["status"])
}

func TestRouterTimeoutAnswersJSON(t *testing.T) {
	e := newEnvWithTimeouts(t, false, timeouts{request: 50 * time.Millisecond})
	e.geo.delay = time.Second

	resp, err := http.Get(e.srv.URL + "/api/getCoordinatesByLocation?location=Paris")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "request timeout", body["error"])
}

func TestMetrics_UnmatchedPathsShareOneLabel(t *testing.T) {
	e := newEnv(t, false)
	unmatched := observability.HTTPRequests.WithLabelValues("unmatched", "GET", "404")
	before := testutil.ToFloat64(unmatched)

	for _, p := range []string{"/no/such/page", "/another-" + fmt.Sprint(time.Now().UnixNano())} {
		status, _ := e.get(t, p)
		assert.Equal(t, http.StatusNotFound, status)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(unmatched))
	assert.Zero(t, testutil.ToFloat64(observability.HTTPRequests.WithLabelValues("/no/such/page", "GET", "404")))

	lead := observability.HTTPRequests.WithLabelValues("/api/leads/{token}", "GET", "404")
	before = testutil.ToFloat64(lead)
	e.get(t, "/api/leads/abc")
	assert.Equal(t, before+1, testutil.ToFloat64(lead))
}

func TestLeadLookupDisabled(t *testing.T) {
	e := newEnv(t, false)
	status, _ := e.get(t, "/api/leads/abc")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCORSAndCSP(t *testing.T) {
	e := newEnv(t, false)
	req, _ := http.NewRequest(http.MethodOptions, e.srv.URL+"/api/sendEmail", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://code.jquery.com")
}
