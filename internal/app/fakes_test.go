package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"hotel_finder/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	sets  int
	dels  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, _ := json.Marshal(v)
	c.store[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels++
	return nil
}

type fakeGeocoder struct {
	coords domain.Coordinates
	err    error
	calls  int
}

func (g *fakeGeocoder) Geocode(ctx context.Context, location string) (domain.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

type fakeHotels struct {
	refs      []domain.HotelRef
	listCalls int
}

func (h *fakeHotels) HotelsByCoordinates(ctx context.Context, c domain.Coordinates) ([]domain.HotelRef, error) {
	h.listCalls++
	return h.refs, nil
}
func (h *fakeHotels) Offers(ctx context.Context, ids []string, q domain.OfferQuery) ([]domain.HotelOffer, error) {
	return nil, nil
}
func (h *fakeHotels) Ratings(ctx context.Context, ids []string) ([]domain.RatingRecord, error) {
	return nil, nil
}
func (h *fakeHotels) OffersByCoordinates(ctx context.Context, q domain.CoordinateOfferQuery) (json.RawMessage, error) {
	return nil, nil
}

// fakeBackend records what the pipeline asked for.
type fakeBackend struct {
	coords    domain.Coordinates
	geoErr    error
	refs      []domain.HotelRef
	offers    []domain.HotelOffer
	offersErr error
	ratings   []domain.RatingRecord
	rate      float64
	fxErr     error

	offerIDs     []string
	ratingIDs    []string
	offerCalls   int
	convertCalls int32
}

func (b *fakeBackend) Coordinates(ctx context.Context, location string) (domain.Coordinates, error) {
	return b.coords, b.geoErr
}
func (b *fakeBackend) HotelsByCoordinates(ctx context.Context, c domain.Coordinates) ([]domain.HotelRef, error) {
	return b.refs, nil
}
func (b *fakeBackend) Offers(ctx context.Context, ids []string, q domain.OfferQuery) ([]domain.HotelOffer, error) {
	b.offerCalls++
	b.offerIDs = ids
	out := make([]domain.HotelOffer, len(b.offers))
	copy(out, b.offers)
	return out, b.offersErr
}
func (b *fakeBackend) Ratings(ctx context.Context, ids []string) ([]domain.RatingRecord, error) {
	b.ratingIDs = ids
	return b.ratings, nil
}
func (b *fakeBackend) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	atomic.AddInt32(&b.convertCalls, 1)
	return amount * b.rate, b.fxErr
}

type fakeLeadStore struct {
	got   []domain.LeadSubmission
	reply []byte
	err   error
}

func (s *fakeLeadStore) AppendLead(ctx context.Context, lead domain.LeadSubmission) ([]byte, error) {
	s.got = append(s.got, lead)
	return s.reply, s.err
}

type fakeLeadLog struct {
	recs []domain.LeadRecord
}

func (l *fakeLeadLog) RecordLead(ctx context.Context, rec domain.LeadRecord) error {
	l.recs = append(l.recs, rec)
	return nil
}
func (l *fakeLeadLog) GetLead(ctx context.Context, token string) (domain.LeadRecord, error) {
	for _, r := range l.recs {
		if r.Token == token {
			return r, nil
		}
	}
	return domain.LeadRecord{}, domain.ErrNotFound
}

type fakeMailer struct {
	sent []domain.EmailMessage
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func ptr[T any](v T) *T { return &v }
