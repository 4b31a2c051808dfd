package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
)

const (
	DefaultLimit     = 10
	NoResultsMessage = "No hotels found for your search. Try another location or different dates."
)

// searchState is threaded through the pipeline; each step reads what earlier steps wrote.
type searchState struct {
	criteria domain.SearchCriteria
	origin   domain.Coordinates
	refs     []domain.HotelRef
	ids      []string
	offers   []domain.HotelOffer
	ratings  map[string]float64
	noOffers string
	cards    []domain.Card
}

type step struct {
	name string
	run  func(ctx context.Context, st *searchState) error
}

// errStop ends the pipeline early without it being a failure.
var errStop = errors.New("stop")

// Searcher runs the hotel search pipeline against a backend.
type Searcher struct {
	backend domain.SearchBackend
	steps   []step
}

func NewSearcher(b domain.SearchBackend) *Searcher {
	s := &Searcher{backend: b}
	s.steps = []step{
		{"geocode", s.geocode},
		{"hotels", s.hotels},
		{"truncate", s.truncate},
		{"offers", s.fetchOffers},
		{"ratings", s.fetchRatings},
		{"convert", s.convert},
		{"distance", s.distance},
		{"sort", s.sortByDistance},
		{"render", s.render},
	}
	return s
}

// Search always returns a renderable result. When a step fails the result is the
// no-results state and the error names the failed step.
func (s *Searcher) Search(ctx context.Context, c domain.SearchCriteria) (domain.SearchResult, error) {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	st := &searchState{criteria: c}

	for _, stp := range s.steps {
		err := ctx.Err()
		if err == nil {
			err = stp.run(ctx, st)
		}
		if errors.Is(err, errStop) {
			observability.ObservePipeline("no_offers", stp.name)
			return domain.SearchResult{Status: domain.StatusNoResults, Message: st.noOffers, Origin: &st.origin, Cards: []domain.Card{}}, nil
		}
		if err != nil {
			observability.ObservePipeline("failed", stp.name)
			log.Warn().Err(err).Str("step", stp.name).Str("location", c.Location).Msg("search aborted")
			return domain.SearchResult{Status: domain.StatusNoResults, Message: NoResultsMessage, Cards: []domain.Card{}},
				fmt.Errorf("%s step failed: %w", stp.name, err)
		}
	}

	observability.ObservePipeline("results", "")
	return domain.SearchResult{Status: domain.StatusResults, Origin: &st.origin, Cards: st.cards}, nil
}

func (s *Searcher) geocode(ctx context.Context, st *searchState) error {
	c, err := s.backend.Coordinates(ctx, st.criteria.Location)
	if err != nil {
		return err
	}
	st.origin = c
	return nil
}

func (s *Searcher) hotels(ctx context.Context, st *searchState) error {
	refs, err := s.backend.HotelsByCoordinates(ctx, st.origin)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no hotels near %q: %w", st.criteria.Location, domain.ErrNotFound)
	}
	st.refs = refs
	return nil
}

// truncate keeps the first Limit hotels so offers and ratings are never fetched for more.
func (s *Searcher) truncate(_ context.Context, st *searchState) error {
	refs := st.refs
	if len(refs) > st.criteria.Limit {
		refs = refs[:st.criteria.Limit]
	}
	st.ids = make([]string, len(refs))
	for i, r := range refs {
		st.ids[i] = r.HotelID
	}
	return nil
}

func (s *Searcher) fetchOffers(ctx context.Context, st *searchState) error {
	c := st.criteria
	offers, err := s.backend.Offers(ctx, st.ids, domain.OfferQuery{
		Adults:   c.Adults,
		Rooms:    c.Rooms,
		CheckIn:  c.CheckIn.Format(domain.DateLayout),
		CheckOut: c.CheckOut.Format(domain.DateLayout),
		Currency: c.Currency,
	})
	var no *domain.NoOffersError
	if errors.As(err, &no) || (err == nil && len(offers) == 0) {
		st.noOffers = NoResultsMessage
		if no != nil && no.Message != "" {
			st.noOffers = no.Message
		}
		return errStop
	}
	if err != nil {
		return err
	}

	// fall back to the hotel list for coordinates the offers call left out
	byID := make(map[string]domain.HotelRef, len(st.refs))
	for _, r := range st.refs {
		byID[r.HotelID] = r
	}
	for i := range offers {
		if offers[i].Coords == (domain.Coordinates{}) {
			offers[i].Coords = byID[offers[i].HotelID].Coords
		}
		if offers[i].Name == "" {
			offers[i].Name = byID[offers[i].HotelID].Name
		}
	}
	st.offers = offers
	return nil
}

func (s *Searcher) fetchRatings(ctx context.Context, st *searchState) error {
	recs, err := s.backend.Ratings(ctx, st.ids)
	if err != nil {
		return err
	}
	st.ratings = make(map[string]float64, len(recs))
	for _, r := range recs {
		st.ratings[r.HotelID] = r.OverallRating
	}
	for i := range st.offers {
		if v, ok := st.ratings[st.offers[i].HotelID]; ok {
			st.offers[i].Rating = &v
		}
	}
	return nil
}

// convert issues one live lookup per offer priced in a foreign currency, concurrently,
// and waits for all of them. Every amount ends up rounded to whole units.
func (s *Searcher) convert(ctx context.Context, st *searchState) error {
	want := st.criteria.Currency
	g, gctx := errgroup.WithContext(ctx)
	for i := range st.offers {
		o := &st.offers[i]
		if want == "" || o.Currency == want {
			o.Price = RoundAmount(o.Price)
			continue
		}
		g.Go(func() error {
			v, err := s.backend.Convert(gctx, o.Price, o.Currency, want)
			if err != nil {
				return fmt.Errorf("convert %s %s->%s: %w", o.HotelID, o.Currency, want, err)
			}
			o.Price = RoundAmount(v)
			o.Currency = want
			return nil
		})
	}
	return g.Wait()
}

func (s *Searcher) distance(_ context.Context, st *searchState) error {
	for i := range st.offers {
		st.offers[i].DistanceKm = DistanceKm(st.origin, st.offers[i].Coords)
	}
	return nil
}

func (s *Searcher) sortByDistance(_ context.Context, st *searchState) error {
	sort.SliceStable(st.offers, func(i, j int) bool {
		return st.offers[i].DistanceKm < st.offers[j].DistanceKm
	})
	return nil
}

func (s *Searcher) render(_ context.Context, st *searchState) error {
	nights := st.criteria.Nights()
	st.cards = make([]domain.Card, len(st.offers))
	for i, o := range st.offers {
		st.cards[i] = toCard(o, nights, i)
	}
	return nil
}

// CriteriaFromStrings parses form/query values into criteria. Dates must be YYYY-MM-DD and
// check-out must follow check-in; today is the earliest allowed check-in.
func CriteriaFromStrings(location, checkIn, checkOut string, adults, rooms, limit int, currency string, now time.Time) (domain.SearchCriteria, error) {
	in, out, err := ParseStay(checkIn, checkOut, now)
	if err != nil {
		return domain.SearchCriteria{}, err
	}
	if adults < 1 {
		return domain.SearchCriteria{}, domain.Invalid("adults", "must be at least 1")
	}
	if rooms < 1 {
		return domain.SearchCriteria{}, domain.Invalid("rooms", "must be at least 1")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return domain.SearchCriteria{
		Location: location,
		CheckIn:  in,
		CheckOut: out,
		Adults:   adults,
		Rooms:    rooms,
		Limit:    limit,
		Currency: currency,
	}, nil
}
