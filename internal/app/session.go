package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/domain"
	"hotel_finder/internal/validation"
)

type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateSubmitting   SessionState = "submitting"
	StateResults      SessionState = "results"
	StateNoResults    SessionState = "no_results"
	StateLeadCaptured SessionState = "lead_captured"
	StatePostCapture  SessionState = "post_capture"

	DefaultFlightTrackerURL = "https://www.google.com/travel/flights"
)

var (
	ErrInvalidDates   = errors.New("invalid dates")
	ErrWrongState     = errors.New("action not allowed in current state")
	ErrEmptySelection = errors.New("no hotels selected")
	ErrUnknownHotel   = errors.New("hotel is not among the current results")
)

// LeadSender sends a lead once and returns its token.
type LeadSender interface {
	SubmitLead(ctx context.Context, lead domain.LeadSubmission) (domain.LeadReceipt, error)
}

// Form holds the search form fields as the user typed them.
type Form struct {
	Location string
	Email    string
	Currency string
	CheckIn  string
	CheckOut string
	Adults   int
	Rooms    int
}

type SessionConfig struct {
	FlightTrackerURL string
	Limit            int
	Now              func() time.Time
}

// Session is the state of one visitor's search and lead capture.
// A second Submit while one is in flight is not prevented.
type Session struct {
	searcher *Searcher
	leads    LeadSender
	mailer   domain.Mailer
	cfg      SessionConfig

	mu       sync.Mutex
	state    SessionState
	prefill  Form
	form     Form
	loading  bool
	result   domain.SearchResult
	selected map[string]struct{}
	receipt  domain.LeadReceipt
}

func NewSession(s *Searcher, leads LeadSender, mailer domain.Mailer, cfg SessionConfig) *Session {
	if cfg.FlightTrackerURL == "" {
		cfg.FlightTrackerURL = DefaultFlightTrackerURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Session{
		searcher: s,
		leads:    leads,
		mailer:   mailer,
		cfg:      cfg,
		state:    StateIdle,
		form:     Form{Adults: 1, Rooms: 1},
		selected: map[string]struct{}{},
	}
}

// Prefill copies location, email, currency, dateFrom and dateTo from a page query string.
func (s *Session) Prefill(q url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.form
	if v := q.Get("location"); v != "" {
		f.Location = v
	}
	if v := q.Get("email"); v != "" {
		f.Email = v
	}
	if v := q.Get("currency"); v != "" {
		f.Currency = strings.ToUpper(v)
	}
	if v := q.Get("dateFrom"); v != "" {
		f.CheckIn = v
	}
	if v := q.Get("dateTo"); v != "" {
		f.CheckOut = v
	}
	s.form, s.prefill = f, f
}

func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Result() domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Submit validates the form, then runs the search. Invalid input never reaches the network.
// A pipeline failure lands in StateNoResults and is returned for logging.
func (s *Session) Submit(ctx context.Context, f Form) (domain.SearchResult, error) {
	criteria, err := s.validate(f)
	s.mu.Lock()
	s.form = f
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		return domain.SearchResult{}, err
	}
	s.state = StateSubmitting
	s.loading = true
	s.selected = map[string]struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	res, searchErr := s.searcher.Search(ctx, criteria)

	s.mu.Lock()
	s.result = res
	if res.Status == domain.StatusResults {
		s.state = StateResults
	} else {
		s.state = StateNoResults
	}
	s.mu.Unlock()
	return res, searchErr
}

func (s *Session) validate(f Form) (domain.SearchCriteria, error) {
	if err := validation.Location(f.Location); err != nil {
		return domain.SearchCriteria{}, err
	}
	cur := f.Currency
	if cur != "" {
		var err error
		if cur, err = validation.Currency("currency", cur); err != nil {
			return domain.SearchCriteria{}, err
		}
	}
	return CriteriaFromStrings(strings.TrimSpace(f.Location), f.CheckIn, f.CheckOut, f.Adults, f.Rooms, s.cfg.Limit, cur, s.cfg.Now())
}

// Toggle checks or unchecks a result card.
func (s *Session) Toggle(hotelID string, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateResults {
		return ErrWrongState
	}
	if !s.hasCard(hotelID) {
		return fmt.Errorf("%w: %s", ErrUnknownHotel, hotelID)
	}
	if checked {
		s.selected[hotelID] = struct{}{}
	} else {
		delete(s.selected, hotelID)
	}
	return nil
}

// SubmitVisible reports whether the lead submit control should be shown.
func (s *Session) SubmitVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected) > 0
}

// Selection is rebuilt from the selection map in card order on every call.
func (s *Session) Selection() []domain.SelectedHotel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection()
}

func (s *Session) selection() []domain.SelectedHotel {
	out := make([]domain.SelectedHotel, 0, len(s.selected))
	for _, c := range s.result.Cards {
		if _, ok := s.selected[c.HotelID]; ok {
			out = append(out, SelectedFromCard(c))
		}
	}
	return out
}

func (s *Session) hasCard(id string) bool {
	for _, c := range s.result.Cards {
		if c.HotelID == id {
			return true
		}
	}
	return false
}

// CaptureLead sends the selection as a lead, then tries to email the visitor.
// Email failure is logged and does not fail the capture.
func (s *Session) CaptureLead(ctx context.Context) (domain.LeadReceipt, error) {
	s.mu.Lock()
	if s.state != StateResults {
		s.mu.Unlock()
		return domain.LeadReceipt{}, ErrWrongState
	}
	sel := s.selection()
	f := s.form
	s.mu.Unlock()

	if len(sel) == 0 {
		return domain.LeadReceipt{}, ErrEmptySelection
	}
	if err := validation.Email("email", f.Email); err != nil {
		return domain.LeadReceipt{}, err
	}

	lead := domain.LeadSubmission{
		Location:       strings.TrimSpace(f.Location),
		CheckInDate:    f.CheckIn,
		CheckOutDate:   f.CheckOut,
		Adults:         f.Adults,
		NumberOfRooms:  f.Rooms,
		Email:          f.Email,
		Currency:       f.Currency,
		SelectedHotels: sel,
	}
	receipt, err := s.leads.SubmitLead(ctx, lead)
	if err != nil {
		return domain.LeadReceipt{}, err
	}

	s.mu.Lock()
	s.state = StateLeadCaptured
	s.receipt = receipt
	s.mu.Unlock()

	lead.Token = receipt.Token
	s.notify(ctx, lead)

	s.mu.Lock()
	s.state = StatePostCapture
	s.mu.Unlock()
	return receipt, nil
}

func (s *Session) notify(ctx context.Context, lead domain.LeadSubmission) {
	if s.mailer == nil {
		return
	}
	msg, err := LeadEmail(lead)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Warn().Err(err).Str("token", lead.Token).Msg("lead email not sent")
	}
}

// Decide answers the flight-tracking prompt. Accepting returns the URL to go to;
// declining resets the session to its prefilled form.
func (s *Session) Decide(accept bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePostCapture {
		return "", ErrWrongState
	}
	if accept {
		return s.cfg.FlightTrackerURL, nil
	}
	s.reset()
	return "", nil
}

func (s *Session) reset() {
	s.state = StateIdle
	s.form = s.prefill
	if s.form.Adults == 0 {
		s.form.Adults = 1
	}
	if s.form.Rooms == 0 {
		s.form.Rooms = 1
	}
	s.result = domain.SearchResult{}
	s.selected = map[string]struct{}{}
	s.receipt = domain.LeadReceipt{}
}

// ParseStay validates a check-in/check-out pair: both YYYY-MM-DD, check-out after
// check-in, check-in not before today.
func ParseStay(checkIn, checkOut string, now time.Time) (time.Time, time.Time, error) {
	if err := validation.Date("checkInDate", checkIn); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDates, err)
	}
	if err := validation.Date("checkOutDate", checkOut); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDates, err)
	}
	in, err := time.Parse(domain.DateLayout, checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDates, domain.Invalid("checkInDate", "is not a calendar date"))
	}
	out, err := time.Parse(domain.DateLayout, checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDates, domain.Invalid("checkOutDate", "is not a calendar date"))
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDates, domain.Invalid("checkOutDate", "must be after check-in"))
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.Before(today) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDates, domain.Invalid("checkInDate", "must not be in the past"))
	}
	return in, out, nil
}
