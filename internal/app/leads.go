package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
	"hotel_finder/internal/validation"
)

// LeadService validates a lead, stamps it with a token and sends it once to the spreadsheet store.
// Outcomes are written to the optional lead log.
type LeadService struct {
	store    domain.LeadStore
	leadLog  domain.LeadLog
	now      func() time.Time
	newToken func() string
}

func NewLeadService(store domain.LeadStore, leadLog domain.LeadLog) *LeadService {
	return &LeadService{store: store, leadLog: leadLog, now: time.Now, newToken: uuid.NewString}
}

func (s *LeadService) SubmitLead(ctx context.Context, lead domain.LeadSubmission) (domain.LeadReceipt, error) {
	if err := validation.Struct(lead); err != nil {
		return domain.LeadReceipt{}, err
	}
	lead.Token = s.newToken()

	data, err := s.store.AppendLead(ctx, lead)
	observability.ObserveLead("sheety", err)
	s.record(ctx, lead, err)
	if err != nil {
		return domain.LeadReceipt{}, fmt.Errorf("append lead %s: %w", lead.Token, err)
	}
	return domain.LeadReceipt{Token: lead.Token, Data: data}, nil
}

// Lead reads one submission back from the log.
func (s *LeadService) Lead(ctx context.Context, token string) (domain.LeadRecord, error) {
	if s.leadLog == nil {
		return domain.LeadRecord{}, domain.ErrNotFound
	}
	return s.leadLog.GetLead(ctx, token)
}

func (s *LeadService) record(ctx context.Context, lead domain.LeadSubmission, sendErr error) {
	if s.leadLog == nil {
		return
	}
	rec := domain.LeadRecord{
		Token:          lead.Token,
		Email:          lead.Email,
		Location:       lead.Location,
		CheckIn:        lead.CheckInDate,
		CheckOut:       lead.CheckOutDate,
		HotelCount:     len(lead.SelectedHotels),
		Status:         domain.LeadSent,
		UpstreamStatus: 200,
		CreatedAt:      s.now().UTC(),
	}
	if sendErr != nil {
		rec.Status = domain.LeadFailed
		rec.UpstreamStatus = 0
		var ue *domain.UpstreamError
		if errors.As(sendErr, &ue) {
			rec.UpstreamStatus = ue.Status
		}
	}
	if err := s.leadLog.RecordLead(ctx, rec); err != nil {
		log.Warn().Err(err).Str("token", rec.Token).Msg("lead log write failed")
	}
}
