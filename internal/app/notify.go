package app

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
	"hotel_finder/internal/validation"
)

// Notifier validates and dispatches transactional email. It never retries.
type Notifier struct {
	mailer domain.Mailer
}

func NewNotifier(m domain.Mailer) *Notifier { return &Notifier{mailer: m} }

func (n *Notifier) Send(ctx context.Context, msg domain.EmailMessage) error {
	if err := validation.Struct(msg); err != nil {
		return err
	}
	err := n.mailer.Send(ctx, msg)
	observability.ObserveLead("email", err)
	return err
}

var leadEmailTmpl = template.Must(template.New("lead").Parse(`<h2>Your hotel shortlist for {{.Location}}</h2>
<p>{{.CheckInDate}} to {{.CheckOutDate}}, {{.Adults}} adult(s), {{.NumberOfRooms}} room(s).</p>
<table>
<tr><th>Hotel</th><th>Room</th><th>Per night</th><th>Total</th></tr>
{{- range .SelectedHotels}}
<tr><td>{{.Name}}</td><td>{{.RoomType}}</td><td>{{.PricePerNight}} {{.Currency}}</td><td>{{.TotalPrice}} {{.Currency}}</td></tr>
{{- end}}
</table>
<p>Reference: {{.Token}}</p>`))

// LeadEmail renders the confirmation sent after a lead is captured.
func LeadEmail(lead domain.LeadSubmission) (domain.EmailMessage, error) {
	var buf bytes.Buffer
	if err := leadEmailTmpl.Execute(&buf, lead); err != nil {
		return domain.EmailMessage{}, fmt.Errorf("render lead email: %w", err)
	}
	return domain.EmailMessage{
		Subject:   "Your hotel shortlist for " + lead.Location,
		HTMLBody:  buf.String(),
		Recipient: lead.Email,
	}, nil
}
