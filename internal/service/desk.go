package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/events"
	"github.com/egov_portal/backend/internal/metrics"
	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/tickets"
)

var ErrDraftIncomplete = errors.New("complaint is incomplete")

// ValidationError carries per-field messages for the complaint form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "complaint validation failed"
}

func (e *ValidationError) Unwrap() error {
	return ErrDraftIncomplete
}

var fieldMessages = map[string]string{
	"details": "يرجى كتابة تفاصيل الشكوى",
	"phone":   "يرجى إدخال رقم الهاتف",
}

// TicketDesk validates complaints, hands them to the ticket repository and
// announces the routed complaint.
type TicketDesk struct {
	Repo      tickets.Repository
	Backend   string
	Publisher events.Publisher
	Validator *validator.Validate
	Logger    zerolog.Logger
	Now       func() time.Time
}

func NewTicketDesk(repo tickets.Repository, backend string, publisher events.Publisher, logger zerolog.Logger) *TicketDesk {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TicketDesk{
		Repo:      repo,
		Backend:   backend,
		Publisher: publisher,
		Validator: validator.New(),
		Logger:    logger,
		Now:       time.Now,
	}
}

// Validate returns a *ValidationError naming each missing required field.
func (d *TicketDesk) Validate(data models.ComplaintData) error {
	err := d.Validator.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		name := jsonFieldName(fe.Field())
		msg, ok := fieldMessages[name]
		if !ok {
			msg = fe.Tag()
		}
		out.Fields[name] = msg
	}
	return out
}

func jsonFieldName(structField string) string {
	switch structField {
	case "Details":
		return "details"
	case "Phone":
		return "phone"
	case "FullName":
		return "fullName"
	case "Category":
		return "category"
	case "Directorate":
		return "directorate"
	}
	return structField
}

// Submit validates and files the complaint. Nothing reaches the repository
// when validation fails. suggestion may be nil.
func (d *TicketDesk) Submit(ctx context.Context, data models.ComplaintData, suggestion *models.ClassificationResult) (string, error) {
	if err := d.Validate(data); err != nil {
		return "", err
	}
	id, err := d.Repo.Submit(ctx, data)
	if err != nil {
		return "", err
	}
	metrics.TicketsSubmitted.WithLabelValues(d.Backend).Inc()

	evt := events.ComplaintRouted{
		TicketID:    id,
		Category:    data.Category,
		Directorate: data.Directorate,
		SubmittedAt: d.Now().UTC(),
	}
	if suggestion != nil {
		evt.Priority = string(suggestion.Priority)
	}
	if err := d.Publisher.PublishComplaintRouted(ctx, evt); err != nil {
		d.Logger.Warn().Err(err).Str("ticket_id", id).Msg("complaint routed event not published")
	}
	d.Logger.Info().Str("ticket_id", id).Str("directorate", data.Directorate).Msg("complaint submitted")
	return id, nil
}
