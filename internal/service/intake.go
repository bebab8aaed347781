package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/utils"
)

// MinClassifyRunes is the shortest complaint text worth classifying.
const MinClassifyRunes = 10

var (
	ErrClassificationInFlight = errors.New("classification already in progress")
	ErrDraftSubmitted         = errors.New("complaint already submitted")
	ErrUnknownField           = errors.New("unknown draft field")
)

type RequestState string

const (
	StateIdle    RequestState = "idle"
	StatePending RequestState = "pending"
)

// Classifier is satisfied by *ComplaintClassifier.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.ClassificationResult, error)
}

// ResolveDirectorate maps a free-text suggestion onto the catalog. The first
// catalog name found inside the suggestion wins; otherwise the suggestion is
// kept as-is.
func ResolveDirectorate(suggestion string, catalog []models.Directorate) string {
	s := strings.TrimSpace(suggestion)
	if s == "" {
		return s
	}
	for _, d := range catalog {
		if strings.Contains(s, d.Name) {
			return d.Name
		}
	}
	return s
}

// IntakeController owns one complaint draft from first keystroke to ticket.
type IntakeController struct {
	classifier Classifier
	desk       *TicketDesk
	catalog    []models.Directorate
	logger     zerolog.Logger

	mu         sync.Mutex
	draft      models.ComplaintDraft
	state      RequestState
	suggestion *models.ClassificationResult
	ticketID   string
}

func NewIntakeController(classifier Classifier, desk *TicketDesk, catalog []models.Directorate, logger zerolog.Logger) *IntakeController {
	return &IntakeController{
		classifier: classifier,
		desk:       desk,
		catalog:    catalog,
		logger:     logger,
		state:      StateIdle,
	}
}

func (c *IntakeController) UpdateField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticketID != "" {
		return ErrDraftSubmitted
	}
	switch name {
	case "details":
		c.draft.Details = value
	case "phone":
		c.draft.Phone = value
	case "fullName":
		c.draft.FullName = value
	case "category":
		c.draft.Category = value
	case "directorate":
		c.draft.Directorate = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

// RequestClassification asks the classifier about the current details and
// overwrites category and directorate with the answer. Only one request runs
// per draft; a failed request leaves the draft untouched.
func (c *IntakeController) RequestClassification(ctx context.Context) (models.ClassificationResult, error) {
	c.mu.Lock()
	if c.ticketID != "" {
		c.mu.Unlock()
		return models.ClassificationResult{}, ErrDraftSubmitted
	}
	if c.state == StatePending {
		c.mu.Unlock()
		return models.ClassificationResult{}, ErrClassificationInFlight
	}
	details := strings.TrimSpace(c.draft.Details)
	if utils.RuneLen(details) < MinClassifyRunes {
		c.mu.Unlock()
		return models.ClassificationResult{}, &ValidationError{Fields: map[string]string{
			"details": fmt.Sprintf("يجب أن تحتوي التفاصيل على %d أحرف على الأقل", MinClassifyRunes),
		}}
	}
	c.state = StatePending
	c.mu.Unlock()

	res, err := c.classifier.Classify(ctx, details)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	if err != nil {
		return models.ClassificationResult{}, err
	}
	if c.ticketID != "" {
		return res, nil
	}
	c.draft.Category = res.Category
	c.draft.Directorate = ResolveDirectorate(res.SuggestedDirectorate, c.catalog)
	c.suggestion = &res
	return res, nil
}

// Submit files the draft. The controller becomes read-only on success.
func (c *IntakeController) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticketID != "" {
		return "", ErrDraftSubmitted
	}
	id, err := c.desk.Submit(ctx, c.draft.ToComplaintData(), c.suggestion)
	if err != nil {
		return "", err
	}
	c.ticketID = id
	return id, nil
}

func (c *IntakeController) Draft() models.ComplaintDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *IntakeController) Suggestion() *models.ClassificationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suggestion == nil {
		return nil
	}
	s := *c.suggestion
	return &s
}

func (c *IntakeController) State() RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *IntakeController) TicketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticketID
}

// IntakeRegistry keeps live drafts addressable by id. Drafts untouched for
// IdleTTL are dropped by Sweep.
type IntakeRegistry struct {
	Classifier Classifier
	Desk       *TicketDesk
	Catalog    []models.Directorate
	Logger     zerolog.Logger
	IdleTTL    time.Duration
	Now        func() time.Time

	mu     sync.Mutex
	drafts map[string]*draftEntry
}

type draftEntry struct {
	ctrl     *IntakeController
	lastUsed time.Time
}

func NewIntakeRegistry(classifier Classifier, desk *TicketDesk, catalog []models.Directorate, logger zerolog.Logger) *IntakeRegistry {
	return &IntakeRegistry{
		Classifier: classifier,
		Desk:       desk,
		Catalog:    catalog,
		Logger:     logger,
		IdleTTL:    DefaultIdleTTL,
		Now:        time.Now,
		drafts:     map[string]*draftEntry{},
	}
}

func (r *IntakeRegistry) Create() (string, *IntakeController) {
	id := uuid.NewString()
	ctrl := NewIntakeController(r.Classifier, r.Desk, r.Catalog, r.Logger.With().Str("draft_id", id).Logger())
	r.mu.Lock()
	r.drafts[id] = &draftEntry{ctrl: ctrl, lastUsed: r.Now()}
	r.mu.Unlock()
	return id, ctrl
}

func (r *IntakeRegistry) Get(id string) (*IntakeController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.drafts[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.Now()
	return e.ctrl, true
}

// Delete discards a draft; false when id is unknown.
func (r *IntakeRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[id]; !ok {
		return false
	}
	delete(r.drafts, id)
	return true
}

// Sweep drops drafts idle for longer than IdleTTL. A draft with a
// classification in flight is kept.
func (r *IntakeRegistry) Sweep() int {
	cutoff := r.Now().Add(-r.IdleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.drafts {
		if e.lastUsed.Before(cutoff) && e.ctrl.State() != StatePending {
			delete(r.drafts, id)
			n++
		}
	}
	return n
}
