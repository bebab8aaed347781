package tickets

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/egov_portal/backend/internal/models"
)

const simulatedNotes = "الطلب قيد المراجعة من قبل القسم الفني (بيانات محاكاة)."

type mockRecord struct {
	ticket models.Ticket
	data   models.ComplaintData
}

// MockRepository is the deterministic offline ticket backend. Submitted
// tickets are kept in memory; a well-formed id it never issued is reported as
// under review, as the portal's demo mode always did.
type MockRepository struct {
	IDs *IDGenerator
	Now func() time.Time

	mu      sync.RWMutex
	tickets map[string]mockRecord
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		IDs:     NewIDGenerator(),
		Now:     time.Now,
		tickets: map[string]mockRecord{},
	}
}

func (m *MockRepository) Submit(ctx context.Context, data models.ComplaintData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.IDs.Next()
	for {
		if _, taken := m.tickets[id]; !taken {
			break
		}
		id = m.IDs.Next()
	}
	m.tickets[id] = mockRecord{
		ticket: models.Ticket{
			ID:         id,
			Status:     models.TicketNew,
			LastUpdate: models.FormatLastUpdate(m.Now()),
		},
		data: data,
	}
	return id, nil
}

func (m *MockRepository) Track(ctx context.Context, id string) (models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return models.Ticket{}, err
	}
	id = strings.TrimSpace(id)
	m.mu.RLock()
	rec, ok := m.tickets[id]
	m.mu.RUnlock()
	if ok {
		return rec.ticket, nil
	}
	if !WellFormedID(id) {
		return models.Ticket{}, ErrNotFound
	}
	return models.Ticket{
		ID:         id,
		Status:     models.TicketInProgress,
		LastUpdate: models.FormatLastUpdate(m.Now()),
		Notes:      simulatedNotes,
	}, nil
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id string, status models.TicketStatus, notes string) (models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return models.Ticket{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tickets[id]
	if !ok {
		return models.Ticket{}, ErrNotFound
	}
	if err := CheckTransition(rec.ticket.Status, status); err != nil {
		return models.Ticket{}, err
	}
	rec.ticket.Status = status
	rec.ticket.Notes = notes
	rec.ticket.LastUpdate = models.FormatLastUpdate(m.Now())
	m.tickets[id] = rec
	return rec.ticket, nil
}
