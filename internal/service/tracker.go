package service

import (
	"context"
	"strings"

	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/tickets"
)

// TicketTracker is the read-only lookup used by citizens.
type TicketTracker struct {
	Repo tickets.Repository
}

func (t TicketTracker) Track(ctx context.Context, id string) (models.Ticket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Ticket{}, tickets.ErrNotFound
	}
	return t.Repo.Track(ctx, id)
}
