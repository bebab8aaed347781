// Package tickets owns complaint tickets: identity generation, status
// transitions, and the repositories that store them.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/egov_portal/backend/internal/models"
)

var (
	ErrNotFound          = errors.New("ticket not found")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
)

// Repository submits and tracks tickets. The offline simulation, the Postgres
// store, and the remote HTTP API all implement it.
type Repository interface {
	Submit(ctx context.Context, data models.ComplaintData) (string, error)
	Track(ctx context.Context, id string) (models.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status models.TicketStatus, notes string) (models.Ticket, error)
}

var idPattern = regexp.MustCompile(`^GOV-\d+$`)

// WellFormedID reports whether id looks like an issued ticket id.
func WellFormedID(id string) bool {
	return idPattern.MatchString(id)
}

var transitions = map[models.TicketStatus][]models.TicketStatus{
	models.TicketNew:        {models.TicketInProgress, models.TicketRejected},
	models.TicketInProgress: {models.TicketResolved, models.TicketRejected},
}

// CanTransition reports whether a ticket may move from one status to another.
// Resolved and rejected are terminal.
func CanTransition(from, to models.TicketStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when from -> to is not allowed.
func CheckTransition(from, to models.TicketStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
