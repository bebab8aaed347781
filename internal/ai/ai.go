package ai

import (
	"context"
	"errors"

	"github.com/egov_portal/backend/internal/models"
)

// ErrNotConfigured is returned by backends that cannot serve requests because
// credentials or a model are missing. Callers degrade instead of failing.
var ErrNotConfigured = errors.New("ai backend not configured")

// Backend is the capability set the portal needs from a generative model.
type Backend interface {
	// Classify sends prompt and asks for a JSON-only response.
	Classify(ctx context.Context, prompt string) (string, error)
	// Converse runs one chat turn on top of history.
	Converse(ctx context.Context, req ConverseRequest) (string, error)
	// Generate returns free text for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

type ConverseRequest struct {
	System     string
	History    []models.BackendTurn
	Message    string
	Attachment *models.Attachment
}
