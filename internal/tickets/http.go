package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/egov_portal/backend/internal/models"
)

// HTTPRepository forwards tickets to the remote complaints API.
type HTTPRepository struct {
	BaseURL string
	Client  *http.Client
}

type submitResponse struct {
	TicketID string `json:"ticketId"`
}

type statusRequest struct {
	Status models.TicketStatus `json:"status"`
	Notes  string              `json:"notes,omitempty"`
}

func (h HTTPRepository) Submit(ctx context.Context, data models.ComplaintData) (string, error) {
	var out submitResponse
	if err := h.do(ctx, http.MethodPost, "/complaints", data, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.TicketID) == "" {
		return "", errors.New("complaints api returned empty ticket id")
	}
	return out.TicketID, nil
}

func (h HTTPRepository) Track(ctx context.Context, id string) (models.Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return models.Ticket{}, ErrNotFound
	}
	var t models.Ticket
	if err := h.do(ctx, http.MethodGet, "/complaints/"+url.PathEscape(id), nil, &t); err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (h HTTPRepository) UpdateStatus(ctx context.Context, id string, status models.TicketStatus, notes string) (models.Ticket, error) {
	var t models.Ticket
	if err := h.do(ctx, http.MethodPatch, "/complaints/"+url.PathEscape(id), statusRequest{Status: status, Notes: notes}, &t); err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (h HTTPRepository) do(ctx context.Context, method, path string, payload any, out any) error {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(h.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("complaints api request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrInvalidTransition
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("complaints api error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
