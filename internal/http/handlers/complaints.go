package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/service"
	"github.com/egov_portal/backend/internal/utils"
)

type AnalyzeRequest struct {
	Text string `json:"text" validate:"required"`
}

// @Summary Classify complaint text
// @Tags complaints
// @Accept json
// @Produce json
// @Param body body AnalyzeRequest true "Complaint text"
// @Success 200 {object} models.ClassificationResult
// @Failure 400 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/complaints/analyze [post]
func (h *Handler) AnalyzeComplaint(c *gin.Context) {
	var req AnalyzeRequest
	if !h.bind(c, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if utils.RuneLen(text) < service.MinClassifyRunes {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Text too short", gin.H{"min_length": service.MinClassifyRunes})
		return
	}
	res, err := h.Classifier.Classify(c.Request.Context(), text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Submit complaint
// @Tags complaints
// @Accept json
// @Produce json
// @Param body body models.ComplaintData true "Complaint"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/complaints [post]
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req models.ComplaintDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	id, err := h.Desk.Submit(c.Request.Context(), req.ToComplaintData(), nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticketId": id})
}

// @Summary Track complaint
// @Tags complaints
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} map[string]any
// @Router /api/complaints/{id} [get]
func (h *Handler) TrackComplaint(c *gin.Context) {
	ticket, err := h.Tracker.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          ticket.ID,
		"status":      ticket.Status,
		"statusLabel": ticket.Status.Label(),
		"lastUpdate":  ticket.LastUpdate,
		"notes":       ticket.Notes,
	})
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// @Summary Update complaint status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param body body StatusUpdateRequest true "New status"
// @Success 200 {object} models.Ticket
// @Failure 409 {object} map[string]any
// @Router /api/admin/complaints/{id}/status [patch]
func (h *Handler) UpdateComplaintStatus(c *gin.Context) {
	var req StatusUpdateRequest
	if !h.bind(c, &req) {
		return
	}
	status := models.TicketStatus(req.Status)
	if !status.Valid() {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", req.Status)
		return
	}
	ticket, err := h.Tickets.UpdateStatus(c.Request.Context(), c.Param("id"), status, strings.TrimSpace(req.Notes))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Logger.Info().Str("ticket_id", ticket.ID).Str("status", string(ticket.Status)).Msg("complaint status updated")
	c.JSON(http.StatusOK, ticket)
}
