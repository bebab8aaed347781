package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/service"
)

type DraftView struct {
	DraftID    string                       `json:"draftId"`
	Draft      models.ComplaintDraft        `json:"draft"`
	Suggestion *models.ClassificationResult `json:"suggestion,omitempty"`
	State      service.RequestState         `json:"classificationState"`
	TicketID   string                       `json:"ticketId,omitempty"`
}

func draftView(id string, ctrl *service.IntakeController) DraftView {
	return DraftView{
		DraftID:    id,
		Draft:      ctrl.Draft(),
		Suggestion: ctrl.Suggestion(),
		State:      ctrl.State(),
		TicketID:   ctrl.TicketID(),
	}
}

func (h *Handler) draft(c *gin.Context) (string, *service.IntakeController, bool) {
	id := c.Param("id")
	ctrl, ok := h.Drafts.Get(id)
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Draft not found", nil)
		return "", nil, false
	}
	return id, ctrl, true
}

// @Summary Create complaint draft
// @Tags drafts
// @Produce json
// @Success 201 {object} DraftView
// @Router /api/drafts [post]
func (h *Handler) CreateDraft(c *gin.Context) {
	id, ctrl := h.Drafts.Create()
	c.JSON(http.StatusCreated, draftView(id, ctrl))
}

// @Summary Get complaint draft
// @Tags drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} DraftView
// @Router /api/drafts/{id} [get]
func (h *Handler) GetDraft(c *gin.Context) {
	id, ctrl, ok := h.draft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, draftView(id, ctrl))
}

// @Summary Discard complaint draft
// @Tags drafts
// @Param id path string true "Draft ID"
// @Success 204
// @Router /api/drafts/{id} [delete]
func (h *Handler) DeleteDraft(c *gin.Context) {
	if !h.Drafts.Delete(c.Param("id")) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Draft not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type DraftFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=details phone fullName category directorate"`
	Value string `json:"value"`
}

// @Summary Update a draft field
// @Tags drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param body body DraftFieldRequest true "Field update"
// @Success 200 {object} DraftView
// @Router /api/drafts/{id} [patch]
func (h *Handler) UpdateDraft(c *gin.Context) {
	id, ctrl, ok := h.draft(c)
	if !ok {
		return
	}
	var req DraftFieldRequest
	if !h.bind(c, &req) {
		return
	}
	if err := ctrl.UpdateField(req.Field, req.Value); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draftView(id, ctrl))
}

// @Summary Classify draft and merge suggestion
// @Tags drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} DraftView
// @Failure 409 {object} map[string]any
// @Router /api/drafts/{id}/classify [post]
func (h *Handler) ClassifyDraft(c *gin.Context) {
	id, ctrl, ok := h.draft(c)
	if !ok {
		return
	}
	if _, err := ctrl.RequestClassification(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draftView(id, ctrl))
}

// @Summary Submit draft
// @Tags drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/drafts/{id}/submit [post]
func (h *Handler) SubmitDraft(c *gin.Context) {
	_, ctrl, ok := h.draft(c)
	if !ok {
		return
	}
	ticketID, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticketId": ticketID})
}
