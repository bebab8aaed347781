package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/conversation"
	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/service"
	"github.com/egov_portal/backend/internal/tickets"
)

// Pinger is implemented by dependencies that take part in /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Tickets      tickets.Repository
	Tracker      service.TicketTracker
	Desk         *service.TicketDesk
	Classifier   *service.ComplaintClassifier
	Drafts       *service.IntakeRegistry
	Chat         *service.ChatService
	Summarizer   *service.ArticleSummarizer
	Directorates []models.Directorate
	Categories   []string
	Checks       map[string]Pinger
	Validator    *validator.Validate
	Logger       zerolog.Logger

	MaxAttachmentBytes int64
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", name+" unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List directorates
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Directorate
// @Router /api/directorates [get]
func (h *Handler) DirectoratesList(c *gin.Context) {
	c.JSON(http.StatusOK, h.Directorates)
}

// @Summary List complaint categories
// @Tags catalog
// @Produce json
// @Success 200 {array} string
// @Router /api/complaints/categories [get]
func (h *Handler) CategoriesList(c *gin.Context) {
	c.JSON(http.StatusOK, h.Categories)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

// fail maps service errors onto the JSON error envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", verr.Fields)
	case errors.Is(err, tickets.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "لم يتم العثور على الطلب", nil)
	case errors.Is(err, tickets.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "INVALID_TRANSITION", "Status transition not allowed", err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Chat session not found", nil)
	case errors.Is(err, service.ErrUnknownField), errors.Is(err, service.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrClassificationInFlight):
		writeError(c, http.StatusConflict, "CLASSIFICATION_IN_FLIGHT", "Classification already running", nil)
	case errors.Is(err, service.ErrTurnInProgress):
		writeError(c, http.StatusConflict, "TURN_IN_PROGRESS", "A message is already being answered", nil)
	case errors.Is(err, service.ErrDraftSubmitted):
		writeError(c, http.StatusConflict, "DRAFT_SUBMITTED", "Complaint already submitted", nil)
	case errors.Is(err, conversation.ErrAttachmentTooLarge):
		writeError(c, http.StatusRequestEntityTooLarge, "ATTACHMENT_TOO_LARGE", "حجم الملف كبير جداً. الحد الأقصى هو 5 ميغابايت.", nil)
	case errors.Is(err, service.ErrClassificationUnavailable):
		writeError(c, http.StatusServiceUnavailable, "CLASSIFICATION_UNAVAILABLE", "تعذر تحليل الشكوى حالياً", nil)
	case errors.Is(err, service.ErrSummaryUnavailable):
		writeError(c, http.StatusServiceUnavailable, "SUMMARY_UNAVAILABLE", "تعذر تلخيص المقال حالياً", nil)
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
