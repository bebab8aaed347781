package handlers

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egov_portal/backend/internal/conversation"
	"github.com/egov_portal/backend/internal/models"
)

type ChatSessionView struct {
	SessionID string               `json:"sessionId"`
	Messages  []models.ChatMessage `json:"messages"`
}

// @Summary Start chat session
// @Tags chat
// @Produce json
// @Success 201 {object} ChatSessionView
// @Router /api/chat/sessions [post]
func (h *Handler) CreateChatSession(c *gin.Context) {
	id, msgs, err := h.Chat.Create(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ChatSessionView{SessionID: id, Messages: msgs})
}

// @Summary Restore chat session
// @Tags chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} ChatSessionView
// @Router /api/chat/sessions/{id} [get]
func (h *Handler) GetChatSession(c *gin.Context) {
	id := c.Param("id")
	msgs, err := h.Chat.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ChatSessionView{SessionID: id, Messages: msgs})
}

// @Summary Reset chat session
// @Tags chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} ChatSessionView
// @Router /api/chat/sessions/{id} [delete]
func (h *Handler) ResetChatSession(c *gin.Context) {
	id := c.Param("id")
	msgs, err := h.Chat.Reset(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ChatSessionView{SessionID: id, Messages: msgs})
}

// @Summary Attach a file to the next message
// @Tags chat
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Document or image"
// @Success 200 {object} map[string]any
// @Failure 413 {object} map[string]any
// @Router /api/chat/sessions/{id}/attachment [post]
func (h *Handler) AttachFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file required", nil)
		return
	}
	if fh.Size > h.maxAttachment() {
		h.fail(c, conversation.ErrAttachmentTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read file", err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxAttachment()+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read file", err.Error())
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	att := models.Attachment{
		Name:     fh.Filename,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	if err := h.Chat.Attach(c.Request.Context(), c.Param("id"), att, int64(len(data))); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": att.Name, "mimeType": att.MimeType, "size": len(data)})
}

// @Summary Remove pending attachment
// @Tags chat
// @Param id path string true "Session ID"
// @Success 204
// @Router /api/chat/sessions/{id}/attachment [delete]
func (h *Handler) DetachFile(c *gin.Context) {
	if err := h.Chat.Detach(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ChatMessageRequest struct {
	Text string `json:"text"`
}

// @Summary Send chat message
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body ChatMessageRequest true "Message"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/chat/sessions/{id}/messages [post]
func (h *Handler) SendChatMessage(c *gin.Context) {
	var req ChatMessageRequest
	if !h.bind(c, &req) {
		return
	}
	user, bot, err := h.Chat.Turn(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "reply": bot})
}

func (h *Handler) maxAttachment() int64 {
	if h.MaxAttachmentBytes > 0 {
		return h.MaxAttachmentBytes
	}
	return conversation.DefaultMaxAttachmentBytes
}
