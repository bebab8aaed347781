package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SummarizeRequest struct {
	Title string `json:"title"`
	Text  string `json:"text" validate:"required"`
}

// @Summary Summarize news article
// @Tags articles
// @Accept json
// @Produce json
// @Param body body SummarizeRequest true "Article"
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/articles/summarize [post]
func (h *Handler) SummarizeArticle(c *gin.Context) {
	var req SummarizeRequest
	if !h.bind(c, &req) {
		return
	}
	summary, err := h.Summarizer.Summarize(c.Request.Context(), req.Title, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
