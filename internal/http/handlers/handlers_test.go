package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/ai"
	"github.com/egov_portal/backend/internal/conversation"
	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/service"
	"github.com/egov_portal/backend/internal/tickets"
)

type failingBackend struct{ ai.StubBackend }

func (failingBackend) Converse(ctx context.Context, req ai.ConverseRequest) (string, error) {
	return "", errors.New("upstream 500")
}

func newTestHandler(backend ai.Backend) (*Handler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	repo := tickets.NewMockRepository()
	desk := service.NewTicketDesk(repo, "mock", nil, logger)
	classifier := service.NewComplaintClassifier(backend, logger)
	h := &Handler{
		Tickets:      repo,
		Tracker:      service.TicketTracker{Repo: repo},
		Desk:         desk,
		Classifier:   classifier,
		Drafts:       service.NewIntakeRegistry(classifier, desk, models.DefaultDirectorates, logger),
		Chat:         service.NewChatService(service.NewAssistantGateway(backend, time.Second, logger), conversation.NewMemoryStorage(), 0, logger),
		Summarizer:   &service.ArticleSummarizer{Backend: backend, Logger: logger},
		Directorates: models.DefaultDirectorates,
		Categories:   models.ComplaintCategories,
		Validator:    validator.New(),
		Logger:       logger,
	}

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/directorates", h.DirectoratesList)
	r.GET("/api/complaints/categories", h.CategoriesList)
	r.POST("/api/complaints/analyze", h.AnalyzeComplaint)
	r.POST("/api/complaints", h.SubmitComplaint)
	r.GET("/api/complaints/:id", h.TrackComplaint)
	r.PATCH("/api/admin/complaints/:id/status", h.UpdateComplaintStatus)
	r.POST("/api/drafts", h.CreateDraft)
	r.GET("/api/drafts/:id", h.GetDraft)
	r.PATCH("/api/drafts/:id", h.UpdateDraft)
	r.DELETE("/api/drafts/:id", h.DeleteDraft)
	r.POST("/api/drafts/:id/classify", h.ClassifyDraft)
	r.POST("/api/drafts/:id/submit", h.SubmitDraft)
	r.POST("/api/chat/sessions", h.CreateChatSession)
	r.GET("/api/chat/sessions/:id", h.GetChatSession)
	r.DELETE("/api/chat/sessions/:id", h.ResetChatSession)
	r.POST("/api/chat/sessions/:id/attachment", h.AttachFile)
	r.DELETE("/api/chat/sessions/:id/attachment", h.DetachFile)
	r.POST("/api/chat/sessions/:id/messages", h.SendChatMessage)
	r.POST("/api/articles/summarize", h.SummarizeArticle)
	return h, r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &env)
	return env.Error.Code
}

func TestHealthzWithoutChecks(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthzReportsFailingDependency(t *testing.T) {
	h, r := newTestHandler(ai.StubBackend{})
	h.Checks = map[string]Pinger{"redis": downPinger{}}
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "DEPENDENCY_UNAVAILABLE" {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestDirectoratesList(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	w := doJSON(t, r, http.MethodGet, "/api/directorates", nil)
	var out []models.Directorate
	decode(t, w, &out)
	if len(out) != len(models.DefaultDirectorates) {
		t.Fatalf("expected %d directorates, got %d", len(models.DefaultDirectorates), len(out))
	}
}

func TestCategoriesList(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	w := doJSON(t, r, http.MethodGet, "/api/complaints/categories", nil)
	var out []string
	decode(t, w, &out)
	if len(out) != len(models.ComplaintCategories) || out[0] != models.ComplaintCategories[0] {
		t.Fatalf("unexpected categories: %v", out)
	}
}

func TestAnalyzeComplaint(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})

	w := doJSON(t, r, http.MethodPost, "/api/complaints/analyze", gin.H{"text": "قصير"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short text, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/complaints/analyze", gin.H{"text": "الخدمة متوقفة منذ 3 أيام في المركز"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res models.ClassificationResult
	decode(t, w, &res)
	if res != models.FallbackClassification {
		t.Fatalf("unexpected classification: %+v", res)
	}
}

func TestSubmitComplaintValidation(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	w := doJSON(t, r, http.MethodPost, "/api/complaints", gin.H{"details": "تفاصيل", "phone": "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var env struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	decode(t, w, &env)
	if _, ok := env.Error.Details["phone"]; !ok {
		t.Fatalf("expected phone field error, got %v", env.Error.Details)
	}
}

func TestSubmitAndTrackComplaint(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	w := doJSON(t, r, http.MethodPost, "/api/complaints", gin.H{"details": "انقطاع الكهرباء", "phone": "0999999999", "category": "خدمات إلكترونية متعثرة"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		TicketID string `json:"ticketId"`
	}
	decode(t, w, &created)

	w = doJSON(t, r, http.MethodGet, "/api/complaints/"+created.TicketID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var ticket struct {
		Status      string `json:"status"`
		StatusLabel string `json:"statusLabel"`
	}
	decode(t, w, &ticket)
	if ticket.Status != string(models.TicketNew) || ticket.StatusLabel == "" {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}

	w = doJSON(t, r, http.MethodGet, "/api/complaints/not-a-ticket", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateComplaintStatus(t *testing.T) {
	h, r := newTestHandler(ai.StubBackend{})
	id, err := h.Tickets.Submit(context.Background(), models.ComplaintData{Phone: "1", Details: "d"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	path := "/api/admin/complaints/" + id + "/status"

	w := doJSON(t, r, http.MethodPatch, path, gin.H{"status": "archived"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPatch, path, gin.H{"status": "in_progress", "notes": "أحيلت إلى وزارة النقل"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPatch, path, gin.H{"status": "new"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestDraftLifecycle(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})

	w := doJSON(t, r, http.MethodPost, "/api/drafts", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var view DraftView
	decode(t, w, &view)
	base := "/api/drafts/" + view.DraftID

	w = doJSON(t, r, http.MethodPatch, base, gin.H{"field": "age", "value": "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, base+"/submit", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty draft, got %d", w.Code)
	}

	for field, value := range map[string]string{"details": "الخدمة متوقفة منذ 3 أيام في المركز", "phone": "0999999999"} {
		w = doJSON(t, r, http.MethodPatch, base, gin.H{"field": field, "value": value})
		if w.Code != http.StatusOK {
			t.Fatalf("update %s: expected 200, got %d", field, w.Code)
		}
	}

	w = doJSON(t, r, http.MethodPost, base+"/classify", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &view)
	if view.Draft.Category == "" || view.Draft.Directorate == "" || view.Suggestion == nil {
		t.Fatalf("classification not merged: %+v", view)
	}

	w = doJSON(t, r, http.MethodPost, base+"/submit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		TicketID string `json:"ticketId"`
	}
	decode(t, w, &created)
	if !regexp.MustCompile(`^GOV-\d+$`).MatchString(created.TicketID) {
		t.Fatalf("unexpected ticket id %q", created.TicketID)
	}

	w = doJSON(t, r, http.MethodPost, base+"/submit", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/drafts/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, base, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on discard, got %d", w.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = doJSON(t, r, method, base, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s after discard: expected 404, got %d", method, w.Code)
		}
	}
}

func createSession(t *testing.T, r http.Handler) ChatSessionView {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/chat/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var view ChatSessionView
	decode(t, w, &view)
	return view
}

func TestChatTurnFailureReturnsApology(t *testing.T) {
	_, r := newTestHandler(failingBackend{})
	view := createSession(t, r)
	if len(view.Messages) != 1 || view.Messages[0].ID != conversation.WelcomeID {
		t.Fatalf("expected seeded session, got %+v", view.Messages)
	}

	w := doJSON(t, r, http.MethodPost, "/api/chat/sessions/"+view.SessionID+"/messages", gin.H{"text": "كيف أجدد جواز السفر؟"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var turn struct {
		User  models.ChatMessage `json:"user"`
		Reply models.ChatMessage `json:"reply"`
	}
	decode(t, w, &turn)
	if turn.Reply.Text != service.AssistantApology || turn.Reply.Sender != models.SenderBot {
		t.Fatalf("unexpected reply: %+v", turn.Reply)
	}

	w = doJSON(t, r, http.MethodGet, "/api/chat/sessions/"+view.SessionID, nil)
	var restored ChatSessionView
	decode(t, w, &restored)
	if len(restored.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(restored.Messages))
	}

	w = doJSON(t, r, http.MethodDelete, "/api/chat/sessions/"+view.SessionID, nil)
	decode(t, w, &restored)
	if len(restored.Messages) != 1 {
		t.Fatalf("expected reset to seed, got %d", len(restored.Messages))
	}
}

func TestChatEmptyMessage(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	view := createSession(t, r)
	w := doJSON(t, r, http.MethodPost, "/api/chat/sessions/"+view.SessionID+"/messages", gin.H{"text": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChatUnknownSession(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	for _, id := range []string{"nope", "0b6f2f8e-8d0c-4f65-9a53-6a3f5d1f6b7e"} {
		w := doJSON(t, r, http.MethodGet, "/api/chat/sessions/"+id, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", id, w.Code)
		}
	}
}

func uploadFile(t *testing.T, r http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAttachFileAndSend(t *testing.T) {
	h, r := newTestHandler(ai.StubBackend{})
	h.MaxAttachmentBytes = 64
	view := createSession(t, r)
	base := "/api/chat/sessions/" + view.SessionID

	w := uploadFile(t, r, base+"/attachment", "big.pdf", bytes.Repeat([]byte("x"), 65))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}

	w = uploadFile(t, r, base+"/attachment", "note.txt", []byte("رقم المعاملة 1234"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, base+"/messages", gin.H{"text": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var turn struct {
		User  models.ChatMessage `json:"user"`
		Reply models.ChatMessage `json:"reply"`
	}
	decode(t, w, &turn)
	if !strings.Contains(turn.User.Text, "note.txt") {
		t.Fatalf("unexpected user text %q", turn.User.Text)
	}

	w = doJSON(t, r, http.MethodDelete, base+"/attachment", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestSummarizeArticle(t *testing.T) {
	_, r := newTestHandler(ai.StubBackend{})
	w := doJSON(t, r, http.MethodPost, "/api/articles/summarize", gin.H{"title": "التحول الرقمي", "text": "نص المقال"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		Summary string `json:"summary"`
	}
	decode(t, w, &out)
	if out.Summary != ai.StubSummary {
		t.Fatalf("unexpected summary %q", out.Summary)
	}

	w = doJSON(t, r, http.MethodPost, "/api/articles/summarize", gin.H{"title": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
