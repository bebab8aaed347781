package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/conversation"
	"github.com/egov_portal/backend/internal/metrics"
	"github.com/egov_portal/backend/internal/models"
)

var (
	ErrTurnInProgress  = errors.New("chat turn already in progress")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSessionNotFound = errors.New("chat session not found")
)

// DefaultIdleTTL is how long an unused session or draft stays in memory.
const DefaultIdleTTL = time.Hour

type chatEntry struct {
	session *conversation.Session

	mu       sync.Mutex
	state    RequestState
	lastUsed time.Time
}

// begin moves the entry to Pending; false when a turn is already running.
func (e *chatEntry) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePending {
		return false
	}
	e.state = StatePending
	return true
}

func (e *chatEntry) end() {
	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()
}

func (e *chatEntry) touch(now time.Time) {
	e.mu.Lock()
	e.lastUsed = now
	e.mu.Unlock()
}

func (e *chatEntry) idleBefore(cutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != StatePending && e.lastUsed.Before(cutoff)
}

// ChatService runs assistant conversations for many clients. Sessions are
// opened by Create and addressed by uuid; an evicted session is restored from
// storage when its history was persisted.
type ChatService struct {
	Gateway            *AssistantGateway
	Storage            conversation.Storage
	MaxAttachmentBytes int64
	IdleTTL            time.Duration
	Logger             zerolog.Logger
	Now                func() time.Time

	mu       sync.Mutex
	sessions map[string]*chatEntry
}

func NewChatService(gateway *AssistantGateway, storage conversation.Storage, maxAttachmentBytes int64, logger zerolog.Logger) *ChatService {
	return &ChatService{
		Gateway:            gateway,
		Storage:            storage,
		MaxAttachmentBytes: maxAttachmentBytes,
		IdleTTL:            DefaultIdleTTL,
		Logger:             logger,
		Now:                time.Now,
		sessions:           map[string]*chatEntry{},
	}
}

func (s *ChatService) cached(id string) (*chatEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if ok {
		e.touch(s.Now())
	}
	return e, ok
}

// register caches sess under id unless another request got there first.
func (s *ChatService) register(id string, sess *conversation.Session) *chatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.touch(s.Now())
		return e
	}
	e := &chatEntry{session: sess, state: StateIdle, lastUsed: s.Now()}
	s.sessions[id] = e
	return e
}

func (s *ChatService) entry(ctx context.Context, id string) (*chatEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	if e, ok := s.cached(id); ok {
		return e, nil
	}
	sess := conversation.NewSession(id, s.Storage, s.MaxAttachmentBytes, s.Logger)
	found, err := sess.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return s.register(id, sess), nil
}

// Create opens a new session seeded with the welcome message.
func (s *ChatService) Create(ctx context.Context) (string, []models.ChatMessage, error) {
	id := uuid.NewString()
	sess := conversation.NewSession(id, s.Storage, s.MaxAttachmentBytes, s.Logger)
	if _, err := sess.Initialize(ctx); err != nil {
		s.Logger.Warn().Err(err).Str("chat_session", id).Msg("chat storage unavailable, starting unpersisted")
	}
	e := s.register(id, sess)
	return id, e.session.Messages(), nil
}

func (s *ChatService) History(ctx context.Context, id string) ([]models.ChatMessage, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.session.Messages(), nil
}

// Reset is refused while a turn is running so the pending reply cannot land
// in the fresh transcript.
func (s *ChatService) Reset(ctx context.Context, id string) ([]models.ChatMessage, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.begin() {
		return nil, ErrTurnInProgress
	}
	defer e.end()
	e.session.Reset(ctx)
	return e.session.Messages(), nil
}

func (s *ChatService) Attach(ctx context.Context, id string, a models.Attachment, size int64) error {
	e, err := s.entry(ctx, id)
	if err != nil {
		return err
	}
	return e.session.SetAttachment(a, size)
}

func (s *ChatService) Detach(ctx context.Context, id string) error {
	e, err := s.entry(ctx, id)
	if err != nil {
		return err
	}
	e.session.ClearAttachment()
	return nil
}

// Sweep drops sessions idle for longer than IdleTTL. Sessions with a turn in
// flight are kept.
func (s *ChatService) Sweep() int {
	cutoff := s.Now().Add(-s.IdleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		if e.idleBefore(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Turn appends the user's message, asks the assistant and appends the reply.
// The backend history is taken before the user message is added. The pending
// attachment is consumed when the turn starts.
func (s *ChatService) Turn(ctx context.Context, id, text string) (models.ChatMessage, models.ChatMessage, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" && e.session.Attachment() == nil {
		return models.ChatMessage{}, models.ChatMessage{}, ErrEmptyMessage
	}
	if !e.begin() {
		return models.ChatMessage{}, models.ChatMessage{}, ErrTurnInProgress
	}
	defer e.end()

	attachment := e.session.TakeAttachment()
	if text == "" && attachment == nil {
		return models.ChatMessage{}, models.ChatMessage{}, ErrEmptyMessage
	}

	history := e.session.ToBackendHistory()

	userText := text
	if userText == "" {
		userText = fmt.Sprintf("[مرفق: %s]", attachment.Name)
	}
	userMsg := models.ChatMessage{
		ID:        conversation.NewMessageID(s.Now()),
		Text:      userText,
		Sender:    models.SenderUser,
		Timestamp: s.Now().UTC(),
	}
	e.session.Append(ctx, userMsg)

	reply := s.Gateway.Send(ctx, text, history, attachment)
	outcome := "ok"
	if reply == AssistantApology {
		outcome = "apology"
	}
	metrics.ChatTurns.WithLabelValues(outcome).Inc()

	botMsg := models.ChatMessage{
		ID:        conversation.NewMessageID(s.Now()),
		Text:      reply,
		Sender:    models.SenderBot,
		Timestamp: s.Now().UTC(),
	}
	e.session.Append(ctx, botMsg)
	return userMsg, botMsg, nil
}
