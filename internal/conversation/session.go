// Package conversation holds the per-user chat transcript, its persistence and
// the pending attachment for the next turn.
package conversation

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/models"
)

const (
	// WelcomeID is reserved for the seed greeting; it is never sent to the backend.
	WelcomeID = "welcome"

	WelcomeText = "مرحباً بك في البوابة الإلكترونية للحكومة السورية. أنا المساعد الذكي، كيف يمكنني مساعدتك اليوم؟"

	DefaultMaxAttachmentBytes int64 = 5 << 20
)

var ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageID returns a time-ordered ULID.
func NewMessageID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

func IsSeed(m models.ChatMessage) bool {
	return m.ID == WelcomeID
}

// BackendHistory maps a transcript to backend turns. The seed greeting is
// skipped, and so is any bot message ahead of the first user message.
func BackendHistory(messages []models.ChatMessage) []models.BackendTurn {
	out := make([]models.BackendTurn, 0, len(messages))
	for _, m := range messages {
		if IsSeed(m) {
			continue
		}
		role := models.RoleUser
		if m.Sender == models.SenderBot {
			role = models.RoleModel
		}
		if role == models.RoleModel && len(out) == 0 {
			continue
		}
		out = append(out, models.BackendTurn{Role: role, Text: m.Text})
	}
	return out
}

type Session struct {
	key      string
	storage  Storage
	logger   zerolog.Logger
	maxBytes int64
	now      func() time.Time

	mu         sync.RWMutex
	messages   []models.ChatMessage
	attachment *models.Attachment
}

func NewSession(key string, storage Storage, maxAttachmentBytes int64, logger zerolog.Logger) *Session {
	if maxAttachmentBytes <= 0 {
		maxAttachmentBytes = DefaultMaxAttachmentBytes
	}
	return &Session{
		key:      key,
		storage:  storage,
		logger:   logger.With().Str("chat_session", key).Logger(),
		maxBytes: maxAttachmentBytes,
		now:      time.Now,
	}
}

func (s *Session) welcome() models.ChatMessage {
	return models.ChatMessage{ID: WelcomeID, Text: WelcomeText, Sender: models.SenderBot, Timestamp: s.now().UTC()}
}

// Initialize restores the persisted transcript and reports whether a record
// existed. A missing, empty or unreadable record leaves a fresh seed and the
// stale record is removed. A failed read also leaves a seed, and the error is
// returned so callers do not overwrite history they could not load.
func (s *Session) Initialize(ctx context.Context) (bool, error) {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.mu.Lock()
		s.messages = []models.ChatMessage{s.welcome()}
		s.mu.Unlock()
		return false, fmt.Errorf("read chat history: %w", err)
	}
	var restored []models.ChatMessage
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &restored); err != nil {
			s.logger.Warn().Err(err).Msg("chat history corrupted, reseeding")
			restored = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(restored) > 0 {
		s.messages = restored
		return true, nil
	}
	if ok {
		if err := s.storage.Delete(ctx, s.key); err != nil {
			s.logger.Warn().Err(err).Msg("chat history delete failed")
		}
	}
	s.messages = []models.ChatMessage{s.welcome()}
	return ok, nil
}

func (s *Session) Append(ctx context.Context, msg models.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snapshot := append([]models.ChatMessage(nil), s.messages...)
	s.mu.Unlock()
	s.persist(ctx, snapshot)
}

// Reset clears the transcript back to the seed, drops the pending attachment
// and purges the persisted record.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.messages = []models.ChatMessage{s.welcome()}
	s.attachment = nil
	s.mu.Unlock()
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Msg("chat history delete failed")
	}
}

func (s *Session) persist(ctx context.Context, messages []models.ChatMessage) {
	b, err := json.Marshal(messages)
	if err != nil {
		s.logger.Error().Err(err).Msg("chat history encode failed")
		return
	}
	if err := s.storage.Set(ctx, s.key, string(b)); err != nil {
		s.logger.Warn().Err(err).Msg("chat history write failed")
	}
}

func (s *Session) Messages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

func (s *Session) ToBackendHistory() []models.BackendTurn {
	return BackendHistory(s.Messages())
}

// SetAttachment replaces the pending attachment. size is the decoded byte size.
func (s *Session) SetAttachment(a models.Attachment, size int64) error {
	if size > s.maxBytes {
		return ErrAttachmentTooLarge
	}
	s.mu.Lock()
	s.attachment = &a
	s.mu.Unlock()
	return nil
}

func (s *Session) Attachment() *models.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.attachment == nil {
		return nil
	}
	a := *s.attachment
	return &a
}

// TakeAttachment returns the pending attachment and clears it.
func (s *Session) TakeAttachment() *models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.attachment
	s.attachment = nil
	return a
}

func (s *Session) ClearAttachment() {
	s.mu.Lock()
	s.attachment = nil
	s.mu.Unlock()
}
