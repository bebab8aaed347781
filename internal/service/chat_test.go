package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/egov_portal/backend/internal/ai"
	"github.com/egov_portal/backend/internal/conversation"
	"github.com/egov_portal/backend/internal/models"
)

// blockingBackend holds Converse open until release is closed.
type blockingBackend struct {
	ai.StubBackend
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingBackend) Converse(ctx context.Context, req ai.ConverseRequest) (string, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return "تم", nil
}

type unreadableStorage struct{ *conversation.MemoryStorage }

func (u unreadableStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("redis: connection refused")
}

func newChat(backend ai.Backend) (*ChatService, *conversation.MemoryStorage) {
	store := conversation.NewMemoryStorage()
	gw := NewAssistantGateway(backend, time.Second, zerolog.Nop())
	return NewChatService(gw, store, 0, zerolog.Nop()), store
}

func TestChatTurnFailureAppendsApology(t *testing.T) {
	ctx := context.Background()
	b := new(mockBackend)
	b.On("Converse", mock.Anything, mock.Anything).Return("", errors.New("503 service unavailable"))
	chat, _ := newChat(b)

	id, initial, err := chat.Create(ctx)
	require.NoError(t, err)

	user, bot, err := chat.Turn(ctx, id, "أريد تجديد رخصة القيادة")
	require.NoError(t, err)
	assert.Equal(t, models.SenderUser, user.Sender)
	assert.Equal(t, models.SenderBot, bot.Sender)
	assert.Equal(t, AssistantApology, bot.Text)

	after, err := chat.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, after, len(initial)+2)
}

func TestChatTurnSendsHistoryBeforeUserMessage(t *testing.T) {
	ctx := context.Background()
	b := new(mockBackend)
	var requests []ai.ConverseRequest
	b.On("Converse", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		requests = append(requests, args.Get(1).(ai.ConverseRequest))
	}).Return("رد", nil)
	chat, _ := newChat(b)

	id, _, err := chat.Create(ctx)
	require.NoError(t, err)
	_, _, err = chat.Turn(ctx, id, "سؤال أول")
	require.NoError(t, err)
	_, _, err = chat.Turn(ctx, id, "سؤال ثان")
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].History)
	assert.Equal(t, "سؤال أول", requests[0].Message)
	assert.Equal(t, AssistantSystemInstruction, requests[0].System)
	assert.Equal(t, []models.BackendTurn{
		{Role: models.RoleUser, Text: "سؤال أول"},
		{Role: models.RoleModel, Text: "رد"},
	}, requests[1].History)
	assert.Equal(t, "سؤال ثان", requests[1].Message)
}

func TestChatTurnConsumesAttachment(t *testing.T) {
	ctx := context.Background()
	b := new(mockBackend)
	var got ai.ConverseRequest
	b.On("Converse", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(ai.ConverseRequest)
	}).Return("قرأت المستند", nil)
	chat, _ := newChat(b)

	id, _, err := chat.Create(ctx)
	require.NoError(t, err)
	att := models.Attachment{Name: "id.png", MimeType: "image/png", Data: "AAAA"}
	require.NoError(t, chat.Attach(ctx, id, att, 3))

	user, _, err := chat.Turn(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, AttachmentOnlyInstruction, got.Message)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, att, *got.Attachment)
	assert.Contains(t, user.Text, "id.png")

	_, _, err = chat.Turn(ctx, id, "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatAttachTooLargeKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	chat, _ := newChat(ai.StubBackend{})
	id, _, err := chat.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, chat.Attach(ctx, id, models.Attachment{Name: "small.pdf"}, 1024))
	err = chat.Attach(ctx, id, models.Attachment{Name: "big.pdf"}, conversation.DefaultMaxAttachmentBytes+1)
	assert.ErrorIs(t, err, conversation.ErrAttachmentTooLarge)

	require.NoError(t, chat.Detach(ctx, id))
	_, _, err = chat.Turn(ctx, id, " ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatRejectsConcurrentTurn(t *testing.T) {
	ctx := context.Background()
	b := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
	chat, _ := newChat(b)
	id, _, err := chat.Create(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := chat.Turn(ctx, id, "أول")
		done <- err
	}()
	<-b.started

	_, _, err = chat.Turn(ctx, id, "ثان")
	assert.ErrorIs(t, err, ErrTurnInProgress)

	close(b.release)
	require.NoError(t, <-done)
	msgs, err := chat.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestChatResetPurgesStorage(t *testing.T) {
	ctx := context.Background()
	chat, store := newChat(ai.StubBackend{})
	id, _, err := chat.Create(ctx)
	require.NoError(t, err)
	_, _, err = chat.Turn(ctx, id, "مرحبا")
	require.NoError(t, err)

	msgs, err := chat.Reset(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderBot, msgs[0].Sender)
	_, ok, _ := store.Get(ctx, id)
	assert.False(t, ok)
}

func TestChatRestoresFromStorage(t *testing.T) {
	ctx := context.Background()
	store := conversation.NewMemoryStorage()
	gw := NewAssistantGateway(ai.StubBackend{}, time.Second, zerolog.Nop())
	first := NewChatService(gw, store, 0, zerolog.Nop())
	id, _, err := first.Create(ctx)
	require.NoError(t, err)
	_, _, err = first.Turn(ctx, id, "مرحبا")
	require.NoError(t, err)

	second := NewChatService(gw, store, 0, zerolog.Nop())
	msgs, err := second.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestChatAttachDuringTurnIsKept(t *testing.T) {
	ctx := context.Background()
	b := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
	chat, _ := newChat(b)
	id, _, err := chat.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, chat.Attach(ctx, id, models.Attachment{Name: "first.pdf"}, 10))

	done := make(chan error, 1)
	go func() {
		_, _, err := chat.Turn(ctx, id, "راجع الملف")
		done <- err
	}()
	<-b.started

	require.NoError(t, chat.Attach(ctx, id, models.Attachment{Name: "next.pdf"}, 10))
	close(b.release)
	require.NoError(t, <-done)

	pending := chat.sessions[id].session.Attachment()
	require.NotNil(t, pending)
	assert.Equal(t, "next.pdf", pending.Name)
}

func TestChatResetRefusedDuringTurn(t *testing.T) {
	ctx := context.Background()
	b := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
	chat, store := newChat(b)
	id, _, err := chat.Create(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := chat.Turn(ctx, id, "سؤال")
		done <- err
	}()
	<-b.started

	_, err = chat.Reset(ctx, id)
	assert.ErrorIs(t, err, ErrTurnInProgress)

	close(b.release)
	require.NoError(t, <-done)

	msgs, err := chat.Reset(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, conversation.IsSeed(msgs[0]))
	_, ok, _ := store.Get(ctx, id)
	assert.False(t, ok)
}

func TestChatSweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	b := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
	chat, _ := newChat(b)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	chat.Now = func() time.Time { return now }
	chat.IdleTTL = time.Minute

	idle, _, err := chat.Create(ctx)
	require.NoError(t, err)
	busy, _, err := chat.Create(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := chat.Turn(ctx, busy, "سؤال")
		done <- err
	}()
	<-b.started

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, chat.Sweep())
	_, err = chat.History(ctx, idle)
	assert.ErrorIs(t, err, ErrSessionNotFound, "unpersisted session is gone after eviction")

	close(b.release)
	require.NoError(t, <-done)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, chat.Sweep())
	assert.Empty(t, chat.sessions)

	msgs, err := chat.History(ctx, busy)
	require.NoError(t, err)
	assert.Len(t, msgs, 3, "persisted session is restored after eviction")
}

func TestChatReadFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	gw := NewAssistantGateway(ai.StubBackend{}, time.Second, zerolog.Nop())
	chat := NewChatService(gw, unreadableStorage{conversation.NewMemoryStorage()}, 0, zerolog.Nop())

	_, err := chat.History(ctx, "0b6f2f8e-8d0c-4f65-9a53-6a3f5d1f6b7e")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, chat.sessions)

	id, msgs, err := chat.Create(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Contains(t, chat.sessions, id)
}

func TestChatUnknownSessionID(t *testing.T) {
	ctx := context.Background()
	chat, _ := newChat(ai.StubBackend{})
	_, err := chat.History(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	for i := 0; i < 50; i++ {
		id := uuid.NewString()
		_, err := chat.History(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = chat.Reset(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, chat.Attach(ctx, id, models.Attachment{Name: "a.pdf"}, 1), ErrSessionNotFound)
		_, _, err = chat.Turn(ctx, id, "مرحبا")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}
	assert.Empty(t, chat.sessions)
}
