package usecase

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliochat/internal/adapter/repository/memory"
	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/infrastructure/presence"
	"portfoliochat/internal/infrastructure/ratelimit"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type harness struct {
	store    *memory.Store
	presence *presence.MemoryPresence
	uc       *ChatUseCase
}

func newHarness(t *testing.T, policies map[string]ratelimit.Policy) *harness {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(&entity.User{UID: "u1", DisplayName: "Una"})
	store.PutUser(&entity.User{UID: "u2", DisplayName: "Umar", IsOnline: true})
	store.PutUser(&entity.User{UID: "u3", DisplayName: "Vera"})

	p := presence.NewMemoryPresence(time.Minute)
	uc := NewChatUseCase(
		memory.NewConversationRepository(store),
		memory.NewMessageRepository(store),
		memory.NewUserRepository(store),
		memory.NewReportRepository(store),
		p,
		ratelimit.NewRateLimiterWithPolicies(policies),
		ChatOptions{GeneralChatID: "general_chat", GeneralChatTitle: "General Chat", PageSize: 50},
	)
	_, err := uc.GetGeneralChat(context.Background())
	require.NoError(t, err)
	return &harness{store: store, presence: p, uc: uc}
}

func messageTexts(msgs []*entity.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestConcreteDirectConversationScenario(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	conv, err := h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "dm_u1_u2", conv.ID)

	_, err = h.uc.SendMessageToConversation(ctx, conv.ID, "u1", "hello")
	require.NoError(t, err)
	got, _, err := h.uc.GetConversation(ctx, conv.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.LastMessage.TextPreview)
	assert.Equal(t, 1, got.Unread("u2"))

	_, err = h.uc.SendMessageToConversation(ctx, conv.ID, "u2", "hi back")
	require.NoError(t, err)
	got, _, err = h.uc.GetConversation(ctx, conv.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Unread("u1"))
	assert.Equal(t, 1, got.Unread("u2"))

	require.NoError(t, h.uc.MarkAsRead(ctx, conv.ID, "u1"))
	got, hasMessages, err := h.uc.GetConversation(ctx, conv.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Unread("u1"))
	assert.True(t, hasMessages)

	snapshots := make(chan []string, 4)
	unsubscribe, err := h.uc.ListenToMessages(ctx, conv.ID, func(msgs []*entity.Message) {
		snapshots <- messageTexts(msgs)
	})
	require.NoError(t, err)
	defer unsubscribe()
	select {
	case texts := <-snapshots:
		assert.Equal(t, []string{"hello", "hi back"}, texts)
	case <-time.After(time.Second):
		t.Fatal("no message snapshot")
	}
}

func TestValidationHappensBeforeStoreCalls(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.uc.SendMessageToConversation(ctx, "does-not-exist", "u1", "   ")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.SendMessageToConversation(ctx, "", "u1", "hi")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.CreateDMConversation(ctx, "u1", "")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.CreateDMConversation(ctx, "u1", "u1")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	err = h.uc.EditMessage(ctx, "c", "m", "u1", "")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.ReportMessage(ctx, "c", "m", "u1", " ")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.ListenToConversations(ctx, "", func([]*entity.Conversation) {})
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestEmptyCallerIsRejectedBeforeStoreCalls(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv, err := h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	msgID, err := h.uc.SendMessageToConversation(ctx, conv.ID, "u1", "hello")
	require.NoError(t, err)

	_, _, err = h.uc.GetConversation(ctx, conv.ID, "")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.RecentMessages(ctx, conv.ID, "", 10)
	assert.True(t, errors.Is(err, errors.CodeValidation))
	err = h.uc.EditMessage(ctx, conv.ID, msgID, "", "changed")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	err = h.uc.DeleteMessage(ctx, conv.ID, msgID, " ")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	err = h.uc.DeleteConversation(ctx, conv.ID, "")
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = h.uc.ReportMessage(ctx, conv.ID, msgID, "", "spam")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	msgs, err := h.uc.RecentMessages(ctx, conv.ID, "u2", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.False(t, msgs[0].Deleted)
}

func TestOutsidersCannotUseDirectConversation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv, err := h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = h.uc.SendMessageToConversation(ctx, conv.ID, "u3", "intrude")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))
	err = h.uc.MarkAsRead(ctx, conv.ID, "u3")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))
	_, err = h.uc.RecentMessages(ctx, conv.ID, "u3", 10)
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))

	_, err = h.uc.SendMessageToConversation(ctx, "general_chat", "u3", "hello room")
	assert.NoError(t, err)
}

func TestCreateDMConversationIsIdempotentAndRateLimitsCreation(t *testing.T) {
	h := newHarness(t, map[string]ratelimit.Policy{
		ratelimit.ActionCreateChat: {Burst: 1, Every: time.Hour},
	})
	ctx := context.Background()

	first, err := h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	again, err := h.uc.CreateDMConversation(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)

	_, err = h.uc.CreateDMConversation(ctx, "u1", "u3")
	assert.True(t, errors.Is(err, errors.CodeTooManyRequests))
}

func TestRecentMessagesDerivesReadStatus(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv, err := h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = h.uc.SendMessageToConversation(ctx, conv.ID, "u1", "first")
	require.NoError(t, err)
	require.NoError(t, h.uc.MarkAsRead(ctx, conv.ID, "u2"))
	_, err = h.uc.SendMessageToConversation(ctx, conv.ID, "u1", "second")
	require.NoError(t, err)

	msgs, err := h.uc.RecentMessages(ctx, conv.ID, "u1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.MessageRead, msgs[0].Status)
	assert.Equal(t, entity.MessageSent, msgs[1].Status)
}

func TestEditDeleteAndReport(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id, err := h.uc.SendMessageToConversation(ctx, "general_chat", "u1", "typo")
	require.NoError(t, err)

	err = h.uc.EditMessage(ctx, "general_chat", id, "u2", "nope")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))
	require.NoError(t, h.uc.EditMessage(ctx, "general_chat", id, "u1", "fixed"))

	report, err := h.uc.ReportMessage(ctx, "general_chat", id, "u2", "spam")
	require.NoError(t, err)
	assert.Equal(t, entity.ReportPending, report.Status)
	assert.Len(t, h.store.Reports(), 1)

	require.NoError(t, h.uc.DeleteMessage(ctx, "general_chat", id, "u1"))
	msgs, err := h.uc.RecentMessages(ctx, "general_chat", "u2", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.DeletedPlaceholder, msgs[0].Text)
}

func TestDeleteConversationRequiresCreator(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv, err := h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	err = h.uc.DeleteConversation(ctx, conv.ID, "u2")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))
	require.NoError(t, h.uc.DeleteConversation(ctx, conv.ID, "u1"))
	_, _, err = h.uc.GetConversation(ctx, conv.ID, "u1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSearchAndListUsers(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	users, err := h.uc.SearchForUsers(ctx, "U", "u1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].UID)

	users, err = h.uc.SearchForUsers(ctx, "", "u1")
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = h.uc.ListUsers(ctx, "u1", 500)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].UID)
}

func TestListenToConversationsMergesGeneralRoom(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var latest []string
	unsubscribe, err := h.uc.ListenToConversations(ctx, "u1", func(convs []*entity.Conversation) {
		mu.Lock()
		latest = ids(convs)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	current := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return latest
	}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"general_chat"}, current())
	}, time.Second, 5*time.Millisecond)

	_, err = h.uc.CreateDMConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = h.uc.CreateDMConversation(ctx, "u1", "u3")
	require.NoError(t, err)
	_, err = h.uc.SendMessageToConversation(ctx, "dm_u1_u2", "u2", "ping")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"general_chat", "dm_u1_u2", "dm_u1_u3"}, current())
	}, time.Second, 5*time.Millisecond)
}

func TestListenToOnlineUsers(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var online []string
	unsubscribe, err := h.uc.ListenToOnlineUsers(ctx, []string{"u2", "u3"}, func(uids []string) {
		mu.Lock()
		online = uids
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	h.uc.SetPresence(ctx, "u3", true)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return assert.ObjectsAreEqual([]string{"u3"}, online)
	}, time.Second, 5*time.Millisecond)
}
