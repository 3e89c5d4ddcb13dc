package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/pkg/errors"
)

type fixture struct {
	store    *Store
	convs    *conversationRepository
	messages *messageRepository
}

func newFixture(opts ...Option) *fixture {
	store := NewStore(opts...)
	return &fixture{
		store:    store,
		convs:    NewConversationRepository(store).(*conversationRepository),
		messages: NewMessageRepository(store).(*messageRepository),
	}
}

func texts(msgs []*entity.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestGetOrCreateDirectConcurrentCallersConverge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const callers = 16
	results := make([]*entity.Conversation, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "u2"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := f.convs.GetOrCreateDirect(ctx, a, b)
			require.NoError(t, err)
			results[i] = conv
		}(i)
	}
	wg.Wait()

	for _, conv := range results {
		assert.Equal(t, "dm_u1_u2", conv.ID)
		assert.Equal(t, results[0].CreatedAt, conv.CreatedAt)
		assert.Equal(t, results[0].CreatedBy, conv.CreatedBy)
	}
	assert.Len(t, f.store.conversations, 1)
}

func TestBroadcastRoomIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.convs.GetOrCreateBroadcastRoom(ctx, "general_chat", "General Chat")
	require.NoError(t, err)
	second, err := f.convs.GetOrCreateBroadcastRoom(ctx, "general_chat", "Other")
	require.NoError(t, err)

	assert.True(t, first.IsBroadcast())
	assert.True(t, first.Metadata.Pinned)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "General Chat", second.Metadata.Title)
}

func TestUnreadAccounting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := f.messages.Send(ctx, conv.ID, "a", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	got, err := f.convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.UnreadCounts["b"])
	assert.Equal(t, 0, got.UnreadCounts["a"])

	require.NoError(t, f.convs.MarkRead(ctx, conv.ID, "b"))
	require.NoError(t, f.convs.MarkRead(ctx, conv.ID, "b"))

	got, err = f.convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCounts["b"])
	assert.False(t, got.LastReadAt["b"].Before(got.LastMessage.CreatedAt))
}

func TestBroadcastUnreadIsLazy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, err := f.convs.GetOrCreateBroadcastRoom(ctx, "general_chat", "General Chat")
	require.NoError(t, err)

	require.NoError(t, f.convs.MarkRead(ctx, room.ID, "reader"))
	_, err = f.messages.Send(ctx, room.ID, "poster", "hi all")
	require.NoError(t, err)

	got, err := f.convs.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"reader": 1, "poster": 0}, got.UnreadCounts)
}

func TestSendValidationAndMissingConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.messages.Send(ctx, "nope", "a", "   ")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.messages.Send(ctx, "nope", "a", "hello")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSendIsAllOrNothing(t *testing.T) {
	failing := false
	f := newFixture(WithCommitHook(func(op string) error {
		if failing && op == "message.send" {
			return fmt.Errorf("unavailable")
		}
		return nil
	}))
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	failing = true
	_, err = f.messages.Send(ctx, conv.ID, "a", "lost")
	assert.True(t, errors.Is(err, errors.CodeSendFailed))

	got, err := f.convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastMessage)
	assert.Equal(t, 0, got.UnreadCounts["b"])
	exists, err := f.messages.Exists(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMessageOrderingRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	for _, text := range []string{"a", "b", "c"} {
		_, err := f.messages.Send(ctx, conv.ID, "a", text)
		require.NoError(t, err)
	}

	recent, err := f.messages.Recent(ctx, conv.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, texts(recent))

	window, err := f.messages.Recent(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, texts(window))

	got := make(chan []string, 4)
	unsubscribe := f.messages.Subscribe(ctx, conv.ID, 50, func(msgs []*entity.Message) {
		got <- texts(msgs)
	})
	defer unsubscribe()

	select {
	case snapshot := <-got:
		assert.Equal(t, []string{"a", "b", "c"}, snapshot)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestEditAndDeleteAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)
	id, err := f.messages.Send(ctx, conv.ID, "a", "original")
	require.NoError(t, err)

	err = f.messages.Edit(ctx, conv.ID, id, "hijack", "b")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))
	err = f.messages.SoftDelete(ctx, conv.ID, id, "b")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))
	err = f.messages.Edit(ctx, conv.ID, "missing", "x", "a")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	require.NoError(t, f.messages.Edit(ctx, conv.ID, id, "  fixed  ", "a"))
	msgs, err := f.messages.Recent(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "fixed", msgs[0].Text)
	assert.Equal(t, entity.MessageEdited, msgs[0].Status)
	assert.NotNil(t, msgs[0].EditedAt)

	require.NoError(t, f.messages.SoftDelete(ctx, conv.ID, id, "a"))
	require.NoError(t, f.messages.SoftDelete(ctx, conv.ID, id, "a"))

	err = f.messages.Edit(ctx, conv.ID, id, "resurrect", "a")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSoftDeleteIsIrreversible(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)
	id, err := f.messages.Send(ctx, conv.ID, "a", "secret")
	require.NoError(t, err)
	require.NoError(t, f.messages.SoftDelete(ctx, conv.ID, id, "a"))

	got := make(chan []*entity.Message, 4)
	unsubscribe := f.messages.Subscribe(ctx, conv.ID, 10, func(msgs []*entity.Message) { got <- msgs })
	defer unsubscribe()

	select {
	case msgs := <-got:
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].Deleted)
		assert.Equal(t, entity.DeletedPlaceholder, msgs[0].Text)
		assert.NotNil(t, msgs[0].DeletedAt)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestDeleteConversationCascadeIsAtomic(t *testing.T) {
	failDelete := true
	f := newFixture(WithCommitHook(func(op string) error {
		if failDelete && op == "conversation.delete" {
			return fmt.Errorf("connection reset")
		}
		return nil
	}))
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "owner", "guest")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.messages.Send(ctx, conv.ID, "guest", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	err = f.convs.Delete(ctx, conv.ID, "owner")
	assert.True(t, errors.Is(err, errors.CodeWriteFailed))
	_, err = f.convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	msgs, err := f.messages.Recent(ctx, conv.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	failDelete = false
	err = f.convs.Delete(ctx, conv.ID, "guest")
	assert.True(t, errors.Is(err, errors.CodePermissionDenied))

	require.NoError(t, f.convs.Delete(ctx, conv.ID, "owner"))
	_, err = f.convs.Get(ctx, conv.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	exists, err := f.messages.Exists(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = f.convs.Delete(ctx, conv.ID, "owner")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSubscribeByParticipantFollowsChanges(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	snapshots := make(chan []*entity.Conversation, 16)
	unsubscribe := f.convs.SubscribeByParticipant(ctx, "u1", func(c []*entity.Conversation) { snapshots <- c })
	defer unsubscribe()

	_, err := f.convs.GetOrCreateDirect(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = f.convs.GetOrCreateDirect(ctx, "u3", "u4")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for {
			select {
			case c := <-snapshots:
				if len(c) == 1 && c[0].ID == "dm_u1_u2" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.convs.GetOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	unsubscribe := f.messages.Subscribe(ctx, conv.ID, 10, func([]*entity.Message) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	mu.Lock()
	before := calls
	mu.Unlock()

	_, err = f.messages.Send(ctx, conv.ID, "a", "after")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, calls)
}
