package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/pkg/errors"
)

func seedUsers(store *Store) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.PutUser(&entity.User{UID: "u1", DisplayName: "Alice", LastSeenAt: now.Add(-time.Hour)})
	store.PutUser(&entity.User{UID: "u2", DisplayName: "Alan", IsOnline: true, LastSeenAt: now.Add(-2 * time.Hour)})
	store.PutUser(&entity.User{UID: "u3", DisplayName: "Bob", LastSeenAt: now})
	store.PutUser(&entity.User{UID: "u4", DisplayName: "alfred", LastSeenAt: now})
}

func TestUserSearchIsPrefixAndExcludesCaller(t *testing.T) {
	store := NewStore()
	seedUsers(store)
	repo := NewUserRepository(store)
	ctx := context.Background()

	users, err := repo.Search(ctx, "Al", "u1", 20)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].UID)

	users, err = repo.Search(ctx, "  ", "u1", 20)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserListOrdersOnlineThenRecent(t *testing.T) {
	store := NewStore()
	seedUsers(store)
	repo := NewUserRepository(store)

	users, err := repo.List(context.Background(), "u4", 10)
	require.NoError(t, err)

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.UID
	}
	assert.Equal(t, []string{"u2", "u3", "u1"}, ids)

	users, err = repo.List(context.Background(), "u4", 2)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserGetByID(t *testing.T) {
	store := NewStore()
	seedUsers(store)
	repo := NewUserRepository(store)

	user, err := repo.GetByID(context.Background(), "u3")
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.DisplayName)

	_, err = repo.GetByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestReportCreateStampsReference(t *testing.T) {
	store := NewStore()
	repo := NewReportRepository(store)

	report := &entity.Report{ConversationID: "general_chat", MessageID: "m1", ReporterID: "u1", Reason: "spam"}
	require.NoError(t, repo.Create(context.Background(), report))

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, entity.ReportPending, report.Status)
	assert.Equal(t, "conversations/general_chat/messages/m1", report.MessageRef)
	assert.Len(t, store.Reports(), 1)
}
