package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"portfoliochat/internal/domain/entity"
)

func conv(id string, at time.Time) *entity.Conversation {
	return &entity.Conversation{ID: id, LastMessageAt: at, Type: entity.ConversationDirect}
}

func ids(convs []*entity.Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.ID
	}
	return out
}

func TestMergeConversationsPinsBroadcastFirst(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	room := &entity.Conversation{ID: "general_chat", Type: entity.ConversationGroup, LastMessageAt: base.Add(-24 * time.Hour)}

	merged := MergeConversations(
		[]*entity.Conversation{conv("dm_a_b", base), conv("dm_a_c", base.Add(time.Minute)), conv("dm_a_d", base.Add(-time.Minute))},
		[]*entity.Conversation{room},
	)

	assert.Equal(t, []string{"general_chat", "dm_a_c", "dm_a_b", "dm_a_d"}, ids(merged))
}

func TestMergeConversationsDeduplicatesAndSkipsNil(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	room := &entity.Conversation{ID: "general_chat", Type: entity.ConversationGroup}

	merged := MergeConversations(
		[]*entity.Conversation{conv("general_chat", base), nil, conv("dm_a_b", base)},
		[]*entity.Conversation{nil, room, room},
	)
	assert.Equal(t, []string{"general_chat", "dm_a_b"}, ids(merged))
	assert.Same(t, room, merged[0])
}

func TestMergeConversationsTieBreaksByID(t *testing.T) {
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	merged := MergeConversations([]*entity.Conversation{conv("dm_b", at), conv("dm_a", at)}, nil)
	assert.Equal(t, []string{"dm_a", "dm_b"}, ids(merged))
}

func TestMergeConversationsEmpty(t *testing.T) {
	assert.Empty(t, MergeConversations(nil, nil))
}
