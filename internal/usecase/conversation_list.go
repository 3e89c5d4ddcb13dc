package usecase

import (
	"sort"

	"portfoliochat/internal/domain/entity"
)

// MergeConversations builds the conversation list shown to a user: broadcast
// rooms first in the order given, then the user's own conversations by
// lastMessageAt, newest first. A room that also shows up in userConvs is
// listed once, pinned.
func MergeConversations(userConvs, broadcastRooms []*entity.Conversation) []*entity.Conversation {
	out := make([]*entity.Conversation, 0, len(userConvs)+len(broadcastRooms))
	pinned := make(map[string]bool, len(broadcastRooms))
	for _, room := range broadcastRooms {
		if room == nil || pinned[room.ID] {
			continue
		}
		pinned[room.ID] = true
		out = append(out, room)
	}

	rest := make([]*entity.Conversation, 0, len(userConvs))
	for _, conv := range userConvs {
		if conv != nil && !pinned[conv.ID] {
			rest = append(rest, conv)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if !rest[i].LastMessageAt.Equal(rest[j].LastMessageAt) {
			return rest[i].LastMessageAt.After(rest[j].LastMessageAt)
		}
		return rest[i].ID < rest[j].ID
	})
	return append(out, rest...)
}
