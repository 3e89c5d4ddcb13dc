package repository

import (
	"strings"
	"time"

	"portfoliochat/internal/domain/entity"
)

// Stored documents may be written by older web clients and miss fields.
// Defaults are applied here, once, so nothing past the adapter sees a
// partially shaped record.

func decodeConversation(id string, data map[string]interface{}) *entity.Conversation {
	conv := &entity.Conversation{
		ID:           id,
		Participants: getStringSlice(data, "participants"),
		Type:         entity.ParseConversationType(getString(data, "type")),
		CreatedAt:    getTime(data, "createdAt"),
		CreatedBy:    getString(data, "createdBy"),
		UnreadCounts: getIntMap(data, "unreadCounts"),
		LastReadAt:   getTimeMap(data, "lastReadAt"),
	}

	conv.LastMessageAt = getTime(data, "lastMessageAt")
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = conv.CreatedAt
	}

	if lm, ok := data["lastMessage"].(map[string]interface{}); ok {
		conv.LastMessage = &entity.LastMessage{
			TextPreview: getString(lm, "textPreview"),
			SenderID:    getString(lm, "senderUid"),
			CreatedAt:   getTime(lm, "createdAt"),
		}
		if conv.LastMessage.CreatedAt.IsZero() {
			conv.LastMessage.CreatedAt = conv.LastMessageAt
		}
	}

	if md, ok := data["metadata"].(map[string]interface{}); ok {
		conv.Metadata = entity.ConversationMetadata{
			Archived: getBool(md, "archived"),
			Pinned:   getBool(md, "pinned"),
			Title:    getString(md, "title"),
			Admins:   getStringSlice(md, "admins"),
		}
	}

	return conv
}

func decodeMessage(conversationID, id string, data map[string]interface{}) *entity.Message {
	msg := &entity.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       getString(data, "senderUid"),
		Text:           getString(data, "text"),
		CreatedAt:      getTime(data, "createdAt"),
		EditedAt:       getTimePtr(data, "editedAt"),
		DeletedAt:      getTimePtr(data, "deletedAt"),
		Status:         entity.MessageStatus(getString(data, "status")),
		Deleted:        getBool(data, "deleted"),
	}
	if msg.Status == "" {
		msg.Status = entity.MessageSent
	}
	if msg.Deleted {
		msg.Text = entity.DeletedPlaceholder
	}
	if md, ok := data["metadata"].(map[string]interface{}); ok && len(md) > 0 {
		msg.Metadata = md
	}
	return msg
}

func decodeUser(uid string, data map[string]interface{}) *entity.User {
	return &entity.User{
		UID:         uid,
		DisplayName: getString(data, "displayName"),
		Email:       getString(data, "email"),
		AvatarURL:   getString(data, "avatarUrl"),
		IsOnline:    getBool(data, "isOnline"),
		LastSeenAt:  getTime(data, "lastSeenAt"),
		CreatedAt:   getTime(data, "createdAt"),
	}
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(time.Time); ok && !v.IsZero() {
		return v.UTC()
	}
	return time.Time{}
}

func getTimePtr(data map[string]interface{}, key string) *time.Time {
	t := getTime(data, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func getStringSlice(data map[string]interface{}, key string) []string {
	out := []string{}
	switch raw := data[key].(type) {
	case []interface{}:
		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, raw...)
	}
	return out
}

func getIntMap(data map[string]interface{}, key string) map[string]int {
	out := map[string]int{}
	raw, ok := data[key].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		switch n := v.(type) {
		case int64:
			out[k] = int(n)
		case int:
			out[k] = n
		case float64:
			out[k] = int(n)
		}
	}
	return out
}

func getTimeMap(data map[string]interface{}, key string) map[string]time.Time {
	out := map[string]time.Time{}
	raw, ok := data[key].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC()
		}
	}
	return out
}
