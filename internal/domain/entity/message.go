package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

type MessageStatus string

const (
	MessageSending MessageStatus = "sending"
	MessageSent    MessageStatus = "sent"
	MessageEdited  MessageStatus = "edited"
	MessageRead    MessageStatus = "read"
)

const (
	DeletedPlaceholder = "[Message deleted]"
	PreviewLength      = 100
)

type Message struct {
	ID             string                 `json:"id" firestore:"-"`
	ConversationID string                 `json:"conversation_id" firestore:"-"`
	SenderID       string                 `json:"sender_id" firestore:"senderUid"`
	Text           string                 `json:"text" firestore:"text"`
	CreatedAt      time.Time              `json:"created_at" firestore:"createdAt"`
	EditedAt       *time.Time             `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
	DeletedAt      *time.Time             `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	Status         MessageStatus          `json:"status" firestore:"status"`
	Deleted        bool                   `json:"deleted" firestore:"deleted"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" firestore:"metadata,omitempty"`
}

// StatusFor derives the display status against the parent conversation:
// a message counts as read once any other participant's lastReadAt reaches it.
func (m *Message) StatusFor(conv *Conversation) MessageStatus {
	if m.Status == MessageSending || conv == nil {
		return m.Status
	}
	for uid, readAt := range conv.LastReadAt {
		if uid == m.SenderID {
			continue
		}
		if !readAt.Before(m.CreatedAt) {
			return MessageRead
		}
	}
	return m.Status
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	if m.EditedAt != nil {
		t := *m.EditedAt
		cp.EditedAt = &t
	}
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		cp.DeletedAt = &t
	}
	if m.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// NormalizeText trims surrounding whitespace; an empty result is not sendable.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

// Preview truncates text to PreviewLength runes for the conversation list.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}
