package entity

import "time"

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// ParseConversationType accepts the legacy "dm" value written by older clients.
func ParseConversationType(s string) ConversationType {
	switch s {
	case "dm", string(ConversationDirect):
		return ConversationDirect
	default:
		return ConversationGroup
	}
}

type LastMessage struct {
	TextPreview string    `json:"text_preview" firestore:"textPreview"`
	SenderID    string    `json:"sender_id" firestore:"senderUid"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

type ConversationMetadata struct {
	Archived bool     `json:"archived" firestore:"archived"`
	Pinned   bool     `json:"pinned" firestore:"pinned"`
	Title    string   `json:"title,omitempty" firestore:"title,omitempty"`
	Admins   []string `json:"admins,omitempty" firestore:"admins,omitempty"`
}

type Conversation struct {
	ID            string               `json:"id" firestore:"-"`
	Participants  []string             `json:"participants" firestore:"participants"`
	Type          ConversationType     `json:"type" firestore:"type"`
	CreatedAt     time.Time            `json:"created_at" firestore:"createdAt"`
	CreatedBy     string               `json:"created_by,omitempty" firestore:"createdBy,omitempty"`
	LastMessage   *LastMessage         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time            `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCounts  map[string]int       `json:"unread_counts" firestore:"unreadCounts"`
	LastReadAt    map[string]time.Time `json:"last_read_at" firestore:"lastReadAt"`
	Metadata      ConversationMetadata `json:"metadata" firestore:"metadata"`
}

// IsBroadcast reports whether the conversation is open to every authenticated user.
func (c *Conversation) IsBroadcast() bool {
	return c.Type == ConversationGroup && len(c.Participants) == 0
}

func (c *Conversation) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// CanDelete reports whether uid created the conversation or administers it.
func (c *Conversation) CanDelete(uid string) bool {
	if uid == "" {
		return false
	}
	if c.CreatedBy == uid {
		return true
	}
	for _, admin := range c.Metadata.Admins {
		if admin == uid {
			return true
		}
	}
	return false
}

func (c *Conversation) Unread(uid string) int {
	return c.UnreadCounts[uid]
}

// UnreadRecipients returns who gets their unread counter bumped when sender
// posts. Broadcast rooms only track readers that have shown up before.
func (c *Conversation) UnreadRecipients(sender string) []string {
	var out []string
	if c.IsBroadcast() {
		for uid := range c.UnreadCounts {
			if uid != sender {
				out = append(out, uid)
			}
		}
		return out
	}
	for _, p := range c.Participants {
		if p != sender {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy so snapshots handed to callers never alias store state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = append([]string{}, c.Participants...)
	cp.Metadata.Admins = append([]string(nil), c.Metadata.Admins...)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	cp.LastReadAt = make(map[string]time.Time, len(c.LastReadAt))
	for k, v := range c.LastReadAt {
		cp.LastReadAt[k] = v
	}
	return &cp
}
