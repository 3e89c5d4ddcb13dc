package entity

import (
	"sort"
	"time"
)

// User is owned by the auth/profile layer; the chat core only reads it.
type User struct {
	UID         string    `json:"uid" firestore:"-"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Email       string    `json:"email" firestore:"email"`
	AvatarURL   string    `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
	IsOnline    bool      `json:"is_online" firestore:"isOnline"`
	LastSeenAt  time.Time `json:"last_seen_at" firestore:"lastSeenAt"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

// SortUsers orders a directory listing: online first, then by lastSeenAt desc.
func SortUsers(users []*User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].IsOnline != users[j].IsOnline {
			return users[i].IsOnline
		}
		return users[i].LastSeenAt.After(users[j].LastSeenAt)
	})
}
