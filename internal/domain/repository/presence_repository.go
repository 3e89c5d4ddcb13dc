package repository

import (
	"context"

	"portfoliochat/internal/domain/entity"
)

// PresenceRepository is the ephemeral, best-effort channel for online flags
// and typing indicators. Nothing written here is part of durable history.
type PresenceRepository interface {
	// SetPresence with online=true also arms the channel's disconnect
	// cleanup, so a vanished client eventually reads as offline.
	SetPresence(ctx context.Context, uid string, online bool) error
	SubscribePresence(ctx context.Context, uids []string, onChange func(map[string]entity.Presence)) Unsubscribe

	SetTyping(ctx context.Context, conversationID, uid string, typing bool) error
	SubscribeTyping(ctx context.Context, conversationID string, onChange func([]string)) Unsubscribe

	Close() error
}
