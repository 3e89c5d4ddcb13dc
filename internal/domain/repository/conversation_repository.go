package repository

import (
	"context"

	"portfoliochat/internal/domain/entity"
)

type ConversationRepository interface {
	// GetOrCreateDirect is create-if-absent on the deterministic pair id. A
	// concurrent loser gets the winner's record back, never a duplicate.
	GetOrCreateDirect(ctx context.Context, a, b string) (*entity.Conversation, error)
	GetOrCreateBroadcastRoom(ctx context.Context, id, title string) (*entity.Conversation, error)
	Get(ctx context.Context, id string) (*entity.Conversation, error)

	// SubscribeByParticipant delivers every conversation listing uid as a
	// participant, in store order. Merging with broadcast rooms and sorting
	// is done by the caller.
	SubscribeByParticipant(ctx context.Context, uid string, onChange func([]*entity.Conversation)) Unsubscribe
	// SubscribeOne watches a single conversation; nil means it does not exist.
	SubscribeOne(ctx context.Context, id string, onChange func(*entity.Conversation)) Unsubscribe

	MarkRead(ctx context.Context, id, uid string) error

	// Delete removes the conversation and all of its messages atomically.
	Delete(ctx context.Context, id, uid string) error
}
