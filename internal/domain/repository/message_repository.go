package repository

import (
	"context"

	"portfoliochat/internal/domain/entity"
)

type MessageRepository interface {
	// Send appends a message and updates the parent preview and unread
	// counters in one atomic write. Returns the new message id.
	Send(ctx context.Context, conversationID, senderID, text string) (string, error)

	// Subscribe delivers the newest pageSize messages, oldest first.
	Subscribe(ctx context.Context, conversationID string, pageSize int, onChange func([]*entity.Message)) Unsubscribe

	Recent(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error)
	Exists(ctx context.Context, conversationID string) (bool, error)

	Edit(ctx context.Context, conversationID, messageID, newText, requesterID string) error
	SoftDelete(ctx context.Context, conversationID, messageID, requesterID string) error
}
