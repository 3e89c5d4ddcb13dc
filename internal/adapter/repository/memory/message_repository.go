package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
)

type messageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) repository.MessageRepository {
	return &messageRepository{store: store}
}

func (r *messageRepository) Send(ctx context.Context, conversationID, senderID, text string) (string, error) {
	text = entity.NormalizeText(text)
	if text == "" {
		return "", errors.Validation("Message text cannot be empty")
	}

	id := uuid.New().String()
	err := r.store.commit("message.send", func() error {
		conv, ok := r.store.conversations[conversationID]
		if !ok {
			return errors.NotFound("Conversation", nil)
		}

		now := r.store.timestamp()
		if r.store.messages[conversationID] == nil {
			r.store.messages[conversationID] = make(map[string]*entity.Message)
		}
		r.store.messages[conversationID][id] = &entity.Message{
			ID:             id,
			ConversationID: conversationID,
			SenderID:       senderID,
			Text:           text,
			CreatedAt:      now,
			Status:         entity.MessageSent,
		}

		conv.LastMessage = &entity.LastMessage{
			TextPreview: entity.Preview(text),
			SenderID:    senderID,
			CreatedAt:   now,
		}
		conv.LastMessageAt = now
		for _, uid := range conv.UnreadRecipients(senderID) {
			conv.UnreadCounts[uid]++
		}
		if _, known := conv.UnreadCounts[senderID]; conv.IsBroadcast() && !known {
			conv.UnreadCounts[senderID] = 0
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return "", err
		}
		return "", errors.SendFailed(err)
	}
	return id, nil
}

// window returns the newest limit messages, oldest first. Callers hold mu.
func (r *messageRepository) window(conversationID string, limit int) []*entity.Message {
	all := make([]*entity.Message, 0, len(r.store.messages[conversationID]))
	for _, m := range r.store.messages[conversationID] {
		all = append(all, m.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

func (r *messageRepository) Subscribe(ctx context.Context, conversationID string, pageSize int, onChange func([]*entity.Message)) repository.Unsubscribe {
	return watch(ctx, r.store, func() []*entity.Message {
		return r.window(conversationID, pageSize)
	}, onChange)
}

func (r *messageRepository) Recent(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.window(conversationID, limit), nil
}

func (r *messageRepository) Exists(ctx context.Context, conversationID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.messages[conversationID]) > 0, nil
}

func (r *messageRepository) Edit(ctx context.Context, conversationID, messageID, newText, requesterID string) error {
	newText = entity.NormalizeText(newText)
	if newText == "" {
		return errors.Validation("Message text cannot be empty")
	}

	err := r.store.commit("message.edit", func() error {
		msg, err := r.lookup(conversationID, messageID)
		if err != nil {
			return err
		}
		if msg.Deleted {
			return errors.NotFound("Message", nil)
		}
		if msg.SenderID != requesterID {
			return errors.PermissionDenied("You can only edit your own messages")
		}
		now := r.store.timestamp()
		msg.Text = newText
		msg.EditedAt = &now
		msg.Status = entity.MessageEdited
		return nil
	})
	return wrapWrite(err, "Failed to edit message")
}

func (r *messageRepository) SoftDelete(ctx context.Context, conversationID, messageID, requesterID string) error {
	err := r.store.commit("message.delete", func() error {
		msg, err := r.lookup(conversationID, messageID)
		if err != nil {
			return err
		}
		if msg.SenderID != requesterID {
			return errors.PermissionDenied("You can only delete your own messages")
		}
		if msg.Deleted {
			return nil
		}
		now := r.store.timestamp()
		msg.Deleted = true
		msg.Text = entity.DeletedPlaceholder
		msg.DeletedAt = &now
		return nil
	})
	return wrapWrite(err, "Failed to delete message")
}

func (r *messageRepository) lookup(conversationID, messageID string) (*entity.Message, error) {
	msg, ok := r.store.messages[conversationID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return msg, nil
}
