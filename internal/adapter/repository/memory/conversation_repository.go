package memory

import (
	"context"
	"sort"
	"time"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/internal/domain/service"
	"portfoliochat/pkg/errors"
)

type conversationRepository struct {
	store *Store
}

func NewConversationRepository(store *Store) repository.ConversationRepository {
	return &conversationRepository{store: store}
}

func (r *conversationRepository) GetOrCreateDirect(ctx context.Context, a, b string) (*entity.Conversation, error) {
	id := service.ConversationID(a, b)
	return r.getOrCreate(id, func(now time.Time) *entity.Conversation {
		return &entity.Conversation{
			ID:            id,
			Participants:  []string{a, b},
			Type:          entity.ConversationDirect,
			CreatedAt:     now,
			CreatedBy:     a,
			LastMessageAt: now,
			UnreadCounts:  map[string]int{a: 0, b: 0},
			LastReadAt:    map[string]time.Time{a: now, b: now},
		}
	})
}

func (r *conversationRepository) GetOrCreateBroadcastRoom(ctx context.Context, id, title string) (*entity.Conversation, error) {
	return r.getOrCreate(id, func(now time.Time) *entity.Conversation {
		return &entity.Conversation{
			ID:            id,
			Participants:  []string{},
			Type:          entity.ConversationGroup,
			CreatedAt:     now,
			LastMessageAt: now,
			UnreadCounts:  map[string]int{},
			LastReadAt:    map[string]time.Time{},
			Metadata:      entity.ConversationMetadata{Pinned: true, Title: title},
		}
	})
}

func (r *conversationRepository) getOrCreate(id string, build func(time.Time) *entity.Conversation) (*entity.Conversation, error) {
	var out *entity.Conversation
	err := r.store.commit("conversation.create", func() error {
		if existing, ok := r.store.conversations[id]; ok {
			out = existing.Clone()
			return nil
		}
		conv := build(r.store.timestamp())
		r.store.conversations[id] = conv
		out = conv.Clone()
		return nil
	})
	if err != nil {
		return nil, errors.WriteFailed("Failed to create conversation", err)
	}
	return out, nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	conv, ok := r.store.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv.Clone(), nil
}

func (r *conversationRepository) SubscribeByParticipant(ctx context.Context, uid string, onChange func([]*entity.Conversation)) repository.Unsubscribe {
	return watch(ctx, r.store, func() []*entity.Conversation {
		out := []*entity.Conversation{}
		for _, conv := range r.store.conversations {
			if conv.HasParticipant(uid) {
				out = append(out, conv.Clone())
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}, onChange)
}

func (r *conversationRepository) SubscribeOne(ctx context.Context, id string, onChange func(*entity.Conversation)) repository.Unsubscribe {
	return watch(ctx, r.store, func() *entity.Conversation {
		return r.store.conversations[id].Clone()
	}, onChange)
}

func (r *conversationRepository) MarkRead(ctx context.Context, id, uid string) error {
	return r.store.commit("conversation.markRead", func() error {
		conv, ok := r.store.conversations[id]
		if !ok {
			return errors.NotFound("Conversation", nil)
		}
		conv.UnreadCounts[uid] = 0
		conv.LastReadAt[uid] = r.store.timestamp()
		return nil
	})
}

// Delete stages nothing until every check passed; the hook models a failed
// commit and leaves the conversation and its messages untouched.
func (r *conversationRepository) Delete(ctx context.Context, id, uid string) error {
	err := r.store.commit("conversation.delete", func() error {
		conv, ok := r.store.conversations[id]
		if !ok {
			return errors.NotFound("Conversation", nil)
		}
		if !conv.CanDelete(uid) {
			return errors.PermissionDenied("You do not have permission to delete this conversation")
		}
		delete(r.store.messages, id)
		delete(r.store.conversations, id)
		return nil
	})
	return wrapWrite(err, "Failed to delete conversation")
}

// wrapWrite passes AppErrors through and reports anything else as a failed write.
func wrapWrite(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) != errors.CodeInternal {
		return err
	}
	return errors.WriteFailed(message, err)
}
