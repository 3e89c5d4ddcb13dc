package repository

import (
	"context"
	stderrors "errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/internal/domain/service"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) conversations() *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection)
}

func (r *firestoreConversationRepository) GetOrCreateDirect(ctx context.Context, a, b string) (*entity.Conversation, error) {
	id := service.ConversationID(a, b)
	return r.getOrCreate(ctx, id, map[string]interface{}{
		"participants":  []string{a, b},
		"type":          string(entity.ConversationDirect),
		"createdBy":     a,
		"createdAt":     firestore.ServerTimestamp,
		"lastMessageAt": firestore.ServerTimestamp,
		"unreadCounts":  map[string]interface{}{a: 0, b: 0},
		"lastReadAt":    map[string]interface{}{a: firestore.ServerTimestamp, b: firestore.ServerTimestamp},
		"metadata":      map[string]interface{}{"archived": false, "pinned": false},
	})
}

func (r *firestoreConversationRepository) GetOrCreateBroadcastRoom(ctx context.Context, id, title string) (*entity.Conversation, error) {
	return r.getOrCreate(ctx, id, map[string]interface{}{
		"participants":  []string{},
		"type":          string(entity.ConversationGroup),
		"createdAt":     firestore.ServerTimestamp,
		"lastMessageAt": firestore.ServerTimestamp,
		"unreadCounts":  map[string]interface{}{},
		"lastReadAt":    map[string]interface{}{},
		"metadata":      map[string]interface{}{"archived": false, "pinned": true, "title": title},
	})
}

// getOrCreate is "set if absent": Create fails with AlreadyExists when a
// concurrent caller won, and both sides then read the same stored record.
func (r *firestoreConversationRepository) getOrCreate(ctx context.Context, id string, data map[string]interface{}) (*entity.Conversation, error) {
	ref := r.conversations().Doc(id)

	doc, err := ref.Get(ctx)
	if err == nil {
		return decodeConversation(doc.Ref.ID, doc.Data()), nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, errors.Internal("Failed to get conversation", err)
	}

	if _, err := ref.Create(ctx, data); err != nil {
		if status.Code(err) != codes.AlreadyExists {
			logger.Error("Failed to create conversation %s: %v", id, err)
			return nil, errors.WriteFailed("Failed to create conversation", err)
		}
		logger.Debug("Conversation %s created concurrently, reading winner", id)
	}

	// Read back so server timestamps are resolved and identical for every caller.
	doc, err = ref.Get(ctx)
	if err != nil {
		return nil, errors.Internal("Failed to get conversation", err)
	}
	return decodeConversation(doc.Ref.ID, doc.Data()), nil
}

func (r *firestoreConversationRepository) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversations().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}
	return decodeConversation(doc.Ref.ID, doc.Data()), nil
}

func (r *firestoreConversationRepository) SubscribeByParticipant(ctx context.Context, uid string, onChange func([]*entity.Conversation)) repository.Unsubscribe {
	q := r.conversations().Where("participants", "array-contains", uid)
	return watchQuery(ctx, q, "conversations:"+uid, func(docs []*firestore.DocumentSnapshot) []*entity.Conversation {
		out := make([]*entity.Conversation, 0, len(docs))
		for _, doc := range docs {
			out = append(out, decodeConversation(doc.Ref.ID, doc.Data()))
		}
		return out
	}, onChange)
}

func (r *firestoreConversationRepository) SubscribeOne(ctx context.Context, id string, onChange func(*entity.Conversation)) repository.Unsubscribe {
	return watchDoc(ctx, r.conversations().Doc(id), "conversation:"+id, func(doc *firestore.DocumentSnapshot) *entity.Conversation {
		if doc == nil || !doc.Exists() {
			return nil
		}
		return decodeConversation(doc.Ref.ID, doc.Data())
	}, onChange)
}

func (r *firestoreConversationRepository) MarkRead(ctx context.Context, id, uid string) error {
	_, err := r.conversations().Doc(id).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCounts", uid}, Value: 0},
		{FieldPath: firestore.FieldPath{"lastReadAt", uid}, Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", nil)
		}
		logger.Error("Failed to mark conversation %s read for %s: %v", id, uid, err)
		return errors.WriteFailed("Failed to mark conversation as read", err)
	}
	return nil
}

// Delete runs the permission check, the message sweep and the conversation
// delete in one transaction so a failure leaves everything in place.
func (r *firestoreConversationRepository) Delete(ctx context.Context, id, uid string) error {
	convRef := r.conversations().Doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", nil)
			}
			return err
		}

		conv := decodeConversation(doc.Ref.ID, doc.Data())
		if !conv.CanDelete(uid) {
			return errors.PermissionDenied("You do not have permission to delete this conversation")
		}

		messages, err := tx.Documents(convRef.Collection(messagesCollection)).GetAll()
		if err != nil {
			return err
		}
		for _, m := range messages {
			if err := tx.Delete(m.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(convRef)
	})
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr
		}
		logger.Error("Failed to delete conversation %s: %v", id, err)
		return errors.WriteFailed("Failed to delete conversation", err)
	}

	logger.Info("Conversation %s deleted by %s", id, uid)
	return nil
}
