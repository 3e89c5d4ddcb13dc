package repository

import (
	"context"
	stderrors "errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) conversation(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.conversation(conversationID).Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Send(ctx context.Context, conversationID, senderID, text string) (string, error) {
	text = entity.NormalizeText(text)
	if text == "" {
		return "", errors.Validation("Message text cannot be empty")
	}

	convRef := r.conversation(conversationID)
	msgRef := r.messages(conversationID).NewDoc()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", nil)
			}
			return err
		}
		conv := decodeConversation(doc.Ref.ID, doc.Data())

		if err := tx.Create(msgRef, map[string]interface{}{
			"senderUid": senderID,
			"text":      text,
			"createdAt": firestore.ServerTimestamp,
			"status":    string(entity.MessageSent),
			"deleted":   false,
		}); err != nil {
			return err
		}

		updates := []firestore.Update{
			{FieldPath: firestore.FieldPath{"lastMessage", "textPreview"}, Value: entity.Preview(text)},
			{FieldPath: firestore.FieldPath{"lastMessage", "senderUid"}, Value: senderID},
			{FieldPath: firestore.FieldPath{"lastMessage", "createdAt"}, Value: firestore.ServerTimestamp},
			{Path: "lastMessageAt", Value: firestore.ServerTimestamp},
		}
		for _, uid := range conv.UnreadRecipients(senderID) {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"unreadCounts", uid},
				Value:     firestore.Increment(1),
			})
		}
		if _, known := conv.UnreadCounts[senderID]; conv.IsBroadcast() && !known {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"unreadCounts", senderID},
				Value:     0,
			})
		}
		return tx.Update(convRef, updates)
	})
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return "", err
		}
		logger.Error("Failed to send message to conversation %s: %v", conversationID, err)
		return "", errors.SendFailed(err)
	}

	return msgRef.ID, nil
}

func (r *firestoreMessageRepository) query(conversationID string, limit int) firestore.Query {
	q := r.messages(conversationID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

// decodeWindow turns a newest-first page into the oldest-first slice the UI renders.
func decodeWindow(conversationID string, docs []*firestore.DocumentSnapshot) []*entity.Message {
	out := make([]*entity.Message, len(docs))
	for i, doc := range docs {
		out[len(docs)-1-i] = decodeMessage(conversationID, doc.Ref.ID, doc.Data())
	}
	return out
}

func (r *firestoreMessageRepository) Subscribe(ctx context.Context, conversationID string, pageSize int, onChange func([]*entity.Message)) repository.Unsubscribe {
	return watchQuery(ctx, r.query(conversationID, pageSize), "messages:"+conversationID, func(docs []*firestore.DocumentSnapshot) []*entity.Message {
		return decodeWindow(conversationID, docs)
	}, onChange)
}

func (r *firestoreMessageRepository) Recent(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	docs, err := r.query(conversationID, limit).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching messages for conversation %s: %v", conversationID, err)
		return nil, errors.Internal("Failed to fetch messages", err)
	}
	return decodeWindow(conversationID, docs), nil
}

func (r *firestoreMessageRepository) Exists(ctx context.Context, conversationID string) (bool, error) {
	docs, err := r.messages(conversationID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, errors.Internal("Failed to check messages", err)
	}
	return len(docs) > 0, nil
}

// Edit checks authorship against the stored message inside the transaction.
// Overlapping edits by the same author are last-write-wins.
func (r *firestoreMessageRepository) Edit(ctx context.Context, conversationID, messageID, newText, requesterID string) error {
	newText = entity.NormalizeText(newText)
	if newText == "" {
		return errors.Validation("Message text cannot be empty")
	}

	return r.mutate(ctx, conversationID, messageID, "edit", func(tx *firestore.Transaction, ref *firestore.DocumentRef, msg *entity.Message) error {
		if msg.Deleted {
			return errors.NotFound("Message", nil)
		}
		if msg.SenderID != requesterID {
			return errors.PermissionDenied("You can only edit your own messages")
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "text", Value: newText},
			{Path: "editedAt", Value: firestore.ServerTimestamp},
			{Path: "status", Value: string(entity.MessageEdited)},
		})
	})
}

// SoftDelete replaces the text with the placeholder; the original is gone.
// Deleting an already deleted message is a no-op.
func (r *firestoreMessageRepository) SoftDelete(ctx context.Context, conversationID, messageID, requesterID string) error {
	return r.mutate(ctx, conversationID, messageID, "delete", func(tx *firestore.Transaction, ref *firestore.DocumentRef, msg *entity.Message) error {
		if msg.SenderID != requesterID {
			return errors.PermissionDenied("You can only delete your own messages")
		}
		if msg.Deleted {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "deleted", Value: true},
			{Path: "text", Value: entity.DeletedPlaceholder},
			{Path: "deletedAt", Value: firestore.ServerTimestamp},
		})
	})
}

func (r *firestoreMessageRepository) mutate(ctx context.Context, conversationID, messageID, action string, fn func(*firestore.Transaction, *firestore.DocumentRef, *entity.Message) error) error {
	ref := r.messages(conversationID).Doc(messageID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", nil)
			}
			return err
		}
		return fn(tx, ref, decodeMessage(conversationID, doc.Ref.ID, doc.Data()))
	})
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr
		}
		logger.Error("Failed to %s message %s in conversation %s: %v", action, messageID, conversationID, err)
		return errors.WriteFailed("Failed to "+action+" message", err)
	}
	return nil
}
