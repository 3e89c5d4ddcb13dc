package repository

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

const (
	usersCollection = "users"

	// prefixUpperBound closes a displayName range query so it acts as "starts with".
	prefixUpperBound = "\uf8ff"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, uid string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", nil)
		}
		return nil, errors.Internal("Failed to get user", err)
	}
	return decodeUser(doc.Ref.ID, doc.Data()), nil
}

func (r *firestoreUserRepository) Search(ctx context.Context, query, excludeUID string, limit int) ([]*entity.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*entity.User{}, nil
	}

	q := r.client.Collection(usersCollection).
		Where("displayName", ">=", query).
		Where("displayName", "<=", query+prefixUpperBound).
		Limit(limit)

	return r.collect(ctx, q, excludeUID)
}

// List returns online users first, then the most recently seen.
func (r *firestoreUserRepository) List(ctx context.Context, excludeUID string, limit int) ([]*entity.User, error) {
	users, err := r.collect(ctx, r.client.Collection(usersCollection).Limit(limit), excludeUID)
	if err != nil {
		return nil, err
	}
	entity.SortUsers(users)
	return users, nil
}

func (r *firestoreUserRepository) collect(ctx context.Context, q firestore.Query, excludeUID string) ([]*entity.User, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	users := []*entity.User{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while reading users: %v", err)
			return nil, errors.Internal("Failed to read users", err)
		}
		if doc.Ref.ID == excludeUID {
			continue
		}
		users = append(users, decodeUser(doc.Ref.ID, doc.Data()))
	}
	return users, nil
}
