package repository

import (
	"context"

	"portfoliochat/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, uid string) (*entity.User, error)
	// Search matches displayName by prefix and leaves excludeUID out.
	Search(ctx context.Context, query, excludeUID string, limit int) ([]*entity.User, error)
	List(ctx context.Context, excludeUID string, limit int) ([]*entity.User, error)
}
