package memory

import (
	"context"
	"sort"
	"strings"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetByID(ctx context.Context, uid string) (*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	user, ok := r.store.users[uid]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	cp := *user
	return &cp, nil
}

// Search mirrors the Firestore range query: case-sensitive displayName prefix.
func (r *userRepository) Search(ctx context.Context, query, excludeUID string, limit int) ([]*entity.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*entity.User{}, nil
	}
	users := r.collect(excludeUID, func(u *entity.User) bool {
		return strings.HasPrefix(u.DisplayName, query)
	})
	sort.Slice(users, func(i, j int) bool { return users[i].DisplayName < users[j].DisplayName })
	return truncate(users, limit), nil
}

func (r *userRepository) List(ctx context.Context, excludeUID string, limit int) ([]*entity.User, error) {
	users := r.collect(excludeUID, func(*entity.User) bool { return true })
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	entity.SortUsers(users)
	return truncate(users, limit), nil
}

func (r *userRepository) collect(excludeUID string, keep func(*entity.User) bool) []*entity.User {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	users := []*entity.User{}
	for uid, u := range r.store.users {
		if uid == excludeUID || !keep(u) {
			continue
		}
		cp := *u
		users = append(users, &cp)
	}
	return users
}

func truncate(users []*entity.User, limit int) []*entity.User {
	if limit > 0 && len(users) > limit {
		return users[:limit]
	}
	return users
}
