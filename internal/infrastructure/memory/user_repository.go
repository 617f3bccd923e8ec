package memory

import (
	"context"
	"fmt"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, repository.ErrDuplicate)
	}
	if _, exists := r.s.usersByEmail[u.Email]; exists {
		return fmt.Errorf("email %s: %w", u.Email, repository.ErrDuplicate)
	}
	if _, exists := r.s.usersByPhone[u.Phone]; exists {
		return fmt.Errorf("phone %s: %w", u.Phone, repository.ErrDuplicate)
	}

	cp := *u
	r.s.users[u.ID] = &cp
	r.s.usersByEmail[u.Email] = u.ID
	r.s.usersByPhone[u.Phone] = u.ID
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.get(id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.usersByEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.get(id)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.usersByPhone[phone]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.get(id)
}

// get expects the read lock to be held.
func (r *UserRepository) get(id string) (*entity.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
