package repository

import (
	"context"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
)

// UserRepository defines the persistence operations for accounts.
// Lookups return ErrNotFound when no row matches.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)
}
