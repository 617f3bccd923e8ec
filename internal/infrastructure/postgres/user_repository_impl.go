package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

const userColumns = `id, name, email, phone, password_hash, role, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, u.Email, u.Phone, u.Password, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return fmt.Errorf("user %s: %w", u.Email, repository.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*entity.User, error) {
	u := &entity.User{}
	var role string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
