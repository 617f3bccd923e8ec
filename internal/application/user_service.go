package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	repo "github.com/coursehub/enrollment-api/internal/domain/repository"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/mailer"
	mailtpl "github.com/coursehub/enrollment-api/pkg/mailer/templates"
)

const sessionTTL = 24 * time.Hour

type Service struct {
	Repo     repo.UserRepository
	JWT      *helpers.JWTManager
	Redis    *redis.Client
	Logger   *logrus.Logger
	Jobs     JobPublisher
	Branding mailtpl.Branding

	now   func() time.Time
	newID func() string
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// SignupInput is a validated signup request.
type SignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     entity.Role
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *Service {
	return &Service{
		Repo:   repo,
		JWT:    jwt,
		Redis:  rdb,
		Logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Signup registers a new account. Email and phone must both be unused.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.Repo.GetByPhone(ctx, in.Phone); err == nil {
		return nil, ErrPhoneTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup phone: %w", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &entity.User{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Phone:     in.Phone,
		Password:  hash,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// Lost a race with a concurrent signup for the same email or phone.
		if errors.Is(err, repo.ErrDuplicate) {
			if _, pErr := s.Repo.GetByEmail(ctx, email); pErr == nil {
				return nil, ErrEmailTaken
			}
			return nil, ErrPhoneTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user signed up")
	s.sendWelcome(ctx, u)
	return u, nil
}

func (s *Service) sendWelcome(ctx context.Context, u *entity.User) {
	if s.Jobs == nil {
		return
	}
	job := mailer.NewTemplateJob(u.Email, mailtpl.Welcome,
		mailtpl.NewWelcomeData(s.Branding, u.Name, u.Email, u.Role.String(), mailtpl.WithTime(u.CreatedAt)))
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("publish welcome email failed")
	}
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || u == nil {
		helpers.BurnCompare(password)
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"role":       u.Role.String(),
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		}
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return pair, nil
}

func (s *Service) signPair(u *entity.User, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Role.String(), sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, u.Role.String(), sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.Logger.WithField("user_id", u.ID).Info("user logged in")
	return u, pair, nil
}

// Refresh rotates the session id and both tokens.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, *entity.User, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	if !s.SessionValid(ctx, u.ID, claims.SessionID) {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	sid := uuid.NewString()
	pair, err := s.signPair(u, sid)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, sessionTTL)
		_, _ = pipe.Exec(ctx)
	}
	return pair, u, nil
}

// Logout drops the user's session record. Without Redis tokens simply
// expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil || userID == "" {
		return nil
	}
	if err := s.Redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("session delete failed")
		return err
	}
	return nil
}

// SessionValid reports whether sid is the user's current session. Without
// Redis every signed token is accepted.
func (s *Service) SessionValid(ctx context.Context, userID, sid string) bool {
	if s.Redis == nil {
		return true
	}
	data, err := s.Redis.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("session lookup failed")
		return false
	}
	return len(data) > 0 && data["sid"] == sid
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
