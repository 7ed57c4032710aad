package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/task-manager/backend/internal/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ProfileCache holds public user profiles by id. Get returns (nil, nil) on
// a miss.
type ProfileCache interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Set(ctx context.Context, u *models.User) error
}

// fallbackDummyHash is a well-formed cost-10 hash compared against when the
// dummy hash cannot be generated at the configured cost.
const fallbackDummyHash = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

// Service registers and authenticates users and issues session tokens.
type Service struct {
	users    UserStore
	tokens   *TokenIssuer
	cache    ProfileCache
	hashCost int
	log      *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

// WithProfileCache puts c in front of the store for CurrentUser.
func WithProfileCache(c ProfileCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(users UserStore, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user unless the exact email is already taken and
// returns a fresh token for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, models.ErrDuplicateUser
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, models.NewValidationError("password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, Password: string(hashed)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return nil, models.ErrDuplicateUser
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)

	return s.issue(user)
}

// Login checks the password for email. Unknown emails and wrong passwords
// return the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// keep the unknown-email path as slow as a real comparison
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.issue(user)
}

// VerifyToken returns the user id carried by a valid token.
func (s *Service) VerifyToken(_ context.Context, token string) (string, error) {
	return s.tokens.Verify(token)
}

// CurrentUser returns the user without its password hash.
func (s *Service) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.WarnContext(ctx, "profile cache read failed", "user_id", id, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	user.Password = ""

	if s.cache != nil {
		if err := s.cache.Set(ctx, user); err != nil {
			s.log.WarnContext(ctx, "profile cache write failed", "user_id", id, "error", err)
		}
	}
	return user, nil
}

func (s *Service) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user.Public()}, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.hashCost)
		if err != nil {
			s.log.Warn("dummy password hash failed, using fallback", "error", err)
			h = []byte(fallbackDummyHash)
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
