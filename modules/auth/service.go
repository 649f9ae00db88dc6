package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/example/community-chat/domain/chat"
	"github.com/example/community-chat/modules/storage"
)

var (
	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when the email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *chat.User) error
	FindByID(ctx context.Context, id string) (*chat.User, error)
	FindByEmail(ctx context.Context, email string) (*chat.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Service handles registration, login and credential resolution.
type Service struct {
	users  UserStore
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewService creates a new auth Service.
func NewService(users UserStore, hasher *PasswordHasher, jwtManager *JWTManager) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		jwt:    jwtManager,
	}
}

// Register creates a new member account and returns the user with a signed
// token.
func (s *Service) Register(ctx context.Context, name, email, password string) (*chat.User, string, error) {
	if name == "" {
		return nil, "", errors.New("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, "", ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, "", ErrPasswordTooLong
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, "", storage.ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &chat.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         "member",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return user, token, nil
}

// Login authenticates a user by email and password and returns a token.
func (s *Service) Login(ctx context.Context, email, password string) (*chat.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to a user. This is the gatekeeper
// contract: the token must verify and the user it names must still exist.
func (s *Service) Authenticate(ctx context.Context, token string) (*chat.User, error) {
	claims, err := s.jwt.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user, nil
}
