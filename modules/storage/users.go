package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/example/community-chat/domain/chat"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a user with the same email exists.
	ErrEmailTaken = errors.New("email already registered")
)

// UserRepository handles user persistence.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *chat.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*chat.User, error) {
	var user chat.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByEmail retrieves a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*chat.User, error) {
	var user chat.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// EmailExists reports whether a user with the given email exists.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&chat.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// SetPresence flips the online flag and stamps last-seen.
func (r *UserRepository) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	result := r.db.WithContext(ctx).Model(&chat.User{}).Where("id = ?", id).Updates(map[string]any{
		"is_online": online,
		"last_seen": lastSeen,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update presence: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindOnline returns the privacy-reduced projection of every online user.
func (r *UserRepository) FindOnline(ctx context.Context) ([]chat.UserPublic, error) {
	var users []chat.User
	if err := r.db.WithContext(ctx).Where("is_online = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	result := make([]chat.UserPublic, 0, len(users))
	for i := range users {
		result = append(result, users[i].Public())
	}
	return result, nil
}
