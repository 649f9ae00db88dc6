package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/community-chat/domain/chat"
)

// ErrMessageNotFound is returned when a message is not found.
var ErrMessageNotFound = errors.New("message not found")

// MessageRepository handles chat message persistence.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message. The ID and creation timestamp are assigned
// at persistence; the message is immutable afterwards.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindByIDWithAssociations retrieves a message with its author and room
// projections loaded.
func (r *MessageRepository) FindByIDWithAssociations(ctx context.Context, id uint) (*chat.Message, error) {
	var msg chat.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Room").
		First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &msg, nil
}

// ListRecentByRoom returns at most limit messages of a room in chronological
// order (oldest of the window first). The window is taken from the newest end.
func (r *MessageRepository) ListRecentByRoom(ctx context.Context, roomID uint, limit int) ([]chat.MessageView, error) {
	var msgs []chat.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Room").
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// Reverse into chronological order.
	views := make([]chat.MessageView, len(msgs))
	for i := range msgs {
		views[len(msgs)-1-i] = msgs[i].View()
	}
	return views, nil
}
