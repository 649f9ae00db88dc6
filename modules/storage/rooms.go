package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/community-chat/domain/chat"
)

// ErrRoomNotFound is returned when a room is not found.
var ErrRoomNotFound = errors.New("room not found")

// RoomRepository handles room persistence.
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a new room. The ID is assigned by the database.
func (r *RoomRepository) Create(ctx context.Context, room *chat.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// FindByID retrieves a room by id regardless of its active flag.
func (r *RoomRepository) FindByID(ctx context.Context, id uint) (*chat.Room, error) {
	var room chat.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

// List returns rooms newest-first. When activeOnly is set, inactive rooms
// are filtered out.
func (r *RoomRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]chat.Room, int64, error) {
	query := r.db.WithContext(ctx).Model(&chat.Room{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	var rooms []chat.Room
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rooms).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, total, nil
}

// Deactivate soft-deletes a room by clearing its active flag. Existing
// members keep their broadcasts; new joins and sends are refused upstream.
func (r *RoomRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&chat.Room{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate room: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
