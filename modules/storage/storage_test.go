package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/community-chat/domain/chat"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&chat.User{}, &chat.Room{}, &chat.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *chat.User {
	t.Helper()

	user := &chat.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.New().String()[:8]),
		PasswordHash: "not-a-real-hash",
		Role:         "member",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestRoom(t *testing.T, db *gorm.DB, name string, active bool) *chat.Room {
	t.Helper()

	room := &chat.Room{Name: name, IsActive: active}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("failed to create test room: %v", err)
	}
	return room
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &chat.User{
		ID:           uuid.New().String(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed",
		Role:         "member",
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if found.Email != user.Email {
			t.Errorf("expected email %q, got %q", user.Email, found.Email)
		}
	})

	t.Run("by email", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("FindByEmail() error = %v", err)
		}
		if found.ID != user.ID {
			t.Errorf("expected id %q, got %q", user.ID, found.ID)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, "no-such-id"); err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("email exists", func(t *testing.T) {
		exists, err := repo.EmailExists(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("EmailExists() error = %v", err)
		}
		if !exists {
			t.Error("expected email to exist")
		}
		exists, err = repo.EmailExists(ctx, "bob@example.com")
		if err != nil {
			t.Fatalf("EmailExists() error = %v", err)
		}
		if exists {
			t.Error("expected email to not exist")
		}
	})
}

func TestUserRepository_SetPresence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "carol")

	seen := time.Now().Truncate(time.Second)
	if err := repo.SetPresence(ctx, user.ID, true, seen); err != nil {
		t.Fatalf("SetPresence() error = %v", err)
	}

	found, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !found.IsOnline {
		t.Error("expected user to be online")
	}
	if found.LastSeen == nil || !found.LastSeen.Equal(seen) {
		t.Errorf("expected lastSeen %v, got %v", seen, found.LastSeen)
	}

	if err := repo.SetPresence(ctx, "no-such-id", true, seen); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound for unknown user, got %v", err)
	}
}

func TestUserRepository_FindOnline(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	online := createTestUser(t, db, "dana")
	offline := createTestUser(t, db, "erin")
	if err := repo.SetPresence(ctx, online.ID, true, time.Now()); err != nil {
		t.Fatalf("SetPresence() error = %v", err)
	}

	users, err := repo.FindOnline(ctx)
	if err != nil {
		t.Fatalf("FindOnline() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 online user, got %d", len(users))
	}
	if users[0].ID != online.ID {
		t.Errorf("expected user %q online, got %q", online.ID, users[0].ID)
	}
	if users[0].ID == offline.ID {
		t.Error("offline user should not be listed")
	}
}

func TestRoomRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := &chat.Room{Name: "General", Topic: "Anything", IsActive: true}
	if err := repo.Create(ctx, room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if room.ID == 0 {
		t.Fatal("expected room ID to be assigned at persistence")
	}

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, room.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if found.Name != "General" {
			t.Errorf("expected name General, got %q", found.Name)
		}
	})

	t.Run("missing room", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, 9999); err != ErrRoomNotFound {
			t.Errorf("expected ErrRoomNotFound, got %v", err)
		}
	})

	t.Run("list active only", func(t *testing.T) {
		createTestRoom(t, db, "Archived", false)

		rooms, total, err := repo.List(ctx, true, 50, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if total != 1 {
			t.Errorf("expected total 1, got %d", total)
		}
		for _, r := range rooms {
			if !r.IsActive {
				t.Errorf("inactive room %q in active listing", r.Name)
			}
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		if err := repo.Deactivate(ctx, room.ID); err != nil {
			t.Fatalf("Deactivate() error = %v", err)
		}
		found, err := repo.FindByID(ctx, room.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if found.IsActive {
			t.Error("expected room to be inactive")
		}

		if err := repo.Deactivate(ctx, 9999); err != ErrRoomNotFound {
			t.Errorf("expected ErrRoomNotFound, got %v", err)
		}
	})
}

func TestMessageRepository_CreateAndReload(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "frank")
	room := createTestRoom(t, db, "General", true)

	msg := &chat.Message{UserID: user.ID, RoomID: room.ID, Body: "hello there"}
	if err := repo.Create(ctx, msg); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("expected message ID to be assigned at persistence")
	}

	loaded, err := repo.FindByIDWithAssociations(ctx, msg.ID)
	if err != nil {
		t.Fatalf("FindByIDWithAssociations() error = %v", err)
	}
	if loaded.User == nil || loaded.User.Name != "frank" {
		t.Errorf("expected author projection loaded, got %+v", loaded.User)
	}
	if loaded.Room == nil || loaded.Room.Name != "General" {
		t.Errorf("expected room projection loaded, got %+v", loaded.Room)
	}

	view := loaded.View()
	if view.User == nil || view.User.ID != user.ID {
		t.Errorf("expected view author %q, got %+v", user.ID, view.User)
	}
	if view.Body != "hello there" {
		t.Errorf("expected body preserved, got %q", view.Body)
	}
}

func TestMessageRepository_ListRecentByRoom(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "grace")
	room := createTestRoom(t, db, "General", true)
	other := createTestRoom(t, db, "Other", true)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		msg := &chat.Message{
			UserID:    user.ID,
			RoomID:    room.ID,
			Body:      fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(msg).Error; err != nil {
			t.Fatalf("failed to seed message %d: %v", i, err)
		}
	}
	// A message in another room must not leak into the listing.
	if err := db.Create(&chat.Message{UserID: user.ID, RoomID: other.ID, Body: "elsewhere"}).Error; err != nil {
		t.Fatalf("failed to seed other-room message: %v", err)
	}

	views, err := repo.ListRecentByRoom(ctx, room.ID, 50)
	if err != nil {
		t.Fatalf("ListRecentByRoom() error = %v", err)
	}
	if len(views) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(views))
	}
	// Window is the newest 50 (10..59) in chronological order.
	if views[0].Body != "message 10" {
		t.Errorf("expected oldest of window first, got %q", views[0].Body)
	}
	if views[49].Body != "message 59" {
		t.Errorf("expected newest last, got %q", views[49].Body)
	}
	for i := 1; i < len(views); i++ {
		if views[i].CreatedAt.Before(views[i-1].CreatedAt) {
			t.Fatalf("messages out of chronological order at %d", i)
		}
	}
}
