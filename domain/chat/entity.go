package chat

import "time"

// User represents a registered community member. The hub only ever mutates
// IsOnline and LastSeen; everything else belongs to the account surface.
type User struct {
	ID           string     `gorm:"primaryKey;type:text" json:"id"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null;type:text" json:"email"`
	PasswordHash string     `gorm:"not null;type:text" json:"-"`
	PhotoURL     string     `gorm:"size:500" json:"photoUrl"`
	Role         string     `gorm:"size:20;not null;default:member" json:"role"`
	IsOnline     bool       `gorm:"not null;default:false" json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// RoleAdmin marks users allowed to manage rooms.
const RoleAdmin = "admin"

// Public returns the privacy-reduced projection broadcast to clients.
// It never carries the email or password hash.
func (u *User) Public() UserPublic {
	return UserPublic{
		ID:       u.ID,
		Name:     u.Name,
		PhotoURL: u.PhotoURL,
		IsOnline: u.IsOnline,
	}
}

// UserPublic is the user projection safe to fan out to every client.
type UserPublic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
	IsOnline bool   `json:"isOnline"`
}

// Room represents a chat room. The hub reads rooms to authorize joins and
// sends; it never mutates them.
type Room struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	Topic       string    `gorm:"size:200" json:"topic,omitempty"`
	CreatedBy   string    `gorm:"type:text" json:"createdBy,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Room entity.
func (Room) TableName() string {
	return "rooms"
}

// Info returns the reduced room projection attached to messages.
func (r *Room) Info() RoomInfo {
	return RoomInfo{ID: r.ID, Name: r.Name}
}

// RoomInfo is the room projection attached to broadcast messages.
type RoomInfo struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Message is a persisted chat message. The ID is assigned by the store at
// creation; a message is immutable afterwards.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null;type:text" json:"userId"`
	RoomID    uint      `gorm:"index;not null" json:"roomId"`
	Body      string    `gorm:"size:5000;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Room *Room `gorm:"foreignKey:RoomID" json:"-"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "chats"
}

// View builds the broadcast projection of a message loaded with its
// author and room associations.
func (m *Message) View() MessageView {
	v := MessageView{
		ID:        m.ID,
		UserID:    m.UserID,
		RoomID:    m.RoomID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		v.User = &MessageAuthor{ID: m.User.ID, Name: m.User.Name, PhotoURL: m.User.PhotoURL}
	}
	if m.Room != nil {
		info := m.Room.Info()
		v.Room = &info
	}
	return v
}

// MessageAuthor is the author projection attached to broadcast messages.
type MessageAuthor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
}

// MessageView is the full message payload sent over the wire: the persisted
// message plus author and room projections.
type MessageView struct {
	ID        uint           `json:"id"`
	UserID    string         `json:"userId"`
	RoomID    uint           `json:"roomId"`
	Body      string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	User      *MessageAuthor `json:"user,omitempty"`
	Room      *RoomInfo      `json:"room,omitempty"`
}
