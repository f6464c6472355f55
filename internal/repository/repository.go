package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserUpdate carries the optional profile fields to set; nil means unchanged.
type UserUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	Search(ctx context.Context, term string, exclude primitive.ObjectID, limit int64) ([]*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, upd UserUpdate) (*models.User, error)

	// AddFriendRequest records a pending request from -> to on both documents. Repeating it is a no-op.
	AddFriendRequest(ctx context.Context, from, to primitive.ObjectID) error
	// RemoveFriendRequest drops a pending request from -> to and reports whether one existed.
	RemoveFriendRequest(ctx context.Context, from, to primitive.ObjectID) (bool, error)
	AddFriends(ctx context.Context, a, b primitive.ObjectID) error
}

type ChatRepository interface {
	Create(ctx context.Context, c *models.Chat) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	FindByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error)
	SetLastMessage(ctx context.Context, chatID primitive.ObjectID, m *models.Message) error
}

// MessageQuery pages through a chat. Zero Limit returns everything.
type MessageQuery struct {
	Limit  int64
	Before time.Time
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListByChat(ctx context.Context, chatID primitive.ObjectID, q MessageQuery) ([]*models.Message, error)
	// MarkRead marks messages of chatID not sent by reader as read by reader. An empty ids
	// slice means every message in the chat. Returns how many messages changed.
	MarkRead(ctx context.Context, chatID, reader primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
}
