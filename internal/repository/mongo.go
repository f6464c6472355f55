package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// Store groups the Mongo-backed repositories sharing one database handle.
type Store struct {
	Users    UserRepository
	Chats    ChatRepository
	Messages MessageRepository
}

// NewMongoStore builds the repositories and makes sure their indexes exist.
func NewMongoStore(ctx context.Context, db *mongo.Database, timeout time.Duration) (*Store, error) {
	users, err := NewMongoUserRepo(ctx, db, timeout)
	if err != nil {
		return nil, err
	}
	chats, err := NewMongoChatRepo(ctx, db, timeout)
	if err != nil {
		return nil, err
	}
	messages, err := NewMongoMessageRepo(ctx, db, timeout)
	if err != nil {
		return nil, err
	}
	return &Store{Users: users, Chats: chats, Messages: messages}, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(ctx, d)
}
