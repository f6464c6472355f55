package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathima-sithara/chat-backend/internal/events"
	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type FriendService struct {
	users     repository.UserRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewFriendService(users repository.UserRepository, publisher events.Publisher, logger *zap.Logger) *FriendService {
	return &FriendService{users: users, publisher: publisher, logger: logger}
}

type friendEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *FriendService) emit(ctx context.Context, eventType string, from, to primitive.ObjectID) {
	publish(ctx, s.publisher, s.logger, events.New(eventType, to.Hex(), friendEvent{From: from.Hex(), To: to.Hex()}))
}

// SendRequest records a pending request from caller to target. created is false when the
// request was already pending, in which case nothing changes.
func (s *FriendService) SendRequest(ctx context.Context, caller *models.User, target primitive.ObjectID) (created bool, err error) {
	if caller.ID == target {
		return false, invalid("Cannot send friend request to yourself")
	}
	other, err := s.users.FindByID(ctx, target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("find user: %w", err)
	}

	switch {
	case caller.IsFriend(target) || other.IsFriend(caller.ID):
		return false, ErrAlreadyFriends
	case caller.HasRequestFrom(target):
		return false, ErrRequestFromTarget
	case caller.HasSentRequestTo(target) || other.HasRequestFrom(caller.ID):
		return false, nil
	}

	if err := s.users.AddFriendRequest(ctx, caller.ID, target); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("add friend request: %w", err)
	}
	s.emit(ctx, events.FriendRequestSent, caller.ID, target)
	return true, nil
}

// CancelRequest withdraws the caller's pending request to target.
func (s *FriendService) CancelRequest(ctx context.Context, caller, target primitive.ObjectID) error {
	if err := s.remove(ctx, caller, target); err != nil {
		return err
	}
	s.emit(ctx, events.FriendRequestCanceled, caller, target)
	return nil
}

// Accept turns the pending request from requester into a friendship. The friendship is
// written before the request is cleared so a failed call leaves the request to retry.
func (s *FriendService) Accept(ctx context.Context, caller, requester primitive.ObjectID) error {
	me, err := s.users.FindByID(ctx, caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !me.HasRequestFrom(requester) {
		return ErrRequestNotFound
	}
	if err := s.users.AddFriends(ctx, caller, requester); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("add friends: %w", err)
	}
	// a concurrent accept may already have cleared it
	if _, err := s.users.RemoveFriendRequest(ctx, requester, caller); err != nil {
		return fmt.Errorf("remove friend request: %w", err)
	}
	s.emit(ctx, events.FriendRequestAccepted, requester, caller)
	return nil
}

func (s *FriendService) Reject(ctx context.Context, caller, requester primitive.ObjectID) error {
	if err := s.remove(ctx, requester, caller); err != nil {
		return err
	}
	s.emit(ctx, events.FriendRequestRejected, requester, caller)
	return nil
}

func (s *FriendService) remove(ctx context.Context, from, to primitive.ObjectID) error {
	removed, err := s.users.RemoveFriendRequest(ctx, from, to)
	if err != nil {
		return fmt.Errorf("remove friend request: %w", err)
	}
	if !removed {
		return ErrRequestNotFound
	}
	return nil
}

func (s *FriendService) Friends(ctx context.Context, caller *models.User) ([]models.PublicUser, error) {
	found, err := s.users.FindByIDs(ctx, caller.Friends)
	if err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}
	return toPublic(found), nil
}

// Requests lists the users whose requests to caller are pending.
func (s *FriendService) Requests(ctx context.Context, caller *models.User) ([]models.PublicUser, error) {
	found, err := s.users.FindByIDs(ctx, caller.FriendRequests)
	if err != nil {
		return nil, fmt.Errorf("load friend requests: %w", err)
	}
	return toPublic(found), nil
}
