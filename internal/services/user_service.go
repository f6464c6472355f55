package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/fathima-sithara/chat-backend/internal/storage"
	"github.com/fathima-sithara/chat-backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const searchLimit = 20

type UserService struct {
	users   repository.UserRepository
	files   storage.FileStore
	uploads config.UploadsConf
	logger  *zap.Logger
}

func NewUserService(users repository.UserRepository, files storage.FileStore, uploads config.UploadsConf, logger *zap.Logger) *UserService {
	return &UserService{users: users, files: files, uploads: uploads, logger: logger}
}

// UserProfile is another user's public view as seen by the caller.
type UserProfile struct {
	models.PublicUser
	IsFriend       bool `json:"isFriend"`
	RequestPending bool `json:"requestPending"`
}

func (s *UserService) Search(ctx context.Context, caller primitive.ObjectID, q string) ([]models.PublicUser, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("Search term is required")
	}
	found, err := s.users.Search(ctx, q, caller, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return toPublic(found), nil
}

// UpdateProfile applies a PATCH body. Only displayName may be changed; an empty body
// returns the current profile unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, caller primitive.ObjectID, updates map[string]interface{}) (*models.PublicUser, error) {
	if len(updates) == 0 {
		user, err := s.users.FindByID(ctx, caller)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("find user: %w", err)
		}
		pub := user.Public()
		return &pub, nil
	}
	for key := range updates {
		if key != "displayName" {
			return nil, invalid("Invalid updates")
		}
	}
	raw, ok := updates["displayName"].(string)
	if !ok {
		return nil, invalid("displayName must be a string")
	}
	name := utils.SanitizeText(raw)
	if name == "" || len([]rune(name)) > 50 {
		return nil, invalid("displayName must be between 1 and 50 characters")
	}

	user, err := s.users.Update(ctx, caller, repository.UserUpdate{DisplayName: &name})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	pub := user.Public()
	return &pub, nil
}

// UploadPhoto stores a square JPEG rendition of data as the caller's photo and returns its URL.
func (s *UserService) UploadPhoto(ctx context.Context, caller primitive.ObjectID, data []byte) (string, error) {
	if len(data) == 0 {
		return "", invalid("No file uploaded")
	}
	if int64(len(data)) > int64(s.uploads.MaxPhotoMB)<<20 {
		return "", invalid(fmt.Sprintf("File too large (max %dMB)", s.uploads.MaxPhotoMB))
	}
	photo, err := storage.SquarePhoto(data, s.uploads.PhotoSize)
	if err != nil {
		return "", invalid("Only image files are allowed")
	}

	url, err := s.files.Save(ctx, storage.ObjectName("photo", "photo.jpg"), "image/jpeg", photo)
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if _, err := s.users.Update(ctx, caller, repository.UserUpdate{PhotoURL: &url}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("update photo: %w", err)
	}
	return url, nil
}

func (s *UserService) GetProfile(ctx context.Context, caller *models.User, id primitive.ObjectID) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &UserProfile{
		PublicUser:     user.Public(),
		IsFriend:       caller.IsFriend(user.ID),
		RequestPending: user.HasRequestFrom(caller.ID),
	}, nil
}
