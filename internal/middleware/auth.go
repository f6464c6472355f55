package middleware

import (
	"errors"
	"strings"

	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	localUser   = "user"
	localUserID = "user_id"
)

var errUnauthenticated = fiber.NewError(fiber.StatusUnauthorized, "Please authenticate")

type TokenParser interface {
	Parse(token string) (string, error)
}

// JWTMiddleware resolves the bearer token to a stored user and puts it in Locals.
func JWTMiddleware(tokens TokenParser, users repository.UserRepository, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return errUnauthenticated
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token == "" {
			return errUnauthenticated
		}

		userID, err := tokens.Parse(token)
		if err != nil {
			return errUnauthenticated
		}
		oid, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return errUnauthenticated
		}
		user, err := users.FindByID(c.UserContext(), oid)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logger.Error("auth user lookup failed", zap.String("user_id", userID), zap.Error(err))
			}
			return errUnauthenticated
		}

		c.Locals(localUser, user)
		c.Locals(localUserID, user.ID)
		return c.Next()
	}
}

// CurrentUser returns the user set by JWTMiddleware, or nil outside authenticated routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

func CurrentUserID(c *fiber.Ctx) primitive.ObjectID {
	id, _ := c.Locals(localUserID).(primitive.ObjectID)
	return id
}
