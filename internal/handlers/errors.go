package handlers

import (
	"errors"

	"github.com/fathima-sithara/chat-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const internalErrorMessage = "Something went wrong!"

var serviceErrors = []struct {
	err     error
	code    int
	message string
}{
	{services.ErrUserExists, fiber.StatusBadRequest, "User already exists"},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid email or password"},
	{services.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
	{services.ErrChatNotFound, fiber.StatusNotFound, "Chat not found"},
	{services.ErrAccessDenied, fiber.StatusForbidden, "Access denied"},
	{services.ErrAlreadyFriends, fiber.StatusBadRequest, "Already friends"},
	{services.ErrRequestFromTarget, fiber.StatusBadRequest, "User already sent you a friend request"},
	{services.ErrRequestNotFound, fiber.StatusNotFound, "Friend request not found"},
}

// httpError maps err to a status code and the message shown to clients.
func httpError(err error) (int, string, bool) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message, true
	}
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, ve.Message, true
	}
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			return se.code, se.message, true
		}
	}
	return fiber.StatusInternalServerError, internalErrorMessage, false
}

// ErrorHandler renders every error as {"message": ...}. Unexpected errors are logged and
// hidden behind a generic 500.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg, known := httpError(err)
		if !known || code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
