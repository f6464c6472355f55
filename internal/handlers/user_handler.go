package handlers

import (
	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/middleware"
	"github.com/fathima-sithara/chat-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users   *services.UserService
	friends *services.FriendService
	uploads config.UploadsConf
}

func NewUserHandler(users *services.UserService, friends *services.FriendService, uploads config.UploadsConf) *UserHandler {
	return &UserHandler{users: users, friends: friends, uploads: uploads}
}

// GET /api/users/search?q=
func (h *UserHandler) Search(c *fiber.Ctx) error {
	found, err := h.users.Search(c.UserContext(), middleware.CurrentUserID(c), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(found)
}

// PATCH /api/users/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	updates := map[string]interface{}{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&updates); err != nil {
			return badRequest("Invalid updates")
		}
	}
	user, err := h.users.UpdateProfile(c.UserContext(), middleware.CurrentUserID(c), updates)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// POST /api/users/profile/photo (multipart "photo")
func (h *UserHandler) UploadPhoto(c *fiber.Ctx) error {
	_, data, err := readUpload(c, "photo", h.uploads.MaxPhotoMB)
	if err != nil {
		return err
	}
	url, err := h.users.UploadPhoto(c.UserContext(), middleware.CurrentUserID(c), data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"photoURL": url})
}

// GET /api/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	profile, err := h.users.GetProfile(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// GET /api/users/friends
func (h *UserHandler) Friends(c *fiber.Ctx) error {
	friends, err := h.friends.Friends(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(friends)
}

// GET /api/users/friend-requests
func (h *UserHandler) FriendRequests(c *fiber.Ctx) error {
	reqs, err := h.friends.Requests(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(reqs)
}

// POST /api/users/:id/friend-request
func (h *UserHandler) SendFriendRequest(c *fiber.Ctx) error {
	target, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	created, err := h.friends.SendRequest(c.UserContext(), middleware.CurrentUser(c), target)
	if err != nil {
		return err
	}
	if !created {
		return c.JSON(fiber.Map{"message": "Friend request already sent"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Friend request sent"})
}

// DELETE /api/users/:id/friend-request
func (h *UserHandler) CancelFriendRequest(c *fiber.Ctx) error {
	target, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	if err := h.friends.CancelRequest(c.UserContext(), middleware.CurrentUserID(c), target); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Friend request canceled"})
}

// POST /api/users/friend-requests/:id/accept
func (h *UserHandler) AcceptFriendRequest(c *fiber.Ctx) error {
	requester, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	if err := h.friends.Accept(c.UserContext(), middleware.CurrentUserID(c), requester); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Friend request accepted"})
}

// DELETE /api/users/friend-requests/:id
func (h *UserHandler) RejectFriendRequest(c *fiber.Ctx) error {
	requester, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	if err := h.friends.Reject(c.UserContext(), middleware.CurrentUserID(c), requester); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Friend request rejected"})
}
