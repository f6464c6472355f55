package routes

import (
	"github.com/fathima-sithara/chat-backend/internal/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth  *handlers.AuthHandler
	Users *handlers.UserHandler
	Chats *handlers.ChatHandler
}

// Setup mounts the API. Static /api/users paths are registered before /:id so they win.
func Setup(app *fiber.App, h Handlers, requireAuth fiber.Handler) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Get("/me", requireAuth, h.Auth.Me)

	chat := api.Group("/chat", requireAuth)
	chat.Get("/", h.Chats.ListChats)
	chat.Post("/", h.Chats.CreateChat)
	chat.Get("/:id/messages", h.Chats.ListMessages)
	chat.Post("/:id/messages", h.Chats.SendMessage)
	chat.Post("/:id/messages/file", h.Chats.SendFile)
	chat.Post("/:id/messages/read", h.Chats.MarkRead)

	users := api.Group("/users", requireAuth)
	users.Get("/search", h.Users.Search)
	users.Patch("/profile", h.Users.UpdateProfile)
	users.Post("/profile/photo", h.Users.UploadPhoto)
	users.Get("/friends", h.Users.Friends)
	users.Get("/friend-requests", h.Users.FriendRequests)
	users.Post("/friend-requests/:id/accept", h.Users.AcceptFriendRequest)
	users.Delete("/friend-requests/:id", h.Users.RejectFriendRequest)
	users.Get("/:id", h.Users.GetUser)
	users.Post("/:id/friend-request", h.Users.SendFriendRequest)
	users.Delete("/:id/friend-request", h.Users.CancelFriendRequest)
}
