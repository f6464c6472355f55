package handlers

import (
	"strconv"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/middleware"
	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/fathima-sithara/chat-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxPageSize = 200

type ChatHandler struct {
	svc     *services.ChatService
	uploads config.UploadsConf
}

func NewChatHandler(svc *services.ChatService, uploads config.UploadsConf) *ChatHandler {
	return &ChatHandler{svc: svc, uploads: uploads}
}

// GET /api/chat
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	chats, err := h.svc.ListChats(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(chats)
}

type createChatReq struct {
	ParticipantID string `json:"participantId"`
}

// POST /api/chat
func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	var req createChatReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	participant, err := primitive.ObjectIDFromHex(req.ParticipantID)
	if err != nil {
		return badRequest("Invalid participant id")
	}

	chat, created, err := h.svc.GetOrCreateChat(c.UserContext(), middleware.CurrentUserID(c), participant)
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(chat)
}

// GET /api/chat/:id/messages?limit=&before=
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id", "chat")
	if err != nil {
		return err
	}

	var q repository.MessageQuery
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest("Invalid limit")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		q.Limit = int64(n)
	}
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return badRequest("Invalid before timestamp")
		}
		q.Before = t
	}

	msgs, err := h.svc.ListMessages(c.UserContext(), middleware.CurrentUserID(c), chatID, q)
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

type sendMessageReq struct {
	Content string `json:"content"`
}

// POST /api/chat/:id/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id", "chat")
	if err != nil {
		return err
	}
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	msg, err := h.svc.SendText(c.UserContext(), middleware.CurrentUser(c), chatID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// POST /api/chat/:id/messages/file (multipart "file", optional type, content, duration)
func (h *ChatHandler) SendFile(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id", "chat")
	if err != nil {
		return err
	}
	fh, data, err := readUpload(c, "file", h.uploads.MaxFileMB)
	if err != nil {
		return err
	}

	in := services.FileMessageInput{
		Type:        models.MessageType(c.FormValue("type")),
		Content:     c.FormValue("content"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}
	if raw := c.FormValue("duration"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badRequest("Invalid duration")
		}
		in.Duration = &d
	}

	msg, err := h.svc.SendFile(c.UserContext(), middleware.CurrentUser(c), chatID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

type markReadReq struct {
	MessageIDs []string `json:"messageIds"`
}

// POST /api/chat/:id/messages/read
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id", "chat")
	if err != nil {
		return err
	}
	var req markReadReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("Invalid request body")
		}
	}

	n, err := h.svc.MarkRead(c.UserContext(), middleware.CurrentUserID(c), chatID, req.MessageIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n})
}
