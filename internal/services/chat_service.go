package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/events"
	"github.com/fathima-sithara/chat-backend/internal/models"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/fathima-sithara/chat-backend/internal/storage"
	"github.com/fathima-sithara/chat-backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultFileContent = "File message"

type MessageCounter interface {
	MessageCreated(msgType string)
}

type ChatService struct {
	users     repository.UserRepository
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	files     storage.FileStore
	uploads   config.UploadsConf
	publisher events.Publisher
	counter   MessageCounter
	logger    *zap.Logger
}

type ChatDeps struct {
	Store     *repository.Store
	Files     storage.FileStore
	Uploads   config.UploadsConf
	Publisher events.Publisher
	Counter   MessageCounter
	Logger    *zap.Logger
}

func NewChatService(d ChatDeps) *ChatService {
	return &ChatService{
		users:     d.Store.Users,
		chats:     d.Store.Chats,
		messages:  d.Store.Messages,
		files:     d.Files,
		uploads:   d.Uploads,
		publisher: d.Publisher,
		counter:   d.Counter,
		logger:    d.Logger,
	}
}

// FileMessageInput is an uploaded attachment plus the optional form fields sent with it.
type FileMessageInput struct {
	Type        models.MessageType
	Content     string
	Duration    *float64
	Filename    string
	ContentType string
	Data        []byte
}

type messageEvent struct {
	ChatID       string               `json:"chatId"`
	Message      *models.Message      `json:"message"`
	Participants []primitive.ObjectID `json:"participants"`
}

type readEvent struct {
	ChatID  string `json:"chatId"`
	Reader  string `json:"reader"`
	Updated int64  `json:"updated"`
}

func (s *ChatService) ListChats(ctx context.Context, caller primitive.ObjectID) ([]models.ChatView, error) {
	chats, err := s.chats.ListForUser(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	var ids []primitive.ObjectID
	for _, c := range chats {
		ids = append(ids, c.Participants...)
	}
	people, err := publicUsers(ctx, s.users, ids)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	out := make([]models.ChatView, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatView(c, people))
	}
	return out, nil
}

// GetOrCreateChat returns the chat between caller and participant, creating it if needed.
func (s *ChatService) GetOrCreateChat(ctx context.Context, caller, participant primitive.ObjectID) (view *models.ChatView, created bool, err error) {
	if caller == participant {
		return nil, false, invalid("Cannot create a chat with yourself")
	}
	if _, err := s.users.FindByID(ctx, participant); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("find participant: %w", err)
	}

	chat, err := s.chats.FindByPair(ctx, caller, participant)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		chat = &models.Chat{Participants: []primitive.ObjectID{caller, participant}}
		err = s.chats.Create(ctx, chat)
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a concurrent create for the same pair
			chat, err = s.chats.FindByPair(ctx, caller, participant)
		} else if err == nil {
			created = true
		}
		if err != nil {
			return nil, false, fmt.Errorf("create chat: %w", err)
		}
	default:
		return nil, false, fmt.Errorf("find chat: %w", err)
	}

	people, err := publicUsers(ctx, s.users, chat.Participants)
	if err != nil {
		return nil, false, fmt.Errorf("load participants: %w", err)
	}
	if created {
		publish(ctx, s.publisher, s.logger, events.New(events.ChatCreated, chat.ID.Hex(), chat))
	}
	v := chatView(chat, people)
	return &v, created, nil
}

// chatFor loads a chat the caller participates in.
func (s *ChatService) chatFor(ctx context.Context, caller, chatID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("find chat: %w", err)
	}
	if !chat.HasParticipant(caller) {
		return nil, ErrAccessDenied
	}
	return chat, nil
}

func (s *ChatService) ListMessages(ctx context.Context, caller, chatID primitive.ObjectID, q repository.MessageQuery) ([]models.MessageView, error) {
	chat, err := s.chatFor(ctx, caller, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByChat(ctx, chat.ID, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	people, err := publicUsers(ctx, s.users, chat.Participants)
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}

	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView(m, people))
	}
	return out, nil
}

func (s *ChatService) SendText(ctx context.Context, caller *models.User, chatID primitive.ObjectID, content string) (*models.MessageView, error) {
	content = utils.SanitizeText(content)
	if content == "" {
		return nil, invalid("Message content is required")
	}
	chat, err := s.chatFor(ctx, caller.ID, chatID)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, caller, chat, &models.Message{Type: models.MessageText, Content: content})
}

func (s *ChatService) SendFile(ctx context.Context, caller *models.User, chatID primitive.ObjectID, in FileMessageInput) (*models.MessageView, error) {
	if len(in.Data) == 0 {
		return nil, invalid("No file uploaded")
	}
	if int64(len(in.Data)) > int64(s.uploads.MaxFileMB)<<20 {
		return nil, invalid(fmt.Sprintf("File too large (max %dMB)", s.uploads.MaxFileMB))
	}
	if in.Type == "" {
		in.Type = models.MessageImage
	}
	if !in.Type.IsAttachment() {
		return nil, invalid("Invalid message type")
	}
	if in.Duration != nil && *in.Duration < 0 {
		return nil, invalid("Invalid duration")
	}
	content := utils.SanitizeText(in.Content)
	if content == "" {
		content = defaultFileContent
	}

	chat, err := s.chatFor(ctx, caller.ID, chatID)
	if err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(in.Data)
	}
	fileURL, err := s.files.Save(ctx, storage.ObjectName("file", in.Filename), contentType, in.Data)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	msg := &models.Message{Type: in.Type, Content: content, FileURL: fileURL, Duration: in.Duration}
	if in.Type == models.MessageImage {
		msg.ThumbnailURL = s.thumbnail(ctx, in.Data)
	}
	return s.store(ctx, caller, chat, msg)
}

// thumbnail is best effort: a file that does not decode as an image simply gets none.
func (s *ChatService) thumbnail(ctx context.Context, data []byte) string {
	thumb, err := storage.Thumbnail(data, s.uploads.ThumbnailWidth)
	if err != nil {
		s.logger.Debug("thumbnail skipped", zap.Error(err))
		return ""
	}
	url, err := s.files.Save(ctx, storage.ObjectName("thumb", "thumb.jpg"), "image/jpeg", thumb)
	if err != nil {
		s.logger.Warn("thumbnail store failed", zap.Error(err))
		return ""
	}
	return url
}

func (s *ChatService) store(ctx context.Context, sender *models.User, chat *models.Chat, msg *models.Message) (*models.MessageView, error) {
	msg.ChatID = chat.ID
	msg.SenderID = sender.ID
	msg.Status = models.StatusSent
	msg.ReadBy = []primitive.ObjectID{}
	msg.CreatedAt = time.Now().UTC()

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.chats.SetLastMessage(ctx, chat.ID, msg); err != nil {
		return nil, fmt.Errorf("update last message: %w", err)
	}

	if s.counter != nil {
		s.counter.MessageCreated(string(msg.Type))
	}
	publish(ctx, s.publisher, s.logger, events.New(events.MessageCreated, chat.ID.Hex(), messageEvent{
		ChatID:       chat.ID.Hex(),
		Message:      msg,
		Participants: chat.Participants,
	}))

	pub := sender.Public()
	return &models.MessageView{Message: *msg, Sender: &pub}, nil
}

// MarkRead records caller as a reader of the chat's messages from other participants.
// ids narrows the update to specific messages; empty means all of them.
func (s *ChatService) MarkRead(ctx context.Context, caller, chatID primitive.ObjectID, ids []string) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return 0, invalid("Invalid message id")
		}
		oids = append(oids, oid)
	}

	chat, err := s.chatFor(ctx, caller, chatID)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkRead(ctx, chat.ID, caller, oids)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	if n > 0 {
		publish(ctx, s.publisher, s.logger, events.New(events.MessagesRead, chat.ID.Hex(), readEvent{
			ChatID: chat.ID.Hex(), Reader: caller.Hex(), Updated: n,
		}))
	}
	return n, nil
}

func chatView(c *models.Chat, people map[primitive.ObjectID]models.PublicUser) models.ChatView {
	v := models.ChatView{
		ID:           c.ID.Hex(),
		Participants: make([]models.PublicUser, 0, len(c.Participants)),
		LastMessage:  c.LastMessage,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	for _, id := range c.Participants {
		if p, ok := people[id]; ok {
			v.Participants = append(v.Participants, p)
		}
	}
	return v
}

func messageView(m *models.Message, people map[primitive.ObjectID]models.PublicUser) models.MessageView {
	v := models.MessageView{Message: *m}
	if p, ok := people[m.SenderID]; ok {
		v.Sender = &p
	}
	return v
}
