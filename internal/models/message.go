package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVoice MessageType = "voice"
)

// IsAttachment reports whether messages of type t carry an uploaded file.
func (t MessageType) IsAttachment() bool {
	return t == MessageImage || t == MessageVoice
}

type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusError     MessageStatus = "error"
)

type Message struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ChatID       primitive.ObjectID   `bson:"chatId" json:"chatId"`
	SenderID     primitive.ObjectID   `bson:"senderId" json:"senderId"`
	Type         MessageType          `bson:"type" json:"type"`
	Content      string               `bson:"content" json:"content"`
	FileURL      string               `bson:"fileURL,omitempty" json:"fileURL,omitempty"`
	ThumbnailURL string               `bson:"thumbnailURL,omitempty" json:"thumbnailURL,omitempty"`
	Duration     *float64             `bson:"duration,omitempty" json:"duration,omitempty"`
	Read         bool                 `bson:"read" json:"read"`
	ReadBy       []primitive.ObjectID `bson:"readBy" json:"readBy"`
	Status       MessageStatus        `bson:"status" json:"status"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveStatus reports "read"/"delivered" for messages still stored as "sent".
func (m *Message) EffectiveStatus() MessageStatus {
	if m.Status != "" && m.Status != StatusSent {
		return m.Status
	}
	switch {
	case m.Read:
		return StatusRead
	case len(m.ReadBy) > 0:
		return StatusDelivered
	default:
		return StatusSent
	}
}

func (m *Message) IsReadBy(id primitive.ObjectID) bool {
	return containsID(m.ReadBy, id)
}

type plainMessage Message

type messageJSON struct {
	plainMessage
	Timestamp time.Time `json:"timestamp"`
}

func (m Message) toJSON() messageJSON {
	p := plainMessage(m)
	if p.ReadBy == nil {
		p.ReadBy = []primitive.ObjectID{}
	}
	p.Status = m.EffectiveStatus()
	return messageJSON{plainMessage: p, Timestamp: m.CreatedAt}
}

// MarshalJSON adds the derived status and a timestamp alias used by clients.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.toJSON())
}

// MessageView is a message with its sender resolved.
type MessageView struct {
	Message
	Sender *PublicUser `json:"sender,omitempty"`
}

func (v MessageView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		messageJSON
		Sender *PublicUser `json:"sender,omitempty"`
	}{messageJSON: v.Message.toJSON(), Sender: v.Sender})
}
