package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a two-party conversation. PairKey is the sorted "a:b" id pair and carries a
// unique index so that two users share at most one chat.
type Chat struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	PairKey      string               `bson:"pairKey" json:"-"`
	LastMessage  *Message             `bson:"lastMessage" json:"lastMessage"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func PairKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

func (c *Chat) HasParticipant(id primitive.ObjectID) bool {
	return containsID(c.Participants, id)
}

// ChatView is a chat with its participants resolved to public profiles.
type ChatView struct {
	ID           string       `json:"id"`
	Participants []PublicUser `json:"participants"`
	LastMessage  *Message     `json:"lastMessage"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
