package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account document in the users collection.
type User struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email              string               `bson:"email" json:"email"`
	PasswordHash       string               `bson:"password" json:"-"`
	DisplayName        string               `bson:"displayName" json:"displayName"`
	PhotoURL           string               `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Friends            []primitive.ObjectID `bson:"friends" json:"friends"`
	FriendRequests     []primitive.ObjectID `bson:"friendRequests" json:"friendRequests"`
	SentFriendRequests []primitive.ObjectID `bson:"sentFriendRequests" json:"sentFriendRequests"`
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is what other users (and the owner, outside of /me) get to see.
type PublicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID.Hex(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}

func (u *User) IsFriend(id primitive.ObjectID) bool {
	return containsID(u.Friends, id)
}

func (u *User) HasRequestFrom(id primitive.ObjectID) bool {
	return containsID(u.FriendRequests, id)
}

func (u *User) HasSentRequestTo(id primitive.ObjectID) bool {
	return containsID(u.SentFriendRequests, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
