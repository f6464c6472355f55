package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoChatRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoChatRepo(ctx context.Context, db *mongo.Database, timeout time.Duration) (ChatRepository, error) {
	col := db.Collection(chatsCollection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pairKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create chat indexes: %w", err)
	}
	return &mongoChatRepo{col: col, timeout: timeout}, nil
}

func (r *mongoChatRepo) Create(ctx context.Context, c *models.Chat) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if len(c.Participants) == 2 {
		c.PairKey = models.PairKey(c.Participants[0], c.Participants[1])
	}
	_, err := r.col.InsertOne(ctx, c)
	return translate(err)
}

func (r *mongoChatRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoChatRepo) FindByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error) {
	return r.findOne(ctx, bson.M{"pairKey": models.PairKey(a, b)})
}

func (r *mongoChatRepo) findOne(ctx context.Context, filter bson.M) (*models.Chat, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var c models.Chat
	if err := r.col.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *mongoChatRepo) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Chat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoChatRepo) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, m *models.Message) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"lastMessage": m, "updatedAt": m.CreatedAt},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
