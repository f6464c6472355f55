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

type mongoMessageRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoMessageRepo(ctx context.Context, db *mongo.Database, timeout time.Duration) (MessageRepository, error) {
	col := db.Collection(messagesCollection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create message indexes: %w", err)
	}
	return &mongoMessageRepo{col: col, timeout: timeout}, nil
}

func (r *mongoMessageRepo) Create(ctx context.Context, m *models.Message) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	if m.ReadBy == nil {
		m.ReadBy = []primitive.ObjectID{}
	}
	if m.Status == "" {
		m.Status = models.StatusSent
	}
	_, err := r.col.InsertOne(ctx, m)
	return translate(err)
}

func (r *mongoMessageRepo) ListByChat(ctx context.Context, chatID primitive.ObjectID, q MessageQuery) ([]*models.Message, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"chatId": chatID}
	if !q.Before.IsZero() {
		filter["createdAt"] = bson.M{"$lt": q.Before}
	}
	// newest first so the limit keeps the most recent page, reversed below
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *mongoMessageRepo) MarkRead(ctx context.Context, chatID, reader primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"chatId":   chatID,
		"senderId": bson.M{"$ne": reader},
		"readBy":   bson.M{"$ne": reader},
	}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	res, err := r.col.UpdateMany(ctx, filter, bson.M{
		"$addToSet": bson.M{"readBy": reader},
		"$set": bson.M{
			"read":      true,
			"status":    models.StatusRead,
			"updatedAt": time.Now().UTC(),
		},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
