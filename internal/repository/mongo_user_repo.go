package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoUserRepo(ctx context.Context, db *mongo.Database, timeout time.Duration) (UserRepository, error) {
	col := db.Collection(usersCollection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "displayName", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	return &mongoUserRepo{col: col, timeout: timeout}, nil
}

func (r *mongoUserRepo) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Friends == nil {
		u.Friends = []primitive.ObjectID{}
	}
	if u.FriendRequests == nil {
		u.FriendRequests = []primitive.ObjectID{}
	}
	if u.SentFriendRequests == nil {
		u.SentFriendRequests = []primitive.ObjectID{}
	}
	_, err := r.col.InsertOne(ctx, u)
	return translate(err)
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *mongoUserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *mongoUserRepo) Search(ctx context.Context, term string, exclude primitive.ObjectID, limit int64) ([]*models.User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	filter := bson.M{
		"$or": []bson.M{
			{"email": pattern},
			{"displayName": pattern},
		},
		"_id": bson.M{"$ne": exclude},
	}
	opts := options.Find().SetSort(bson.D{{Key: "displayName", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, filter, opts)
}

func (r *mongoUserRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoUserRepo) Update(ctx context.Context, id primitive.ObjectID, upd UserUpdate) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.DisplayName != nil {
		set["displayName"] = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		set["photoURL"] = *upd.PhotoURL
	}

	var u models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *mongoUserRepo) AddFriendRequest(ctx context.Context, from, to primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, to, bson.M{
		"$addToSet": bson.M{"friendRequests": from},
		"$set":      bson.M{"updatedAt": now},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = r.col.UpdateByID(ctx, from, bson.M{
		"$addToSet": bson.M{"sentFriendRequests": to},
		"$set":      bson.M{"updatedAt": now},
	})
	return err
}

func (r *mongoUserRepo) RemoveFriendRequest(ctx context.Context, from, to primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": to, "friendRequests": from},
		bson.M{
			"$pull": bson.M{"friendRequests": from},
			"$set":  bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return false, err
	}
	if _, err := r.col.UpdateByID(ctx, from, bson.M{
		"$pull": bson.M{"sentFriendRequests": to},
		"$set":  bson.M{"updatedAt": now},
	}); err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoUserRepo) AddFriends(ctx context.Context, a, b primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	for _, pair := range [][2]primitive.ObjectID{{a, b}, {b, a}} {
		if _, err := r.col.UpdateByID(ctx, pair[0], bson.M{
			"$addToSet": bson.M{"friends": pair[1]},
			"$set":      bson.M{"updatedAt": now},
		}); err != nil {
			return err
		}
	}
	return nil
}
