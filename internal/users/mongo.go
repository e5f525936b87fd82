package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campushub/auth-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB. Numeric user ids come
// from a counter document in the "counters" collection.
type MongoRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

// NewMongoRepository creates a new repository on the given database
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("users"), counters: db.Collection("counters")}
}

// EnsureIndexes creates the unique indexes the repository relies on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return wrapMongoErr("create user indexes", err)
	}
	return nil
}

func (r *MongoRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": "users"}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&counter)
	if err != nil {
		return 0, wrapMongoErr("allocate user id", err)
	}
	return counter.Seq, nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, bson.M{"user_id": id})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapMongoErr("find user", err)
	}
	return &u, nil
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	u.ID = id
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return wrapMongoErr("insert user", err)
	}
	return nil
}

func (r *MongoRepository) UpdateFederated(ctx context.Context, email string, upd models.FederatedUpdate) (*models.User, error) {
	set := bson.M{"$set": bson.M{
		"google_id":       upd.GoogleID,
		"username":        upd.Username,
		"profile_picture": upd.ProfilePicture,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"email": email}, set, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapMongoErr("update user", err)
	}
	return &updated, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, email string, status models.Status, active bool) (*models.User, error) {
	set := bson.M{"$set": bson.M{"status": status, "active": active}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"email": email}, set, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapMongoErr("update user status", err)
	}
	return &updated, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	if err := r.col.Database().Client().Ping(ctx, nil); err != nil {
		return wrapMongoErr("ping", err)
	}
	return nil
}

func wrapMongoErr(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
