package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduauth/internal/config"
	"eduauth/internal/models"
	"eduauth/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

type MongoRepo struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, cfg *config.Config) (*MongoRepo, error) {
	const op = "storage.mongostore.New"

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	db := client.Database(cfg.Mongo.DBName)

	// Unique email index backs the Conflict semantics of registration.
	_, err = db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to create email index: %w", op, err)
	}

	return &MongoRepo{client: client, db: db}, nil
}

func (r *MongoRepo) SaveUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.mongostore.SaveUser"

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to insert user: %w", op, err)
	}

	id, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return models.User{}, fmt.Errorf("%s: unexpected inserted id type", op)
	}
	user.ID = id

	return user, nil
}

func (r *MongoRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.mongostore.UserByEmail"

	return r.findOne(ctx, op, bson.M{"email": email})
}

func (r *MongoRepo) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.mongostore.UserByID"

	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, storage.ErrUserNotFound
	}

	return r.findOne(ctx, op, bson.M{"_id": objectID})
}

// StoreVerificationToken overwrites any outstanding verification token on the
// account. It reports false when no account matched the id.
func (r *MongoRepo) StoreVerificationToken(ctx context.Context, id string, token string, expiresAt time.Time) (bool, error) {
	const op = "storage.mongostore.StoreVerificationToken"

	return r.storeToken(ctx, op, id, bson.M{
		"verification_token":            token,
		"verification_token_expires_at": expiresAt,
	})
}

// StoreResetToken overwrites any outstanding password-reset token on the
// account. It reports false when no account matched the id.
func (r *MongoRepo) StoreResetToken(ctx context.Context, id string, token string, expiresAt time.Time) (bool, error) {
	const op = "storage.mongostore.StoreResetToken"

	return r.storeToken(ctx, op, id, bson.M{
		"reset_password_token":            token,
		"reset_password_token_expires_at": expiresAt,
	})
}

// ConsumeVerificationToken atomically clears an unexpired verification token
// and activates the account in a single conditional update. Unknown, expired
// and already-consumed tokens all come back as storage.ErrTokenNotFound.
func (r *MongoRepo) ConsumeVerificationToken(ctx context.Context, token string) (models.User, error) {
	const op = "storage.mongostore.ConsumeVerificationToken"

	filter := bson.M{
		"verification_token":            token,
		"verification_token_expires_at": bson.M{"$gt": time.Now().UTC()},
	}
	update := bson.M{
		"$set": bson.M{
			"is_verified": true,
			"status":      models.StatusActive,
			"updated_at":  time.Now().UTC(),
		},
		"$unset": bson.M{
			"verification_token":            "",
			"verification_token_expires_at": "",
		},
	}

	return r.consume(ctx, op, filter, update)
}

// ConsumeResetToken atomically clears an unexpired reset token and swaps in
// the new password hash in a single conditional update.
func (r *MongoRepo) ConsumeResetToken(ctx context.Context, token string, newPassHash string) (models.User, error) {
	const op = "storage.mongostore.ConsumeResetToken"

	filter := bson.M{
		"reset_password_token":            token,
		"reset_password_token_expires_at": bson.M{"$gt": time.Now().UTC()},
	}
	update := bson.M{
		"$set": bson.M{
			"hashed_password": newPassHash,
			"updated_at":      time.Now().UTC(),
		},
		"$unset": bson.M{
			"reset_password_token":            "",
			"reset_password_token_expires_at": "",
		},
	}

	return r.consume(ctx, op, filter, update)
}

func (r *MongoRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepo) users() *mongo.Collection {
	return r.db.Collection(usersCollection)
}

func (r *MongoRepo) findOne(ctx context.Context, op string, filter bson.M) (models.User, error) {
	var user models.User

	err := r.users().FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *MongoRepo) storeToken(ctx context.Context, op string, id string, fields bson.M) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%s: invalid id: %w", op, err)
	}

	fields["updated_at"] = time.Now().UTC()

	result, err := r.users().UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": fields})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return result.MatchedCount > 0, nil
}

func (r *MongoRepo) consume(ctx context.Context, op string, filter, update bson.M) (models.User, error) {
	var user models.User

	err := r.users().FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrTokenNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
