package domain

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound reports a lookup that matched no document.
var ErrNotFound = errors.New("not found")

type findOneCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

type listCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// UserRepository reads users written by the registrar.
type UserRepository struct {
	collection findOneCollection
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(collection findOneCollection) *UserRepository {
	return &UserRepository{collection: collection}
}

// GetByID fetches a user by Telegram user_id. A missing user yields ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return User{}, errors.New("context is required")
	}
	if userID == 0 {
		return User{}, errors.New("user_id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return User{}, errors.New("find user returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// LanguageOf returns the stored language of a user, or "" when unknown.
func (r *UserRepository) LanguageOf(ctx context.Context, userID int64) (string, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	return user.LanguageCode, nil
}

// ConfessionRepository reads confessions from MongoDB.
type ConfessionRepository struct {
	collection listCollection
}

// NewConfessionRepository constructs a ConfessionRepository.
func NewConfessionRepository(collection listCollection) *ConfessionRepository {
	return &ConfessionRepository{collection: collection}
}

// List returns every confession ordered by id.
func (r *ConfessionRepository) List(ctx context.Context) ([]Confession, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("confession repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find confessions: %w", err)
	}

	confessions := make([]Confession, 0)
	if err := cursor.All(ctx, &confessions); err != nil {
		return nil, fmt.Errorf("decode confessions: %w", err)
	}

	return confessions, nil
}
