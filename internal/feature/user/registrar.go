// Package user keeps a record of everyone who talks to the bot, including the
// language their client reports.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"donation_bot/internal/domain"
	"donation_bot/internal/logging"
)

type userCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Registrar upserts senders into the users collection.
type Registrar struct {
	users  userCollection
	logger *logrus.Entry
	now    func() time.Time
}

// NewRegistrar constructs a Registrar for the provided users collection.
func NewRegistrar(users userCollection, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureUser creates the user on first contact and refreshes last_seen_at on
// every call. A non-empty languageCode replaces the stored language, so a
// user who switches their client language gets replies in the new one.
func (r *Registrar) EnsureUser(ctx context.Context, userID int64, languageCode string) (bool, error) {
	if r == nil || r.users == nil {
		return false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if userID == 0 {
		return false, errors.New("user id is required")
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"updated_at":   now,
		"last_seen_at": now,
	}
	if lang := domain.NormalizeLocale(languageCode); lang != "" {
		set["language_code"] = lang
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"created_at": now,
		},
	}

	result, err := r.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}

	fields := logging.Fields{"user_id": userID}
	if lang, ok := set["language_code"]; ok {
		fields["language_code"] = lang
	}

	if result != nil && result.UpsertedCount > 0 {
		fields["event"] = "user_registered"
		r.logger.WithFields(fields).Info("registered new user")
		return true, nil
	}

	fields["event"] = "user_seen"
	r.logger.WithFields(fields).Debug("updated user last seen")
	return false, nil
}
