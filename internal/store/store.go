// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"donation_bot/internal/config"
)

// Collection names used across the bot.
const (
	CollectionUsers       = "users"
	CollectionConfessions = "confessions"
	CollectionDonations   = "donations"
	CollectionEvents      = "events"
	CollectionCounters    = "counters"
)

// mongoClient captures the subset of mongo.Client behavior we rely on to allow
// lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

// createIndexes is overridable for tests.
var createIndexes = func(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
	return coll.Indexes().CreateMany(ctx, models)
}

// Manager owns a MongoDB client and the configured database handle.
type Manager struct {
	client mongoClient
	db     *mongo.Database
}

// NewManager initializes the Mongo client using the supplied configuration and
// verifies connectivity with a ping.
func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Manager{
		client: client,
		db:     client.Database(cfg.MongoDB),
	}, nil
}

// Database returns the configured database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// Collection returns a collection handle for the given name.
func (m *Manager) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Users returns the users collection handle.
func (m *Manager) Users() *mongo.Collection {
	return m.Collection(CollectionUsers)
}

// Confessions returns the confessions collection handle.
func (m *Manager) Confessions() *mongo.Collection {
	return m.Collection(CollectionConfessions)
}

// Donations returns the donation options collection handle.
func (m *Manager) Donations() *mongo.Collection {
	return m.Collection(CollectionDonations)
}

// Events returns the usage events collection handle.
func (m *Manager) Events() *mongo.Collection {
	return m.Collection(CollectionEvents)
}

// Counters returns the id sequences collection handle.
func (m *Manager) Counters() *mongo.Collection {
	return m.Collection(CollectionCounters)
}

// Ping checks connectivity against the primary. It backs the health endpoint.
func (m *Manager) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.client == nil {
		return errors.New("store manager is not initialized")
	}

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// EnsureBaseIndexes creates the indexes the bot queries rely on. Collections are
// created implicitly if they do not already exist.
func (m *Manager) EnsureBaseIndexes(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Users(), userIndexes); err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}

	donationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "confession_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("confession_active"),
		},
		{
			Keys:    bson.D{{Key: "branch_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("branch_active"),
		},
		{
			Keys:    bson.D{{Key: "order", Value: 1}},
			Options: options.Index().SetName("order"),
		},
	}

	if _, err := createIndexes(ctx, m.Donations(), donationIndexes); err != nil {
		return fmt.Errorf("create donations indexes: %w", err)
	}

	eventIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("name_created_at"),
		},
	}

	if _, err := createIndexes(ctx, m.Events(), eventIndexes); err != nil {
		return fmt.Errorf("create events indexes: %w", err)
	}

	return nil
}

// Close disconnects the Mongo client.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return m.client.Disconnect(ctx)
}
