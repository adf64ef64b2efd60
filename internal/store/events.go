package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type insertCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// EventLog appends usage events (command invocations, issued invoices) to the
// events collection.
type EventLog struct {
	events insertCollection
	now    func() time.Time
}

// NewEventLog constructs an EventLog backed by the provided collection.
func NewEventLog(events insertCollection) *EventLog {
	return &EventLog{
		events: events,
		now:    time.Now,
	}
}

// Record stores one event. Value is optional and stored only when non-empty.
func (l *EventLog) Record(ctx context.Context, name string, value map[string]interface{}) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if l == nil || l.events == nil {
		return errors.New("event log is not initialized")
	}
	if name == "" {
		return errors.New("event name is required")
	}

	doc := bson.M{
		"name":       name,
		"created_at": l.now().UTC().Truncate(time.Millisecond),
	}
	if len(value) > 0 {
		doc["value"] = value
	}

	if _, err := l.events.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert event %s: %w", name, err)
	}

	return nil
}
