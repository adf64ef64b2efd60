package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestEventLogRecordsEventWithValue(t *testing.T) {
	coll := &stubInsertCollection{}
	log := NewEventLog(coll)
	fixed := time.Date(2025, 11, 28, 15, 54, 43, 123456789, time.UTC)
	log.now = func() time.Time { return fixed }

	if err := log.Record(context.Background(), "donate.invoice", map[string]interface{}{"value": int64(25)}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(coll.docs) != 1 {
		t.Fatalf("expected 1 inserted document, got %d", len(coll.docs))
	}

	doc := coll.docs[0]
	if doc["name"] != "donate.invoice" {
		t.Fatalf("expected name donate.invoice, got %v", doc["name"])
	}
	if got := doc["created_at"].(time.Time); !got.Equal(fixed.Truncate(time.Millisecond)) {
		t.Fatalf("expected created_at truncated to millis, got %v", got)
	}
	value, ok := doc["value"].(map[string]interface{})
	if !ok || value["value"] != int64(25) {
		t.Fatalf("expected value map with 25, got %v", doc["value"])
	}
}

func TestEventLogOmitsEmptyValue(t *testing.T) {
	coll := &stubInsertCollection{}

	if err := NewEventLog(coll).Record(context.Background(), "command.donate", nil); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if _, ok := coll.docs[0]["value"]; ok {
		t.Fatalf("expected value to be omitted, got %v", coll.docs[0])
	}
}

func TestEventLogValidatesInput(t *testing.T) {
	log := NewEventLog(&stubInsertCollection{})

	if err := log.Record(nil, "command.donate", nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if err := log.Record(context.Background(), "", nil); err == nil {
		t.Fatalf("expected error for empty name")
	}

	var nilLog *EventLog
	if err := nilLog.Record(context.Background(), "command.donate", nil); err == nil {
		t.Fatalf("expected error for nil event log")
	}
}

func TestEventLogWrapsInsertError(t *testing.T) {
	insertErr := errors.New("disk full")
	log := NewEventLog(&stubInsertCollection{err: insertErr})

	err := log.Record(context.Background(), "command.donate", nil)
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}

type stubInsertCollection struct {
	docs []bson.M
	err  error
}

func (s *stubInsertCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.docs = append(s.docs, document.(bson.M))
	return &mongo.InsertOneResult{InsertedID: len(s.docs)}, nil
}
