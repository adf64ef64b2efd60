package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type findOneAndUpdateCollection interface {
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// Sequence hands out monotonically increasing numeric ids per name, so
// documents keep the opaque integer identity and insertion order the catalog
// sorts ties by.
type Sequence struct {
	counters findOneAndUpdateCollection
}

// NewSequence constructs a Sequence backed by the counters collection.
func NewSequence(counters findOneAndUpdateCollection) *Sequence {
	return &Sequence{counters: counters}
}

// Next increments and returns the counter for name, starting at 1.
func (s *Sequence) Next(ctx context.Context, name string) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if s == nil || s.counters == nil {
		return 0, errors.New("sequence is not initialized")
	}
	if name == "" {
		return 0, errors.New("sequence name is required")
	}

	result := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	if result == nil {
		return 0, errors.New("next sequence returned no result")
	}
	if err := result.Err(); err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := result.Decode(&counter); err != nil {
		return 0, fmt.Errorf("decode %s counter: %w", name, err)
	}

	return counter.Seq, nil
}
