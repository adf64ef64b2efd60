// Package catalog is the read-only query layer over the donation options collection.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"donation_bot/internal/domain"
)

// ErrInvalidScope reports a filter that cannot match any stored id.
var ErrInvalidScope = errors.New("invalid catalog scope")

type findCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Scope narrows catalog queries. Zero ids mean "not filtered".
type Scope struct {
	ConfessionID int64
	BranchID     int64
}

// Catalog answers donation option queries. Every call reads the collection;
// nothing is cached.
type Catalog struct {
	donations findCollection
}

// New constructs a Catalog over the donations collection.
func New(donations findCollection) *Catalog {
	return &Catalog{donations: donations}
}

// ListActive returns active options in the scope, ordered by order then insertion.
func (c *Catalog) ListActive(ctx context.Context, scope Scope) ([]domain.DonationOption, error) {
	filter, err := scopeFilter(scope)
	if err != nil {
		return nil, err
	}

	return c.find(ctx, filter, options.Find().SetSort(displayOrder()))
}

// ListByPurpose is ListActive restricted to one purpose tag. Unknown purposes
// yield an empty list.
func (c *Catalog) ListByPurpose(ctx context.Context, purpose string, confessionID int64) ([]domain.DonationOption, error) {
	filter, err := scopeFilter(Scope{ConfessionID: confessionID})
	if err != nil {
		return nil, err
	}
	filter["purpose"] = strings.TrimSpace(purpose)

	return c.find(ctx, filter, options.Find().SetSort(displayOrder()))
}

// GetByID looks up an active option. found is false when the id does not exist
// or the option is inactive; err is reserved for storage failures.
func (c *Catalog) GetByID(ctx context.Context, id int64) (option domain.DonationOption, found bool, err error) {
	if id <= 0 {
		return domain.DonationOption{}, false, nil
	}

	results, err := c.find(ctx, bson.M{"_id": id, "active": true}, options.Find().SetLimit(1))
	if err != nil {
		return domain.DonationOption{}, false, err
	}
	if len(results) == 0 {
		return domain.DonationOption{}, false, nil
	}

	return results[0], true, nil
}

func (c *Catalog) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.DonationOption, error) {
	if c == nil || c.donations == nil {
		return nil, errors.New("catalog is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := c.donations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find donation options: %w", err)
	}

	results := make([]domain.DonationOption, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode donation options: %w", err)
	}

	return results, nil
}

func scopeFilter(scope Scope) (bson.M, error) {
	if scope.ConfessionID < 0 || scope.BranchID < 0 {
		return nil, fmt.Errorf("%w: confession=%d branch=%d", ErrInvalidScope, scope.ConfessionID, scope.BranchID)
	}

	filter := bson.M{"active": true}
	if scope.ConfessionID != 0 {
		filter["confession_id"] = scope.ConfessionID
	}
	if scope.BranchID != 0 {
		filter["branch_id"] = scope.BranchID
	}

	return filter, nil
}

func displayOrder() bson.D {
	return bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}}
}
