package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) TagStore {
	return &mongoStore{
		collection: db.Collection("tags"),
	}
}

func (m *mongoStore) Get(ctx context.Context, uid string) (*domain.ScanTag, error) {
	var tag domain.ScanTag
	err := m.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&tag)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

func (m *mongoStore) List(ctx context.Context) ([]*domain.ScanTag, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer cur.Close(ctx)

	tags := make([]*domain.ScanTag, 0)
	if err := cur.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func (m *mongoStore) SetLink(ctx context.Context, uid string, itemID *string, now time.Time) (*domain.ScanTag, error) {
	filter := bson.M{"_id": uid}
	update := bson.M{
		"$set": bson.M{
			"linked_item_id": itemID,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var tag domain.ScanTag
	if err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tag); err != nil {
		return nil, fmt.Errorf("failed to link tag: %w", err)
	}
	return &tag, nil
}

func (m *mongoStore) Touch(ctx context.Context, uid string, now time.Time) (*domain.ScanTag, error) {
	filter := bson.M{"_id": uid}
	// updated_at = max(now, updated_at + 1ms), evaluated server side
	next := bson.D{{Key: "$max", Value: bson.A{
		now,
		bson.D{{Key: "$add", Value: bson.A{"$updated_at", 1}}},
	}}}
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{{Key: "updated_at", Value: next}}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tag domain.ScanTag
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tag)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to touch tag: %w", err)
	}
	return &tag, nil
}

func (m *mongoStore) Delete(ctx context.Context, uid string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": uid})
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrTagNotFound
	}
	return nil
}

// CreateIndexes adds the secondary indexes used by admin listings and
// by "which tags point at this item" lookups.
func (m *mongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "linked_item_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
