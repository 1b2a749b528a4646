package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) EntryStore {
	return &mongoStore{
		collection: db.Collection("shoppingcart"),
	}
}

func (m *mongoStore) Get(ctx context.Context, scanID string) (*domain.CartEntry, error) {
	var entry domain.CartEntry
	err := m.collection.FindOne(ctx, bson.M{"_id": scanID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get cart entry: %w", err)
	}
	return &entry, nil
}

func (m *mongoStore) List(ctx context.Context) ([]*domain.CartEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "toggled_at", Value: 1}})
	cur, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart entries: %w", err)
	}
	defer cur.Close(ctx)

	entries := make([]*domain.CartEntry, 0)
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode cart entries: %w", err)
	}
	return entries, nil
}

func (m *mongoStore) Insert(ctx context.Context, entry *domain.CartEntry) error {
	// _id is the scan id, so a second insert for the same tag is rejected by the server
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to insert cart entry: %w", err)
	}
	return nil
}

func (m *mongoStore) Delete(ctx context.Context, scanID string) (bool, error) {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": scanID})
	if err != nil {
		return false, fmt.Errorf("failed to delete cart entry: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (m *mongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "toggled_at", Value: 1}}},
		{Keys: bson.D{{Key: "item_id", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
