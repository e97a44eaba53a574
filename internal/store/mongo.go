package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore stores one document per processed file, replaced wholesale on
// re-processing.
type MongoStore struct {
	client   *mongo.Client
	database string
	logger   *zap.Logger
}

// NewMongoStore connects and pings so a bad URI fails at startup, not at the
// first write.
func NewMongoStore(ctx context.Context, uri string, database string, logger *zap.Logger) (*MongoStore, error) {
	client, connectErr := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if connectErr != nil {
		return nil, fmt.Errorf("connect mongo: %w", connectErr)
	}
	if pingErr := client.Ping(ctx, nil); pingErr != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", pingErr)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoStore{client: client, database: database, logger: logger}, nil
}

func (s *MongoStore) Upsert(ctx context.Context, collection string, key string, document map[string]any) error {
	coll := s.client.Database(s.database).Collection(collection)
	filter := bson.M{KeyField: key}
	result, err := coll.ReplaceOne(ctx, filter, document, options.Replace().SetUpsert(true))
	if err != nil {
		return &StorageError{Op: "upsert", Collection: collection, Err: err}
	}
	s.logger.Info("stored document",
		zap.String("collection", collection),
		zap.String(KeyField, key),
		zap.Int64("matched", result.MatchedCount),
		zap.Int64("upserted", result.UpsertedCount))
	return nil
}

func (s *MongoStore) FindByKey(ctx context.Context, collection string, key string) (map[string]any, error) {
	coll := s.client.Database(s.database).Collection(collection)
	var document bson.M
	err := coll.FindOne(ctx, bson.M{KeyField: key}).Decode(&document)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "find", Collection: collection, Err: err}
	}
	return map[string]any(document), nil
}

func (s *MongoStore) ListKeys(ctx context.Context, collection string) ([]string, error) {
	coll := s.client.Database(s.database).Collection(collection)
	values, err := coll.Distinct(ctx, KeyField, bson.D{})
	if err != nil {
		return nil, &StorageError{Op: "list", Collection: collection, Err: err}
	}
	keys := make([]string, 0, len(values))
	for _, value := range values {
		if key, ok := value.(string); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
