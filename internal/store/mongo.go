package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/iksnae/wa-history/internal"
)

// DefaultMongoDatabase is used when the connection string names no database
const DefaultMongoDatabase = "wa_history"

// MongoStore keeps one document per conversation in the persisted shape
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// OpenMongo connects to MongoDB and ensures the unique wa_id index
func OpenMongo(ctx context.Context, uri string, opts Options) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: mongo uri: %v", internal.ErrInvalidInput, err)
	}
	database := cs.Database
	if database == "" {
		database = DefaultMongoDatabase
	}

	timeout := opts.timeout()
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	s := &MongoStore{
		client:  client,
		coll:    client.Database(database).Collection(DefaultCollection),
		timeout: timeout,
	}
	_, err = s.coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "wa_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create wa_id index: %w", err)
	}
	return s, nil
}

// FindByConversationID loads one conversation
func (s *MongoStore) FindByConversationID(ctx context.Context, waID string) (*internal.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var conv internal.Conversation
	err := s.coll.FindOne(ctx, bson.M{"wa_id": waID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	if conv.Messages == nil {
		conv.Messages = []internal.StoredMessage{}
	}
	return &conv, nil
}

// Upsert replaces the conversation document, inserting it when absent
func (s *MongoStore) Upsert(ctx context.Context, conv *internal.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx, bson.M{"wa_id": conv.WaID}, conv, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace failed: %w", err)
	}
	return nil
}

// ListAll returns every conversation ordered by wa_id
func (s *MongoStore) ListAll(ctx context.Context) ([]*internal.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "wa_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	convs := make([]*internal.Conversation, 0)
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("cursor failed: %w", err)
	}
	return convs, nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
