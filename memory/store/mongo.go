package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/ai-dispatch/memory"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoArchive stores turns in a MongoDB collection.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "ai_dispatch",
		Collection: "turns",
	}
}

// NewMongoArchive connects to MongoDB and ensures the agent/created_at index.
func NewMongoArchive(ctx context.Context, config *MongoConfig) (*MongoArchive, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoArchive{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
	if err := store.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

func (s *MongoArchive) createIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "agent", Value: 1}, {Key: "created_at", Value: -1}},
	}
	_, err := s.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// Record upserts the turn by ID.
func (s *MongoArchive) Record(ctx context.Context, turn *memory.Turn) error {
	if turn == nil {
		return fmt.Errorf("turn cannot be nil")
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": turn.ID}, turn, opts); err != nil {
		return fmt.Errorf("failed to add turn to MongoDB: %w", err)
	}
	return nil
}

// History returns the newest limit turns for the agent, oldest first.
func (s *MongoArchive) History(ctx context.Context, agent string, limit int) ([]*memory.Turn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{"agent": agent}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []*memory.Turn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode turns: %w", err)
	}
	reverse(turns)
	return turns, nil
}

// Clear removes the agent's turns.
func (s *MongoArchive) Clear(ctx context.Context, agent string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"agent": agent}); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (s *MongoArchive) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
