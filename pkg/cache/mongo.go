package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Default MongoDB locations.
const (
	DefaultMongoDatabase   = "blendgen"
	DefaultMongoCollection = "batches"
)

// MongoCache stores entries as documents keyed by cache key. Expired
// documents are removed by a TTL index on expires_at and are treated as
// misses until the server reaps them.
type MongoCache struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

// NewMongoCache connects to uri (mongodb://host:port), pings the server
// and ensures the TTL index exists.
func NewMongoCache(ctx context.Context, uri string) (*MongoCache, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping mongo: %v", ErrNetwork, err)
	}
	c := NewMongoCacheFromClient(client, DefaultMongoDatabase, DefaultMongoCollection)
	if err := c.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

// NewMongoCacheFromClient wraps an existing client.
func NewMongoCacheFromClient(client *mongo.Client, database, collection string) *MongoCache {
	return &MongoCache{client: client, coll: client.Database(database).Collection(collection)}
}

func (c *MongoCache) ensureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

// classifyMongo marks network errors and timeouts as retryable.
func classifyMongo(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return err
}

// Get implements [Cache].
func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry mongoEntry
	var hit bool
	err := RetryWithBackoff(ctx, func() error {
		err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
		if errors.Is(err, mongo.ErrNoDocuments) {
			hit = false
			return nil
		}
		if err != nil {
			return classifyMongo(err)
		}
		hit = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !hit || entryExpired(entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func entryExpired(expiresAt time.Time) bool {
	return !expiresAt.IsZero() && time.Now().After(expiresAt)
}

// Set implements [Cache]. A ttl <= 0 stores the entry without expiry.
func (c *MongoCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := mongoEntry{Key: key, Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl).UTC()
	}
	return RetryWithBackoff(ctx, func() error {
		_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
		return classifyMongo(err)
	})
}

// Delete implements [Cache].
func (c *MongoCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, func() error {
		_, err := c.coll.DeleteOne(ctx, bson.M{"_id": key})
		return classifyMongo(err)
	})
}

// Clear deletes every document in the collection and returns the count.
func (c *MongoCache) Clear(ctx context.Context) (int, error) {
	res, err := c.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// Close disconnects the client.
func (c *MongoCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Ensure MongoCache implements Cache.
var _ Cache = (*MongoCache)(nil)
