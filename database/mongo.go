package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const issuesCollection = "issues"

// MongoStore keeps issues in the "issues" collection.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoStore connects to uri and uses database dbName. The driver connects
// lazily, so an unreachable server surfaces on the first operation.
func NewMongoStore(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return &MongoStore{
		client:  client,
		coll:    client.Database(dbName).Collection(issuesCollection),
		timeout: timeout,
	}, nil
}

// NewMongoStoreWithCollection wraps an existing collection.
func NewMongoStoreWithCollection(coll *mongo.Collection, timeout time.Duration) *MongoStore {
	return &MongoStore{client: coll.Database().Client(), coll: coll, timeout: timeout}
}

func (s *MongoStore) Insert(ctx context.Context, issue *models.Issue) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, issue); err != nil {
		return "", mongoError("insert issue", err)
	}
	return issue.ID, nil
}

// ListRecent returns up to limit issues in the collection's natural order,
// with the internal _id projected away.
func (s *MongoStore) ListRecent(ctx context.Context, limit int) ([]models.Issue, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(clampLimit(limit))).
		SetProjection(bson.M{"_id": 0})
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, mongoError("find issues", err)
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, mongoError("decode issues", err)
	}
	if len(issues) > MaxListLimit {
		issues = issues[:MaxListLimit]
	}
	return issues, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return mongoError("ping", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// mongoError marks connectivity failures with ErrStorageUnavailable.
func mongoError(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: failed to %s: %v", ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
