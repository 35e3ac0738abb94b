package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tmaslen/serverless-fb-messenger/models"
)

const eventsCollection = "webhook_events"

// InitMongoDB initializes MongoDB connection
func InitMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("Connected to MongoDB")
	return client, nil
}

// EventArchive is an append-only audit log of inbound messaging events
type EventArchive struct {
	collection *mongo.Collection
}

// NewEventArchive creates the archive on the given database and ensures its indexes
func NewEventArchive(ctx context.Context, db *mongo.Database) (*EventArchive, error) {
	archive := &EventArchive{collection: db.Collection(eventsCollection)}
	if err := archive.createIndexes(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

func (a *EventArchive) createIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"sender_id": 1}},
		{Keys: bson.M{"category": 1}},
		{Keys: bson.M{"delivery_id": 1}},
		{Keys: bson.M{"received_at": -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create event archive indexes: %w", err)
	}
	return nil
}

// Record stores one event
func (a *EventArchive) Record(ctx context.Context, event *models.ArchivedEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	if _, err := a.collection.InsertOne(ctx, event); err != nil {
		slog.Error("Failed to archive event",
			"error", err,
			"category", event.Category,
			"senderID", event.SenderID,
		)
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}

// RecentBySender returns the latest archived events of a sender, newest first
func (a *EventArchive) RecentBySender(ctx context.Context, senderID string, limit int64) ([]models.ArchivedEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := a.collection.Find(ctx, bson.M{"sender_id": senderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.ArchivedEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode archived events: %w", err)
	}
	return events, nil
}
