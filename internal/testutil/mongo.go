package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultTestMongoURI = "mongodb://127.0.0.1:27017"

// NewTestCollection returns an empty, uniquely named tickets collection, or
// skips the test when MongoDB is unreachable.
func NewTestCollection(t *testing.T) *mongo.Collection {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = defaultTestMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("failed to create mongo client: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("skipping MongoDB integration tests: %v", err)
	}

	coll := client.Database("helpdesk_test").Collection(fmt.Sprintf("tickets_%s", primitive.NewObjectID().Hex()))
	t.Cleanup(func() {
		_ = coll.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return coll
}

// TicketSeed is the raw document shape written by the chat bots.
type TicketSeed struct {
	ID           primitive.ObjectID `bson:"_id"`
	TicketCode   string             `bson:"ticketCode"`
	Status       string             `bson:"status"`
	Platform     string             `bson:"platform"`
	ChatID       string             `bson:"chatId"`
	MessageID    string             `bson:"messageId"`
	ReporterName string             `bson:"reporterName,omitempty"`
	Description  string             `bson:"description,omitempty"`
	PIC          string             `bson:"pic,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
	CompletedAt  *time.Time         `bson:"completedAt"`
}

// InsertTicket writes a bot-style ticket document without a version field.
func InsertTicket(t *testing.T, ctx context.Context, coll *mongo.Collection, seed TicketSeed) string {
	t.Helper()
	if seed.ID.IsZero() {
		seed.ID = primitive.NewObjectID()
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	if seed.UpdatedAt.IsZero() {
		seed.UpdatedAt = seed.CreatedAt
	}
	if _, err := coll.InsertOne(ctx, seed); err != nil {
		t.Fatalf("insert ticket: %v", err)
	}
	return seed.ID.Hex()
}
