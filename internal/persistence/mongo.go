package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Mongo wraps the ticket document store client.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects to MongoDB and verifies the primary is reachable.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, errors.New("MONGO_URI not provided")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if timeout := cfg.ConnectTimeout(); timeout > 0 {
		opts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to mongodb", zap.String("database", cfg.Database))
	return &Mongo{Client: client, Database: client.Database(cfg.Database)}, nil
}

// Collection returns a handle on the named collection.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) {
	if m != nil && m.Client != nil {
		_ = m.Client.Disconnect(ctx)
	}
}

// Ping verifies MongoDB connectivity.
func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errors.New("mongo client not configured")
	}
	return m.Client.Ping(ctx, readpref.Primary())
}
