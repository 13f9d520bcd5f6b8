package database

import (
	"context"
	"time"

	"contractiq/internal/config"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database interface {
	Health() error
	JobDatabase
}

type mongoDB struct {
	client *mongo.Client
	db     *mongo.Database

	contractsCol *mongo.Collection
}

func New(cfg *config.Config) (Database, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.MongoDB.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.MongoDB.Username,
			Password: cfg.MongoDB.Password,
		})
	}

	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDB.DB)

	contractsCol := db.Collection("contracts")
	indexModels := []mongo.IndexModel{
		{
			// Index for status-based queries and claim scans
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			// Index for the lease reclaimer sweep
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "lease_expires_at", Value: 1}},
			Options: options.Index(),
		},
		{
			// Index for sorting listings by upload time
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index(),
		},
		{
			// Index for score-range filters
			Keys:    bson.D{{Key: "score", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err = contractsCol.Indexes().CreateMany(context.Background(), indexModels)
	if err != nil {
		log.Warn().Err(err).Str("Collection", "Contracts").Msg("Error creating indexes")
	}

	return &mongoDB{
		client:       client,
		db:           db,
		contractsCol: contractsCol,
	}, nil
}

// Health implements Database interface
func (m *mongoDB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := m.client.Ping(ctx, nil)
	if err != nil {
		log.Error().Msgf("Database health error: %v", err)
		return err
	}

	return nil
}
