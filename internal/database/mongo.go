package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo opens the document database used when STORE_DRIVER=mongo.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(50))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info().Str("database", cfg.MongoDatabase).Msg("Connected to MongoDB")
	return client.Database(cfg.MongoDatabase), nil
}
