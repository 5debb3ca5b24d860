package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// InitMongo connects to MongoDB and prepares the indexes the repositories rely on.
func InitMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = client.Ping(pingCtx, nil)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	mdb := client.Database(database)

	err = ensureMongoIndexes(ctx, mdb)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	slog.Info("database connected", "driver", "mongo", "database", database)
	return client, mdb, nil
}

func ensureMongoIndexes(ctx context.Context, mdb *mongo.Database) error {
	_, err := mdb.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = mdb.Collection("files").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create files index: %w", err)
	}

	return nil
}

// MongoAlive reports whether the server answers a ping within a second.
func MongoAlive(ctx context.Context, client *mongo.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return client.Ping(ctx, nil) == nil
}
