package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joeyave/scala-roster/migrations"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

func main() {
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(os.Getenv("BOT_MONGODB_URI")))
	if err != nil {
		panic(fmt.Sprintf("failed to connect mongo: %v", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		panic(fmt.Sprintf("failed to ping mongo: %v", err))
	}

	dbName := os.Getenv("BOT_MONGODB_NAME")
	if dbName == "" {
		dbName = "scala-roster"
	}

	stats, err := migrations.BackfillRosters(context.Background(), mongoClient, dbName)
	if err != nil {
		panic(fmt.Sprintf("migration failed after %d rosters: %v", stats.Scanned, err))
	}

	fmt.Printf("Migration finished. scanned=%d updated=%d failed=%d\n", stats.Scanned, stats.Updated, stats.Failed)
}
