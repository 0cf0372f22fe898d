package repository

import (
	"context"

	"github.com/joeyave/scala-roster/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// NotificationRepository is the append-only notification outbox.
type NotificationRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewNotificationRepository(mongoClient *mongo.Client, dbName string) *NotificationRepository {
	return &NotificationRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *NotificationRepository) AppendNotification(ctx context.Context, notification entity.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = bson.NewObjectID()
	}

	collection := r.mongoClient.Database(r.dbName).Collection("notifications")
	_, err := collection.InsertOne(ctx, notification)
	return err
}

func (r *NotificationRepository) AppendBatchLog(ctx context.Context, batchLog entity.BatchLog) error {
	if batchLog.ID.IsZero() {
		batchLog.ID = bson.NewObjectID()
	}

	collection := r.mongoClient.Database(r.dbName).Collection("notificationBatches")
	_, err := collection.InsertOne(ctx, batchLog)
	return err
}
