package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type NotificationCategory string

const (
	NotificationRoster NotificationCategory = "roster"
	NotificationAlert  NotificationCategory = "alert"
	NotificationAdmin  NotificationCategory = "admin"
)

type Notification struct {
	ID        bson.ObjectID        `bson:"_id,omitempty" json:"id"`
	Recipient string               `bson:"recipient" json:"recipient"`
	Title     string               `bson:"title" json:"title"`
	Body      string               `bson:"body" json:"body"`
	Link      string               `bson:"link" json:"link"`
	Category  NotificationCategory `bson:"category" json:"category"`
	Read      bool                 `bson:"read" json:"read"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

type BatchStatus string

const (
	BatchSuccess BatchStatus = "Success"
	BatchFailure BatchStatus = "Failure"
)

// BatchLog is the delivery log row written once per fan-out.
type BatchLog struct {
	ID             bson.ObjectID `bson:"_id,omitempty" json:"id"`
	BatchID        string        `bson:"batchId" json:"batchId"`
	Title          string        `bson:"title" json:"title"`
	RecipientCount int           `bson:"recipientCount" json:"recipientCount"`
	Status         BatchStatus   `bson:"status" json:"status"`
	SentAt         time.Time     `bson:"sentAt" json:"sentAt"`
}

// NotificationBatch is one fan-out: member notifications plus the management
// broadcast. RecipientCount counts member notifications only.
type NotificationBatch struct {
	ID             string         `bson:"id" json:"id"`
	Title          string         `bson:"title" json:"title"`
	RecipientCount int            `bson:"recipientCount" json:"recipientCount"`
	Notifications  []Notification `bson:"notifications" json:"notifications"`
	Attempts       int            `bson:"attempts" json:"attempts"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
}
