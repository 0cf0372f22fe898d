package memory

import (
	"context"
	"sync"

	"github.com/joeyave/scala-roster/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type NotificationRepository struct {
	mu            sync.Mutex
	notifications []entity.Notification
	batchLogs     []entity.BatchLog
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) AppendNotification(_ context.Context, notification entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification.ID.IsZero() {
		notification.ID = bson.NewObjectID()
	}
	r.notifications = append(r.notifications, notification)
	return nil
}

func (r *NotificationRepository) AppendBatchLog(_ context.Context, batchLog entity.BatchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if batchLog.ID.IsZero() {
		batchLog.ID = bson.NewObjectID()
	}
	r.batchLogs = append(r.batchLogs, batchLog)
	return nil
}

func (r *NotificationRepository) Notifications() []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notifications)
}

func (r *NotificationRepository) BatchLogs() []entity.BatchLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.batchLogs)
}

// FindManyByRecipient returns the notifications addressed to recipient in
// append order.
func (r *NotificationRepository) FindManyByRecipient(recipient string) []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []entity.Notification
	for _, n := range r.notifications {
		if n.Recipient == recipient {
			found = append(found, n)
		}
	}
	return found
}
