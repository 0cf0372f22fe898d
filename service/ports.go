package service

import (
	"context"

	"github.com/joeyave/scala-roster/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks -exclude_interfaces=RosterStore,MemberDirectory

// RosterStore persists roster entries. Implemented by
// repository.RosterRepository and memory.RosterRepository.
type RosterStore interface {
	Insert(ctx context.Context, roster *entity.Roster) error
	ReplaceAssignments(ctx context.Context, roster *entity.Roster, pending *entity.NotificationBatch) error
	FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Roster, error)
	FindAll(ctx context.Context) ([]*entity.Roster, error)
	FindManyFromDate(ctx context.Context, from string) ([]*entity.Roster, error)
	FindManyByServiceDate(ctx context.Context, serviceDate string) ([]*entity.Roster, error)
	AddConfirmation(ctx context.Context, ID bson.ObjectID, memberID string) error
	RemoveConfirmation(ctx context.Context, ID bson.ObjectID, memberID string) error
	DeleteOneByID(ctx context.Context, ID bson.ObjectID) error
	FindManyWithPendingBatches(ctx context.Context, limit int) ([]*entity.Roster, error)
	UpdatePendingBatch(ctx context.Context, ID bson.ObjectID, batchID string, remaining []entity.Notification) error
	PullPendingBatch(ctx context.Context, ID bson.ObjectID, batchID string) error
	Watch(ctx context.Context) (<-chan entity.RosterChange, error)
}

// MemberDirectory is the read-only member directory.
type MemberDirectory interface {
	Resolve(ctx context.Context, ID string) (*entity.Member, error)
	FindAll(ctx context.Context) ([]*entity.Member, error)
}

// NotificationOutbox is the append-only notification store.
type NotificationOutbox interface {
	AppendNotification(ctx context.Context, notification entity.Notification) error
	AppendBatchLog(ctx context.Context, batchLog entity.BatchLog) error
}

// Courier mirrors an appended notification to an external channel.
type Courier interface {
	Deliver(ctx context.Context, notification entity.Notification) error
}

type NopCourier struct{}

func (NopCourier) Deliver(context.Context, entity.Notification) error { return nil }
