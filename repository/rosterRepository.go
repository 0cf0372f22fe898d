package repository

import (
	"context"
	"errors"
	"time"

	"github.com/joeyave/scala-roster/entity"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type RosterRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewRosterRepository(mongoClient *mongo.Client, dbName string) *RosterRepository {
	return &RosterRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *RosterRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection("rosters")
}

// EnsureIndexes creates the service date index. With unique set the index
// rejects a second roster for the same date.
func (r *RosterRepository) EnsureIndexes(ctx context.Context, unique bool) error {
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "serviceDate", Value: 1}},
		Options: options.Index().SetUnique(unique).SetName("serviceDate_1"),
	})
	return err
}

func (r *RosterRepository) Insert(ctx context.Context, roster *entity.Roster) error {
	if roster.ID.IsZero() {
		roster.ID = bson.NewObjectID()
	}

	_, err := r.collection().InsertOne(ctx, roster)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// ReplaceAssignments overwrites the assignment fields of a stored roster in
// one write. confirmedMembers is left alone so concurrent confirmations
// survive an edit. A non-nil pending batch is queued in the same write.
func (r *RosterRepository) ReplaceAssignments(ctx context.Context, roster *entity.Roster, pending *entity.NotificationBatch) error {
	leadership := roster.Leadership
	if leadership == nil {
		leadership = map[entity.LeadershipRole]entity.MemberRef{}
	}

	update := bson.M{
		"$set": bson.M{
			"serviceDate":        roster.ServiceDate,
			"label":              roster.Label,
			"leadership":         leadership,
			"supportTeam":        roster.SupportTeam,
			"greetingTeam":       roster.GreetingTeam,
			"specialAppearances": roster.SpecialAppearances,
			"assignedAddresses":  roster.AssignedAddresses,
			"updatedAt":          roster.UpdatedAt,
		},
	}
	if pending != nil {
		update["$push"] = bson.M{"pendingBatches": pending}
	}

	res, err := r.collection().UpdateOne(ctx, bson.M{"_id": roster.ID}, update)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RosterRepository) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Roster, error) {
	rosters, err := r.find(ctx, bson.M{"_id": ID})
	if err != nil {
		return nil, err
	}

	return rosters[0], nil
}

func (r *RosterRepository) FindAll(ctx context.Context) ([]*entity.Roster, error) {
	return r.findMany(ctx, bson.M{})
}

func (r *RosterRepository) FindManyFromDate(ctx context.Context, from string) ([]*entity.Roster, error) {
	return r.findMany(ctx, bson.M{
		"serviceDate": bson.M{
			"$gte": from,
		},
	})
}

func (r *RosterRepository) FindManyByServiceDate(ctx context.Context, serviceDate string) ([]*entity.Roster, error) {
	return r.findMany(ctx, bson.M{"serviceDate": serviceDate})
}

func (r *RosterRepository) FindManyWithPendingBatches(ctx context.Context, limit int) ([]*entity.Roster, error) {
	return r.findMany(ctx,
		bson.M{
			"pendingBatches.0": bson.M{"$exists": true},
		},
		bson.M{
			"$limit": limit,
		},
	)
}

// findMany is find without the not-found error: an empty result is a valid list.
func (r *RosterRepository) findMany(ctx context.Context, m bson.M, opts ...bson.M) ([]*entity.Roster, error) {
	rosters, err := r.find(ctx, m, opts...)
	if errors.Is(err, ErrNotFound) {
		return []*entity.Roster{}, nil
	}
	return rosters, err
}

func (r *RosterRepository) find(ctx context.Context, m bson.M, opts ...bson.M) ([]*entity.Roster, error) {
	pipeline := bson.A{
		bson.M{
			"$match": m,
		},
		bson.M{
			"$sort": bson.D{
				{Key: "serviceDate", Value: 1},
				{Key: "_id", Value: 1},
			},
		},
	}

	for _, o := range opts {
		pipeline = append(pipeline, o)
	}

	cur, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rosters []*entity.Roster
	err = cur.All(ctx, &rosters)
	if err != nil {
		return nil, err
	}

	if len(rosters) == 0 {
		return nil, ErrNotFound
	}

	return rosters, nil
}

func (r *RosterRepository) AddConfirmation(ctx context.Context, ID bson.ObjectID, memberID string) error {
	return r.updateOne(ctx, ID, bson.M{
		"$addToSet": bson.M{
			"confirmedMembers": memberID,
		},
		"$set": bson.M{
			"updatedAt": time.Now().UTC(),
		},
	})
}

func (r *RosterRepository) RemoveConfirmation(ctx context.Context, ID bson.ObjectID, memberID string) error {
	return r.updateOne(ctx, ID, bson.M{
		"$pull": bson.M{
			"confirmedMembers": memberID,
		},
		"$set": bson.M{
			"updatedAt": time.Now().UTC(),
		},
	})
}

// UpdatePendingBatch keeps only the undelivered notifications of a queued
// batch and counts the attempt.
func (r *RosterRepository) UpdatePendingBatch(ctx context.Context, ID bson.ObjectID, batchID string, remaining []entity.Notification) error {
	filter := bson.M{
		"_id":               ID,
		"pendingBatches.id": batchID,
	}

	update := bson.M{
		"$set": bson.M{
			"pendingBatches.$.notifications": remaining,
		},
		"$inc": bson.M{
			"pendingBatches.$.attempts": 1,
		},
	}

	res, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RosterRepository) PullPendingBatch(ctx context.Context, ID bson.ObjectID, batchID string) error {
	return r.updateOne(ctx, ID, bson.M{
		"$pull": bson.M{
			"pendingBatches": bson.M{"id": batchID},
		},
	})
}

func (r *RosterRepository) updateOne(ctx context.Context, ID bson.ObjectID, update bson.M) error {
	res, err := r.collection().UpdateOne(ctx, bson.M{"_id": ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RosterRepository) DeleteOneByID(ctx context.Context, ID bson.ObjectID) error {
	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": ID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type rosterChangeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID bson.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *entity.Roster `bson:"fullDocument"`
}

// Watch streams roster changes until ctx is done. Requires a replica set.
func (r *RosterRepository) Watch(ctx context.Context) (<-chan entity.RosterChange, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}

	stream, err := r.collection().Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}

	changes := make(chan entity.RosterChange)
	go func() {
		defer close(changes)
		defer stream.Close(context.Background()) //nolint:errcheck

		for stream.Next(ctx) {
			var event rosterChangeEvent
			if err := stream.Decode(&event); err != nil {
				log.Error().Err(err).Msg("Error decoding roster change:")
				continue
			}

			change := entity.RosterChange{
				RosterID: event.DocumentKey.ID,
				Roster:   event.FullDocument,
			}
			switch event.OperationType {
			case "insert":
				change.Type = entity.RosterInserted
			case "delete":
				change.Type = entity.RosterDeleted
				change.Roster = nil
			default:
				change.Type = entity.RosterUpdated
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Roster change stream stopped:")
		}
	}()

	return changes, nil
}
