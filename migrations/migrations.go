package migrations

import (
	"context"

	"github.com/joeyave/scala-roster/entity"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/exp/slices"
)

type BackfillStats struct {
	Scanned int
	Updated int
	Failed  int
}

// BackfillRosters fills confirmedMembers where it is missing and recomputes
// assignedAddresses from the stored assignments.
func BackfillRosters(ctx context.Context, client *mongo.Client, dbName string) (BackfillStats, error) {
	collection := client.Database(dbName).Collection("rosters")

	var stats BackfillStats

	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return stats, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		stats.Scanned++

		var roster entity.Roster
		if err := cursor.Decode(&roster); err != nil {
			stats.Failed++
			log.Error().Err(err).Msg("Error decoding roster:")
			continue
		}

		set := bson.M{}
		if roster.ConfirmedMembers == nil {
			set["confirmedMembers"] = []string{}
		}
		addresses := roster.RecipientAddresses()
		if !slices.Equal(addresses, roster.AssignedAddresses) {
			set["assignedAddresses"] = addresses
		}
		if len(set) == 0 {
			continue
		}

		_, err := collection.UpdateOne(ctx, bson.M{"_id": roster.ID}, bson.M{"$set": set})
		if err != nil {
			return stats, err
		}
		stats.Updated++
	}

	return stats, cursor.Err()
}
