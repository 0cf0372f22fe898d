package repository

import (
	"context"
	"errors"

	"github.com/joeyave/scala-roster/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MemberRepository reads the member directory. The roster core never writes
// to it.
type MemberRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewMemberRepository(mongoClient *mongo.Client, dbName string) *MemberRepository {
	return &MemberRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *MemberRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection("members")
}

func (r *MemberRepository) Resolve(ctx context.Context, ID string) (*entity.Member, error) {
	var member *entity.Member
	err := r.collection().FindOne(ctx, bson.M{"_id": ID}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (r *MemberRepository) FindAll(ctx context.Context) ([]*entity.Member, error) {
	cur, err := r.collection().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}

	members := []*entity.Member{}
	err = cur.All(ctx, &members)
	if err != nil {
		return nil, err
	}
	return members, nil
}
