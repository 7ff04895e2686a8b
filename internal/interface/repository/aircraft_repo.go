package repository

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAircraftRepository implements AircraftRepository
type MongoAircraftRepository struct {
	collection *mongo.Collection
}

// NewMongoAircraftRepository creates a new aircraft repository
func NewMongoAircraftRepository(db *mongo.Database) repository.AircraftRepository {
	collection := db.Collection("aircraft")

	ctx := context.Background()
	tailIndex := mongo.IndexModel{
		Keys:    bson.M{"tailNumber": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, tailIndex)

	return &MongoAircraftRepository{collection: collection}
}

// FindByID finds an aircraft by its id
func (r *MongoAircraftRepository) FindByID(ctx context.Context, id string) (*entity.Aircraft, error) {
	var aircraft entity.Aircraft
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&aircraft)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFoundf("aircraft %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &aircraft, nil
}

// Ground marks an aircraft grounded. The update is conditioned on the
// aircraft not already being grounded, so re-grounding is a no-op and
// reports changed=false.
func (r *MongoAircraftRepository) Ground(ctx context.Context, id string) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$ne": entity.AircraftStatusGrounded},
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":    entity.AircraftStatusGrounded,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}
