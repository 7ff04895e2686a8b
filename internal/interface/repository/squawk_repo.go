package repository

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSquawkRepository implements SquawkRepository
type MongoSquawkRepository struct {
	collection *mongo.Collection
}

// NewMongoSquawkRepository creates a new squawk repository
func NewMongoSquawkRepository(db *mongo.Database) repository.SquawkRepository {
	collection := db.Collection("squawks")

	ctx := context.Background()
	aircraftIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "aircraftId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}
	collection.Indexes().CreateOne(ctx, aircraftIndex)

	return &MongoSquawkRepository{collection: collection}
}

// Create inserts a new squawk
func (r *MongoSquawkRepository) Create(ctx context.Context, squawk *entity.Squawk) error {
	now := time.Now()
	if squawk.ID == "" {
		squawk.ID = newObjectID()
	}
	if squawk.Status == "" {
		squawk.Status = entity.SquawkStatusOpen
	}
	squawk.CreatedAt = now
	squawk.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, squawk)
	return err
}

// FindByID finds a squawk by its id
func (r *MongoSquawkRepository) FindByID(ctx context.Context, id string) (*entity.Squawk, error) {
	var squawk entity.Squawk
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&squawk)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFoundf("squawk %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &squawk, nil
}

// SetImpactedFlights stores the snapshot of flight ids a grounding hit
func (r *MongoSquawkRepository) SetImpactedFlights(ctx context.Context, id string, flightIDs []string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"impactedFlightIds": flightIDs,
		"updatedAt":         time.Now(),
	}})
	return err
}
